package scenario

import (
	"strings"
	"testing"

	"robotarena-sim/internal/world"
)

func TestScenarioTransition(t *testing.T) {
	s := Scenario{
		Phases: []Phase{{
			Name:     "patrol",
			Triggers: []Trigger{{Event: EventTick, Value: 10, Next: "attack"}},
		}, {
			Name: "attack",
		}},
	}

	if _, ok := s.NextPhase("patrol", Event{Type: EventTick, Value: 9}); ok {
		t.Fatalf("transition fired below threshold")
	}
	next, ok := s.NextPhase("patrol", Event{Type: EventTick, Value: 10})
	if !ok || next != "attack" {
		t.Fatalf("expected transition to attack, got %s", next)
	}
	if _, ok := s.NextPhase("patrol", Event{Type: EventCollisions, Value: 100}); ok {
		t.Fatalf("transition fired for wrong event type")
	}
}

func TestLoadScenario(t *testing.T) {
	sc, err := Load("testdata/simple.yaml")
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	if sc.Name != "example" {
		t.Fatalf("unexpected name %s", sc.Name)
	}
	if sc.Description != "basic test scenario" {
		t.Fatalf("unexpected description %s", sc.Description)
	}
	if len(sc.Phases) != 2 {
		t.Fatalf("expected 2 phases, got %d", len(sc.Phases))
	}
	if sc.First() != "patrol" {
		t.Fatalf("first phase = %s", sc.First())
	}
	a := sc.Phases[0].Actions[0]
	if a.Agent != 10 || a.Command != string(world.StartMoveForward) {
		t.Fatalf("unexpected action %+v", a)
	}
	finish, ok := sc.Phase("finish")
	if !ok || !finish.Actions[1].CompleteTask {
		t.Fatalf("finish phase = %+v", finish)
	}
}

func TestLoadScenarioRejectsBrokenScript(t *testing.T) {
	_, err := Load("testdata/broken.yaml")
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"fly_away", "moon_phase", "nowhere"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestBuiltInArcs(t *testing.T) {
	arcs := BuiltIn()
	names := []string{"patrol", "crash-test", "endurance"}
	phases := []string{"setup", "escalation", "climax", "resolution"}
	for _, n := range names {
		arc, ok := arcs[n]
		if !ok {
			t.Fatalf("arc %s not found", n)
		}
		if arc.Description == "" {
			t.Fatalf("arc %s missing description", n)
		}
		if err := arc.Validate(); err != nil {
			t.Fatalf("arc %s invalid: %v", n, err)
		}
		if len(arc.Phases) != len(phases) {
			t.Fatalf("arc %s expected %d phases, got %d", n, len(phases), len(arc.Phases))
		}
		for i, ph := range phases {
			if arc.Phases[i].Name != ph {
				t.Fatalf("arc %s phase %d expected %s got %s", n, i, ph, arc.Phases[i].Name)
			}
		}
	}
}
