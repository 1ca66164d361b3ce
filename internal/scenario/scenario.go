package scenario

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"robotarena-sim/internal/world"
)

// Trigger event types understood by the simulator.
const (
	// EventTick counts ticks spent in the current phase.
	EventTick = "tick"
	// EventTimeElapsed counts whole seconds since the run started.
	EventTimeElapsed = "time_elapsed"
	// EventCollisions is the running collision total.
	EventCollisions = "collisions"
)

// Scenario is a scripted run made of ordered phases.
type Scenario struct {
	Name        string  `yaml:"name,omitempty"`
	Description string  `yaml:"description,omitempty"`
	Phases      []Phase `yaml:"phases"`
}

// Phase describes a stage of the run. Its actions are applied once when the
// phase is entered.
type Phase struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Actions     []Action  `yaml:"actions,omitempty"`
	Triggers    []Trigger `yaml:"triggers,omitempty"`
}

// Action drives agents when a phase begins. Agent 0 addresses every remote
// agent for commands and every agent for task completion.
type Action struct {
	Agent        int    `yaml:"agent,omitempty"`
	Command      string `yaml:"command,omitempty"`
	CompleteTask bool   `yaml:"complete_task,omitempty"`
}

// Trigger moves the scenario to another phase based on an event.
type Trigger struct {
	Event string `yaml:"event"`
	Value int    `yaml:"value"`
	Next  string `yaml:"next"`
}

// Event represents a runtime occurrence that may advance the scenario.
type Event struct {
	Type  string
	Value int
}

// Load reads a YAML scenario definition from disk and validates it.
func Load(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &s, nil
}

// Validate checks that triggers point at known phases and actions carry
// recognised commands.
func (s *Scenario) Validate() error {
	if len(s.Phases) == 0 {
		return errors.New("no phases")
	}
	var errs []error
	for _, p := range s.Phases {
		for _, a := range p.Actions {
			if a.Command == "" {
				continue
			}
			if _, ok := world.ParseCommand(a.Command); !ok {
				errs = append(errs, fmt.Errorf("phase %s: unknown command %q", p.Name, a.Command))
			}
		}
		for _, tr := range p.Triggers {
			if _, ok := s.Phase(tr.Next); !ok {
				errs = append(errs, fmt.Errorf("phase %s: trigger targets unknown phase %q", p.Name, tr.Next))
			}
			switch tr.Event {
			case EventTick, EventTimeElapsed, EventCollisions:
			default:
				errs = append(errs, fmt.Errorf("phase %s: unknown trigger event %q", p.Name, tr.Event))
			}
		}
	}
	return errors.Join(errs...)
}

// First returns the name of the opening phase.
func (s *Scenario) First() string {
	if len(s.Phases) == 0 {
		return ""
	}
	return s.Phases[0].Name
}

// Phase looks up a phase by name.
func (s *Scenario) Phase(name string) (Phase, bool) {
	for _, p := range s.Phases {
		if p.Name == name {
			return p, true
		}
	}
	return Phase{}, false
}

// NextPhase returns the name of the next phase given the current phase and event.
// If no trigger matches, ok will be false.
func (s *Scenario) NextPhase(current string, ev Event) (next string, ok bool) {
	for _, p := range s.Phases {
		if p.Name != current {
			continue
		}
		for _, tr := range p.Triggers {
			if tr.Event == ev.Type && ev.Value >= tr.Value {
				return tr.Next, true
			}
		}
	}
	return "", false
}
