package scene

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"robotarena-sim/internal/world"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)) }

func TestParseSkipsBadRecords(t *testing.T) {
	f, err := os.Open("testdata/mixed.txt")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	var logBuf bytes.Buffer
	sc, err := Parse(f, slog.New(slog.NewTextHandler(&logBuf, nil)))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(sc.Obstacles) != 1 || len(sc.Robots) != 2 {
		t.Fatalf("got %d obstacles %d robots", len(sc.Obstacles), len(sc.Robots))
	}
	if sc.Obstacles[0] != (world.ObstacleSpec{ID: 1, X: 150, Y: 100, Size: 20}) {
		t.Errorf("obstacle = %+v", sc.Obstacles[0])
	}
	want := world.Spec{Kind: world.KindAutonomous, ID: 1, X: 100, Y: 100, Speed: 5, SensorRange: 50}
	if sc.Robots[0] != want {
		t.Errorf("robot = %+v", sc.Robots[0])
	}
	if sc.Robots[1].Kind != world.KindRemote || sc.Robots[1].Orientation != 90 {
		t.Errorf("remote = %+v", sc.Robots[1])
	}
	// The unknown robot kind, the bad id and the short record are warnings.
	if n := strings.Count(logBuf.String(), "scene record skipped"); n != 3 {
		t.Errorf("skipped warnings = %d, log:\n%s", n, logBuf.String())
	}
}

func TestParseLine(t *testing.T) {
	if _, err := ParseLine("Wall 1 2 3"); !errors.Is(err, ErrUnknownRecord) {
		t.Fatalf("expected ErrUnknownRecord, got %v", err)
	}
	if _, err := ParseLine("Robot tank 1 0 0 1 0 1"); !errors.Is(err, world.ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
	sc, err := ParseLine("   # note")
	if err != nil || sc.Len() != 0 {
		t.Fatalf("comment produced %v %v", sc, err)
	}
	sc, err = ParseLine("Obstacle 9 1.5 2.5 3")
	if err != nil || sc.Len() != 1 || sc.Obstacles[0].X != 1.5 {
		t.Fatalf("obstacle line: %+v %v", sc, err)
	}
}

func TestWriteParseRoundTrip(t *testing.T) {
	sc := &Scene{
		Obstacles: []world.ObstacleSpec{{ID: 1, X: 10, Y: 20, Size: 4.5}},
		Robots: []world.Spec{
			{Kind: world.KindRemote, ID: 2, X: 1, Y: 2, Speed: 3, Orientation: 270, SensorRange: 40},
		},
	}
	var buf bytes.Buffer
	if err := Write(&buf, sc); err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := "Obstacle 1 10 20 4.5\nRobot remote 2 1 2 3 270 40\n"
	if buf.String() != want {
		t.Fatalf("Write output = %q", buf.String())
	}
	got, err := Parse(&buf, quiet())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.Obstacles[0] != sc.Obstacles[0] || got.Robots[0] != sc.Robots[0] {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestApplyAndFromWorld(t *testing.T) {
	sc := &Scene{
		Obstacles: []world.ObstacleSpec{{ID: 1, X: 50, Y: 50, Size: 10}, {ID: 1, X: 60, Y: 60, Size: 10}},
		Robots: []world.Spec{
			{Kind: world.KindAutonomous, ID: 1, X: 100, Y: 100, Speed: 1, SensorRange: 30},
			{Kind: world.KindRemote, ID: 2, X: 200, Y: 200, SensorRange: 30},
			{Kind: world.KindRemote, ID: 2, X: 300, Y: 300, SensorRange: 30},
		},
	}
	w := world.New(800, 600)
	if n := sc.Apply(w, world.DefaultParams(), quiet()); n != 3 {
		t.Fatalf("Apply added %d, want 3", n)
	}
	if len(w.RemoteAgents()) != 1 {
		t.Fatalf("remote index = %d", len(w.RemoteAgents()))
	}
	back := FromWorld(w)
	if len(back.Obstacles) != 1 || len(back.Robots) != 2 {
		t.Fatalf("FromWorld = %+v", back)
	}
	if back.Robots[1].X != 200 {
		t.Fatalf("duplicate replaced original: %+v", back.Robots[1])
	}
}

func TestApplyClampsOutOfBoundsRobot(t *testing.T) {
	sc, err := Parse(strings.NewReader("Robot autonomous 1 -50 900 0 0 40\n"), quiet())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	w := world.New(800, 600)
	if n := sc.Apply(w, world.DefaultParams(), quiet()); n != 1 {
		t.Fatalf("Apply added %d, want 1", n)
	}
	if p := w.Agent(1).Position(); p.X != 0 || p.Y != 600 {
		t.Fatalf("position = %+v, want (0,600)", p)
	}
}

func TestSaveLoadFileFormats(t *testing.T) {
	sc := &Scene{
		Obstacles: []world.ObstacleSpec{{ID: 3, X: 5, Y: 6, Size: 7}},
		Robots:    []world.Spec{{Kind: world.KindAutonomous, ID: 4, X: 8, Y: 9, Speed: 1, Orientation: 45, SensorRange: 20}},
	}
	dir := t.TempDir()
	for _, name := range []string{"scene.txt", "scene.yaml"} {
		path := filepath.Join(dir, name)
		if err := SaveFile(path, sc); err != nil {
			t.Fatalf("SaveFile(%s): %v", name, err)
		}
		got, err := LoadFile(path, quiet())
		if err != nil {
			t.Fatalf("LoadFile(%s): %v", name, err)
		}
		if len(got.Obstacles) != 1 || got.Obstacles[0] != sc.Obstacles[0] {
			t.Errorf("%s obstacles = %+v", name, got.Obstacles)
		}
		if len(got.Robots) != 1 || got.Robots[0] != sc.Robots[0] {
			t.Errorf("%s robots = %+v", name, got.Robots)
		}
	}
	raw, _ := os.ReadFile(filepath.Join(dir, "scene.yaml"))
	if !strings.Contains(string(raw), "sensor_range: 20") {
		t.Errorf("yaml output missing snake case keys:\n%s", raw)
	}
}

func TestLoadFileRejectsBadYAMLKind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yml")
	body := "robots:\n  - {kind: blimp, id: 1}\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path, quiet()); !errors.Is(err, world.ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestShippedScenesLoad(t *testing.T) {
	for _, path := range []string{"../../scenes/arena.txt", "../../scenes/arena.yaml"} {
		sc, err := LoadFile(path, quiet())
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		w := world.New(800, 600)
		if n := sc.Apply(w, world.DefaultParams(), quiet()); n != sc.Len() {
			t.Fatalf("%s: applied %d of %d", path, n, sc.Len())
		}
	}
}
