// Package scene reads and writes arena layouts.
//
// The line format holds one record per line:
//
//	Obstacle <id> <x> <y> <size>
//	Robot <autonomous|remote> <id> <x> <y> <speed> <orientation> <sensor_range>
//
// Blank lines and lines starting with # are skipped. The same content can be
// stored as YAML with obstacles and robots lists.
package scene

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"robotarena-sim/internal/world"
)

// ErrUnknownRecord is returned by ParseLine for an unrecognised record type.
var ErrUnknownRecord = errors.New("unknown record type")

// Scene is an ordered set of obstacle and robot descriptions.
type Scene struct {
	Obstacles []world.ObstacleSpec `yaml:"obstacles" json:"obstacles"`
	Robots    []world.Spec         `yaml:"robots" json:"robots"`
}

// Len returns the number of records in the scene.
func (sc *Scene) Len() int { return len(sc.Obstacles) + len(sc.Robots) }

// Merge appends the records of other.
func (sc *Scene) Merge(other *Scene) {
	sc.Obstacles = append(sc.Obstacles, other.Obstacles...)
	sc.Robots = append(sc.Robots, other.Robots...)
}

// ParseLine decodes one record. Blank and comment lines yield an empty scene.
func ParseLine(line string) (*Scene, error) {
	sc := &Scene{}
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return sc, nil
	}
	fields := strings.Fields(line)
	switch fields[0] {
	case "Obstacle":
		o, err := parseObstacle(fields[1:])
		if err != nil {
			return nil, err
		}
		sc.Obstacles = append(sc.Obstacles, o)
	case "Robot":
		r, err := parseRobot(fields[1:])
		if err != nil {
			return nil, err
		}
		sc.Robots = append(sc.Robots, r)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownRecord, fields[0])
	}
	return sc, nil
}

func parseObstacle(f []string) (world.ObstacleSpec, error) {
	if len(f) < 4 {
		return world.ObstacleSpec{}, fmt.Errorf("obstacle: want 4 fields, got %d", len(f))
	}
	id, err := strconv.Atoi(f[0])
	if err != nil {
		return world.ObstacleSpec{}, fmt.Errorf("obstacle id: %w", err)
	}
	v, err := parseFloats(f[1:4])
	if err != nil {
		return world.ObstacleSpec{}, fmt.Errorf("obstacle %d: %w", id, err)
	}
	return world.ObstacleSpec{ID: id, X: v[0], Y: v[1], Size: v[2]}, nil
}

func parseRobot(f []string) (world.Spec, error) {
	if len(f) < 7 {
		return world.Spec{}, fmt.Errorf("robot: want 7 fields, got %d", len(f))
	}
	kind, err := world.ParseKind(f[0])
	if err != nil {
		return world.Spec{}, err
	}
	id, err := strconv.Atoi(f[1])
	if err != nil {
		return world.Spec{}, fmt.Errorf("robot id: %w", err)
	}
	v, err := parseFloats(f[2:7])
	if err != nil {
		return world.Spec{}, fmt.Errorf("robot %d: %w", id, err)
	}
	return world.Spec{
		Kind:        kind,
		ID:          id,
		X:           v[0],
		Y:           v[1],
		Speed:       v[2],
		Orientation: v[3],
		SensorRange: v[4],
	}, nil
}

func parseFloats(f []string) ([]float64, error) {
	out := make([]float64, len(f))
	for i, s := range f {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Parse reads a line-format scene. Malformed records are logged and skipped
// and unknown record types are ignored, so only read errors are returned.
func Parse(r io.Reader, log *slog.Logger) (*Scene, error) {
	if log == nil {
		log = slog.Default()
	}
	sc := &Scene{}
	s := bufio.NewScanner(r)
	n := 0
	for s.Scan() {
		n++
		rec, err := ParseLine(s.Text())
		switch {
		case errors.Is(err, ErrUnknownRecord):
			log.Debug("scene record ignored", "line", n, "error", err)
			continue
		case err != nil:
			log.Warn("scene record skipped", "line", n, "error", err)
			continue
		}
		sc.Merge(rec)
	}
	if err := s.Err(); err != nil {
		return sc, fmt.Errorf("read scene: %w", err)
	}
	return sc, nil
}

// Write encodes the scene in the line format. Obstacles come first.
func Write(w io.Writer, sc *Scene) error {
	bw := bufio.NewWriter(w)
	for _, o := range sc.Obstacles {
		fmt.Fprintf(bw, "Obstacle %d %s %s %s\n", o.ID, ff(o.X), ff(o.Y), ff(o.Size))
	}
	for _, r := range sc.Robots {
		fmt.Fprintf(bw, "Robot %s %d %s %s %s %s %s\n", r.Kind, r.ID,
			ff(r.X), ff(r.Y), ff(r.Speed), ff(r.Orientation), ff(r.SensorRange))
	}
	return bw.Flush()
}

func ff(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// FromWorld captures the current layout of w.
func FromWorld(w *world.World) *Scene {
	sc := &Scene{}
	for _, o := range w.Obstacles() {
		sc.Obstacles = append(sc.Obstacles, o.Spec())
	}
	for _, a := range w.Agents() {
		sc.Robots = append(sc.Robots, world.SpecOf(a))
	}
	return sc
}

// Apply adds every record to w. Records rejected by the world, such as
// duplicate ids, are logged and skipped. It returns the number added.
func (sc *Scene) Apply(w *world.World, p world.Params, log *slog.Logger) int {
	if log == nil {
		log = slog.Default()
	}
	added := 0
	for _, o := range sc.Obstacles {
		if err := w.AddObstacle(o.Build()); err != nil {
			log.Warn("obstacle not added", "error", err)
			continue
		}
		added++
	}
	for _, spec := range sc.Robots {
		a, err := world.NewAgent(spec, p)
		if err == nil {
			err = w.AddAgent(a)
		}
		if err != nil {
			log.Warn("robot not added", "error", err)
			continue
		}
		added++
	}
	return added
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// LoadFile reads a scene, choosing YAML for .yaml/.yml paths and the line
// format otherwise.
func LoadFile(path string, log *slog.Logger) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scene: %w", err)
	}
	defer f.Close()
	if !isYAML(path) {
		return Parse(f, log)
	}
	sc := &Scene{}
	if err := yaml.NewDecoder(f).Decode(sc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode scene %s: %w", path, err)
	}
	for i := range sc.Robots {
		if _, err := world.ParseKind(string(sc.Robots[i].Kind)); err != nil {
			return nil, fmt.Errorf("scene %s robot %d: %w", path, sc.Robots[i].ID, err)
		}
	}
	return sc, nil
}

// SaveFile writes sc using the format implied by the path extension.
func SaveFile(path string, sc *Scene) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create scene: %w", err)
	}
	if isYAML(path) {
		enc := yaml.NewEncoder(f)
		enc.SetIndent(2)
		err = enc.Encode(sc)
		if cerr := enc.Close(); err == nil {
			err = cerr
		}
	} else {
		err = Write(f, sc)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
