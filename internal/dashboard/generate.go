package dashboard

import (
	"embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"robotarena-sim/internal/telemetry"
)

//go:embed templates/*.tmpl
var templates embed.FS

// Tables names the GreptimeDB tables the dashboard queries.
type Tables struct {
	AgentTable string
	EventTable string
	StateTable string
}

// DefaultTables returns the table names used by the GreptimeDB writer.
func DefaultTables() Tables {
	return Tables{
		AgentTable: telemetry.AgentRow{}.TableName(),
		EventTable: telemetry.EventRow{}.TableName(),
		StateTable: telemetry.StateRow{}.TableName(),
	}
}

var funcMap = template.FuncMap{
	"env": func(key string) (string, error) {
		v := os.Getenv(key)
		if v == "" {
			return "", fmt.Errorf("environment variable %s not set", key)
		}
		return v, nil
	},
}

func parse() (*template.Template, error) {
	return template.New("dashboards").Funcs(funcMap).ParseFS(templates, "templates/*.tmpl")
}

// Render writes every dashboard template to outDir with the .tmpl suffix removed.
func Render(outDir string, tables Tables) error {
	t, err := parse()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	for _, tpl := range t.Templates() {
		name := tpl.Name()
		if !strings.HasSuffix(name, ".tmpl") {
			continue
		}
		outPath := filepath.Join(outDir, strings.TrimSuffix(name, ".tmpl"))
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		if err := tpl.Execute(f, tables); err != nil {
			f.Close()
			return fmt.Errorf("render %s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}

// RenderTo writes a single named dashboard to w.
func RenderTo(w io.Writer, name string, tables Tables) error {
	t, err := parse()
	if err != nil {
		return err
	}
	tpl := t.Lookup(name + ".tmpl")
	if tpl == nil {
		return fmt.Errorf("unknown dashboard %q", name)
	}
	return tpl.Execute(w, tables)
}
