package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runRoot(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	if err := Execute(context.Background()); err != nil {
		t.Fatalf("Execute(%q) error = %v", args, err)
	}
	return out.String()
}

func TestEventCommandsAgainstSQLite(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	config := "database:\n  driver: sqlite\n  dsn: " + filepath.Join(dir, "events.sqlite") + "\nlog:\n  level: error\n"
	if err := os.WriteFile(configPath, []byte(config), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	intakePath := filepath.Join(dir, "intake.toml")
	intake := "title = \"Smoke alarm\"\ncategory = \"fire\"\nseverity = \"medium\"\n"
	if err := os.WriteFile(intakePath, []byte(intake), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	out := runRoot(t, "--config", configPath, "init-db")
	if !strings.Contains(out, "database schema initialized") {
		t.Fatalf("init-db output = %q", out)
	}

	out = runRoot(t, "--config", configPath, "event", "create", "--file", intakePath, "--severity", "high")
	id := strings.TrimSpace(strings.TrimPrefix(out, "created event:"))
	if id == "" || id == strings.TrimSpace(out) {
		t.Fatalf("create output = %q", out)
	}

	out = runRoot(t, "--config", configPath, "event", "advance", id, "--actor", "lead")
	if !strings.Contains(out, "In Progress") {
		t.Fatalf("advance output = %q", out)
	}

	out = runRoot(t, "--config", configPath, "event", "show", id, "--output", "json")
	for _, want := range []string{`"severity": "high"`, `"status": "in_progress"`, `"Status changed to In Progress"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("show output missing %s:\n%s", want, out)
		}
	}
}
