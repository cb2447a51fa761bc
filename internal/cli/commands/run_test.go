package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestNewRunCommand(t *testing.T) {
	cmd := NewRunCommand()

	if cmd.Use != "run <script> [args...]" {
		t.Errorf("expected Use to name script and args, got %s", cmd.Use)
	}

	if cmd.Short == "" {
		t.Error("expected Short description to be set")
	}

	if cmd.Flags().Lookup("no-color") == nil {
		t.Error("expected --no-color flag to be registered")
	}
}

func TestRunRun_ScriptNotFound(t *testing.T) {
	cmd := NewRunCommand()
	var stderr bytes.Buffer
	cmd.SetErr(&stderr)

	err := runRun(cmd, []string{"/no/such/script.sh"})
	if err == nil {
		t.Error("expected an error reading a missing script")
	}
}

func TestRunRun_LexError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.sh")
	if err := os.WriteFile(path, []byte("echo \"unterminated"), 0644); err != nil {
		t.Fatalf("writing script: %v", err)
	}

	cmd := NewRunCommand()
	var stderr bytes.Buffer
	cmd.SetErr(&stderr)

	err := runRun(cmd, []string{path})
	if err == nil {
		t.Error("expected a lexing error for an unterminated string")
	}
}

func TestScriptArgsBindsPositionalParameters(t *testing.T) {
	vals := scriptArgs([]string{"staging", "us-east-1"})
	if len(vals) != 2 {
		t.Fatalf("expected 2 positional values, got %d", len(vals))
	}
	if vals[0].String() != "staging" || vals[1].String() != "us-east-1" {
		t.Errorf("unexpected positional values: %v", vals)
	}
}
