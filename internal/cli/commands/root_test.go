package commands

import (
	"testing"
)

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()

	if cmd.Use != "shellkit" {
		t.Errorf("expected Use to be 'shellkit', got %s", cmd.Use)
	}

	if cmd.Short == "" {
		t.Error("expected Short description to be set")
	}

	if cmd.Long == "" {
		t.Error("expected Long description to be set")
	}

	if cmd.RunE == nil {
		t.Error("expected bare invocation to run the REPL")
	}

	expectedCommands := []string{
		"version",
		"run",
		"serve",
	}

	for _, expected := range expectedCommands {
		found := false
		for _, sub := range cmd.Commands() {
			if sub.Name() == expected {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected command %s to be registered", expected)
		}
	}
}

func TestNewVersionCommand(t *testing.T) {
	Version = "1.0.0-test"
	GitCommit = "abc123"
	BuildDate = "2025-01-01"
	GoVersion = "go1.23"

	cmd := NewVersionCommand()

	if cmd.Use != "version" {
		t.Errorf("expected Use to be 'version', got %s", cmd.Use)
	}

	if cmd.Run == nil {
		t.Fatal("version command Run function is nil")
	}

	cmd.Run(cmd, []string{})
}

func TestExecute(t *testing.T) {
	Version = "test"
	GitCommit = "test"
	BuildDate = "test"
	GoVersion = "test"

	cmd := NewRootCommand()
	if cmd == nil {
		t.Error("NewRootCommand returned nil")
	}
}
