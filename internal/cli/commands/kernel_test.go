package commands

import (
	"errors"
	"strings"
	"testing"

	"github.com/shellkit/shellkit/registry"
)

func TestFormatRunErrorRendersToolNotFoundSuggestions(t *testing.T) {
	err := &registry.NotFoundError{Name: "ech", Suggestions: []string{"echo"}}

	out := formatRunError(err, true)
	if !strings.Contains(out, "ech") {
		t.Errorf("expected rendered error to mention the unresolved name, got %q", out)
	}
	if !strings.Contains(out, "echo") {
		t.Errorf("expected rendered error to include the suggestion, got %q", out)
	}
}

func TestFormatRunErrorFallsBackForOtherErrors(t *testing.T) {
	out := formatRunError(errors.New("boom"), true)
	if !strings.Contains(out, "boom") {
		t.Errorf("expected rendered error to include the original message, got %q", out)
	}
}
