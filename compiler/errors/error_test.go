package errors

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestError_Creation(t *testing.T) {
	loc := SourceLocation{File: "deploy.sh", Line: 15, Column: 7, Length: 9}

	err := New(KindParse, ErrSingleBracketTest, "single-bracket test is not supported", loc, Error)

	if err.Kind != KindParse {
		t.Errorf("expected kind parse, got %s", err.Kind)
	}
	if err.Code != ErrSingleBracketTest {
		t.Errorf("expected code %s, got %s", ErrSingleBracketTest, err.Code)
	}
	if err.Severity != Error {
		t.Errorf("expected severity Error, got %v", err.Severity)
	}
	if err.Location.Line != 15 {
		t.Errorf("expected line 15, got %d", err.Location.Line)
	}
}

func TestError_String(t *testing.T) {
	loc := SourceLocation{File: "deploy.sh", Line: 3, Column: 1}
	err := New(KindLex, ErrBacktickRejected, "backtick is a lex error", loc, Error)

	got := err.Error()
	if !strings.Contains(got, "deploy.sh:3:1") {
		t.Errorf("expected location prefix in %q", got)
	}
	if !strings.Contains(got, ErrBacktickRejected) {
		t.Errorf("expected code in %q", got)
	}
}

func TestError_WithContext(t *testing.T) {
	loc := SourceLocation{File: "deploy.sh", Line: 2, Column: 3, Length: 1}
	err := New(KindParse, ErrExpectedParen, "expected ')'", loc, Error)

	ctx := ErrorContext{
		SourceLines: []string{"if [[ $x", "tool run(", "fi"},
		Highlight:   Highlight{Line: 1, Start: 8, End: 9},
	}
	err = err.WithContext(ctx)

	if len(err.Context.SourceLines) != 3 {
		t.Fatalf("expected 3 source lines, got %d", len(err.Context.SourceLines))
	}
}

func TestError_WithSuggestion(t *testing.T) {
	loc := SourceLocation{File: "deploy.sh", Line: 1, Column: 1, Length: 1}
	err := New(KindParse, ErrSingleBracketTest, "use [[ ]] instead", loc, Error)
	err = err.WithSuggestion(FixSuggestion{
		Description: "Use '[[ ... ]]'",
		NewCode:     "[[ $x == 1 ]]",
		Confidence:  0.9,
	})

	if err.Suggestion == nil {
		t.Fatal("expected a suggestion to be attached")
	}
	if err.Suggestion.Confidence != 0.9 {
		t.Errorf("expected confidence 0.9, got %f", err.Suggestion.Confidence)
	}
}

func TestError_WithRelatedError(t *testing.T) {
	loc1 := SourceLocation{File: "deploy.sh", Line: 1, Column: 1}
	loc2 := SourceLocation{File: "deploy.sh", Line: 5, Column: 1}

	main := New(KindName, ErrUndefinedTool, "undefined tool 'depoy'", loc1, Error)
	related := New(KindName, ErrUndefinedTool, "did you mean 'deploy'?", loc2, Info)

	main = main.WithRelatedError(related)

	if len(main.RelatedErrors) != 1 {
		t.Fatalf("expected 1 related error, got %d", len(main.RelatedErrors))
	}
}

func TestSeverity_JSONRoundTrip(t *testing.T) {
	for _, sev := range []Severity{Info, Warning, Error, Fatal} {
		data, err := json.Marshal(sev)
		if err != nil {
			t.Fatalf("marshal failed for %v: %v", sev, err)
		}

		var decoded Severity
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("unmarshal failed for %s: %v", data, err)
		}
		if decoded != sev {
			t.Errorf("round trip mismatch: %v != %v", sev, decoded)
		}
	}
}

func TestKernelError_MarshalJSON(t *testing.T) {
	loc := SourceLocation{File: "deploy.sh", Line: 1, Column: 1, Length: 1}
	err := New(KindArgument, ErrMissingRequiredParam, "missing required parameter 'env'", loc, Error)

	data, marshalErr := json.Marshal(err)
	if marshalErr != nil {
		t.Fatalf("unexpected marshal error: %v", marshalErr)
	}

	var decoded map[string]interface{}
	if unmarshalErr := json.Unmarshal(data, &decoded); unmarshalErr != nil {
		t.Fatalf("unexpected unmarshal error: %v", unmarshalErr)
	}
	if decoded["code"] != ErrMissingRequiredParam {
		t.Errorf("expected code %s in JSON, got %v", ErrMissingRequiredParam, decoded["code"])
	}
	if decoded["kind"] != string(KindArgument) {
		t.Errorf("expected kind %s in JSON, got %v", KindArgument, decoded["kind"])
	}
}

func TestKernelError_SeverityPredicates(t *testing.T) {
	loc := SourceLocation{}
	tests := []struct {
		severity  Severity
		isError   bool
		isWarning bool
		isInfo    bool
		isFatal   bool
	}{
		{Info, false, false, true, false},
		{Warning, false, true, false, false},
		{Error, true, false, false, false},
		{Fatal, true, false, false, true},
	}
	for _, tt := range tests {
		err := New(KindInternal, ErrInternal, "x", loc, tt.severity)
		if err.IsError() != tt.isError {
			t.Errorf("%v: IsError() = %v, want %v", tt.severity, err.IsError(), tt.isError)
		}
		if err.IsWarning() != tt.isWarning {
			t.Errorf("%v: IsWarning() = %v, want %v", tt.severity, err.IsWarning(), tt.isWarning)
		}
		if err.IsInfo() != tt.isInfo {
			t.Errorf("%v: IsInfo() = %v, want %v", tt.severity, err.IsInfo(), tt.isInfo)
		}
		if err.IsFatal() != tt.isFatal {
			t.Errorf("%v: IsFatal() = %v, want %v", tt.severity, err.IsFatal(), tt.isFatal)
		}
	}
}

func TestErrorRecovery_Basic(t *testing.T) {
	r := NewErrorRecovery()
	loc := SourceLocation{File: "deploy.sh", Line: 1, Column: 1}

	r.Recover(New(KindParse, ErrUnexpectedToken, "unexpected token", loc, Error))
	r.Recover(New(KindName, ErrUndefinedVariable, "undefined variable 'ENV'", loc, Warning))

	if !r.HasErrors() {
		t.Error("expected HasErrors() to be true")
	}
	if !r.HasWarnings() {
		t.Error("expected HasWarnings() to be true")
	}
	if r.ErrorCount() != 1 || r.WarningCount() != 1 {
		t.Errorf("expected 1 error and 1 warning, got %d/%d", r.ErrorCount(), r.WarningCount())
	}
}

func TestErrorRecovery_MaxCount(t *testing.T) {
	r := NewErrorRecoveryWithMax(2)
	loc := SourceLocation{File: "deploy.sh", Line: 1, Column: 1}

	for i := 0; i < 5; i++ {
		r.Recover(New(KindParse, ErrUnexpectedToken, "unexpected token", loc, Error))
	}

	if r.ErrorCount() != 2 {
		t.Errorf("expected error count capped at 2, got %d", r.ErrorCount())
	}
}

func TestErrorRecovery_GetErrorsByKind(t *testing.T) {
	r := NewErrorRecovery()
	loc := SourceLocation{File: "deploy.sh", Line: 1, Column: 1}

	r.Recover(New(KindLex, ErrBacktickRejected, "backtick", loc, Error))
	r.Recover(New(KindParse, ErrUnexpectedToken, "unexpected token", loc, Error))

	lexErrs := r.GetErrorsByKind(KindLex)
	if len(lexErrs) != 1 {
		t.Fatalf("expected 1 lex error, got %d", len(lexErrs))
	}
	if lexErrs[0].Code != ErrBacktickRejected {
		t.Errorf("expected %s, got %s", ErrBacktickRejected, lexErrs[0].Code)
	}
}

func TestGetPhaseForCode(t *testing.T) {
	tests := map[string]string{
		ErrBacktickRejected:     "lexer",
		ErrUnexpectedToken:      "parser",
		ErrUndefinedVariable:    "name",
		ErrTypeMismatch:         "type",
		ErrMissingRequiredParam: "argument",
		ErrToolExecutionFailed:  "tool",
		ErrFileNotFound:         "io",
		ErrCancelled:            "cancelled",
		ErrInternal:             "internal",
	}
	for code, want := range tests {
		if got := GetPhaseForCode(code); got != want {
			t.Errorf("code %s: expected phase %s, got %s", code, want, got)
		}
	}
}

func TestGetErrorMessage_Unknown(t *testing.T) {
	if msg := GetErrorMessage("E999"); msg != "Unknown error" {
		t.Errorf("expected 'Unknown error', got %q", msg)
	}
}
