package errors

import (
	"encoding/json"
	"fmt"
)

// Severity represents the severity level of an error
type Severity int

const (
	Info Severity = iota
	Warning
	Error
	Fatal
)

// String returns the string representation of the severity
func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler for Severity
func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for Severity
func (s *Severity) UnmarshalJSON(data []byte) error {
	str := string(data)
	if len(str) >= 2 && str[0] == '"' && str[len(str)-1] == '"' {
		str = str[1 : len(str)-1]
	}

	switch str {
	case "info":
		*s = Info
	case "warning":
		*s = Warning
	case "error":
		*s = Error
	case "fatal":
		*s = Fatal
	default:
		*s = Error
	}
	return nil
}

// Kind names one of the nine error categories the kernel can raise.
// Each Kind corresponds to one of the code ranges listed in codes.go.
type Kind string

const (
	KindLex       Kind = "lex"
	KindParse     Kind = "parse"
	KindName      Kind = "name"
	KindType      Kind = "type"
	KindArgument  Kind = "argument"
	KindTool      Kind = "tool"
	KindIO        Kind = "io"
	KindCancelled Kind = "cancelled"
	KindInternal  Kind = "internal"
)

// SourceLocation represents a location in source code
type SourceLocation struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Length int    `json:"length"` // For multi-character tokens
}

// ErrorContext contains surrounding code for an error
type ErrorContext struct {
	SourceLines []string  `json:"source_lines"` // 3 lines before, error line, 3 lines after
	Highlight   Highlight `json:"highlight"`     // Which part to highlight
}

// Highlight specifies which part of the context to highlight
type Highlight struct {
	Line  int `json:"line"`  // Which line in SourceLines array
	Start int `json:"start"` // Column start
	End   int `json:"end"`   // Column end
}

// FixSuggestion represents an auto-fix suggestion
type FixSuggestion struct {
	Description string  `json:"description"`
	OldCode     string  `json:"old_code"`
	NewCode     string  `json:"new_code"`
	Confidence  float64 `json:"confidence"` // 0.0 to 1.0
}

// KernelError represents an error raised by any stage of the shell
// kernel: lexing, parsing, name resolution, type checking, argument
// validation, tool dispatch, I/O, cancellation, or an internal invariant
// failure.
type KernelError struct {
	Kind          Kind
	Code          string // "E001", "E100", etc.
	Message       string
	Location      SourceLocation
	Severity      Severity
	Context       ErrorContext
	Suggestion    *FixSuggestion
	RelatedErrors []KernelError
}

// Error implements the error interface
func (e KernelError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s",
		e.Location.File,
		e.Location.Line,
		e.Location.Column,
		e.Code,
		e.Message)
}

// New creates a new KernelError of the given kind.
func New(kind Kind, code, message string, location SourceLocation, severity Severity) KernelError {
	return KernelError{
		Kind:          kind,
		Code:          code,
		Message:       message,
		Location:      location,
		Severity:      severity,
		Context:       ErrorContext{},
		Suggestion:    nil,
		RelatedErrors: []KernelError{},
	}
}

// WithContext adds source context to the error
func (e KernelError) WithContext(ctx ErrorContext) KernelError {
	e.Context = ctx
	return e
}

// WithSuggestion adds a fix suggestion to the error
func (e KernelError) WithSuggestion(suggestion FixSuggestion) KernelError {
	e.Suggestion = &suggestion
	return e
}

// WithRelatedError appends a related error, e.g. the definition site an
// ArgumentError complains about.
func (e KernelError) WithRelatedError(related KernelError) KernelError {
	e.RelatedErrors = append(e.RelatedErrors, related)
	return e
}

// MarshalJSON implements json.Marshaler
func (e KernelError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind          Kind           `json:"kind"`
		Code          string         `json:"code"`
		Message       string         `json:"message"`
		Severity      Severity       `json:"severity"`
		Location      SourceLocation `json:"location"`
		Context       ErrorContext   `json:"context"`
		Suggestion    *FixSuggestion `json:"suggestion"`
		RelatedErrors []KernelError  `json:"related_errors"`
	}{
		Kind:          e.Kind,
		Code:          e.Code,
		Message:       e.Message,
		Severity:      e.Severity,
		Location:      e.Location,
		Context:       e.Context,
		Suggestion:    e.Suggestion,
		RelatedErrors: e.RelatedErrors,
	})
}

// IsError returns true if the error is at Error or Fatal severity
func (e KernelError) IsError() bool {
	return e.Severity == Error || e.Severity == Fatal
}

// IsWarning returns true if the error is at Warning severity
func (e KernelError) IsWarning() bool {
	return e.Severity == Warning
}

// IsInfo returns true if the error is at Info severity
func (e KernelError) IsInfo() bool {
	return e.Severity == Info
}

// IsFatal returns true if the error is at Fatal severity
func (e KernelError) IsFatal() bool {
	return e.Severity == Fatal
}
