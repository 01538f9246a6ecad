package errors

import (
	"encoding/json"
	"errors"

	"github.com/velaris-lang/vela/internal/ast"
)

// Report is the structured error type every phase of the loader returns.
// Builders return *Report; callers wrap it with WrapReport to let it
// survive errors.As() unwrapping through ordinary Go error plumbing.
type Report struct {
	Schema  string         `json:"schema"`
	Code    string         `json:"code"`
	Phase   string         `json:"phase"`
	Message string         `json:"message"`
	Span    *ast.Span      `json:"span,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	Fix     *Fix           `json:"fix,omitempty"`
}

// Fix is an optional suggested remediation attached to a Report.
type Fix struct {
	Description string `json:"description"`
	Replacement string `json:"replacement,omitempty"`
}

// ReportError wraps a Report as an error.
type ReportError struct {
	Rep *Report
}

func (e *ReportError) Error() string {
	if e.Rep == nil {
		return "unknown error"
	}
	return e.Rep.Code + ": " + e.Rep.Message
}

// AsReport extracts a Report from an error chain, if one is present.
func AsReport(err error) (*Report, bool) {
	var re *ReportError
	if errors.As(err, &re) {
		return re.Rep, true
	}
	return nil, false
}

// WrapReport wraps a Report as an error.
func WrapReport(r *Report) error {
	if r == nil {
		return nil
	}
	return &ReportError{Rep: r}
}

// ToJSON renders a Report as JSON, compact or indented.
func (r *Report) ToJSON(compact bool) (string, error) {
	if compact {
		b, err := json.Marshal(r)
		return string(b), err
	}
	b, err := json.MarshalIndent(r, "", "  ")
	return string(b), err
}

// NewGeneric wraps an arbitrary error as a Report when no more specific
// code applies.
func NewGeneric(phase string, err error) *Report {
	return &Report{
		Schema:  "vela.error/v1",
		Code:    "GENERIC",
		Phase:   phase,
		Message: err.Error(),
	}
}

// New constructs a Report with the given code, phase and message.
func New(code, phase, message string) *Report {
	return &Report{Schema: "vela.error/v1", Code: code, Phase: phase, Message: message}
}

// WithSpan attaches a source span to a Report, returning it for chaining.
func (r *Report) WithSpan(span ast.Span) *Report {
	r.Span = &span
	return r
}

// WithData attaches structured data to a Report, returning it for chaining.
func (r *Report) WithData(data map[string]any) *Report {
	r.Data = data
	return r
}
