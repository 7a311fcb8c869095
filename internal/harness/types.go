package harness

import (
	"github.com/deckhand/deckhand/internal/document"
	"github.com/deckhand/deckhand/internal/validation"
)

// RenderedDoc is one rendered document's identity and data, flattened
// out of render.Result for comparison against a scenario's expectations
// and for golden-file serialization.
type RenderedDoc struct {
	Schema string `json:"schema"`
	Name   string `json:"name"`
	Data   any    `json:"data"`
}

// Result is the outcome of running a scenario: the rendered document
// set, the validation report's errors, and whether every expectation in
// the scenario held.
type Result struct {
	// Pass indicates overall scenario success: the render ran without
	// unrecoverable failure and every expect clause matched.
	Pass bool `json:"pass"`

	// Documents is the rendered output, in the Engine's deterministic
	// (schema, name) order.
	Documents []RenderedDoc `json:"documents"`

	// ReportErrors is the validation report's error records, in their
	// (document, stage) sort order.
	ReportErrors []validation.ErrorRecord `json:"report_errors,omitempty"`

	// Errors accumulates scenario-assertion failure messages. Empty if
	// Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{Pass: true}
}

// AddError appends an assertion failure message and marks the result
// failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}

// findDocument returns the rendered document matching id, if any.
func (r *Result) findDocument(id document.ID) (RenderedDoc, bool) {
	for _, d := range r.Documents {
		if d.Schema == id.Schema && d.Name == id.Name {
			return d, true
		}
	}
	return RenderedDoc{}, false
}
