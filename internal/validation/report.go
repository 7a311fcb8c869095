// Package validation implements the Validation Report Builder (§4.9):
// the structured per-revision report aggregating structural, policy, and
// substitution errors, plus the ValidationPolicy roll-up joining
// internally computed validation outcomes with externally posted ones.
package validation

import (
	"fmt"
	"sort"
	"time"

	"github.com/deckhand/deckhand/internal/document"
	"github.com/deckhand/deckhand/internal/rendererr"
)

// Internal validation names the engine itself reports under. The
// source material uses two slightly different names for the same
// concept (spec.md §9 Open Questions); SchemaValidation is the name
// this engine records under, and LegacySchemaValidation is accepted and
// normalized to it wherever an external report uses the old name.
const (
	SchemaValidation       = "deckhand-schema-validation"
	LegacySchemaValidation = "deckhand-document-schema-validation"
	PolicyValidation       = "deckhand-policy-validation"
)

// Outcome is a validation entry's reported status.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeExpired Outcome = "expired"
	OutcomeMissing Outcome = "missing"
)

// Entry is one reported validation outcome for a named validation,
// either computed internally by this engine or posted externally by a
// third-party validator.
type Entry struct {
	Name       string
	Outcome    Outcome
	ReportedAt time.Time
	ExpiresAt  time.Time
}

// ErrorRecord is one structured error entry in the report, per §7:
// "{document: (schema,name), stage, kind, message, path?}".
type ErrorRecord struct {
	Document document.ID
	Stage    string
	Kind     rendererr.Kind
	Severity rendererr.Severity
	Message  string
	Path     string
}

// Report is the per-revision validation report: the accumulated error
// list plus the internal/external validation entries needed to resolve
// each ValidationPolicy's conformance.
type Report struct {
	RevisionID string
	Errors     []ErrorRecord

	internal map[string]Entry
	external map[string]Entry
}

// NewReport creates an empty report for revisionID.
func NewReport(revisionID string) *Report {
	return &Report{
		RevisionID: revisionID,
		internal:   make(map[string]Entry),
		external:   make(map[string]Entry),
	}
}

// RecordError appends an EngineError to the report as a structured
// ErrorRecord, attributing it to stage.
func (r *Report) RecordError(stage string, err *rendererr.EngineError) {
	r.Errors = append(r.Errors, ErrorRecord{
		Document: err.Document,
		Stage:    stage,
		Kind:     err.Kind,
		Severity: err.Severity(),
		Message:  err.Message,
	})
}

// RecordInternal records an outcome the engine itself computed for a
// named validation, e.g. SchemaValidation or PolicyValidation. Later
// calls for the same name only take effect if reportedAt is more
// recent, matching the externally-posted join's latest-entry-wins rule.
func (r *Report) RecordInternal(name string, outcome Outcome, reportedAt time.Time) {
	r.record(r.internal, name, outcome, reportedAt)
}

// PostExternal records an outcome posted by a third-party validator.
// name is normalized from LegacySchemaValidation to SchemaValidation so
// a legacy-named external report still joins against the same
// validation-policy entries this engine's own checks populate.
func (r *Report) PostExternal(name string, outcome Outcome, reportedAt time.Time) {
	if name == LegacySchemaValidation {
		name = SchemaValidation
	}
	r.record(r.external, name, outcome, reportedAt)
}

func (r *Report) record(into map[string]Entry, name string, outcome Outcome, reportedAt time.Time) {
	if existing, ok := into[name]; ok && !reportedAt.After(existing.ReportedAt) {
		return
	}
	into[name] = Entry{Name: name, Outcome: outcome, ReportedAt: reportedAt}
}

// latest returns the most recent entry for name across both internal
// and externally posted sources (§4.9: "joined in by (revision,
// validation-name); the latest entry per name wins").
func (r *Report) latest(name string) (Entry, bool) {
	i, iok := r.internal[name]
	e, eok := r.external[name]
	switch {
	case iok && eok:
		if e.ReportedAt.After(i.ReportedAt) {
			return e, true
		}
		return i, true
	case iok:
		return i, true
	case eok:
		return e, true
	default:
		return Entry{}, false
	}
}

// Conforms evaluates whether vp's named validations all report success,
// per §4.9: success iff every named validation's latest entry is
// success; failure if any is failure, expired, or missing.
func (r *Report) Conforms(vp document.ValidationPolicy) Outcome {
	for _, name := range vp.Validations {
		entry, ok := r.latest(name)
		if !ok || entry.Outcome != OutcomeSuccess {
			return OutcomeFailure
		}
	}
	return OutcomeSuccess
}

// CheckPolicies flags ValidationPolicy control documents that name no
// validations at all; advisory per §5/§7 (EmptyValidationPolicy).
func CheckPolicies(policies []document.ValidationPolicy) []*rendererr.EngineError {
	var errs []*rendererr.EngineError
	for _, p := range policies {
		if len(p.Validations) == 0 {
			errs = append(errs, &rendererr.EngineError{
				Kind:    rendererr.EmptyValidationPolicy,
				Message: fmt.Sprintf("validation policy %q names no validations", p.Name),
				Sev:     rendererr.SeverityAdvisory,
			})
		}
	}
	return errs
}

// SortErrors orders the report's error records by (document, stage),
// the determinism sort key spec.md §4.10 requires for every
// nondeterministic-looking step.
func (r *Report) SortErrors() {
	sort.SliceStable(r.Errors, func(i, j int) bool {
		a, b := r.Errors[i], r.Errors[j]
		if a.Document != b.Document {
			return a.Document.Less(b.Document)
		}
		return a.Stage < b.Stage
	})
}
