// Package rendererr defines the rendering engine's sealed error type.
// It is split out from internal/render so that the stage packages
// (layering, substitution, secret, replacement) can construct engine
// errors without importing the orchestrator that assembles them.
package rendererr

import (
	"errors"
	"fmt"

	"github.com/deckhand/deckhand/internal/document"
)

// Kind categorizes an EngineError. One value exists per error-surface
// entry named in the error handling design (§5/§6).
type Kind string

const (
	InvalidDocumentFormat       Kind = "INVALID_DOCUMENT_FORMAT"
	LayeringPolicyNotFound      Kind = "LAYERING_POLICY_NOT_FOUND"
	IndeterminateDocumentParent Kind = "INDETERMINATE_DOCUMENT_PARENT"
	MissingDocumentKey          Kind = "MISSING_DOCUMENT_KEY"
	SubstitutionFailure         Kind = "SUBSTITUTION_FAILURE"
	MissingDocumentPattern      Kind = "MISSING_DOCUMENT_PATTERN"
	SubstitutionCycle           Kind = "SUBSTITUTION_CYCLE"
	InvalidReplacement          Kind = "INVALID_REPLACEMENT"
	SingletonReplacement        Kind = "SINGLETON_REPLACEMENT"
	BarbicanException          Kind = "BARBICAN_EXCEPTION"
	PolicyNotAuthorized         Kind = "POLICY_NOT_AUTHORIZED"
	UnregisteredSchema          Kind = "UNREGISTERED_SCHEMA"
	MissingOptionalLabel        Kind = "MISSING_OPTIONAL_LABEL"
	EmptyValidationPolicy        Kind = "EMPTY_VALIDATION_POLICY"
)

// Severity is the fatal/advisory classification of §5.
type Severity string

const (
	SeverityFatalRevision Severity = "fatal-revision"
	SeverityFatalDocument Severity = "fatal-document"
	SeverityAdvisory      Severity = "advisory"
)

var severityByKind = map[Kind]Severity{
	InvalidDocumentFormat:       SeverityFatalRevision,
	LayeringPolicyNotFound:      SeverityFatalRevision,
	SubstitutionCycle:           SeverityFatalRevision,
	InvalidReplacement:          SeverityFatalRevision,
	SingletonReplacement:        SeverityFatalRevision,
	IndeterminateDocumentParent: SeverityFatalDocument,
	MissingDocumentKey:          SeverityFatalDocument,
	SubstitutionFailure:         SeverityFatalDocument,
	MissingDocumentPattern:      SeverityFatalDocument,
	BarbicanException:           SeverityFatalDocument,
	PolicyNotAuthorized:         SeverityAdvisory,
	UnregisteredSchema:          SeverityAdvisory,
	MissingOptionalLabel:        SeverityAdvisory,
	EmptyValidationPolicy:       SeverityAdvisory,
}

// SubKind further classifies a BarbicanException (secret store failure).
type SubKind string

const (
	SubKindNone      SubKind = ""
	SubKindNotFound  SubKind = "NOT_FOUND"
	SubKindTransient SubKind = "TRANSIENT"
)

// EngineError is the sealed error type the rendering engine produces.
// It carries enough structured context for the report builder to
// attribute the error to a document without re-parsing the message.
//
// Sev is usually left zero so Severity() falls back to the kind's
// default classification; it must be set explicitly where the same
// Kind can carry two different severities depending on call site (the
// schema registry's registered-schema failure is advisory while its
// structural-envelope failure under the same InvalidDocumentFormat
// kind is fatal-revision, per §4.1/§5).
type EngineError struct {
	Kind     Kind
	Message  string
	Document document.ID
	SubKind  SubKind
	Details  map[string]string
	Sev      Severity
}

func (e *EngineError) Error() string {
	if e.Document != (document.ID{}) {
		return fmt.Sprintf("%s: %s (document=%s)", e.Kind, e.Message, e.Document)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Severity reports the fatal/advisory classification of e per §5.
func (e *EngineError) Severity() Severity {
	if e.Sev != "" {
		return e.Sev
	}
	if s, ok := severityByKind[e.Kind]; ok {
		return s
	}
	return SeverityAdvisory
}

// Is reports whether err is an *EngineError of the given kind, unwrapping
// through errors.As.
func Is(err error, kind Kind) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Kind == kind
	}
	return false
}

func newError(kind Kind, id document.ID, format string, args ...any) *EngineError {
	return &EngineError{Kind: kind, Document: id, Message: fmt.Sprintf(format, args...)}
}

// NewSubstitutionCycleError reports a detected substitution cycle.
func NewSubstitutionCycleError(path []document.ID) *EngineError {
	return &EngineError{
		Kind:    SubstitutionCycle,
		Message: "substitution references form a cycle",
		Details: map[string]string{"path": formatPath(path)},
	}
}

func formatPath(path []document.ID) string {
	s := ""
	for i, id := range path {
		if i > 0 {
			s += " -> "
		}
		s += id.String()
	}
	return s
}

// NewSubstitutionFailureError reports a missing source document or
// missing source path during substitution.
func NewSubstitutionFailureError(dest document.ID, reason string) *EngineError {
	return newError(SubstitutionFailure, dest, "substitution failed: %s", reason)
}

// NewMissingDocumentPatternError reports a substitution destination
// pattern with no match in the target string.
func NewMissingDocumentPatternError(dest document.ID, pattern string) *EngineError {
	return newError(MissingDocumentPattern, dest, "pattern %q has no match in destination", pattern)
}

// NewEnvelopeFormatError reports a structural envelope violation: fatal
// for the whole revision, per §4.1 ("failure of structural envelope
// validation is fatal").
func NewEnvelopeFormatError(id document.ID, reason string) *EngineError {
	return &EngineError{Kind: InvalidDocumentFormat, Document: id, Message: reason, Sev: SeverityFatalRevision}
}

// NewSchemaValidationError reports D.data failing its registered
// DataSchema. Rendering proceeds past this (§4.1), so it is advisory
// even though it shares a Kind with the fatal envelope-format error.
func NewSchemaValidationError(id document.ID, reason string) *EngineError {
	return &EngineError{Kind: InvalidDocumentFormat, Document: id, Message: reason, Sev: SeverityAdvisory}
}

// NewUnregisteredSchemaWarning reports a concrete document whose schema
// has no registered DataSchema; advisory per §4.1/§5.
func NewUnregisteredSchemaWarning(id document.ID) *EngineError {
	return newError(UnregisteredSchema, id, "no DataSchema registered for %s", id)
}

// NewBarbicanException reports a secret-store dereference failure for
// an encrypted document, classified NotFound (fatal-document, per §7)
// or Transient (surfaced for the edge to retry the whole render, per
// §4.8). sub must be SubKindNotFound or SubKindTransient.
func NewBarbicanException(id document.ID, sub SubKind, reason string) *EngineError {
	return &EngineError{Kind: BarbicanException, Document: id, SubKind: sub, Message: reason}
}
