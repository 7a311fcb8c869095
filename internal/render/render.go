// Package render implements the Rendering Orchestrator (§4.10): the
// single entry point that drives a revision's document snapshot through
// the document validator, layering, secret dereference, substitution,
// and replacement stages and produces the concrete rendered set plus a
// validation.Report.
package render

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/deckhand/deckhand/internal/document"
	"github.com/deckhand/deckhand/internal/layering"
	"github.com/deckhand/deckhand/internal/rendererr"
	"github.com/deckhand/deckhand/internal/replacement"
	"github.com/deckhand/deckhand/internal/schema"
	"github.com/deckhand/deckhand/internal/secret"
	"github.com/deckhand/deckhand/internal/substitution"
	"github.com/deckhand/deckhand/internal/validation"
	"github.com/deckhand/deckhand/internal/value"
)

// CorrelationGenerator produces the per-render correlation ID attached
// to every log line an Engine emits. Implemented by UUIDv7Generator
// (production) and FixedGenerator (tests), mirroring the
// flow-token-generator split the orchestrator's render loop is modeled
// on.
type CorrelationGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 correlation IDs.
type UUIDv7Generator struct{}

// Generate returns a new UUIDv7 as a hyphenated string.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns a predetermined correlation ID, for
// deterministic golden-file tests.
type FixedGenerator string

// Generate returns the fixed token.
func (g FixedGenerator) Generate() string { return string(g) }

// Engine is the rendering orchestrator. It is stateless between Render
// calls beyond its configuration; every call builds its own secret
// cache and validation report, so one Engine value is safe to reuse
// (and to share) across concurrent Render calls for different
// revisions (§5 Concurrency & Resource Model: no shared mutable state
// across renders).
type Engine struct {
	secretStore secret.Store
	logger      *slog.Logger
	correlation CorrelationGenerator
}

// Option configures an Engine.
type Option func(*Engine)

// WithSecretStore sets the collaborator used to dereference encrypted
// documents. Without one, any encrypted document in a revision fails
// its render with a BarbicanException (no store to ask).
func WithSecretStore(store secret.Store) Option {
	return func(e *Engine) { e.secretStore = store }
}

// WithLogger overrides the default discard logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithCorrelationGenerator overrides the default UUIDv7Generator, e.g.
// with a FixedGenerator in tests so golden logs are reproducible.
func WithCorrelationGenerator(gen CorrelationGenerator) Option {
	return func(e *Engine) { e.correlation = gen }
}

// New creates an Engine. Call sites that never render encrypted
// documents may omit WithSecretStore.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		correlation: UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is the outcome of one Render call: the concrete rendered
// documents (abstract documents and suppressed replacement parents
// excluded, per §4.10 steps 8-9) plus the report describing every
// error and validation outcome observed along the way.
type Result struct {
	Documents []*document.Document
	Data      map[document.ID]value.Value
	Report    *validation.Report
}

// Render runs the nine-stage pipeline (§4.10) over one revision's raw
// document snapshot:
//
//  1. parse the stream into documents + control set (caller's
//     responsibility; Render takes the already-parsed form)
//  2. structural envelope validation against the engine's meta-schemas
//  3. registered-DataSchema validation (advisory)
//  4. layering policy load
//  5. parent selection
//  6. layering engine (merge/replace/delete)
//  7. secret dereference for encrypted documents
//  8. substitution engine (topological)
//  9. replacement resolution, abstract-document filtering, report assembly
//
// Steps 7 and 9 are a deliberate synthesis rather than a literal
// one-stage-per-step translation: secret dereference happens once, as a
// pre-pass that replaces each encrypted document's reference token with
// its cleartext before substitution ever reads it (a reference a
// substitution source points at must already be cleartext, §4.6/§4.8),
// and replacement resolution collapses the pointer-keyed layering
// result to the identifier-keyed view substitution and every later
// consumer expects (§4.7, see internal/replacement's doc comment).
func (e *Engine) Render(ctx context.Context, revisionID string, docs []*document.Document, controls document.ControlSet) *Result {
	corr := e.correlation.Generate()
	log := e.logger.With("correlation_id", corr, "revision_id", revisionID)
	log.Info("render starting", "documents", len(docs))

	report := validation.NewReport(revisionID)
	for _, err := range validation.CheckPolicies(controls.ValidationPolicies) {
		report.RecordError("validation-policy", err)
	}

	registry := schema.NewRegistry()
	for _, ds := range controls.DataSchemas {
		if err := registry.Register(ds); err != nil {
			report.RecordError("schema-registration", &rendererr.EngineError{
				Kind:    rendererr.InvalidDocumentFormat,
				Message: err.Error(),
				Sev:     rendererr.SeverityFatalRevision,
			})
			report.RecordInternal(validation.SchemaValidation, validation.OutcomeFailure, time.Now())
			report.SortErrors()
			return &Result{Report: report}
		}
	}

	if fatal := e.validateStructural(registry, docs, report); fatal {
		report.RecordInternal(validation.SchemaValidation, validation.OutcomeFailure, time.Now())
		report.SortErrors()
		return &Result{Report: report}
	}
	e.validateSchemas(registry, docs, report)

	if controls.LayeringPolicy == nil && anyDocumentDeclaresLayer(docs) {
		report.RecordError("layering-policy", &rendererr.EngineError{
			Kind:    rendererr.LayeringPolicyNotFound,
			Message: "revision has no LayeringPolicy control document",
			Sev:     rendererr.SeverityFatalRevision,
		})
		report.SortErrors()
		return &Result{Report: report}
	}
	policy := layering.NewPolicy(controls.LayeringPolicy)

	forest, perrs := layering.SelectParents(policy, docs)
	for _, err := range perrs {
		report.RecordError("parent-selection", err)
	}

	layered, lerrs := layering.Apply(forest, docs)
	for _, err := range lerrs {
		report.RecordError("layering", err)
	}

	survivors := survivingDocs(docs, layered)

	if ctx.Err() != nil {
		log.Info("render cancelled before secret dereference")
		return &Result{Report: report}
	}
	if aborted := e.dereferenceSecrets(ctx, survivors, layered, report, log); aborted {
		return &Result{Report: report}
	}

	// Replacement is resolved here, ahead of substitution, so the
	// SourceLookup substitution consumes already reflects replacement
	// (§4.7): a substitution naming a replaced document's (schema,name)
	// must see the replacement's data, not the suppressed parent's.
	resolved, effective, rerrs := replacement.Resolve(forest, survivors, layered)
	for _, err := range rerrs {
		report.RecordError("replacement", err)
	}
	if len(rerrs) > 0 {
		report.SortErrors()
		return &Result{Report: report}
	}

	lookup := func(id document.ID) (value.Value, bool) {
		v, ok := resolved[id]
		return v, ok
	}
	serrs, cerr := substitution.Apply(effective, resolved, lookup)
	if cerr != nil {
		report.RecordError("substitution", cerr.(*rendererr.EngineError))
		report.SortErrors()
		return &Result{Report: report}
	}
	for _, err := range serrs {
		report.RecordError("substitution", err)
	}

	final := make([]*document.Document, 0, len(effective))
	for _, d := range effective {
		if d.IsAbstract() {
			continue
		}
		final = append(final, d)
	}
	sort.Slice(final, func(i, j int) bool { return final[i].ID().Less(final[j].ID()) })

	report.RecordInternal(validation.SchemaValidation, schemaOutcome(report), time.Now())
	report.SortErrors()

	log.Info("render complete", "rendered", len(final), "errors", len(report.Errors))
	return &Result{Documents: final, Data: resolved, Report: report}
}

// validateStructural runs every document's envelope through the
// registry's compiled meta-schema. A structural violation is fatal for
// the whole revision (§4.1); it returns true the first time one is
// found, mirroring the abort-before-layering gate in §4.10 step 2.
func (e *Engine) validateStructural(registry *schema.Registry, docs []*document.Document, report *validation.Report) bool {
	for _, d := range docs {
		if err := registry.ValidateEnvelope(d); err != nil {
			report.RecordError("structural-validation", rendererr.NewEnvelopeFormatError(d.ID(), err.Error()))
			return true
		}
	}
	return false
}

// validateSchemas runs registered-DataSchema validation (advisory,
// §4.1) over every concrete document and records the outcome.
func (e *Engine) validateSchemas(registry *schema.Registry, docs []*document.Document, report *validation.Report) {
	for _, d := range docs {
		if d.IsControl() {
			continue
		}
		if err := registry.ValidateDocument(d); err != nil {
			report.RecordError("schema-validation", err)
		}
	}
}

// dereferenceSecrets replaces every surviving encrypted document's data
// with its dereferenced cleartext, in place in layered. Returns true if
// the render should abort: a transient store failure is surfaced to the
// caller rather than continuing with a partial result (§4.8).
func (e *Engine) dereferenceSecrets(ctx context.Context, survivors []*document.Document, layered map[*document.Document]value.Value, report *validation.Report, log *slog.Logger) bool {
	if e.secretStore == nil {
		for _, d := range survivors {
			if d.IsEncrypted() {
				report.RecordError("secret-dereference", rendererr.NewBarbicanException(d.ID(), rendererr.SubKindNotFound, "no secret store configured"))
			}
		}
		return false
	}

	cache := secret.NewCache(e.secretStore)
	defer cache.Release()

	for _, d := range survivors {
		if ctx.Err() != nil {
			log.Info("render cancelled during secret dereference")
			return true
		}
		if !d.IsEncrypted() {
			continue
		}
		ref, ok := layered[d].(value.String)
		if !ok {
			report.RecordError("secret-dereference", rendererr.NewBarbicanException(d.ID(), rendererr.SubKindNotFound, "encrypted document data is not a reference string"))
			continue
		}
		cleartext, err := cache.Resolve(ctx, string(ref))
		if err != nil {
			ee := secret.ClassifyError(d.ID(), string(ref), err)
			report.RecordError("secret-dereference", ee)
			if ee.SubKind == rendererr.SubKindTransient {
				return true
			}
			continue
		}
		layered[d] = cleartext
	}
	return false
}

// survivingDocs returns docs in their original order, excluding any
// whose layering failed (and so have no entry in layered).
func survivingDocs(docs []*document.Document, layered map[*document.Document]value.Value) []*document.Document {
	out := make([]*document.Document, 0, len(docs))
	for _, d := range docs {
		if _, ok := layered[d]; ok {
			out = append(out, d)
		}
	}
	return out
}

// anyDocumentDeclaresLayer reports whether at least one document names a
// layer, the condition under which a missing LayeringPolicy becomes fatal
// (§4.3/§7). With no document declaring a layer, layering is empty and
// every document passes through as a root.
func anyDocumentDeclaresLayer(docs []*document.Document) bool {
	for _, d := range docs {
		if d.Layer() != "" {
			return true
		}
	}
	return false
}

func schemaOutcome(report *validation.Report) validation.Outcome {
	for _, rec := range report.Errors {
		if rec.Kind == rendererr.InvalidDocumentFormat && rec.Severity == rendererr.SeverityAdvisory {
			return validation.OutcomeFailure
		}
	}
	return validation.OutcomeSuccess
}
