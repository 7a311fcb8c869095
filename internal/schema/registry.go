// Package schema implements the Schema Registry (§4.1): a lookup from
// a document's schema triple to the JSON Schema that governs its data,
// built from a revision's registered DataSchema control documents plus
// the engine's built-in meta-schemas.
package schema

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/encoding/jsonschema"

	"github.com/deckhand/deckhand/internal/document"
	"github.com/deckhand/deckhand/internal/rendererr"
	"github.com/deckhand/deckhand/internal/value"
)

// Registry compiles registered DataSchema payloads into CUE constraints
// once, then validates document data against them by unification —
// the same encode/unify/validate sequence the teacher's CLI uses to
// check concept specs against its own CUE schema, aimed here at
// user-supplied JSON Schema instead of a fixed CUE shape.
type Registry struct {
	ctx      *cue.Context
	schemas  map[string]cue.Value
	metaDocs map[document.MetaSchema]cue.Value
}

// NewRegistry builds a registry seeded with the built-in meta-schemas.
func NewRegistry() *Registry {
	r := &Registry{
		ctx:      cuecontext.New(),
		schemas:  make(map[string]cue.Value),
		metaDocs: make(map[document.MetaSchema]cue.Value),
	}
	r.registerMetaSchemas()
	return r
}

// Register compiles one DataSchema control document's JSON Schema
// payload into a CUE constraint, keyed by the schema triple it governs.
// Re-registering an already-registered target is a fatal-revision
// error (§4.1: "multiple DataSchema registrations for the same target
// are a fatal revision-level error").
func (r *Registry) Register(ds document.DataSchema) error {
	if document.HasReservedPrefix(ds.Name) {
		return fmt.Errorf("DataSchema %s: registers a reserved schema namespace", ds.Name)
	}
	if _, exists := r.schemas[ds.Name]; exists {
		return fmt.Errorf("DataSchema %s: already registered", ds.Name)
	}

	compiled, err := r.compile(ds.Spec)
	if err != nil {
		return fmt.Errorf("DataSchema %s: %w", ds.Name, err)
	}
	r.schemas[ds.Name] = compiled
	return nil
}

func (r *Registry) compile(spec value.Value) (cue.Value, error) {
	raw := value.ToInterface(spec)
	schemaVal := r.ctx.Encode(raw)
	if err := schemaVal.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("encoding JSON Schema: %w", err)
	}

	extracted, err := jsonschema.Extract(schemaVal, &jsonschema.Config{})
	if err != nil {
		return cue.Value{}, fmt.Errorf("extracting JSON Schema: %w", err)
	}

	compiled := r.ctx.BuildFile(extracted)
	if err := compiled.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("compiling JSON Schema: %w", err)
	}
	return compiled, nil
}

// Lookup answers "what JSON schema applies to document D?" by its full
// schema triple; ok is false if nothing is registered for it.
func (r *Registry) Lookup(schemaTriple string) (cue.Value, bool) {
	v, ok := r.schemas[schemaTriple]
	return v, ok
}

// ValidateData validates data against the schema registered for
// schemaTriple. Returns (nil, false) if nothing is registered — callers
// distinguish "no schema" (advisory, §4.1) from "schema present, data
// failed" (also advisory per §4.1, but a distinct report entry) by the
// two return values.
func (r *Registry) ValidateData(schemaTriple string, data value.Value) (err error, registered bool) {
	schemaVal, ok := r.schemas[schemaTriple]
	if !ok {
		return nil, false
	}

	raw := value.ToInterface(data)
	dataVal := r.ctx.Encode(raw)
	unified := schemaVal.Unify(dataVal)
	if verr := unified.Validate(cue.Concrete(true)); verr != nil {
		return fmt.Errorf("%s", cueerrors.Details(verr, nil)), true
	}
	return nil, true
}

// ValidateDocument runs ValidateData for doc and translates the result
// into the report builder's vocabulary: nil if doc's schema is
// unregistered and doc is abstract (no warning for abstract documents,
// since they never reach output), an UnregisteredSchema warning if
// unregistered and concrete, or a SchemaValidationError if registered
// but failing.
func (r *Registry) ValidateDocument(doc *document.Document) *rendererr.EngineError {
	verr, registered := r.ValidateData(doc.Schema, doc.Data)
	if !registered {
		if doc.IsAbstract() {
			return nil
		}
		return rendererr.NewUnregisteredSchemaWarning(doc.ID())
	}
	if verr != nil {
		return rendererr.NewSchemaValidationError(doc.ID(), verr.Error())
	}
	return nil
}

// registerMetaSchemas compiles the engine's built-in structural
// meta-schemas: the envelope shapes for a normal document and the three
// control-document kinds. These are distinct from user DataSchema
// registrations and are consulted by the Document Validator (§4.2)
// before any registered-schema lookup runs.
func (r *Registry) registerMetaSchemas() {
	r.metaDocs[document.MetaSchemaDocument] = r.ctx.CompileString(metaSchemaDocumentCUE)
	r.metaDocs[document.MetaSchemaControl] = r.ctx.CompileString(metaSchemaControlCUE)
}

// MetaSchema returns the compiled structural constraint for a
// metadata.schema value, or the zero cue.Value if unknown.
func (r *Registry) MetaSchema(schema document.MetaSchema) (cue.Value, bool) {
	v, ok := r.metaDocs[schema]
	return v, ok
}

// ValidateEnvelope re-encodes doc's envelope (schema tag, metadata
// fields, data) and unifies it against the built-in meta-schema for its
// metadata.schema kind, catching structural violations a caller that
// builds a Document directly (rather than through
// internal/document.ParseStream) would otherwise skip — the schema-tag
// triple shape, for instance, is enforced here by the same CUE
// constraint ParseStream's decode path never re-checks once the
// envelope fields are already typed.
func (r *Registry) ValidateEnvelope(doc *document.Document) error {
	metaKey := doc.Metadata.Schema
	if metaKey == "" {
		// metadata.schema defaults to the normal-document meta-schema
		// when the envelope omits it (§6 wire contract).
		metaKey = document.MetaSchemaDocument
	}
	meta, ok := r.metaDocs[metaKey]
	if !ok {
		return fmt.Errorf("unknown metadata.schema %q", doc.Metadata.Schema)
	}

	normalized := doc.Metadata
	normalized.Schema = metaKey
	envelope := map[string]any{
		"schema":   doc.Schema,
		"metadata": envelopeMetadata(normalized),
		"data":     value.ToInterface(doc.Data),
	}
	envVal := r.ctx.Encode(envelope)
	if err := envVal.Err(); err != nil {
		return fmt.Errorf("encoding envelope: %w", err)
	}

	unified := meta.Unify(envVal)
	if verr := unified.Validate(cue.Concrete(true)); verr != nil {
		return fmt.Errorf("%s", cueerrors.Details(verr, nil))
	}
	return nil
}

func envelopeMetadata(m document.Metadata) map[string]any {
	out := map[string]any{
		"schema": string(m.Schema),
		"name":   m.Name,
	}
	if m.StoragePolicy != "" {
		out["storagePolicy"] = string(m.StoragePolicy)
	}
	if m.Labels != nil {
		out["labels"] = m.Labels
	}
	if m.LayeringDefinition != nil {
		ld := map[string]any{"layer": m.LayeringDefinition.Layer}
		if m.LayeringDefinition.Abstract {
			ld["abstract"] = true
		}
		if m.LayeringDefinition.ParentSelector != nil {
			ld["parentSelector"] = m.LayeringDefinition.ParentSelector
		}
		if len(m.LayeringDefinition.Actions) > 0 {
			actions := make([]any, len(m.LayeringDefinition.Actions))
			for i, a := range m.LayeringDefinition.Actions {
				actions[i] = map[string]any{"method": string(a.Method), "path": a.Path}
			}
			ld["actions"] = actions
		}
		out["layeringDefinition"] = ld
	}
	if m.Replacement {
		out["replacement"] = true
	}
	if len(m.Substitutions) > 0 {
		subs := make([]any, len(m.Substitutions))
		for i, s := range m.Substitutions {
			dest := map[string]any{"path": s.Dest.Path}
			if s.Dest.Pattern != nil {
				dest["pattern"] = *s.Dest.Pattern
			}
			subs[i] = map[string]any{
				"src":  map[string]any{"schema": s.Src.Schema, "name": s.Src.Name, "path": s.Src.Path},
				"dest": dest,
			}
		}
		out["substitutions"] = subs
	}
	return out
}

const metaSchemaDocumentCUE = `
schema: string & =~"^[^/]+/[^/]+/v[0-9]+$"
metadata: {
	schema: "metadata/Document/v1"
	name: string & !=""
	storagePolicy?: "cleartext" | "encrypted"
	labels?: [string]: string
	layeringDefinition?: {
		layer: string
		abstract?: bool
		parentSelector?: [string]: string
		actions?: [...{method: "merge" | "replace" | "delete", path: string}]
	}
	replacement?: bool
	substitutions?: [...{
		src: {schema: string, name: string, path: string}
		dest: {path: string, pattern?: string}
	}]
}
data: _
`

const metaSchemaControlCUE = `
schema: "deckhand/LayeringPolicy/v1" | "deckhand/DataSchema/v1" | "deckhand/ValidationPolicy/v1"
metadata: {
	schema: "metadata/Control/v1"
	name: string & !=""
}
data: _
`
