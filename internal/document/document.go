// Package document defines the Deckhand document envelope: the atomic
// unit the rendering engine operates on, plus the three control-document
// variants (LayeringPolicy, DataSchema, ValidationPolicy) it recognizes.
//
// Control-document polymorphism is modeled as a tagged variant rather
// than inheritance, per the engine's design notes: normal documents are
// a separate type from control documents, and the orchestrator
// partitions a revision's document snapshot into the two groups once,
// up front.
package document

import (
	"fmt"
	"strings"

	"github.com/deckhand/deckhand/internal/value"
)

// StoragePolicy is metadata.storagePolicy.
type StoragePolicy string

const (
	StorageCleartext StoragePolicy = "cleartext"
	StorageEncrypted StoragePolicy = "encrypted"
)

// MetaSchema is metadata.schema, classifying the document as a normal
// document or a control document.
type MetaSchema string

const (
	MetaSchemaDocument MetaSchema = "metadata/Document/v1"
	MetaSchemaControl  MetaSchema = "metadata/Control/v1"
)

// Control document schema triples recognized by the engine.
const (
	SchemaLayeringPolicy  = "deckhand/LayeringPolicy/v1"
	SchemaDataSchema      = "deckhand/DataSchema/v1"
	SchemaValidationPolicy = "deckhand/ValidationPolicy/v1"
)

// ReservedPrefixes are schema namespaces a DataSchema's metadata.name may
// not register under (§3 Invariants).
var ReservedPrefixes = []string{"deckhand/", "metadata/"}

// ID identifies a document within a revision by (schema, name), the pair
// the data model requires to be unique per revision. The substitution
// graph is keyed by ID. The layering parent/child forest is keyed by
// document pointer, because a replacement shares its parent's ID;
// internal/replacement collapses that result to an ID-keyed view, so
// later stages apply suppression and replacement through ID lookups.
type ID struct {
	Schema string
	Name   string
}

func (id ID) String() string {
	return id.Schema + "/" + id.Name
}

// Less orders IDs by (schema, name), the sort key the orchestrator uses
// everywhere iteration order would otherwise be nondeterministic (§4.10).
func (id ID) Less(other ID) bool {
	if id.Schema != other.Schema {
		return id.Schema < other.Schema
	}
	return id.Name < other.Name
}

// Action is one entry of metadata.layeringDefinition.actions.
type Action struct {
	Method ActionMethod
	Path   string
}

// ActionMethod is the method of a layering action.
type ActionMethod string

const (
	ActionMerge   ActionMethod = "merge"
	ActionReplace ActionMethod = "replace"
	ActionDelete  ActionMethod = "delete"
)

// LayeringDefinition is metadata.layeringDefinition on a normal document.
type LayeringDefinition struct {
	Layer          string
	Abstract       bool
	ParentSelector map[string]string
	Actions        []Action
}

// SubstitutionSource is substitutions[].src.
type SubstitutionSource struct {
	Schema string
	Name   string
	Path   string
}

// SubstitutionDest is substitutions[].dest.
type SubstitutionDest struct {
	Path    string
	Pattern *string
}

// Substitution is one entry of metadata.substitutions.
type Substitution struct {
	Src  SubstitutionSource
	Dest SubstitutionDest
}

// Metadata is the document envelope's `metadata` block.
type Metadata struct {
	Schema              MetaSchema
	Name                string
	StoragePolicy       StoragePolicy
	Labels              map[string]string
	LayeringDefinition  *LayeringDefinition
	Replacement         bool
	Substitutions       []Substitution
}

// Document is the atomic unit the rendering engine consumes: the
// envelope (schema, metadata, data) plus the bucket it was ingested
// into (status.bucket), which is immutable within a revision.
type Document struct {
	Schema   string
	Metadata Metadata
	Data     value.Value
	Bucket   string
}

// ID returns the document's (schema, name) identity.
func (d *Document) ID() ID {
	return ID{Schema: d.Schema, Name: d.Metadata.Name}
}

// IsControl reports whether the document is a control document
// (metadata.schema == metadata/Control/v1).
func (d *Document) IsControl() bool {
	return d.Metadata.Schema == MetaSchemaControl
}

// IsAbstract reports whether the document is abstract (participates in
// layering but is never emitted). Control documents are never abstract.
func (d *Document) IsAbstract() bool {
	return d.Metadata.LayeringDefinition != nil && d.Metadata.LayeringDefinition.Abstract
}

// IsEncrypted reports whether the document's data is a secret-store
// reference token rather than cleartext.
func (d *Document) IsEncrypted() bool {
	return d.Metadata.StoragePolicy == StorageEncrypted
}

// Layer returns the document's layer name, or "" if it has none
// (control documents, or a normal document with no layeringDefinition).
func (d *Document) Layer() string {
	if d.Metadata.LayeringDefinition == nil {
		return ""
	}
	return d.Metadata.LayeringDefinition.Layer
}

// HasReservedPrefix reports whether a schema name (used as a DataSchema
// target or registration name) falls under a reserved namespace.
func HasReservedPrefix(name string) bool {
	for _, p := range ReservedPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// ParseSchemaTag validates that a schema string has the required
// three-part `namespace/Kind/version` shape.
func ParseSchemaTag(schema string) (namespace, kind, version string, err error) {
	parts := strings.Split(schema, "/")
	if len(parts) != 3 {
		return "", "", "", fmt.Errorf("schema %q is not a namespace/Kind/version triple", schema)
	}
	return parts[0], parts[1], parts[2], nil
}

// LayeringPolicy is the single control document defining layer order.
type LayeringPolicy struct {
	LayerOrder []string
}

// DataSchema registers a JSON Schema for a target schema triple.
type DataSchema struct {
	Name string // the target schema triple this DataSchema governs
	Spec value.Value
}

// ValidationPolicy names the set of validations expected to pass for a
// revision to be considered healthy.
type ValidationPolicy struct {
	Name        string
	Validations []string
}

// ControlSet is the partition of a revision's control documents by kind,
// computed once by the orchestrator at the start of a render.
type ControlSet struct {
	LayeringPolicy    *LayeringPolicy
	DataSchemas       []DataSchema
	ValidationPolicies []ValidationPolicy
}
