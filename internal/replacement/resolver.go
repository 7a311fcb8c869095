// Package replacement implements the Replacement Resolver (§4.7): the
// pass that reconciles a replacement document with the parent it
// replaces once layering has produced both of their intermediate data.
//
// A replacement document shares its parent's (schema, name) identity by
// design, so the two cannot be told apart by document.ID alone while
// they coexist in the layering forest. Resolve is the single place that
// collapses the pointer-keyed layering result down to the
// document.ID-keyed view every later stage (substitution, validation,
// the final render output) actually consumes: the replaced parent is
// dropped, and the replacement's data takes over its (schema, name)
// slot.
package replacement

import (
	"github.com/deckhand/deckhand/internal/document"
	"github.com/deckhand/deckhand/internal/layering"
	"github.com/deckhand/deckhand/internal/rendererr"
	"github.com/deckhand/deckhand/internal/value"
)

// Resolve collapses layered per-document data into the per-(schema,
// name) view the rest of the pipeline expects, applying replacement:
//
//   - a document with metadata.replacement == true must have a resolved
//     parent (forest[d]); otherwise InvalidReplacement (fatal-revision).
//   - that parent must not itself be a replacement document; otherwise
//     SingletonReplacement (fatal-revision) — no replacement chain
//     exceeds length one.
//   - the parent must share the replacement's (schema, name) identity;
//     otherwise InvalidReplacement (fatal-revision) — parentSelector
//     matching an unrelated document is not a valid replacement.
//   - the parent is suppressed from the result; the replacement's own
//     data is emitted under their shared ID instead.
//
// Documents that fail any of these checks are left out of the result
// entirely. The errors are fatal-revision: the orchestrator
// (internal/render) voids the whole render when Resolve returns any,
// not just the one document's subtree.
//
// Resolve also returns the effective document list: docs with suppressed
// parents and voided replacements removed. Every later stage (the
// substitution engine, schema validation, the final render output) must
// walk this list rather than the original docs slice — building a
// document.ID-keyed index from the original slice would hit the exact
// collision this package exists to resolve.
func Resolve(forest layering.Forest, docs []*document.Document, data map[*document.Document]value.Value) (map[document.ID]value.Value, []*document.Document, []*rendererr.EngineError) {
	var errs []*rendererr.EngineError
	suppressed := make(map[*document.Document]bool)
	voided := make(map[*document.Document]bool)

	for _, d := range docs {
		if !d.Metadata.Replacement {
			continue
		}
		parent, ok := forest[d]
		if !ok {
			errs = append(errs, &rendererr.EngineError{
				Kind: rendererr.InvalidReplacement, Document: d.ID(),
				Message: "replacement document has no resolved parent",
				Sev:     rendererr.SeverityFatalRevision,
			})
			voided[d] = true
			continue
		}
		if parent.Metadata.Replacement {
			errs = append(errs, &rendererr.EngineError{
				Kind: rendererr.SingletonReplacement, Document: d.ID(),
				Message: "replacement parent is itself a replacement document",
				Sev:     rendererr.SeverityFatalRevision,
			})
			voided[d] = true
			continue
		}
		if parent.ID() != d.ID() {
			errs = append(errs, &rendererr.EngineError{
				Kind: rendererr.InvalidReplacement, Document: d.ID(),
				Message: "replacement parent has a different (schema, name) identity",
				Sev:     rendererr.SeverityFatalRevision,
			})
			voided[d] = true
			continue
		}
		suppressed[parent] = true
	}

	out := make(map[document.ID]value.Value, len(docs))
	effective := make([]*document.Document, 0, len(docs))
	for _, d := range docs {
		if suppressed[d] || voided[d] {
			continue
		}
		effective = append(effective, d)
		if v, ok := data[d]; ok {
			out[d.ID()] = v
		}
	}
	return out, effective, errs
}
