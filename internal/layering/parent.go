package layering

import (
	"fmt"

	"github.com/deckhand/deckhand/internal/document"
	"github.com/deckhand/deckhand/internal/rendererr"
)

// Forest is the parent relation computed by SelectParents: child -> parent.
// Roots have no entry. Keyed by pointer rather than identifier: a
// replacement document and the parent it replaces share the same
// (schema, name) identity while layering runs (§4.7), so identifier keys
// would collide between them. Replacement is applied afterwards, by
// internal/replacement, as a collapse over this pointer-keyed result
// rather than by rewriting the forest itself.
type Forest map[*document.Document]*document.Document

// SelectParents computes the parent of every document with a
// layeringDefinition, per §4.4. Documents without a layeringDefinition,
// or at the top layer, are roots and get no entry in the returned
// Forest. A replacement document's parent is found the same way as any
// other document's, via parentSelector against the parent layer; §4.7's
// identity and chain-length requirements on that parent are checked
// afterwards, by internal/replacement, once the parent is known.
func SelectParents(p *Policy, docs []*document.Document) (Forest, []*rendererr.EngineError) {
	forest := make(Forest)
	var errs []*rendererr.EngineError

	byLayer := make(map[string][]*document.Document)
	for _, d := range docs {
		if d.Metadata.LayeringDefinition != nil {
			byLayer[d.Layer()] = append(byLayer[d.Layer()], d)
		}
	}

	for _, d := range docs {
		ld := d.Metadata.LayeringDefinition
		if ld == nil {
			continue
		}
		if p != nil && p.IsTopLayer(d.Layer()) {
			continue // top layer is always a root, parentSelector ignored
		}
		if ld.ParentSelector == nil {
			continue // no selector: root by default
		}

		parentLayer, hasParentLayer := "", false
		if p != nil {
			parentLayer, hasParentLayer = p.ParentLayerOf(d.Layer())
		}
		if !hasParentLayer {
			continue
		}

		var candidates []*document.Document
		for _, c := range byLayer[parentLayer] {
			if labelsMatch(ld.ParentSelector, c.Metadata.Labels) {
				candidates = append(candidates, c)
			}
		}

		switch len(candidates) {
		case 0:
			errs = append(errs, &rendererr.EngineError{
				Kind:     rendererr.LayeringPolicyNotFound,
				Document: d.ID(),
				Message:  fmt.Sprintf("no parent candidate in layer %q matches parentSelector", parentLayer),
				Sev:      rendererr.SeverityFatalDocument,
			})
		case 1:
			forest[d] = candidates[0]
		default:
			errs = append(errs, &rendererr.EngineError{
				Kind:     rendererr.IndeterminateDocumentParent,
				Document: d.ID(),
				Message:  fmt.Sprintf("%d parent candidates in layer %q match parentSelector", len(candidates), parentLayer),
				Sev:      rendererr.SeverityFatalDocument,
			})
		}
	}

	return forest, errs
}

func labelsMatch(selector, labels map[string]string) bool {
	for k, v := range selector {
		if labels[k] != v {
			return false
		}
	}
	return true
}

// Roots returns the documents with no entry in forest, in stable
// (schema, name) order.
func Roots(forest Forest, docs []*document.Document) []*document.Document {
	var roots []*document.Document
	for _, d := range docs {
		if _, ok := forest[d]; !ok {
			roots = append(roots, d)
		}
	}
	sortDocs(roots)
	return roots
}

// Children returns, for each parent, its direct children in stable order,
// derived from forest.
func Children(forest Forest, docs []*document.Document) map[*document.Document][]*document.Document {
	children := make(map[*document.Document][]*document.Document)
	for _, d := range docs {
		if parent, ok := forest[d]; ok {
			children[parent] = append(children[parent], d)
		}
	}
	for _, cs := range children {
		sortDocs(cs)
	}
	return children
}
