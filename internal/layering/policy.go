// Package layering implements the Layering Policy Resolver, Parent
// Selector, and Layering Engine (§4.3-4.5): the hierarchical merge that
// produces each document's intermediate rendered data from its parent's.
package layering

import (
	"github.com/deckhand/deckhand/internal/document"
	"github.com/deckhand/deckhand/internal/rendererr"
)

// Policy wraps a revision's LayeringPolicy with the layer-order lookups
// the parent selector and layering engine both need. A nil *Policy (no
// LayeringPolicy document present) means layering is effectively empty:
// every document is a root (§4.3).
type Policy struct {
	order map[string]int
}

// NewPolicy indexes lp.LayerOrder for O(1) layer comparisons. lp may be
// nil.
func NewPolicy(lp *document.LayeringPolicy) *Policy {
	if lp == nil {
		return nil
	}
	idx := make(map[string]int, len(lp.LayerOrder))
	for i, l := range lp.LayerOrder {
		idx[l] = i
	}
	return &Policy{order: idx}
}

// IndexOf returns layer's position in layerOrder and whether it is a
// recognized layer at all.
func (p *Policy) IndexOf(layer string) (int, bool) {
	if p == nil {
		return 0, false
	}
	i, ok := p.order[layer]
	return i, ok
}

// IsTopLayer reports whether layer is the first entry of layerOrder.
func (p *Policy) IsTopLayer(layer string) bool {
	i, ok := p.IndexOf(layer)
	return ok && i == 0
}

// ParentLayerOf returns the layer immediately preceding layer in
// layerOrder, or "" if layer is the first layer or unrecognized.
func (p *Policy) ParentLayerOf(layer string) (string, bool) {
	i, ok := p.IndexOf(layer)
	if !ok || i == 0 {
		return "", false
	}
	for l, idx := range p.order {
		if idx == i-1 {
			return l, true
		}
	}
	return "", false
}

// ValidateLayerReferences checks that every document with a
// layeringDefinition names a recognized layer; an unrecognized layer
// with any document present is the fatal-revision condition described
// in §4.3 (a LayeringPolicy exists but omits a layer documents use).
func ValidateLayerReferences(p *Policy, docs []*document.Document) []*rendererr.EngineError {
	if p == nil {
		return nil
	}
	var errs []*rendererr.EngineError
	for _, d := range docs {
		layer := d.Layer()
		if layer == "" {
			continue
		}
		if _, ok := p.IndexOf(layer); !ok {
			errs = append(errs, &rendererr.EngineError{
				Kind:     rendererr.LayeringPolicyNotFound,
				Document: d.ID(),
				Message:  "layer " + layer + " is not present in layerOrder",
				Sev:      rendererr.SeverityFatalRevision,
			})
		}
	}
	return errs
}
