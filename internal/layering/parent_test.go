package layering

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckhand/deckhand/internal/document"
)

func namedDoc(layer, name string, labels map[string]string, selector map[string]string) *document.Document {
	return &document.Document{
		Schema: "example/Kind/v1",
		Metadata: document.Metadata{
			Name:   name,
			Labels: labels,
			LayeringDefinition: &document.LayeringDefinition{
				Layer:          layer,
				ParentSelector: selector,
			},
		},
	}
}

func TestSelectParentsUniqueMatch(t *testing.T) {
	p := NewPolicy(&document.LayeringPolicy{LayerOrder: []string{"global", "site"}})
	parent := namedDoc("global", "p", map[string]string{"component": "example"}, nil)
	child := namedDoc("site", "c", nil, map[string]string{"component": "example"})

	forest, errs := SelectParents(p, []*document.Document{parent, child})
	assert.Empty(t, errs)
	require.Contains(t, forest, child)
	assert.Same(t, parent, forest[child])
}

func TestSelectParentsNoMatchIsFatalDocument(t *testing.T) {
	p := NewPolicy(&document.LayeringPolicy{LayerOrder: []string{"global", "site"}})
	child := namedDoc("site", "c", nil, map[string]string{"component": "missing"})

	_, errs := SelectParents(p, []*document.Document{child})
	require.Len(t, errs, 1)
}

func TestSelectParentsAmbiguousIsIndeterminate(t *testing.T) {
	p := NewPolicy(&document.LayeringPolicy{LayerOrder: []string{"global", "site"}})
	a := namedDoc("global", "a", map[string]string{"component": "example"}, nil)
	b := namedDoc("global", "b", map[string]string{"component": "example"}, nil)
	child := namedDoc("site", "c", nil, map[string]string{"component": "example"})

	_, errs := SelectParents(p, []*document.Document{a, b, child})
	require.Len(t, errs, 1)
}

func TestSelectParentsTopLayerIgnoresSelector(t *testing.T) {
	p := NewPolicy(&document.LayeringPolicy{LayerOrder: []string{"global", "site"}})
	top := namedDoc("global", "top", nil, map[string]string{"component": "nonexistent"})

	forest, errs := SelectParents(p, []*document.Document{top})
	assert.Empty(t, errs)
	assert.NotContains(t, forest, top)
}

func TestSelectParentsReplacementSharesParentIdentity(t *testing.T) {
	p := NewPolicy(&document.LayeringPolicy{LayerOrder: []string{"global", "site"}})
	parent := &document.Document{
		Schema: "armada/Chart/v1",
		Metadata: document.Metadata{
			Name:               "ucp",
			Labels:             map[string]string{"component": "ucp"},
			LayeringDefinition: &document.LayeringDefinition{Layer: "global"},
		},
	}
	replacement := &document.Document{
		Schema: "armada/Chart/v1",
		Metadata: document.Metadata{
			Name:        "ucp",
			Replacement: true,
			LayeringDefinition: &document.LayeringDefinition{
				Layer:          "site",
				ParentSelector: map[string]string{"component": "ucp"},
			},
		},
	}

	forest, errs := SelectParents(p, []*document.Document{parent, replacement})
	require.Empty(t, errs)
	require.Contains(t, forest, replacement)
	assert.Same(t, parent, forest[replacement])
	assert.Equal(t, parent.ID(), replacement.ID())
}
