package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePath(t *testing.T) {
	cases := map[string]Path{
		".":       {},
		".a":      {{Key: "a"}},
		".a.b":    {{Key: "a"}, {Key: "b"}},
		".a[0]":   {{Key: "a"}, {Index: 0, IsIdx: true}},
		".a[0].b": {{Key: "a"}, {Index: 0, IsIdx: true}, {Key: "b"}},
	}
	for raw, want := range cases {
		got, err := ParsePath(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
}

func TestParsePathRejectsMissingLeadingDot(t *testing.T) {
	_, err := ParsePath("a.b")
	assert.Error(t, err)
}

func TestGetSet(t *testing.T) {
	root := NewMapping(P("a", NewInt(1)), P("b", NewMapping(P("c", NewString("x")))))

	p, err := ParsePath(".b.c")
	require.NoError(t, err)
	v, ok := Get(root, p)
	require.True(t, ok)
	assert.Equal(t, String("x"), v)

	p2, err := ParsePath(".b.d")
	require.NoError(t, err)
	updated, err := Set(root, p2, NewInt(42))
	require.NoError(t, err)

	got, ok := Get(updated, p2)
	require.True(t, ok)
	assert.Equal(t, Int(42), got)

	// Original root is untouched (Set copies each mapping it writes through).
	_, ok = Get(root, p2)
	assert.False(t, ok)
}

func TestSetSequenceExtends(t *testing.T) {
	root := NewMapping(P("list", NewSequence(NewInt(1))))
	p, err := ParsePath(".list[2]")
	require.NoError(t, err)

	got, err := Set(root, p, NewInt(9))
	require.NoError(t, err)

	list := got.(Mapping)["list"].(Sequence)
	require.Len(t, list, 3)
	assert.Equal(t, Int(9), list[2])
	assert.Equal(t, Null{}, list[1])
}

func TestDelete(t *testing.T) {
	root := NewMapping(P("a", NewInt(1)), P("b", NewInt(2)))
	p, err := ParsePath(".a")
	require.NoError(t, err)

	got, ok := Delete(root, p)
	require.True(t, ok)
	_, exists := got.(Mapping)["a"]
	assert.False(t, exists)
	assert.Equal(t, Int(2), got.(Mapping)["b"])
}

func TestDeleteRootResetsToEmptyMapping(t *testing.T) {
	root := NewMapping(P("a", NewInt(1)))
	got, ok := Delete(root, Path{})
	require.True(t, ok)
	assert.Equal(t, Mapping{}, got)
}

func TestDeepMergeMappingOverridesAndSequenceReplaces(t *testing.T) {
	parent := NewMapping(
		P("a", NewInt(1)),
		P("b", NewInt(2)),
		P("list", NewSequence(NewInt(1), NewInt(2))),
	)
	child := NewMapping(
		P("b", NewInt(3)),
		P("c", NewInt(4)),
		P("list", NewSequence(NewInt(9))),
	)

	merged := DeepMerge(parent, child).(Mapping)
	assert.Equal(t, Int(1), merged["a"])
	assert.Equal(t, Int(3), merged["b"])
	assert.Equal(t, Int(4), merged["c"])
	assert.Equal(t, Sequence{Int(9)}, merged["list"])
}

func TestDeepMergeNestedMappings(t *testing.T) {
	parent := NewMapping(P("nested", NewMapping(P("x", NewInt(1)), P("y", NewInt(2)))))
	child := NewMapping(P("nested", NewMapping(P("y", NewInt(9)))))

	merged := DeepMerge(parent, child).(Mapping)
	nested := merged["nested"].(Mapping)
	assert.Equal(t, Int(1), nested["x"])
	assert.Equal(t, Int(9), nested["y"])
}

func TestCloneIsDeep(t *testing.T) {
	original := NewMapping(P("list", NewSequence(NewInt(1))))
	cloned := Clone(original).(Mapping)
	clonedList := cloned["list"].(Sequence)
	clonedList[0] = Int(99)

	assert.Equal(t, Int(1), original["list"].(Sequence)[0])
}

func TestFromInterfaceToInterfaceRoundTrip(t *testing.T) {
	raw := map[string]any{
		"name": "site",
		"count": 3,
		"nested": map[string]any{"flag": true},
		"items": []any{1, "two", nil},
	}

	v, err := FromInterface(raw)
	require.NoError(t, err)

	back := ToInterface(v).(map[string]any)
	assert.Equal(t, "site", back["name"])
	assert.Equal(t, int64(3), back["count"])
}

func TestMappingSortedKeysDeterministic(t *testing.T) {
	m := NewMapping(P("zebra", NewInt(1)), P("apple", NewInt(2)), P("mango", NewInt(3)))
	assert.Equal(t, []string{"apple", "mango", "zebra"}, m.SortedKeys())
}

func TestEqual(t *testing.T) {
	a := NewMapping(P("a", NewSequence(NewInt(1), NewString("x"))))
	b := NewMapping(P("a", NewSequence(NewInt(1), NewString("x"))))
	c := NewMapping(P("a", NewSequence(NewInt(2), NewString("x"))))

	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
}
