package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode/utf16"
)

// Value is a sealed interface representing a YAML/JSON value inside a
// document's `data` payload. Only Null, Bool, Int, Float, String,
// Sequence, and Mapping implement it.
type Value interface {
	sealed()
}

// Null represents an explicit YAML/JSON null.
type Null struct{}

func (Null) sealed() {}

// Bool represents a boolean value.
type Bool bool

func (Bool) sealed() {}

// Int represents an integer value. Always int64.
type Int int64

func (Int) sealed() {}

// Float represents a floating point value.
type Float float64

func (Float) sealed() {}

// String represents a string value.
type String string

func (String) sealed() {}

// Sequence represents an ordered list of values.
type Sequence []Value

func (Sequence) sealed() {}

// Mapping represents a string-keyed map of values.
type Mapping map[string]Value

func (Mapping) sealed() {}

// Pair is a key/value pair for ergonomic Mapping construction.
type Pair struct {
	Key   string
	Value Value
}

// P is shorthand for Pair, e.g. NewMapping(P("a", NewInt(1))).
func P(key string, v Value) Pair {
	return Pair{Key: key, Value: v}
}

// NewString creates a String value.
func NewString(s string) String { return String(s) }

// NewInt creates an Int value.
func NewInt(n int64) Int { return Int(n) }

// NewFloat creates a Float value.
func NewFloat(f float64) Float { return Float(f) }

// NewBool creates a Bool value.
func NewBool(b bool) Bool { return Bool(b) }

// NewSequence creates a Sequence from values.
func NewSequence(vals ...Value) Sequence { return Sequence(vals) }

// NewMapping creates a Mapping from pairs.
func NewMapping(pairs ...Pair) Mapping {
	m := make(Mapping, len(pairs))
	for _, p := range pairs {
		m[p.Key] = p.Value
	}
	return m
}

// SortedKeys returns a Mapping's keys ordered by UTF-16 code unit, the
// ordering required by RFC 8785 canonical JSON. Iteration over a plain
// Go map is never used directly anywhere rendering output is produced,
// so that byte-stable output (§8 Property 1, Determinism) never depends
// on map iteration order.
func (m Mapping) SortedKeys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	return len(a16) - len(b16)
}

// Clone returns a deep copy of v. Layering starts each child's rendered
// data from a deep copy of its parent's data (§4.5 step 1) so that
// mutating the child's copy never perturbs the parent or any sibling
// that also derives from it.
func Clone(v Value) Value {
	switch t := v.(type) {
	case nil:
		return Null{}
	case Null, Bool, Int, Float, String:
		return t
	case Sequence:
		out := make(Sequence, len(t))
		for i, e := range t {
			out[i] = Clone(e)
		}
		return out
	case Mapping:
		out := make(Mapping, len(t))
		for k, e := range t {
			out[k] = Clone(e)
		}
		return out
	default:
		return Null{}
	}
}

// Equal reports whether two values are structurally identical.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Float:
		bv, ok := b.(Float)
		return ok && av == bv
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Sequence:
		bv, ok := b.(Sequence)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Mapping:
		bv, ok := b.(Mapping)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, ev := range av {
			bev, ok := bv[k]
			if !ok || !Equal(ev, bev) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Path is a parsed JSON-path-like address: a leading "." is the root of
// `data`; ".a.b" addresses nested mapping keys; ".a[0]" addresses a
// sequence index. An empty Path addresses the root value itself.
type Path []PathSegment

// PathSegment is one step of a Path: either a mapping key or a sequence
// index (Index applies when IsIdx is true).
type PathSegment struct {
	Key   string
	Index int
	IsIdx bool
}

// ParsePath parses a JSON-path-like string such as ".", ".a.b", or
// ".a[0].b" into a Path. The wire contract (§6) requires a leading "."
// denoting the root of `data`.
func ParsePath(raw string) (Path, error) {
	if raw == "" {
		return nil, fmt.Errorf("path must not be empty")
	}
	if raw[0] != '.' {
		return nil, fmt.Errorf("path %q must start with '.'", raw)
	}
	raw = raw[1:]
	if raw == "" {
		return Path{}, nil
	}

	var path Path
	for _, rawSeg := range strings.Split(raw, ".") {
		if rawSeg == "" {
			return nil, fmt.Errorf("path has empty segment")
		}
		key := rawSeg
		for {
			open := strings.IndexByte(key, '[')
			if open < 0 {
				if key != "" {
					path = append(path, PathSegment{Key: key})
				}
				break
			}
			closeIdx := strings.IndexByte(key[open:], ']')
			if closeIdx < 0 {
				return nil, fmt.Errorf("path segment %q has unmatched '['", rawSeg)
			}
			closeIdx += open
			if open > 0 {
				path = append(path, PathSegment{Key: key[:open]})
			}
			idxStr := key[open+1 : closeIdx]
			idx, err := strconv.Atoi(idxStr)
			if err != nil {
				return nil, fmt.Errorf("path segment %q has non-numeric index: %w", rawSeg, err)
			}
			path = append(path, PathSegment{Index: idx, IsIdx: true})
			key = key[closeIdx+1:]
		}
	}
	return path, nil
}

// String renders the Path back into its JSON-path-like form.
func (p Path) String() string {
	var b strings.Builder
	b.WriteByte('.')
	for i, seg := range p {
		if seg.IsIdx {
			fmt.Fprintf(&b, "[%d]", seg.Index)
			continue
		}
		if i > 0 && !p[i-1].IsIdx {
			b.WriteByte('.')
		}
		b.WriteString(seg.Key)
	}
	return b.String()
}

// Get resolves path within root and returns the value found there, or
// ok=false if the path does not resolve (missing key/index, or indexing
// into a non-container).
func Get(root Value, path Path) (Value, bool) {
	cur := root
	for _, seg := range path {
		switch t := cur.(type) {
		case Mapping:
			if seg.IsIdx {
				return nil, false
			}
			v, ok := t[seg.Key]
			if !ok {
				return nil, false
			}
			cur = v
		case Sequence:
			if !seg.IsIdx || seg.Index < 0 || seg.Index >= len(t) {
				return nil, false
			}
			cur = t[seg.Index]
		default:
			return nil, false
		}
	}
	return cur, true
}

// Set writes v at path within root, creating intermediate mappings as
// needed, and returns the (possibly new) root. Setting at the empty
// path replaces the whole value. Indexing a sequence past its current
// length extends it with Null entries.
func Set(root Value, path Path, v Value) (Value, error) {
	if len(path) == 0 {
		return v, nil
	}
	return setAt(root, path, v)
}

func setAt(cur Value, path Path, v Value) (Value, error) {
	seg := path[0]
	rest := path[1:]

	if seg.IsIdx {
		seq, ok := cur.(Sequence)
		if !ok {
			if _, isNull := cur.(Null); isNull || cur == nil {
				seq = Sequence{}
			} else {
				return nil, fmt.Errorf("cannot index non-sequence with [%d]", seg.Index)
			}
		}
		if seg.Index < 0 {
			return nil, fmt.Errorf("negative sequence index %d", seg.Index)
		}
		for len(seq) <= seg.Index {
			seq = append(seq, Null{})
		}
		if len(rest) == 0 {
			seq[seg.Index] = v
			return seq, nil
		}
		child, err := setAt(seq[seg.Index], rest, v)
		if err != nil {
			return nil, err
		}
		seq[seg.Index] = child
		return seq, nil
	}

	m, ok := cur.(Mapping)
	if !ok {
		if _, isNull := cur.(Null); isNull || cur == nil {
			m = Mapping{}
		} else {
			return nil, fmt.Errorf("cannot set key %q on non-mapping", seg.Key)
		}
	} else {
		clone := make(Mapping, len(m))
		for k, e := range m {
			clone[k] = e
		}
		m = clone
	}
	if len(rest) == 0 {
		m[seg.Key] = v
		return m, nil
	}
	child, err := setAt(m[seg.Key], rest, v)
	if err != nil {
		return nil, err
	}
	m[seg.Key] = child
	return m, nil
}

// Delete removes the key/index addressed by path from root and returns
// the new root. Deleting the root path (".") resets root to an empty
// Mapping. ok=false if the path does not resolve.
func Delete(root Value, path Path) (Value, bool) {
	if len(path) == 0 {
		return Mapping{}, true
	}
	return deleteAt(root, path)
}

func deleteAt(cur Value, path Path) (Value, bool) {
	seg := path[0]
	rest := path[1:]

	if seg.IsIdx {
		seq, ok := cur.(Sequence)
		if !ok || seg.Index < 0 || seg.Index >= len(seq) {
			return cur, false
		}
		if len(rest) == 0 {
			out := make(Sequence, 0, len(seq)-1)
			out = append(out, seq[:seg.Index]...)
			out = append(out, seq[seg.Index+1:]...)
			return out, true
		}
		child, ok := deleteAt(seq[seg.Index], rest)
		if !ok {
			return cur, false
		}
		clone := slices.Clone(seq)
		clone[seg.Index] = child
		return clone, true
	}

	m, ok := cur.(Mapping)
	if !ok {
		return cur, false
	}
	if _, present := m[seg.Key]; !present {
		return cur, false
	}
	clone := make(Mapping, len(m))
	for k, e := range m {
		clone[k] = e
	}
	if len(rest) == 0 {
		delete(clone, seg.Key)
		return clone, true
	}
	child, ok := deleteAt(clone[seg.Key], rest)
	if !ok {
		return cur, false
	}
	clone[seg.Key] = child
	return clone, true
}

// DeepMerge merges child onto parent: mapping keys in child override or
// extend parent recursively; a sequence in child fully replaces the
// corresponding sequence in parent rather than merging element-wise
// (§4.5: "for sequences, child fully replaces parent at that path").
// Scalars in child always win.
func DeepMerge(parent, child Value) Value {
	parentMap, parentIsMap := parent.(Mapping)
	childMap, childIsMap := child.(Mapping)
	if parentIsMap && childIsMap {
		out := make(Mapping, len(parentMap)+len(childMap))
		for k, v := range parentMap {
			out[k] = Clone(v)
		}
		for k, v := range childMap {
			if existing, ok := out[k]; ok {
				out[k] = DeepMerge(existing, v)
			} else {
				out[k] = Clone(v)
			}
		}
		return out
	}
	return Clone(child)
}

// FromInterface converts a decoded YAML/JSON tree (as produced by
// gopkg.in/yaml.v3 or encoding/json) into a Value.
func FromInterface(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case int:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint64:
		return Int(int64(t)), nil
	case float64:
		if float64(int64(t)) == t {
			return Int(int64(t)), nil
		}
		return Float(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %q: %w", t, err)
		}
		return Float(f), nil
	case []any:
		out := make(Sequence, len(t))
		for i, e := range t {
			conv, err := FromInterface(e)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = conv
		}
		return out, nil
	case map[string]any:
		out := make(Mapping, len(t))
		for k, e := range t {
			conv, err := FromInterface(e)
			if err != nil {
				return nil, fmt.Errorf("%q: %w", k, err)
			}
			out[k] = conv
		}
		return out, nil
	case map[any]any:
		out := make(Mapping, len(t))
		for k, e := range t {
			ks, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("non-string mapping key %v (%T)", k, k)
			}
			conv, err := FromInterface(e)
			if err != nil {
				return nil, fmt.Errorf("%q: %w", ks, err)
			}
			out[ks] = conv
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// ToInterface converts a Value back into plain Go data (map[string]any,
// []any, scalars) suitable for gopkg.in/yaml.v3 encoding or
// encoding/json with the standard library's default marshaling.
func ToInterface(v Value) any {
	switch t := v.(type) {
	case nil:
		return nil
	case Null:
		return nil
	case Bool:
		return bool(t)
	case Int:
		return int64(t)
	case Float:
		return float64(t)
	case String:
		return string(t)
	case Sequence:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = ToInterface(e)
		}
		return out
	case Mapping:
		out := make(map[string]any, len(t))
		for _, k := range t.SortedKeys() {
			out[k] = ToInterface(t[k])
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON implements json.Marshaler for Mapping with sorted keys.
// Not canonical (may HTML-escape); use MarshalCanonical for
// content-addressed hashing and for rendered-output byte comparison.
func (m Mapping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')
		valBytes, err := MarshalJSON(m[k])
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON marshals any Value to JSON bytes via type-switch dispatch.
func MarshalJSON(v Value) ([]byte, error) {
	switch t := v.(type) {
	case nil:
		return []byte("null"), nil
	case Null:
		return []byte("null"), nil
	case String:
		return json.Marshal(string(t))
	case Int:
		return json.Marshal(int64(t))
	case Float:
		return json.Marshal(float64(t))
	case Bool:
		return json.Marshal(bool(t))
	case Sequence:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := MarshalJSON(e)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case Mapping:
		return t.MarshalJSON()
	default:
		return nil, fmt.Errorf("unknown Value type %T", v)
	}
}
