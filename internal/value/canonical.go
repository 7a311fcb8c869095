package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785-flavoured canonical JSON for a
// Value: object keys sorted by UTF-16 code unit, no HTML escaping,
// NFC-normalized strings, and no trailing whitespace. This is the only
// serialization rendered documents are compared with — both for the
// determinism property (§8 Property 1: render(R) == render(R)
// byte-for-byte) and for golden-file regression tests — so any
// nondeterministic-looking step upstream (map iteration, candidate
// ordering) must be sorted before it ever reaches this function.
//
// Unlike strict RFC 8785, Null and Float are permitted: document data
// is arbitrary YAML, which allows both, whereas the teacher's
// content-addressed event log (the origin of this function) forbade
// them by design. See DESIGN.md for this deviation.
func MarshalCanonical(v Value) ([]byte, error) {
	switch t := v.(type) {
	case nil:
		return []byte("null"), nil
	case Null:
		return []byte("null"), nil
	case String:
		return marshalCanonicalString(string(t))
	case Int:
		return []byte(strconv.FormatInt(int64(t), 10)), nil
	case Float:
		return []byte(strconv.FormatFloat(float64(t), 'g', -1, 64)), nil
	case Bool:
		if t {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case Sequence:
		return marshalCanonicalSequence(t)
	case Mapping:
		return marshalCanonicalMapping(t)
	default:
		return nil, fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

// marshalCanonicalString produces a canonical JSON string with NFC
// normalization and without HTML escaping.
//
// Only control characters (U+0000-U+001F), backslash, and quote are
// escaped; U+2028/U+2029 are left as literal characters per RFC 8785,
// even though Go's encoder escapes them for JavaScript compatibility.
func marshalCanonicalString(s string) ([]byte, error) {
	normalized := norm.NFC.String(s)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return nil, err
	}

	result := buf.Bytes()
	if len(result) > 0 && result[len(result)-1] == '\n' {
		result = result[:len(result)-1]
	}
	return unescapeLineSeparators(result), nil
}

// unescapeLineSeparators converts \u2028 and \u2029 escape sequences to
// literal characters, but preserves \\u2028/\\u2029 (an escaped
// backslash followed by the literal text "u2028"/"u2029").
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}

	var result []byte
	i := 0
	for i < len(data) {
		if i+6 <= len(data) && data[i] == '\\' && data[i+1] == 'u' &&
			data[i+2] == '2' && data[i+3] == '0' && data[i+4] == '2' &&
			(data[i+5] == '8' || data[i+5] == '9') {

			backslashes := 0
			if result == nil {
				for j := i - 1; j >= 0 && data[j] == '\\'; j-- {
					backslashes++
				}
			} else {
				for j := len(result) - 1; j >= 0 && result[j] == '\\'; j-- {
					backslashes++
				}
			}

			if backslashes%2 == 0 {
				if result == nil {
					result = make([]byte, 0, len(data))
					result = append(result, data[:i]...)
				}
				if data[i+5] == '8' {
					result = append(result, []byte{0xe2, 0x80, 0xa8}...)
				} else {
					result = append(result, []byte{0xe2, 0x80, 0xa9}...)
				}
				i += 6
				continue
			}
		}
		if result != nil {
			result = append(result, data[i])
		}
		i++
	}

	if result == nil {
		return data
	}
	return result
}

func marshalCanonicalSequence(seq Sequence) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, elem := range seq {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := MarshalCanonical(elem)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func marshalCanonicalMapping(m Mapping) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	keys := m.SortedKeys()
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := marshalCanonicalString(k)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')
		valBytes, err := MarshalCanonical(m[k])
		if err != nil {
			return nil, fmt.Errorf("value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
