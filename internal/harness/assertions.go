package harness

import (
	"fmt"

	"github.com/deckhand/deckhand/internal/document"
)

// AssertionError is returned when a scenario expectation fails. It
// carries enough structure to format a readable failure message while
// still satisfying the error interface for result.AddError.
type AssertionError struct {
	Type     string // assertion kind: documentCount, document, errorKinds
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion failed: %s\n  expected: %s\n  actual:   %s", e.Type, e.Expected, e.Actual)
}

// assertDocumentCount checks the rendered document count is exactly want.
func assertDocumentCount(result *Result, want int) *AssertionError {
	if len(result.Documents) == want {
		return nil
	}
	return &AssertionError{
		Type:     "documentCount",
		Expected: fmt.Sprintf("%d", want),
		Actual:   fmt.Sprintf("%d", len(result.Documents)),
	}
}

// assertDocumentMatches checks that result contains a document matching
// want.Schema/want.Name whose data is a superset match of want.Data.
func assertDocumentMatches(result *Result, want ExpectedDocument) *AssertionError {
	got, ok := result.findDocument(document.ID{Schema: want.Schema, Name: want.Name})
	if !ok {
		return &AssertionError{
			Type:     "document",
			Expected: fmt.Sprintf("rendered document %s/%s", want.Schema, want.Name),
			Actual:   "not found",
		}
	}
	if want.Data != nil && !dataMatches(got.Data, want.Data) {
		return &AssertionError{
			Type:     "document",
			Expected: fmt.Sprintf("%s/%s data matching %#v", want.Schema, want.Name, want.Data),
			Actual:   fmt.Sprintf("%#v", got.Data),
		}
	}
	return nil
}

// assertErrorKinds checks that the report's error kinds equal want as a
// multiset (order-independent, duplicate-sensitive). An explicitly empty
// want asserts the report has no errors at all.
func assertErrorKinds(result *Result, want []string) []*AssertionError {
	got := make([]string, 0, len(result.ReportErrors))
	for _, e := range result.ReportErrors {
		got = append(got, string(e.Kind))
	}

	var errs []*AssertionError
	remaining := append([]string{}, got...)
	for _, w := range want {
		idx := -1
		for i, g := range remaining {
			if g == w {
				idx = i
				break
			}
		}
		if idx == -1 {
			errs = append(errs, &AssertionError{
				Type:     "errorKinds",
				Expected: fmt.Sprintf("%q present in report errors", w),
				Actual:   fmt.Sprintf("%v", got),
			})
			continue
		}
		remaining = append(remaining[:idx], remaining[idx+1:]...)
	}
	if len(want) == 0 && len(got) != 0 {
		errs = append(errs, &AssertionError{
			Type:     "errorKinds",
			Expected: "no report errors",
			Actual:   fmt.Sprintf("%v", got),
		})
	}
	return errs
}

// dataMatches reports whether got (decoded from value.Value via
// value.ToInterface) matches want as a subset: every key in want must be
// present in got with an equal value, recursively for nested maps. Extra
// keys in got are ignored.
func dataMatches(got any, want map[string]any) bool {
	gotMap, ok := got.(map[string]any)
	if !ok {
		return false
	}
	for k, wantVal := range want {
		gotVal, ok := gotMap[k]
		if !ok {
			return false
		}
		if wantNested, ok := wantVal.(map[string]any); ok {
			if !dataMatches(gotVal, wantNested) {
				return false
			}
			continue
		}
		if !valuesEqual(gotVal, wantVal) {
			return false
		}
	}
	return true
}

// valuesEqual compares two decoded YAML/JSON scalars, tolerating the
// int/int64/float64 mismatches that round-tripping through
// value.ToInterface and yaml.Unmarshal independently can introduce.
func valuesEqual(a, b any) bool {
	an, aok := toFloat(a)
	bn, bok := toFloat(b)
	if aok && bok {
		return an == bn
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
