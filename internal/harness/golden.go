package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/deckhand/deckhand/internal/value"
)

// toSnapshot is the golden-comparable projection of a Result: the
// rendered documents and report errors, as a plain map so it can be
// run through value.MarshalCanonical for byte-stable comparison
// regardless of map iteration order.
func toSnapshot(name string, result *Result) map[string]any {
	docList := make([]any, len(result.Documents))
	for i, d := range result.Documents {
		docList[i] = map[string]any{"schema": d.Schema, "name": d.Name, "data": d.Data}
	}
	errList := make([]any, len(result.ReportErrors))
	for i, e := range result.ReportErrors {
		errList[i] = map[string]any{"document": e.Document.String(), "stage": e.Stage, "kind": string(e.Kind)}
	}

	return map[string]any{
		"scenario_name": name,
		"documents":     docList,
		"report_errors": errList,
	}
}

// RunWithGolden executes scenario and compares its rendered output and
// report errors against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already-computed result against
// testdata/golden/{scenarioName}.golden.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snap := toSnapshot(scenarioName, result)
	canonical, err := value.MarshalCanonical(mapToValue(snap))
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, canonical)
	return nil
}

// mapToValue converts the plain any-typed snapshot map produced by
// toSnapshot into a value.Value so it can go through
// value.MarshalCanonical, the same canonical-JSON encoder the rendering
// engine's own determinism property relies on.
func mapToValue(m map[string]any) value.Value {
	v, err := value.FromInterface(m)
	if err != nil {
		panic("harness: snapshot is not representable as value.Value: " + err.Error())
	}
	return v
}
