// Package harness's core execution loop: parse a scenario's document
// stream, run it through the rendering engine with a fixed correlation
// ID, and report the rendered output and validation errors.
package harness

import (
	"context"
	"fmt"

	"github.com/deckhand/deckhand/internal/document"
	"github.com/deckhand/deckhand/internal/render"
	"github.com/deckhand/deckhand/internal/secret"
	"github.com/deckhand/deckhand/internal/value"
)

// fixedCorrelationID is the correlation ID every scenario renders
// under, so golden logs and golden traces are reproducible across runs.
const fixedCorrelationID = "harness-scenario"

// mapSecretStore is a fake secret.Store backed by an in-memory
// reference-to-cleartext map, for scenarios exercising the secret
// dereference stage without a real Barbican-equivalent dependency.
type mapSecretStore map[string]string

func (m mapSecretStore) FetchSecret(_ context.Context, reference string) ([]byte, error) {
	v, ok := m[reference]
	if !ok {
		return nil, &secret.NotFoundError{Reference: reference}
	}
	return []byte(v), nil
}

// Run parses scenario.Documents, renders it with a fixed correlation ID
// (and a fake secret store if scenario.Secrets is set), and evaluates
// every expectation in scenario.Expect against the result.
func Run(scenario *Scenario) (*Result, error) {
	docs, controls, err := document.ParseStream([]byte(scenario.Documents))
	if err != nil {
		return nil, fmt.Errorf("scenario %s: parse documents: %w", scenario.Name, err)
	}

	opts := []render.Option{render.WithCorrelationGenerator(render.FixedGenerator(fixedCorrelationID))}
	if len(scenario.Secrets) > 0 {
		opts = append(opts, render.WithSecretStore(mapSecretStore(scenario.Secrets)))
	}
	engine := render.New(opts...)

	out := engine.Render(context.Background(), scenario.Name, docs, controls)

	result := NewResult()
	for _, d := range out.Documents {
		result.Documents = append(result.Documents, RenderedDoc{
			Schema: d.Schema,
			Name:   d.Metadata.Name,
			Data:   value.ToInterface(out.Data[d.ID()]),
		})
	}
	if out.Report != nil {
		result.ReportErrors = out.Report.Errors
	}

	evaluateExpect(scenario.Expect, result)
	return result, nil
}

// evaluateExpect checks every assertion in expect against result,
// recording an *AssertionError on result for each one that doesn't hold.
func evaluateExpect(expect ExpectClause, result *Result) {
	if expect.DocumentCount != nil {
		if err := assertDocumentCount(result, *expect.DocumentCount); err != nil {
			result.AddError(err.Error())
		}
	}
	for _, want := range expect.Documents {
		if err := assertDocumentMatches(result, want); err != nil {
			result.AddError(err.Error())
		}
	}
	if expect.ErrorKinds != nil {
		if errs := assertErrorKinds(result, expect.ErrorKinds); len(errs) > 0 {
			for _, err := range errs {
				result.AddError(err.Error())
			}
		}
	}
}
