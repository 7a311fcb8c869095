package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// SuiteResult summarizes running every scenario file in a directory.
type SuiteResult struct {
	Total    int             `json:"total"`
	Passed   int             `json:"passed"`
	Failed   int             `json:"failed"`
	Failures []ScenarioError `json:"failures,omitempty"`
}

// ScenarioError is one scenario's failure within a suite run: either a
// load error or a failed expectation.
type ScenarioError struct {
	Path   string   `json:"path"`
	Errors []string `json:"errors"`
}

// RunSuite loads and runs every *.yaml file directly under dir (the
// testable-property scenarios, one file per property), in filename
// order, and returns an aggregate pass/fail summary. It does not
// recurse into subdirectories.
func RunSuite(dir string) (*SuiteResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenario directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if filepath.Ext(entry.Name()) != ".yaml" && filepath.Ext(entry.Name()) != ".yml" {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)

	result := &SuiteResult{}
	for _, path := range paths {
		result.Total++

		scenario, err := LoadScenario(path)
		if err != nil {
			result.Failed++
			result.Failures = append(result.Failures, ScenarioError{
				Path:   path,
				Errors: []string{fmt.Sprintf("load scenario: %v", err)},
			})
			continue
		}

		runResult, err := Run(scenario)
		if err != nil {
			result.Failed++
			result.Failures = append(result.Failures, ScenarioError{
				Path:   path,
				Errors: []string{fmt.Sprintf("run scenario: %v", err)},
			})
			continue
		}

		if !runResult.Pass {
			result.Failed++
			result.Failures = append(result.Failures, ScenarioError{Path: path, Errors: runResult.Errors})
			continue
		}

		result.Passed++
	}

	return result, nil
}
