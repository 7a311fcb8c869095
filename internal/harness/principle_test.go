package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingSuiteScenario = `
name: passing
description: "trivially passing scenario"
documents: |
  ---
  schema: a/B/v1
  metadata: {schema: metadata/Document/v1, name: x}
  data: {k: v}
expect:
  documentCount: 1
`

const failingSuiteScenario = `
name: failing
description: "scenario with an expectation that cannot hold"
documents: |
  ---
  schema: a/B/v1
  metadata: {schema: metadata/Document/v1, name: x}
  data: {k: v}
expect:
  documentCount: 99
`

func TestRunSuiteAggregatesPassAndFail(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_passing.yaml"), []byte(passingSuiteScenario), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b_failing.yaml"), []byte(failingSuiteScenario), 0644))

	result, err := RunSuite(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, filepath.Join(dir, "b_failing.yaml"), result.Failures[0].Path)
}

func TestRunSuiteIgnoresNonYAMLFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_passing.yaml"), []byte(passingSuiteScenario), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("not a scenario"), 0644))

	result, err := RunSuite(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Total)
}

func TestRunSuiteReportsLoadErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("description: missing name\n"), 0644))

	result, err := RunSuite(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
}

func TestRunSuiteNonexistentDirectory(t *testing.T) {
	_, err := RunSuite(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

// TestRunSuiteTestableProperties runs the checked-in S1-S4/S6 scenario
// fixtures end to end and asserts the whole suite passes.
func TestRunSuiteTestableProperties(t *testing.T) {
	result, err := RunSuite("testdata/scenarios")
	require.NoError(t, err)
	assert.Equalf(t, 0, result.Failed, "failures: %+v", result.Failures)
	assert.Equal(t, result.Total, result.Passed)
}
