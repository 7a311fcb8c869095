package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenarioFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const validScenarioYAML = `
name: pure_layering_merge
description: "child bucket merges onto its parent"
documents: |
  ---
  schema: armada/Chart/v1
  metadata: {schema: metadata/Document/v1, name: ucp}
  data: {a: 1}
expect:
  documentCount: 1
`

func TestLoadScenarioValidFile(t *testing.T) {
	dir := t.TempDir()
	path := writeScenarioFile(t, dir, "s1.yaml", validScenarioYAML)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "pure_layering_merge", scenario.Name)
	assert.NotEmpty(t, scenario.Documents)
	require.NotNil(t, scenario.Expect.DocumentCount)
	assert.Equal(t, 1, *scenario.Expect.DocumentCount)
}

func TestLoadScenarioMissingName(t *testing.T) {
	dir := t.TempDir()
	path := writeScenarioFile(t, dir, "bad.yaml", `
description: "no name"
documents: |
  ---
  schema: a/B/v1
`)

	_, err := LoadScenario(path)
	assert.Error(t, err)
}

func TestLoadScenarioMissingDocuments(t *testing.T) {
	dir := t.TempDir()
	path := writeScenarioFile(t, dir, "bad.yaml", `
name: no_documents
description: "no documents"
`)

	_, err := LoadScenario(path)
	assert.Error(t, err)
}

func TestLoadScenarioUnknownField(t *testing.T) {
	dir := t.TempDir()
	path := writeScenarioFile(t, dir, "bad.yaml", `
name: typo
description: "typo'd key"
documnets: |
  ---
  schema: a/B/v1
`)

	_, err := LoadScenario(path)
	assert.Error(t, err)
}

func TestLoadScenarioNonexistentFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadScenarioWithSecretsAndErrorKinds(t *testing.T) {
	dir := t.TempDir()
	path := writeScenarioFile(t, dir, "s3.yaml", `
name: substitution_with_pattern
description: "secret dereferenced into destination via pattern"
documents: |
  ---
  schema: a/B/v1
secrets:
  passphrase-ref: s3cret
expect:
  errorKinds: []
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", scenario.Secrets["passphrase-ref"])
	require.NotNil(t, scenario.Expect.ErrorKinds)
	assert.Empty(t, scenario.Expect.ErrorKinds)
}
