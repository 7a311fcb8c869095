package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleStream = `
---
schema: deckhand/LayeringPolicy/v1
metadata:
  schema: metadata/Control/v1
  name: layering-policy
data:
  layerOrder:
    - global
    - site
---
schema: example/Kind/v1
metadata:
  schema: metadata/Document/v1
  name: global-doc
  layeringDefinition:
    layer: global
    actions: []
data:
  foo: bar
---
schema: example/Kind/v1
metadata:
  schema: metadata/Document/v1
  name: site-doc
  layeringDefinition:
    layer: site
    parentSelector:
      component: example
    actions:
      - method: merge
        path: .
data:
  foo: baz
`

func TestParseStreamPartitionsControlAndNormalDocuments(t *testing.T) {
	docs, controls, err := ParseStream([]byte(sampleStream))
	require.NoError(t, err)

	require.NotNil(t, controls.LayeringPolicy)
	assert.Equal(t, []string{"global", "site"}, controls.LayeringPolicy.LayerOrder)

	require.Len(t, docs, 2)
	assert.Equal(t, "global-doc", docs[0].Metadata.Name)
	assert.Equal(t, "site", docs[1].Layer())
	assert.Equal(t, ActionMerge, docs[1].Metadata.LayeringDefinition.Actions[0].Method)
}

func TestParseStreamRejectsUnknownTopLevelKey(t *testing.T) {
	const bad = `
schema: example/Kind/v1
metadata:
  name: x
data: {}
bogus: true
`
	_, _, err := ParseStream([]byte(bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown top-level")
}

func TestParseStreamRejectsMultipleLayeringPolicies(t *testing.T) {
	const dup = `
---
schema: deckhand/LayeringPolicy/v1
metadata:
  name: one
data:
  layerOrder: [global]
---
schema: deckhand/LayeringPolicy/v1
metadata:
  name: two
data:
  layerOrder: [site]
`
	_, _, err := ParseStream([]byte(dup))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple LayeringPolicy")
}

func TestParseStreamRequiresMetadataName(t *testing.T) {
	const noName = `
schema: example/Kind/v1
metadata: {}
data: {}
`
	_, _, err := ParseStream([]byte(noName))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing metadata.name")
}

func TestParseStreamCollectsDataSchemasAndValidationPolicies(t *testing.T) {
	const mixed = `
---
schema: deckhand/DataSchema/v1
metadata:
  name: example/Kind/v1
data:
  type: object
---
schema: deckhand/ValidationPolicy/v1
metadata:
  name: site-deploy-ready
data:
  validations:
    - name: deckhand-render-consistency
    - deckhand-schema-validation
`
	docs, controls, err := ParseStream([]byte(mixed))
	require.NoError(t, err)
	assert.Empty(t, docs)
	require.Len(t, controls.DataSchemas, 1)
	assert.Equal(t, "example/Kind/v1", controls.DataSchemas[0].Name)
	require.Len(t, controls.ValidationPolicies, 1)
	assert.ElementsMatch(t, []string{"deckhand-render-consistency", "deckhand-schema-validation"},
		controls.ValidationPolicies[0].Validations)
}
