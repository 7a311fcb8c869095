package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckhand/deckhand/internal/document"
	"github.com/deckhand/deckhand/internal/rendererr"
)

func TestConformsSuccessWhenAllNamedValidationsSucceed(t *testing.T) {
	r := NewReport("rev-1")
	now := time.Unix(1000, 0)
	r.RecordInternal(SchemaValidation, OutcomeSuccess, now)
	r.PostExternal("deckhand-render-consistency", OutcomeSuccess, now)

	vp := document.ValidationPolicy{Name: "site-deploy-ready", Validations: []string{SchemaValidation, "deckhand-render-consistency"}}
	assert.Equal(t, OutcomeSuccess, r.Conforms(vp))
}

func TestConformsFailsWhenAnyNamedValidationMissing(t *testing.T) {
	r := NewReport("rev-1")
	r.RecordInternal(SchemaValidation, OutcomeSuccess, time.Unix(1000, 0))

	vp := document.ValidationPolicy{Name: "site-deploy-ready", Validations: []string{SchemaValidation, "deckhand-render-consistency"}}
	assert.Equal(t, OutcomeFailure, r.Conforms(vp))
}

func TestConformsFailsOnExpiredOrFailedEntry(t *testing.T) {
	r := NewReport("rev-1")
	r.RecordInternal(SchemaValidation, OutcomeExpired, time.Unix(1000, 0))

	vp := document.ValidationPolicy{Name: "p", Validations: []string{SchemaValidation}}
	assert.Equal(t, OutcomeFailure, r.Conforms(vp))
}

func TestPostExternalNormalizesLegacyName(t *testing.T) {
	r := NewReport("rev-1")
	r.PostExternal(LegacySchemaValidation, OutcomeSuccess, time.Unix(1000, 0))

	vp := document.ValidationPolicy{Name: "p", Validations: []string{SchemaValidation}}
	assert.Equal(t, OutcomeSuccess, r.Conforms(vp))
}

func TestLatestEntryWinsAcrossInternalAndExternal(t *testing.T) {
	r := NewReport("rev-1")
	r.RecordInternal(SchemaValidation, OutcomeSuccess, time.Unix(1000, 0))
	r.PostExternal(SchemaValidation, OutcomeFailure, time.Unix(2000, 0))

	vp := document.ValidationPolicy{Name: "p", Validations: []string{SchemaValidation}}
	assert.Equal(t, OutcomeFailure, r.Conforms(vp))
}

func TestOlderPostDoesNotOverrideNewerEntry(t *testing.T) {
	r := NewReport("rev-1")
	r.RecordInternal(SchemaValidation, OutcomeFailure, time.Unix(2000, 0))
	r.PostExternal(SchemaValidation, OutcomeSuccess, time.Unix(1000, 0))

	vp := document.ValidationPolicy{Name: "p", Validations: []string{SchemaValidation}}
	assert.Equal(t, OutcomeFailure, r.Conforms(vp))
}

func TestCheckPoliciesFlagsEmptyValidationList(t *testing.T) {
	policies := []document.ValidationPolicy{
		{Name: "site-deploy-ready", Validations: []string{SchemaValidation}},
		{Name: "vacuous", Validations: nil},
	}
	errs := CheckPolicies(policies)
	require.Len(t, errs, 1)
	assert.Equal(t, rendererr.EmptyValidationPolicy, errs[0].Kind)
	assert.Equal(t, rendererr.SeverityAdvisory, errs[0].Severity())
}

func TestRecordErrorAppendsAttributedRecord(t *testing.T) {
	r := NewReport("rev-1")
	id := document.ID{Schema: "armada/Chart/v1", Name: "ucp"}
	r.RecordError("layering", &rendererr.EngineError{Kind: rendererr.MissingDocumentKey, Document: id, Message: "boom"})

	require.Len(t, r.Errors, 1)
	assert.Equal(t, "layering", r.Errors[0].Stage)
	assert.Equal(t, id, r.Errors[0].Document)
	assert.Equal(t, rendererr.SeverityFatalDocument, r.Errors[0].Severity)
}

func TestSortErrorsOrdersByDocumentThenStage(t *testing.T) {
	r := NewReport("rev-1")
	a := document.ID{Schema: "armada/Chart/v1", Name: "b"}
	b := document.ID{Schema: "armada/Chart/v1", Name: "a"}
	r.RecordError("substitution", &rendererr.EngineError{Document: a, Kind: rendererr.SubstitutionFailure})
	r.RecordError("layering", &rendererr.EngineError{Document: b, Kind: rendererr.MissingDocumentKey})
	r.RecordError("layering", &rendererr.EngineError{Document: a, Kind: rendererr.MissingDocumentKey})

	r.SortErrors()
	require.Len(t, r.Errors, 3)
	assert.Equal(t, b, r.Errors[0].Document)
	assert.Equal(t, a, r.Errors[1].Document)
	assert.Equal(t, "layering", r.Errors[1].Stage)
	assert.Equal(t, a, r.Errors[2].Document)
	assert.Equal(t, "substitution", r.Errors[2].Stage)
}
