package secret

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckhand/deckhand/internal/document"
	"github.com/deckhand/deckhand/internal/rendererr"
	"github.com/deckhand/deckhand/internal/value"
)

type fakeStore struct {
	fetches int
	values  map[string][]byte
	errs    map[string]error
}

func (s *fakeStore) FetchSecret(_ context.Context, reference string) ([]byte, error) {
	s.fetches++
	if err, ok := s.errs[reference]; ok {
		return nil, err
	}
	return s.values[reference], nil
}

func TestResolveCachesAfterFirstFetch(t *testing.T) {
	store := &fakeStore{values: map[string][]byte{"ref-a": []byte("s3cret")}}
	cache := NewCache(store)

	v1, err := cache.Resolve(context.Background(), "ref-a")
	require.NoError(t, err)
	v2, err := cache.Resolve(context.Background(), "ref-a")
	require.NoError(t, err)

	assert.Equal(t, value.String("s3cret"), v1)
	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, store.fetches)
}

func TestResolveDistinctReferencesEachFetchOnce(t *testing.T) {
	store := &fakeStore{values: map[string][]byte{"ref-a": []byte("a"), "ref-b": []byte("b")}}
	cache := NewCache(store)

	_, _ = cache.Resolve(context.Background(), "ref-a")
	_, _ = cache.Resolve(context.Background(), "ref-b")
	_, _ = cache.Resolve(context.Background(), "ref-a")

	assert.Equal(t, 2, store.fetches)
}

func TestClassifyErrorNotFound(t *testing.T) {
	store := &fakeStore{errs: map[string]error{"ref-a": &NotFoundError{Reference: "ref-a"}}}
	cache := NewCache(store)

	_, err := cache.Resolve(context.Background(), "ref-a")
	require.Error(t, err)

	ee := ClassifyError(document.ID{Schema: "deckhand/Certificate/v1", Name: "x"}, "ref-a", err)
	assert.Equal(t, rendererr.BarbicanException, ee.Kind)
	assert.Equal(t, rendererr.SubKindNotFound, ee.SubKind)
}

func TestClassifyErrorTransient(t *testing.T) {
	store := &fakeStore{errs: map[string]error{"ref-a": &TransientError{Reference: "ref-a", Cause: context.DeadlineExceeded}}}
	cache := NewCache(store)

	_, err := cache.Resolve(context.Background(), "ref-a")
	require.Error(t, err)

	ee := ClassifyError(document.ID{Schema: "deckhand/Certificate/v1", Name: "x"}, "ref-a", err)
	assert.Equal(t, rendererr.BarbicanException, ee.Kind)
	assert.Equal(t, rendererr.SubKindTransient, ee.SubKind)
}

func TestReleaseClearsCache(t *testing.T) {
	store := &fakeStore{values: map[string][]byte{"ref-a": []byte("s3cret")}}
	cache := NewCache(store)
	_, _ = cache.Resolve(context.Background(), "ref-a")
	cache.Release()
	_, _ = cache.Resolve(context.Background(), "ref-a")
	assert.Equal(t, 2, store.fetches)
}
