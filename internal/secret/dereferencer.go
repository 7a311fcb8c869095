// Package secret implements the Secret Dereferencer (§4.8): the adapter
// around the external secret store for documents whose
// metadata.storagePolicy is encrypted.
package secret

import (
	"context"
	"encoding/hex"
	"errors"

	"github.com/zeebo/blake3"

	"github.com/deckhand/deckhand/internal/document"
	"github.com/deckhand/deckhand/internal/rendererr"
	"github.com/deckhand/deckhand/internal/value"
)

// domainKey separates the dereferencer's cache keys from any other
// BLAKE3 use in the process, the way a keyed hash is used to
// distinguish hash domains without needing a distinct algorithm per
// domain.
var domainKey = [32]byte{'d', 'e', 'c', 'k', 'h', 'a', 'n', 'd', '.', 's', 'e', 'c', 'r', 'e', 't', '.', 'r', 'e', 'f', 'e', 'r', 'e', 'n', 'c', 'e'}

// Store is the external secret store collaborator: fetchSecret(reference)
// → bytes | NotFound | Transient (§6).
type Store interface {
	FetchSecret(ctx context.Context, reference string) ([]byte, error)
}

// NotFoundError and TransientError are the two failure classifications
// a Store may report. The dereferencer does not retry; it surfaces the
// kind to the caller (§4.8, §7).
type NotFoundError struct{ Reference string }

func (e *NotFoundError) Error() string { return "secret not found: " + e.Reference }

type TransientError struct {
	Reference string
	Cause     error
}

func (e *TransientError) Error() string { return "secret store unavailable: " + e.Cause.Error() }
func (e *TransientError) Unwrap() error { return e.Cause }

// Cache is the per-render secret dereference cache (§4.8, §5): exactly
// one fetch per unique reference token per render, keyed by a BLAKE3
// digest of the token so the map key is fixed-size and comparisons
// never touch the (potentially sensitive) token bytes directly. Safe
// for concurrent reads once an entry is populated; writes are
// serialized by the single-threaded orchestrator, so no lock is taken
// here (§5 Concurrency & Resource Model).
type Cache struct {
	store   Store
	entries map[[32]byte]value.Value
}

// NewCache creates a secret cache bound to store, scoped to one render
// call. Release should be called when the render completes, per §4.8's
// "clears the cache on completion."
func NewCache(store Store) *Cache {
	return &Cache{store: store, entries: make(map[[32]byte]value.Value)}
}

// Release drops every cached entry. Called once at orchestrator exit.
func (c *Cache) Release() {
	c.entries = make(map[[32]byte]value.Value)
}

// Resolve dereferences reference, fetching from the store on first use
// and serving the cached cleartext value on subsequent calls within the
// same render. The returned error, if any, is always *NotFoundError or
// *TransientError so the caller can classify it into a BarbicanException
// SubKind without inspecting the message.
func (c *Cache) Resolve(ctx context.Context, reference string) (value.Value, error) {
	key := cacheKey(reference)
	if v, ok := c.entries[key]; ok {
		return v, nil
	}

	raw, err := c.store.FetchSecret(ctx, reference)
	if err != nil {
		return nil, err
	}

	v := value.String(string(raw))
	c.entries[key] = v
	return v, nil
}

// ClassifyError maps a Resolve error to the BarbicanException it should
// produce. Any error that is not *NotFoundError or *TransientError is
// treated as NotFound: the store contract promises only those two
// failure shapes, so anything else is itself a fatal-document condition
// worth surfacing rather than silently retrying. reference is folded into
// the message as its formatKey fingerprint rather than the raw token, so
// a report can be correlated back to a specific Resolve call without
// leaking the reference itself.
func ClassifyError(id document.ID, reference string, err error) *rendererr.EngineError {
	fingerprint := formatKey(cacheKey(reference))
	var transient *TransientError
	if errors.As(err, &transient) {
		return rendererr.NewBarbicanException(id, rendererr.SubKindTransient, fingerprint+": "+transient.Error())
	}
	return rendererr.NewBarbicanException(id, rendererr.SubKindNotFound, fingerprint+": "+err.Error())
}

func cacheKey(reference string) [32]byte {
	hasher, err := blake3.NewKeyed(domainKey[:])
	if err != nil {
		panic("secret: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write([]byte(reference))
	var key [32]byte
	copy(key[:], hasher.Sum(nil))
	return key
}

// formatKey renders a cache key for logging without leaking the
// reference token itself.
func formatKey(key [32]byte) string {
	return hex.EncodeToString(key[:8])
}
