package cli

import (
	"context"

	"github.com/deckhand/deckhand/internal/document"
	"github.com/deckhand/deckhand/internal/store"
)

// openStore opens the SQLite revision store at path, wrapping any
// failure as a command-level ExitError.
func openStore(path string) (*store.Store, error) {
	s, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open revision store", err)
	}
	return s, nil
}

// resolveRevision returns revisionID if non-zero, otherwise the
// store's latest revision.
func resolveRevision(ctx context.Context, s *store.Store, revisionID int64) (int64, error) {
	if revisionID != 0 {
		return revisionID, nil
	}
	latest, err := s.LatestRevisionID(ctx)
	if err != nil {
		return 0, WrapExitError(ExitCommandError, "resolve latest revision", err)
	}
	if latest == 0 {
		return 0, NewExitError(ExitCommandError, "revision store is empty")
	}
	return latest, nil
}

// loadRevision reads a revision's documents and control set, resolving
// revisionID to the latest revision when it is zero.
func loadRevision(ctx context.Context, s *store.Store, revisionID int64) (int64, []*document.Document, document.ControlSet, error) {
	resolved, err := resolveRevision(ctx, s, revisionID)
	if err != nil {
		return 0, nil, document.ControlSet{}, err
	}
	docs, controls, err := s.RevisionDocuments(ctx, resolved)
	if err != nil {
		return 0, nil, document.ControlSet{}, WrapExitError(ExitCommandError, "load revision documents", err)
	}
	return resolved, docs, controls, nil
}
