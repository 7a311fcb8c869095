package store

import (
	"context"
	"fmt"
	"time"
)

// RevisionSummary is one revision's timeline entry: when it was
// created and which buckets it carries, derived by scanning the
// revision's stored document rows rather than kept as separate state.
type RevisionSummary struct {
	ID        int64
	CreatedAt time.Time
	Buckets   []string
}

// ListRevisions returns every revision in creation order, each with the
// distinct bucket names present in it. Used by the CLI to enumerate
// diffable revision pairs without probing IDs one at a time.
func (s *Store) ListRevisions(ctx context.Context) ([]RevisionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, created_at FROM revisions ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	defer rows.Close()

	var summaries []RevisionSummary
	for rows.Next() {
		var id int64
		var createdAt string
		if err := rows.Scan(&id, &createdAt); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		parsed, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse revision %d created_at: %w", id, err)
		}
		summaries = append(summaries, RevisionSummary{ID: id, CreatedAt: parsed})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revisions: %w", err)
	}

	for i := range summaries {
		buckets, err := s.revisionBuckets(ctx, summaries[i].ID)
		if err != nil {
			return nil, err
		}
		summaries[i].Buckets = buckets
	}
	return summaries, nil
}

// revisionBuckets returns the distinct bucket names present in
// revisionID, ordered alphabetically.
func (s *Store) revisionBuckets(ctx context.Context, revisionID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT bucket_name FROM documents WHERE revision_id = ? ORDER BY bucket_name ASC
	`, revisionID)
	if err != nil {
		return nil, fmt.Errorf("list buckets for revision %d: %w", revisionID, err)
	}
	defer rows.Close()

	var buckets []string
	for rows.Next() {
		var bucket string
		if err := rows.Scan(&bucket); err != nil {
			return nil, fmt.Errorf("scan bucket: %w", err)
		}
		buckets = append(buckets, bucket)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate buckets: %w", err)
	}
	return buckets, nil
}
