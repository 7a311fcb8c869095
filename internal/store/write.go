package store

import (
	"context"
	"fmt"
	"time"
)

// PutBucket ingests raw as the complete post-state of bucket, and
// atomically creates a new revision containing that post-state merged
// with the unchanged state of every other bucket (§3 Lifecycle): the
// new revision's rows are the just-ingested bucket's documents plus a
// carry-forward copy of every other bucket's rows from the current
// latest revision. Returns the new revision's ID.
func (s *Store) PutBucket(ctx context.Context, bucket string, raw []byte) (int64, error) {
	chunks, err := splitChunks(raw)
	if err != nil {
		return 0, fmt.Errorf("put bucket %s: %w", bucket, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("put bucket %s: begin tx: %w", bucket, err)
	}
	defer tx.Rollback()

	prevID, err := latestRevisionIDTx(ctx, tx)
	if err != nil {
		return 0, fmt.Errorf("put bucket %s: %w", bucket, err)
	}

	result, err := tx.ExecContext(ctx, `INSERT INTO revisions (created_at) VALUES (?)`, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("put bucket %s: create revision: %w", bucket, err)
	}
	newID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("put bucket %s: new revision id: %w", bucket, err)
	}

	if prevID != 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO documents (revision_id, bucket_name, doc_schema, doc_name, content, content_hash)
			SELECT ?, bucket_name, doc_schema, doc_name, content, content_hash
			FROM documents
			WHERE revision_id = ? AND bucket_name != ?
		`, newID, prevID, bucket)
		if err != nil {
			return 0, fmt.Errorf("put bucket %s: carry forward: %w", bucket, err)
		}
	}

	for _, c := range chunks {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO documents (revision_id, bucket_name, doc_schema, doc_name, content, content_hash)
			VALUES (?, ?, ?, ?, ?, ?)
		`, newID, bucket, c.Schema, c.Name, string(c.Raw), c.Hash)
		if err != nil {
			return 0, fmt.Errorf("put bucket %s: insert %s/%s: %w", bucket, c.Schema, c.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("put bucket %s: commit: %w", bucket, err)
	}
	return newID, nil
}
