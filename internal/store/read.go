package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/deckhand/deckhand/internal/document"
)

// LatestRevisionID returns the ID of the most recently created
// revision, or 0 if the store holds no revisions yet.
func (s *Store) LatestRevisionID(ctx context.Context) (int64, error) {
	var id sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(id) FROM revisions`).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("latest revision id: %w", err)
	}
	if !id.Valid {
		return 0, nil
	}
	return id.Int64, nil
}

func latestRevisionIDTx(ctx context.Context, tx queryer) (int64, error) {
	var id sql.NullInt64
	err := tx.QueryRowContext(ctx, `SELECT MAX(id) FROM revisions`).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("latest revision id: %w", err)
	}
	if !id.Valid {
		return 0, nil
	}
	return id.Int64, nil
}

// queryer is the subset of *sql.Tx/*sql.DB this package's tx-scoped
// helpers need.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// RevisionDocuments returns every document and the control-document set
// for revisionID, re-parsed from its stored chunks via
// internal/document.ParseStream. Revision 0, the distinguished empty
// revision, always returns an empty snapshot without a query (§3 Data
// Model).
func (s *Store) RevisionDocuments(ctx context.Context, revisionID int64) ([]*document.Document, document.ControlSet, error) {
	if revisionID == 0 {
		return nil, document.ControlSet{}, nil
	}

	chunks, err := s.revisionChunks(ctx, revisionID)
	if err != nil {
		return nil, document.ControlSet{}, fmt.Errorf("revision documents %d: %w", revisionID, err)
	}
	if len(chunks) == 0 {
		return nil, document.ControlSet{}, fmt.Errorf("revision documents %d: revision not found", revisionID)
	}

	docs, controls, err := document.ParseStream(joinChunks(chunks))
	if err != nil {
		return nil, document.ControlSet{}, fmt.Errorf("revision documents %d: %w", revisionID, err)
	}
	return docs, controls, nil
}

// revisionChunks returns revisionID's stored document chunks ordered
// deterministically by (bucket_name, doc_schema, doc_name).
func (s *Store) revisionChunks(ctx context.Context, revisionID int64) ([]chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT bucket_name, doc_schema, doc_name, content, content_hash
		FROM documents
		WHERE revision_id = ?
		ORDER BY bucket_name ASC, doc_schema ASC, doc_name ASC
	`, revisionID)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var chunks []chunk
	for rows.Next() {
		var bucket, raw string
		var c chunk
		if err := rows.Scan(&bucket, &c.Schema, &c.Name, &raw, &c.Hash); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		c.Raw = []byte(raw)
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return chunks, nil
}

// bucketHashes returns, for revisionID, a map from bucket name to a
// deterministic aggregate content hash of that bucket's documents
// (sorted-hash concatenation, same "compare as a set" shape the
// revision-diffing algorithm this store's Diff is grounded on uses to
// answer "is this bucket identical across two revisions").
func (s *Store) bucketHashes(ctx context.Context, revisionID int64) (map[string]string, error) {
	if revisionID == 0 {
		return map[string]string{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT bucket_name, content_hash
		FROM documents
		WHERE revision_id = ?
		ORDER BY bucket_name ASC, doc_schema ASC, doc_name ASC
	`, revisionID)
	if err != nil {
		return nil, fmt.Errorf("query bucket hashes: %w", err)
	}
	defer rows.Close()

	perBucket := map[string][]string{}
	for rows.Next() {
		var bucket, hash string
		if err := rows.Scan(&bucket, &hash); err != nil {
			return nil, fmt.Errorf("scan bucket hash: %w", err)
		}
		perBucket[bucket] = append(perBucket[bucket], hash)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bucket hashes: %w", err)
	}

	out := make(map[string]string, len(perBucket))
	for bucket, hashes := range perBucket {
		out[bucket] = contentHash([]byte(joinHashes(hashes)))
	}
	return out, nil
}

// joinHashes concatenates a bucket's already-(schema,name)-ordered
// per-document hashes into the preimage for its aggregate hash.
func joinHashes(hashes []string) string {
	out := ""
	for _, h := range hashes {
		out += h + "\n"
	}
	return out
}
