package store

import (
	"context"
	"path/filepath"
	"testing"
)

const bucketADocs = `---
schema: example/Kind/v1
metadata:
  schema: metadata/Document/v1
  name: doc-a
data:
  value: a
`

const bucketBDocs = `---
schema: example/Kind/v1
metadata:
  schema: metadata/Document/v1
  name: doc-b
data:
  value: b
`

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutBucketCreatesFirstRevision(t *testing.T) {
	s := openTestStore(t)

	revID, err := s.PutBucket(context.Background(), "global", []byte(bucketADocs))
	if err != nil {
		t.Fatalf("PutBucket() failed: %v", err)
	}
	if revID != 1 {
		t.Errorf("revID = %d, want 1", revID)
	}
}

func TestPutBucketIncrementsRevision(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rev1, err := s.PutBucket(ctx, "global", []byte(bucketADocs))
	if err != nil {
		t.Fatalf("first PutBucket() failed: %v", err)
	}

	rev2, err := s.PutBucket(ctx, "site", []byte(bucketBDocs))
	if err != nil {
		t.Fatalf("second PutBucket() failed: %v", err)
	}

	if rev2 <= rev1 {
		t.Errorf("rev2 = %d, want > rev1 = %d", rev2, rev1)
	}
}

func TestPutBucketCarriesForwardOtherBuckets(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.PutBucket(ctx, "global", []byte(bucketADocs)); err != nil {
		t.Fatalf("PutBucket(global) failed: %v", err)
	}
	rev2, err := s.PutBucket(ctx, "site", []byte(bucketBDocs))
	if err != nil {
		t.Fatalf("PutBucket(site) failed: %v", err)
	}

	docs, _, err := s.RevisionDocuments(ctx, rev2)
	if err != nil {
		t.Fatalf("RevisionDocuments() failed: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("len(docs) = %d, want 2 (bucket carry-forward)", len(docs))
	}
}

func TestPutBucketReplacesOwnBucketOnly(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.PutBucket(ctx, "global", []byte(bucketADocs)); err != nil {
		t.Fatalf("PutBucket(global) failed: %v", err)
	}
	if _, err := s.PutBucket(ctx, "site", []byte(bucketBDocs)); err != nil {
		t.Fatalf("PutBucket(site) failed: %v", err)
	}

	// Re-put global with no documents: site's documents must survive,
	// global's must be gone.
	rev3, err := s.PutBucket(ctx, "global", []byte(""))
	if err != nil {
		t.Fatalf("PutBucket(global, empty) failed: %v", err)
	}

	docs, _, err := s.RevisionDocuments(ctx, rev3)
	if err != nil {
		t.Fatalf("RevisionDocuments() failed: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("len(docs) = %d, want 1", len(docs))
	}
	if docs[0].Metadata.Name != "doc-b" {
		t.Errorf("remaining doc = %q, want doc-b", docs[0].Metadata.Name)
	}
}

func TestPutBucketRejectsMalformedDocument(t *testing.T) {
	s := openTestStore(t)

	_, err := s.PutBucket(context.Background(), "global", []byte("schema: example/Kind/v1\n"))
	if err == nil {
		t.Error("PutBucket() should fail on a document missing metadata.name")
	}
}
