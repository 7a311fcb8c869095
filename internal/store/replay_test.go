package store

import (
	"context"
	"testing"
)

func TestListRevisionsEmptyStore(t *testing.T) {
	s := openTestStore(t)

	revs, err := s.ListRevisions(context.Background())
	if err != nil {
		t.Fatalf("ListRevisions() failed: %v", err)
	}
	if len(revs) != 0 {
		t.Errorf("len(revs) = %d, want 0", len(revs))
	}
}

func TestListRevisionsOrderedByID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.PutBucket(ctx, "global", []byte(bucketADocs)); err != nil {
		t.Fatalf("PutBucket(global) failed: %v", err)
	}
	if _, err := s.PutBucket(ctx, "site", []byte(bucketBDocs)); err != nil {
		t.Fatalf("PutBucket(site) failed: %v", err)
	}

	revs, err := s.ListRevisions(ctx)
	if err != nil {
		t.Fatalf("ListRevisions() failed: %v", err)
	}
	if len(revs) != 2 {
		t.Fatalf("len(revs) = %d, want 2", len(revs))
	}
	if revs[0].ID >= revs[1].ID {
		t.Errorf("revs not ordered ascending by ID: %d, %d", revs[0].ID, revs[1].ID)
	}
}

func TestListRevisionsIncludesBuckets(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.PutBucket(ctx, "global", []byte(bucketADocs)); err != nil {
		t.Fatalf("PutBucket(global) failed: %v", err)
	}
	rev2, err := s.PutBucket(ctx, "site", []byte(bucketBDocs))
	if err != nil {
		t.Fatalf("PutBucket(site) failed: %v", err)
	}

	revs, err := s.ListRevisions(ctx)
	if err != nil {
		t.Fatalf("ListRevisions() failed: %v", err)
	}

	var got *RevisionSummary
	for i := range revs {
		if revs[i].ID == rev2 {
			got = &revs[i]
		}
	}
	if got == nil {
		t.Fatalf("ListRevisions() missing revision %d", rev2)
	}
	if len(got.Buckets) != 2 {
		t.Fatalf("len(Buckets) = %d, want 2 (carry-forward + new bucket)", len(got.Buckets))
	}
	if got.Buckets[0] != "global" || got.Buckets[1] != "site" {
		t.Errorf("Buckets = %v, want [global site] (alphabetical)", got.Buckets)
	}
}

func TestRevisionBucketsDistinct(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	revID, err := s.PutBucket(ctx, "global", []byte(bucketADocs))
	if err != nil {
		t.Fatalf("PutBucket() failed: %v", err)
	}

	buckets, err := s.revisionBuckets(ctx, revID)
	if err != nil {
		t.Fatalf("revisionBuckets() failed: %v", err)
	}
	if len(buckets) != 1 || buckets[0] != "global" {
		t.Errorf("buckets = %v, want [global]", buckets)
	}
}

func TestRevisionBucketsEmptyForUnknownRevision(t *testing.T) {
	s := openTestStore(t)

	buckets, err := s.revisionBuckets(context.Background(), 99)
	if err != nil {
		t.Fatalf("revisionBuckets() failed: %v", err)
	}
	if len(buckets) != 0 {
		t.Errorf("len(buckets) = %d, want 0", len(buckets))
	}
}
