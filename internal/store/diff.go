package store

import "context"

// BucketState is one bucket's classification in a revision diff.
type BucketState string

const (
	BucketCreated    BucketState = "created"
	BucketDeleted    BucketState = "deleted"
	BucketModified   BucketState = "modified"
	BucketUnmodified BucketState = "unmodified"
)

// Diff compares the bucket membership and content of two revisions,
// producing a created|deleted|modified|unmodified classification per
// bucket name (§8 S5). Revision 0, the distinguished empty revision, is
// treated as holding no buckets; the ordering of the two revision IDs
// doesn't matter except to decide which side "created" vs "deleted"
// means for a bucket unique to one side.
//
// Grounded on the original implementation's revision_diff: a bucket
// present in both revisions is compared by its aggregate document
// content hash rather than by field-by-field document comparison, and
// a bucket unique to one revision is "created" if the side holding it
// is the newer revision, "deleted" otherwise. (The original's extra
// endpoint-revision membership filter, gated behind a Python `.union()`
// call that never assigns its result and so is a no-op, does not
// change any of its documented examples; it is not reproduced here.)
func (s *Store) Diff(ctx context.Context, revisionID, comparisonRevisionID int64) (map[string]BucketState, error) {
	hashes, err := s.bucketHashes(ctx, revisionID)
	if err != nil {
		return nil, err
	}
	comparisonHashes, err := s.bucketHashes(ctx, comparisonRevisionID)
	if err != nil {
		return nil, err
	}

	newerIsRevision := revisionID >= comparisonRevisionID

	result := make(map[string]BucketState)
	seen := map[string]bool{}
	for bucket := range hashes {
		seen[bucket] = true
	}
	for bucket := range comparisonHashes {
		seen[bucket] = true
	}

	for bucket := range seen {
		hash, inRevision := hashes[bucket]
		comparisonHash, inComparison := comparisonHashes[bucket]

		switch {
		case inRevision && inComparison:
			if hash == comparisonHash {
				result[bucket] = BucketUnmodified
			} else {
				result[bucket] = BucketModified
			}
		case inRevision && !inComparison:
			if newerIsRevision {
				result[bucket] = BucketCreated
			} else {
				result[bucket] = BucketDeleted
			}
		case !inRevision && inComparison:
			if newerIsRevision {
				result[bucket] = BucketDeleted
			} else {
				result[bucket] = BucketCreated
			}
		}
	}
	return result, nil
}
