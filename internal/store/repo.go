package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when no record exists for a key.
	ErrNotFound = errors.New("store: record not found")

	// ErrVersionConflict is returned when a guarded merge observes a
	// version other than the one it expected.
	ErrVersionConflict = errors.New("store: version conflict")

	// ErrInvalidKey is returned for a key with a missing or malformed part.
	ErrInvalidKey = errors.New("store: invalid key")
)

// Key addresses one progress record.
type Key struct {
	UserID    string `json:"userId"`
	SubjectID string `json:"subjectId"`
	TopicID   string `json:"topicId"`
}

// Validate checks that every part is present and free of separators.
func (k Key) Validate() error {
	for name, v := range map[string]string{"userId": k.UserID, "subjectId": k.SubjectID, "topicId": k.TopicID} {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%w: %s is empty", ErrInvalidKey, name)
		}
		if strings.ContainsAny(v, ":/") {
			return fmt.Errorf("%w: %s contains a separator", ErrInvalidKey, name)
		}
	}
	return nil
}

func (k Key) String() string {
	return k.UserID + "/" + k.SubjectID + "/" + k.TopicID
}

// Record is a stored document with its concurrency metadata.
type Record struct {
	Key       Key
	Document  map[string]any
	Version   int64
	UpdatedAt time.Time
}

// MergeOptions guards a merge.
type MergeOptions struct {
	// ExpectVersion, when set, fails the merge with ErrVersionConflict
	// unless the stored version equals it. Zero means the record must not
	// exist yet.
	ExpectVersion *int64
}

// ExpectVersion returns options guarding a merge on version v.
func ExpectVersion(v int64) MergeOptions {
	return MergeOptions{ExpectVersion: &v}
}

// Repo is a keyed document store with partial deep-merge writes.
//
// Merge deep-merges patch into the stored document (creating it when
// absent), stamps the document's updatedAt field with the store's
// monotonic server time, bumps the version and returns the new record.
type Repo interface {
	Get(ctx context.Context, key Key) (*Record, error)
	Merge(ctx context.Context, key Key, patch map[string]any, opts MergeOptions) (*Record, error)
	Close() error
}

// UpdatedAtField is the document field holding the server timestamp.
const UpdatedAtField = "updatedAt"

// checkVersion applies opts to the observed version; exists reports
// whether a record was found.
func checkVersion(opts MergeOptions, exists bool, version int64) error {
	if opts.ExpectVersion == nil {
		return nil
	}
	want := *opts.ExpectVersion
	if !exists {
		version = 0
	}
	if want != version {
		return fmt.Errorf("%w: expected version %d, found %d", ErrVersionConflict, want, version)
	}
	return nil
}

// serverTime returns now, nudged forward so it is strictly after prev.
func serverTime(now, prev time.Time) time.Time {
	now = now.UTC().Truncate(time.Microsecond)
	if !prev.IsZero() && !now.After(prev) {
		return prev.UTC().Add(time.Microsecond)
	}
	return now
}
