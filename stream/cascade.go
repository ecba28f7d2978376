package stream

import (
	"context"
	"fmt"
	"strings"

	"github.com/natterhq/natter/social"
	"github.com/natterhq/natter/store"
)

// CollectionCleanup records the outcome of one collection's delete batch
// during a cascade.
type CollectionCleanup struct {
	Table   string
	Matched int
	Err     error
}

// CleanupError reports a cascade that failed on at least one collection.
// Because the three batches are not mutually atomic, some collections may
// already be clean; Partial distinguishes that from total failure so the
// operator knows orphaned dependents are bounded to the failed
// collections until redelivery retries the scan.
type CleanupError struct {
	PostID  string
	Results []CollectionCleanup
}

func (e *CleanupError) Error() string {
	var failed []string
	for _, res := range e.Results {
		if res.Err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", res.Table, res.Err))
		}
	}
	return fmt.Sprintf("cascade for post %s failed on %s", e.PostID, strings.Join(failed, "; "))
}

// Partial reports whether at least one collection's batch succeeded.
func (e *CleanupError) Partial() bool {
	for _, res := range e.Results {
		if res.Err == nil {
			return true
		}
	}
	return false
}

// CascadePostDelete reacts to a post deletion by removing every comment,
// like, and notification referencing it: one scan plus one atomic delete
// batch per collection, sequentially. An empty scan is the common case.
// Re-running after redelivery is harmless — the scans simply match fewer
// (or zero) documents.
func (r *Reactors) CascadePostDelete(ctx context.Context, rec Record) error {
	postID := stringAttr(rec.Keys, social.AttrID)

	results := []CollectionCleanup{
		r.cleanupCollection(ctx, r.cfg.Comments, postID),
		r.cleanupCollection(ctx, r.cfg.Likes, postID),
		r.cleanupCollection(ctx, r.cfg.Notifications, postID),
	}

	failed := false
	for _, res := range results {
		if res.Err != nil {
			failed = true
		}
	}
	if failed {
		err := &CleanupError{PostID: postID, Results: results}
		r.log.Error("cascade cleanup failed",
			"postID", postID,
			"partial", err.Partial(),
			"error", err,
		)
		return err
	}

	r.log.Info("cascade cleanup completed",
		"postID", postID,
		"comments", results[0].Matched,
		"likes", results[1].Matched,
		"notifications", results[2].Matched,
	)
	return nil
}

// cleanupCollection scans one collection for dependents of the post and
// deletes them in a single atomic batch.
func (r *Reactors) cleanupCollection(ctx context.Context, table, postID string) CollectionCleanup {
	docs, err := r.store.QueryIndex(ctx, table, store.PostIndex, social.AttrPostID, postID)
	if err != nil {
		return CollectionCleanup{Table: table, Err: fmt.Errorf("scan: %w", err)}
	}
	if len(docs) == 0 {
		return CollectionCleanup{Table: table}
	}

	keys := make([]store.Key, 0, len(docs))
	for _, doc := range docs {
		id := documentString(doc, social.AttrID)
		keys = append(keys, store.StringKey(social.AttrID, id))
	}

	if err := r.store.TransactDelete(ctx, table, keys); err != nil {
		return CollectionCleanup{Table: table, Matched: len(docs), Err: err}
	}
	return CollectionCleanup{Table: table, Matched: len(docs)}
}
