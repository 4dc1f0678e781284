// Package exposure stores (user, question) -> lastSeenAt records as one hash per user.
package exposure

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// store is the consumer interface for exposure records (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Repo implements usecase/exposure.Store.
type Repo struct {
	store     store
	keyPrefix string
	retention time.Duration
}

// New creates an exposure repository. A positive retention refreshes
// the per-user key expiry on every write.
func New(s store, keyPrefix string, retention time.Duration) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix, retention: retention}
}

func (r *Repo) key(userID string) string {
	return r.keyPrefix + "exposure:" + userID
}

// Seen returns every question the user has been shown with its last-seen time.
func (r *Repo) Seen(ctx context.Context, userID string) (map[string]time.Time, error) {
	fields, err := r.store.HGetAll(ctx, r.key(userID))
	if err != nil {
		return nil, fmt.Errorf("load exposures for %s: %w", userID, err)
	}
	out := make(map[string]time.Time, len(fields))
	for qid, raw := range fields {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			// unparseable timestamp still counts as seen
			out[qid] = time.Time{}
			continue
		}
		out[qid] = time.UnixMilli(ms).UTC()
	}
	return out, nil
}

// Record overwrites lastSeenAt for each question.
func (r *Repo) Record(ctx context.Context, userID string, questionIDs []string, at time.Time) error {
	if len(questionIDs) == 0 {
		return nil
	}
	ts := strconv.FormatInt(at.UnixMilli(), 10)
	fields := make(map[string]string, len(questionIDs))
	for _, id := range questionIDs {
		fields[id] = ts
	}

	key := r.key(userID)
	if err := r.store.HSet(ctx, key, fields); err != nil {
		return fmt.Errorf("record exposures for %s: %w", userID, err)
	}
	if r.retention > 0 {
		if err := r.store.Expire(ctx, key, r.retention, false); err != nil {
			return fmt.Errorf("set exposure retention for %s: %w", userID, err)
		}
	}
	return nil
}
