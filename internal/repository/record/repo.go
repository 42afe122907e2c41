// Package record persists text records (resumes, job vacancies) with their
// embeddings in the document store.
package record

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/kailas-cloud/resumatch/internal/db"
	"github.com/kailas-cloud/resumatch/internal/domain"
)

// store is the consumer interface for records (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo stores one hash per record. Resume records are keyed by owner, so a
// resubmission for the same owner overwrites the prior record (latest resume
// wins); job records are keyed by vacancy id.
type Repo struct {
	store     store
	keyPrefix string
	vectorDim int
}

// New creates a record repository. vectorDim is the canonical embedding
// dimension enforced at store time (0 disables the check).
func New(s store, keyPrefix string, vectorDim int) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix, vectorDim: vectorDim}
}

// Put persists a record atomically (text + embedding + metadata in one HSET).
// An empty ID is assigned: resumes take their owner id, jobs get a UUID.
// Returns the record id.
func (r *Repo) Put(ctx context.Context, rec *domain.TextRecord) (string, error) {
	if rec.ID == "" {
		if rec.Kind == domain.KindResume && rec.OwnerID != "" {
			rec.ID = rec.OwnerID
		} else {
			rec.ID = uuid.NewString()
		}
	}

	if err := rec.Validate(r.vectorDim); err != nil {
		return "", err
	}

	fields, err := recordToHash(rec)
	if err != nil {
		return "", err
	}

	key := r.key(rec.Kind, rec.ID)
	if err := r.store.HSet(ctx, key, fields); err != nil {
		return "", fmt.Errorf("hset %s: %w: %w", key, domain.ErrStoreUnavailable, err)
	}
	return rec.ID, nil
}

// Get returns a record by kind and id.
func (r *Repo) Get(ctx context.Context, kind domain.Kind, id string) (domain.TextRecord, error) {
	key := r.key(kind, id)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domain.TextRecord{}, fmt.Errorf("hgetall %s: %w: %w", key, domain.ErrStoreUnavailable, err)
	}
	if len(m) == 0 {
		return domain.TextRecord{}, fmt.Errorf("record %s/%s: %w", kind, id, domain.ErrNotFound)
	}
	rec, err := recordFromHash(m)
	if err != nil {
		return domain.TextRecord{}, fmt.Errorf("decode record %s: %w", key, err)
	}
	return rec, nil
}

// GetByOwner returns the resume stored for an owner. Resume keys are the
// owner id, so this is a plain lookup.
func (r *Repo) GetByOwner(ctx context.Context, ownerID string) (domain.TextRecord, error) {
	return r.Get(ctx, domain.KindResume, ownerID)
}

// List returns records of a kind in id order, cursor-paginated. cursor is the
// last id of the previous page ("" starts from the beginning); nextCursor is
// empty when the listing is exhausted. The corpus is bounded, so callers
// typically drain the cursor in one loop.
func (r *Repo) List(ctx context.Context, kind domain.Kind, cursor string, limit int) (
	[]domain.TextRecord, string, error,
) {
	pattern := r.key(kind, "*")
	keys, err := r.store.Scan(ctx, pattern)
	if err != nil {
		return nil, "", fmt.Errorf("scan %s: %w: %w", pattern, domain.ErrStoreUnavailable, err)
	}
	sort.Strings(keys)

	if cursor != "" {
		after := r.key(kind, cursor)
		idx := sort.SearchStrings(keys, after)
		if idx < len(keys) && keys[idx] == after {
			idx++
		}
		keys = keys[idx:]
	}

	hasMore := false
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
		hasMore = true
	}
	if len(keys) == 0 {
		return nil, "", nil
	}

	maps, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, "", fmt.Errorf("hgetall multi: %w: %w", domain.ErrStoreUnavailable, err)
	}

	records := make([]domain.TextRecord, 0, len(maps))
	for i, m := range maps {
		if len(m) == 0 {
			// Deleted between SCAN and HGETALL.
			continue
		}
		rec, err := recordFromHash(m)
		if err != nil {
			return nil, "", fmt.Errorf("decode record %s: %w", keys[i], err)
		}
		records = append(records, rec)
	}

	var nextCursor string
	if hasMore {
		nextCursor = strings.TrimPrefix(keys[len(keys)-1], r.key(kind, ""))
	}
	return records, nextCursor, nil
}

// DeleteSession removes all job records tagged with the given import session.
// Returns the number of deleted records.
func (r *Repo) DeleteSession(ctx context.Context, sessionID string) (int, error) {
	pattern := r.key(domain.KindJob, "*")
	keys, err := r.store.Scan(ctx, pattern)
	if err != nil {
		return 0, fmt.Errorf("scan %s: %w: %w", pattern, domain.ErrStoreUnavailable, err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	maps, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return 0, fmt.Errorf("hgetall multi: %w: %w", domain.ErrStoreUnavailable, err)
	}

	deleted := 0
	for i, m := range maps {
		if len(m) == 0 {
			continue
		}
		rec, err := recordFromHash(m)
		if err != nil || rec.Session() != sessionID {
			continue
		}
		if err := r.store.Del(ctx, keys[i]); err != nil {
			return deleted, fmt.Errorf("del %s: %w: %w", keys[i], domain.ErrStoreUnavailable, err)
		}
		deleted++
	}
	return deleted, nil
}

func (r *Repo) key(kind domain.Kind, id string) string {
	return r.keyPrefix + string(kind) + ":" + id
}

// interface check against the db facade
var _ store = (db.Store)(nil)
