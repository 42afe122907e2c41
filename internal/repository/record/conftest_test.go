package record

import (
	"context"
	"testing"
	"time"

	"github.com/kailas-cloud/resumatch/internal/domain"
)

const (
	testVectorDim = 4
	testPrefix    = "resumatch:"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetFn         func(ctx context.Context, key string, fields map[string]string) error
	hgetAllFn      func(ctx context.Context, key string) (map[string]string, error)
	hgetAllMultiFn func(ctx context.Context, keys []string) ([]map[string]string, error)
	delFn          func(ctx context.Context, key string) error
	scanFn         func(ctx context.Context, pattern string) ([]string, error)
}

func (m *mockStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if m.hsetFn != nil {
		return m.hsetFn(ctx, key, fields)
	}
	return nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if m.hgetAllMultiFn != nil {
		return m.hgetAllMultiFn(ctx, keys)
	}
	return nil, nil
}

func (m *mockStore) Del(ctx context.Context, key string) error {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return nil
}

func (m *mockStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern)
	}
	return nil, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	repo := New(ms, testPrefix, testVectorDim)
	return repo, ms
}

func testResume(t *testing.T, owner string) domain.TextRecord {
	t.Helper()
	return domain.TextRecord{
		Kind:      domain.KindResume,
		OwnerID:   owner,
		Text:      "golang developer, 5 years",
		Embedding: []float32{0.1, 0.2, 0.3, 0.4},
		CreatedAt: time.UnixMilli(1700000000000),
	}
}

func testJob(t *testing.T, id, session string) domain.TextRecord {
	t.Helper()
	rec := domain.TextRecord{
		ID:        id,
		Kind:      domain.KindJob,
		Text:      "looking for a backend engineer",
		Embedding: []float32{0.4, 0.3, 0.2, 0.1},
		CreatedAt: time.UnixMilli(1700000000000),
	}
	if session != "" {
		rec.Source = map[string]string{"session": session}
	}
	return rec
}

// hashFor builds the stored hash form of a record for HGetAll mocks.
func hashFor(t *testing.T, rec domain.TextRecord) map[string]string {
	t.Helper()
	m, err := recordToHash(&rec)
	if err != nil {
		t.Fatalf("recordToHash: %v", err)
	}
	return m
}
