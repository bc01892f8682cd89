package account

import (
	"context"
	"testing"

	"github.com/kailas-cloud/labeldesk/internal/db"
	"github.com/kailas-cloud/labeldesk/internal/domain"
	"github.com/kailas-cloud/labeldesk/internal/domain/annotation"
	"github.com/kailas-cloud/labeldesk/internal/domain/label"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetMultiFn    func(ctx context.Context, items []db.HashSetItem) error
	hgetAllFn      func(ctx context.Context, key string) (map[string]string, error)
	hgetAllMultiFn func(ctx context.Context, keys []string) ([]map[string]string, error)
	hgetMultiFn    func(ctx context.Context, keys []string, field string) ([]string, error)
	existsMultiFn  func(ctx context.Context, keys []string) ([]bool, error)
	scanFn         func(ctx context.Context, pattern string) ([]string, error)
}

func (m *mockStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if m.hsetMultiFn != nil {
		return m.hsetMultiFn(ctx, items)
	}
	return nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if m.hgetAllMultiFn != nil {
		return m.hgetAllMultiFn(ctx, keys)
	}
	return make([]map[string]string, len(keys)), nil
}

func (m *mockStore) HGetMulti(ctx context.Context, keys []string, field string) ([]string, error) {
	if m.hgetMultiFn != nil {
		return m.hgetMultiFn(ctx, keys, field)
	}
	return make([]string, len(keys)), nil
}

func (m *mockStore) ExistsMulti(ctx context.Context, keys []string) ([]bool, error) {
	if m.existsMultiFn != nil {
		return m.existsMultiFn(ctx, keys)
	}
	out := make([]bool, len(keys))
	for i := range out {
		out[i] = true
	}
	return out, nil
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
	return New(ms, ""), ms
}

func testAnnotation(t *testing.T, id domain.AccountID, cid domain.ClusterID, l label.Label) annotation.Annotation {
	t.Helper()
	a, err := annotation.New(id, cid, l)
	if err != nil {
		t.Fatalf("annotation.New: %v", err)
	}
	return a
}

func accountHash(id domain.AccountID, cid domain.ClusterID, l label.Label, vec []float32) map[string]string {
	return buildHashFields(domain.Account{ID: id, ClusterID: cid, Label: l, Embedding: vec})
}
