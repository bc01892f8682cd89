package cluster

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/labeldesk/internal/domain"
	"github.com/kailas-cloud/labeldesk/internal/domain/annotation"
	"github.com/kailas-cloud/labeldesk/internal/domain/label"
	"github.com/kailas-cloud/labeldesk/internal/metrics"
)

// --- Mocks ---

type mockGateway struct {
	listResult  []domain.ClusterID
	getResult   domain.Cluster
	userResult  domain.Account
	committed   []annotation.Annotation
	commitCalls int
	listErr     error
	getErr      error
	userErr     error
	commitErr   error
}

func (m *mockGateway) ListUnlabeledClusters(_ context.Context) ([]domain.ClusterID, error) {
	return m.listResult, m.listErr
}

func (m *mockGateway) GetCluster(_ context.Context, _ domain.ClusterID) (domain.Cluster, error) {
	return m.getResult, m.getErr
}

func (m *mockGateway) GetUser(_ context.Context, _ domain.AccountID, _ domain.ClusterID) (domain.Account, error) {
	return m.userResult, m.userErr
}

func (m *mockGateway) CommitLabels(_ context.Context, batch []annotation.Annotation) error {
	m.commitCalls++
	m.committed = batch
	return m.commitErr
}

// --- Tests ---

func TestListUnlabeled(t *testing.T) {
	svc := New(&mockGateway{listResult: []domain.ClusterID{1, 4}}, nil)

	ids, err := svc.ListUnlabeled(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 || ids[1] != 4 {
		t.Errorf("unexpected ids: %v", ids)
	}
}

func TestListUnlabeled_Error(t *testing.T) {
	svc := New(&mockGateway{listErr: errors.New("conn refused")}, nil)

	if _, err := svc.ListUnlabeled(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestGet_NotFound(t *testing.T) {
	svc := New(&mockGateway{getErr: domain.ErrClusterNotFound}, nil)

	_, err := svc.Get(context.Background(), 3)
	if !errors.Is(err, domain.ErrClusterNotFound) {
		t.Errorf("expected ErrClusterNotFound, got %v", err)
	}
}

func TestGet_RaggedEmbeddings(t *testing.T) {
	svc := New(&mockGateway{getResult: domain.Cluster{
		ID:         3,
		AccountIDs: []domain.AccountID{1, 2},
		Embeddings: [][]float32{{1, 2}, {3}},
	}}, nil)

	_, err := svc.Get(context.Background(), 3)
	if !errors.Is(err, domain.ErrInvalidBatch) {
		t.Errorf("expected ErrInvalidBatch, got %v", err)
	}
}

func TestAccount_NotFound(t *testing.T) {
	svc := New(&mockGateway{userErr: domain.ErrAccountNotFound}, nil)

	_, err := svc.Account(context.Background(), 42, 7)
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestCommitLabels_CountsMetric(t *testing.T) {
	gw := &mockGateway{}
	svc := New(gw, nil)
	a, _ := annotation.New(42, 7, label.Bot)
	b, _ := annotation.New(43, 7, label.Human)

	before := testutil.ToFloat64(metrics.LabelsCommittedTotal)
	if err := svc.CommitLabels(context.Background(), []annotation.Annotation{a, b}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := testutil.ToFloat64(metrics.LabelsCommittedTotal) - before; got != 2 {
		t.Errorf("expected 2 committed labels, got %f", got)
	}
	if len(gw.committed) != 2 {
		t.Errorf("expected batch of 2, got %d", len(gw.committed))
	}
}

func TestCommitLabels_EmptySkipsGateway(t *testing.T) {
	gw := &mockGateway{}
	svc := New(gw, nil)

	if err := svc.CommitLabels(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gw.commitCalls != 0 {
		t.Errorf("gateway must not be called, got %d calls", gw.commitCalls)
	}
}

func TestCommitLabels_Error(t *testing.T) {
	svc := New(&mockGateway{commitErr: domain.ErrPersistence}, nil)
	a, _ := annotation.New(42, 7, label.Bot)

	err := svc.CommitLabels(context.Background(), []annotation.Annotation{a})
	if !errors.Is(err, domain.ErrPersistence) {
		t.Errorf("expected ErrPersistence, got %v", err)
	}
}
