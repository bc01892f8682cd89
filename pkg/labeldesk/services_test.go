package labeldesk

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/kailas-cloud/labeldesk/internal/domain"
	domann "github.com/kailas-cloud/labeldesk/internal/domain/annotation"
	healthuc "github.com/kailas-cloud/labeldesk/internal/usecase/health"
)

func testCluster() domain.Cluster {
	return domain.Cluster{
		ID:         7,
		AccountIDs: []domain.AccountID{11, 12},
		Embeddings: [][]float32{{1, 0}, {0, 1}},
	}
}

func TestClient_Clusters(t *testing.T) {
	c := &Client{clusters: &mockClusterUC{
		listFn: func(context.Context) ([]domain.ClusterID, error) {
			return []domain.ClusterID{2, 7}, nil
		},
	}}

	ids, err := c.Clusters(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 || ids[0] != 2 || ids[1] != 7 {
		t.Errorf("ids = %v, want [2 7]", ids)
	}
}

func TestClient_Clusters_Error(t *testing.T) {
	c := &Client{clusters: &mockClusterUC{
		listFn: func(context.Context) ([]domain.ClusterID, error) {
			return nil, domain.ErrPersistence
		},
	}}

	if _, err := c.Clusters(context.Background()); !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
}

func TestClient_Cluster(t *testing.T) {
	c := &Client{clusters: &mockClusterUC{
		getFn: func(_ context.Context, id domain.ClusterID) (domain.Cluster, error) {
			if id != 7 {
				t.Errorf("id = %d, want 7", id)
			}
			return testCluster(), nil
		},
	}}

	got, err := c.Cluster(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != 7 || len(got.AccountIDs) != 2 || got.AccountIDs[1] != 12 {
		t.Errorf("cluster = %+v", got)
	}
	if len(got.Embeddings) != 2 {
		t.Errorf("embeddings len = %d, want 2", len(got.Embeddings))
	}
}

func TestClient_Cluster_NotFound(t *testing.T) {
	c := &Client{clusters: &mockClusterUC{
		getFn: func(context.Context, domain.ClusterID) (domain.Cluster, error) {
			return domain.Cluster{}, domain.ErrClusterNotFound
		},
	}}

	if _, err := c.Cluster(context.Background(), 99); !errors.Is(err, ErrClusterNotFound) {
		t.Fatalf("expected ErrClusterNotFound, got %v", err)
	}
}

func TestClient_Account(t *testing.T) {
	c := &Client{clusters: &mockClusterUC{
		accountFn: func(_ context.Context, aid domain.AccountID, cid domain.ClusterID) (domain.Account, error) {
			return domain.Account{ID: aid, ClusterID: cid, Label: Bot, Embedding: []float32{1}}, nil
		},
	}}

	a, err := c.Account(context.Background(), 11, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ID != 11 || a.ClusterID != 7 || a.Label != Bot {
		t.Errorf("account = %+v", a)
	}
}

func TestClient_Project(t *testing.T) {
	spec := json.RawMessage(`{"mark":"point"}`)
	c := &Client{
		clusters: &mockClusterUC{
			getFn: func(context.Context, domain.ClusterID) (domain.Cluster, error) {
				return testCluster(), nil
			},
		},
		projector: &mockProjectionUC{
			renderFn: func(_ context.Context, cl domain.Cluster) (domain.Projection, error) {
				if cl.ID != 7 {
					t.Errorf("rendered cluster %d, want 7", cl.ID)
				}
				return domain.Projection{
					Points: []domain.Point{{AccountID: 11, X: 1, Y: 2}, {AccountID: 12, X: -1, Y: -2}},
					Spec:   spec,
				}, nil
			},
		},
	}

	p, err := c.Project(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Points) != 2 || p.Points[0].AccountID != 11 || p.Points[1].Y != -2 {
		t.Errorf("points = %+v", p.Points)
	}
	if string(p.Spec) != string(spec) {
		t.Errorf("spec = %s, want %s", p.Spec, spec)
	}
}

func TestClient_Project_RenderError(t *testing.T) {
	c := &Client{
		clusters: &mockClusterUC{
			getFn: func(context.Context, domain.ClusterID) (domain.Cluster, error) {
				return testCluster(), nil
			},
		},
		projector: &mockProjectionUC{
			renderFn: func(context.Context, domain.Cluster) (domain.Projection, error) {
				return domain.Projection{}, errors.New("diverged")
			},
		},
	}

	if _, err := c.Project(context.Background(), 7); err == nil {
		t.Fatal("expected error")
	}
}

func TestClient_Commit(t *testing.T) {
	var committed []domann.Annotation
	c := &Client{clusters: &mockClusterUC{
		commitFn: func(_ context.Context, batch []domann.Annotation) error {
			committed = batch
			return nil
		},
	}}

	n, err := c.Commit(context.Background(), []Annotation{
		{AccountID: 11, ClusterID: 7, Label: Bot},
		{AccountID: 12, ClusterID: 7, Label: Human},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 || len(committed) != 2 {
		t.Fatalf("committed %d (%d passed), want 2", n, len(committed))
	}
	if committed[1].AccountID() != 12 || committed[1].Label() != Human {
		t.Errorf("second annotation = %v/%v", committed[1].AccountID(), committed[1].Label())
	}
}

func TestClient_Commit_Invalid(t *testing.T) {
	tests := []struct {
		name string
		ann  Annotation
	}{
		{"unlabeled", Annotation{AccountID: 1, ClusterID: 1, Label: Unlabeled}},
		{"unknown label", Annotation{AccountID: 1, ClusterID: 1, Label: Label(9)}},
		{"zero account", Annotation{AccountID: 0, ClusterID: 1, Label: Bot}},
		{"negative cluster", Annotation{AccountID: 1, ClusterID: -1, Label: Bot}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Client{clusters: &mockClusterUC{
				commitFn: func(context.Context, []domann.Annotation) error {
					t.Error("commit must not be called for invalid input")
					return nil
				},
			}}
			_, err := c.Commit(context.Background(), []Annotation{tt.ann})
			if !errors.Is(err, ErrInvalidAnnotation) {
				t.Fatalf("expected ErrInvalidAnnotation, got %v", err)
			}
		})
	}
}

func TestClient_Commit_StoreError(t *testing.T) {
	c := &Client{clusters: &mockClusterUC{
		commitFn: func(context.Context, []domann.Annotation) error {
			return domain.ErrAccountNotFound
		},
	}}

	n, err := c.Commit(context.Background(), []Annotation{{AccountID: 1, ClusterID: 1, Label: Bot}})
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if n != 0 {
		t.Errorf("n = %d, want 0", n)
	}
}

func TestClient_Import(t *testing.T) {
	var got []domain.Account
	c := &Client{importer: &mockImporter{
		importFn: func(_ context.Context, accounts []domain.Account) error {
			got = accounts
			return nil
		},
	}}

	err := c.Import(context.Background(), []Account{{ID: 5, ClusterID: 2, Label: Human, Embedding: []float32{0.5}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != 5 || got[0].ClusterID != 2 || got[0].Label != Human {
		t.Errorf("imported = %+v", got)
	}
}

func TestClient_Health(t *testing.T) {
	c := &Client{health: &mockHealthUC{report: healthuc.Report{
		Status: healthuc.Healthy,
		Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK},
	}}}

	h := c.Health(context.Background())
	if h.Status != "ok" {
		t.Errorf("status = %q, want ok", h.Status)
	}
	if h.Checks["database"] != "ok" {
		t.Errorf("checks = %v", h.Checks)
	}
}
