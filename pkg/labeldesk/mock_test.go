package labeldesk

import (
	"context"

	"github.com/kailas-cloud/labeldesk/internal/domain"
	domann "github.com/kailas-cloud/labeldesk/internal/domain/annotation"
	healthuc "github.com/kailas-cloud/labeldesk/internal/usecase/health"
)

// --- clusterUseCase mock ---

type mockClusterUC struct {
	listFn    func(ctx context.Context) ([]domain.ClusterID, error)
	getFn     func(ctx context.Context, id domain.ClusterID) (domain.Cluster, error)
	accountFn func(ctx context.Context, aid domain.AccountID, cid domain.ClusterID) (domain.Account, error)
	commitFn  func(ctx context.Context, batch []domann.Annotation) error
}

func (m *mockClusterUC) ListUnlabeled(ctx context.Context) ([]domain.ClusterID, error) {
	return m.listFn(ctx)
}

func (m *mockClusterUC) Get(ctx context.Context, id domain.ClusterID) (domain.Cluster, error) {
	return m.getFn(ctx, id)
}

func (m *mockClusterUC) Account(ctx context.Context, aid domain.AccountID, cid domain.ClusterID) (domain.Account, error) {
	return m.accountFn(ctx, aid, cid)
}

func (m *mockClusterUC) CommitLabels(ctx context.Context, batch []domann.Annotation) error {
	return m.commitFn(ctx, batch)
}

// --- projectionUseCase mock ---

type mockProjectionUC struct {
	renderFn func(ctx context.Context, c domain.Cluster) (domain.Projection, error)
}

func (m *mockProjectionUC) Render(ctx context.Context, c domain.Cluster) (domain.Projection, error) {
	return m.renderFn(ctx, c)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report {
	return m.report
}

// --- importer mock ---

type mockImporter struct {
	importFn func(ctx context.Context, accounts []domain.Account) error
}

func (m *mockImporter) ImportAccounts(ctx context.Context, accounts []domain.Account) error {
	return m.importFn(ctx, accounts)
}
