package cluster

import (
	"context"

	"github.com/kailas-cloud/labeldesk/internal/domain"
	"github.com/kailas-cloud/labeldesk/internal/domain/annotation"
)

// Gateway defines the storage contract for clustered accounts and their labels.
type Gateway interface {
	ListUnlabeledClusters(ctx context.Context) ([]domain.ClusterID, error)
	GetCluster(ctx context.Context, id domain.ClusterID) (domain.Cluster, error)
	GetUser(ctx context.Context, accountID domain.AccountID, clusterID domain.ClusterID) (domain.Account, error)
	CommitLabels(ctx context.Context, batch []annotation.Annotation) error
}

// Importer bulk-loads accounts produced by the clustering pipeline.
type Importer interface {
	ImportAccounts(ctx context.Context, accounts []domain.Account) error
}
