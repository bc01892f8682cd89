package cluster

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/labeldesk/internal/domain"
	"github.com/kailas-cloud/labeldesk/internal/domain/annotation"
	"github.com/kailas-cloud/labeldesk/internal/metrics"
)

// Service reads clusters and commits labels through the Gateway.
type Service struct {
	repo   Gateway
	logger *zap.Logger
}

// New creates a cluster service. logger can be nil.
func New(repo Gateway, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger}
}

// ListUnlabeled returns the ids of clusters that still have unlabeled accounts, ascending.
func (s *Service) ListUnlabeled(ctx context.Context) ([]domain.ClusterID, error) {
	ids, err := s.repo.ListUnlabeledClusters(ctx)
	if err != nil {
		return nil, fmt.Errorf("list unlabeled clusters: %w", err)
	}
	return ids, nil
}

// Get loads a cluster and checks that its embeddings are well-formed.
func (s *Service) Get(ctx context.Context, id domain.ClusterID) (domain.Cluster, error) {
	c, err := s.repo.GetCluster(ctx, id)
	if err != nil {
		return domain.Cluster{}, fmt.Errorf("get cluster: %w", err)
	}
	if err := c.Validate(); err != nil {
		return domain.Cluster{}, fmt.Errorf("cluster %s: %w", id, err)
	}
	return c, nil
}

// Account returns the stored record of one account in one cluster.
func (s *Service) Account(ctx context.Context, accountID domain.AccountID, clusterID domain.ClusterID) (domain.Account, error) {
	a, err := s.repo.GetUser(ctx, accountID, clusterID)
	if err != nil {
		return domain.Account{}, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

// CommitLabels persists a batch of annotations.
func (s *Service) CommitLabels(ctx context.Context, batch []annotation.Annotation) error {
	if len(batch) == 0 {
		return nil
	}
	if err := s.repo.CommitLabels(ctx, batch); err != nil {
		s.logger.Error("Commit labels failed", zap.Int("count", len(batch)), zap.Error(err))
		return fmt.Errorf("commit labels: %w", err)
	}
	metrics.LabelsCommittedTotal.Add(float64(len(batch)))
	s.logger.Info("Labels committed", zap.Int("count", len(batch)))
	return nil
}
