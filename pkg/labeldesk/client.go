package labeldesk

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/labeldesk/internal/config"
	"github.com/kailas-cloud/labeldesk/internal/domain"
	domann "github.com/kailas-cloud/labeldesk/internal/domain/annotation"
	"github.com/kailas-cloud/labeldesk/internal/storage"
	"github.com/kailas-cloud/labeldesk/internal/tsne"
	clusteruc "github.com/kailas-cloud/labeldesk/internal/usecase/cluster"
	healthuc "github.com/kailas-cloud/labeldesk/internal/usecase/health"
	projectionuc "github.com/kailas-cloud/labeldesk/internal/usecase/projection"
)

const defaultReadinessTimeout = 10

// Internal interfaces, substituted in tests.
type clusterUseCase interface {
	ListUnlabeled(ctx context.Context) ([]domain.ClusterID, error)
	Get(ctx context.Context, id domain.ClusterID) (domain.Cluster, error)
	Account(ctx context.Context, accountID domain.AccountID, clusterID domain.ClusterID) (domain.Account, error)
	CommitLabels(ctx context.Context, batch []domann.Annotation) error
}

type projectionUseCase interface {
	Render(ctx context.Context, c domain.Cluster) (domain.Projection, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the labeldesk SDK entry point.
type Client struct {
	backend   *storage.Backend
	importer  clusteruc.Importer
	clusters  clusterUseCase
	projector projectionUseCase
	health    healthUseCase
	obs       *observer
}

// New opens the configured backend and wires the client.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{keyPrefix: domain.KeyPrefix}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.driver == "" {
		return nil, errors.New("labeldesk: backend required (use WithValkey, WithRedis, WithPostgres or WithSQLite)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	backend, err := storage.Open(ctx, config.DatabaseConfig{
		Driver:           cfg.driver,
		Addrs:            cfg.addrs,
		Password:         cfg.password,
		DSN:              cfg.dsn,
		ReadinessTimeout: defaultReadinessTimeout,
	}, cfg.keyPrefix, zap.NewNop())
	if err != nil {
		return nil, fmt.Errorf("labeldesk: %w", err)
	}

	tcfg := tsne.DefaultConfig()
	if cfg.perplexity > 0 {
		tcfg.Perplexity = cfg.perplexity
	}
	if cfg.iterations > 0 {
		tcfg.Iterations = cfg.iterations
	}
	tcfg.Seed = cfg.seed
	pcfg := projectionuc.DefaultConfig()
	pcfg.TSNE = tcfg

	return &Client{
		backend:   backend,
		importer:  backend.Repo,
		clusters:  clusteruc.New(backend.Repo, nil),
		projector: projectionuc.New(pcfg, nil, nil),
		health:    healthuc.New(backend, nil),
		obs:       obs,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.backend != nil {
		c.backend.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.backend.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            // "ok", "degraded", "error"
	Checks map[string]string // component -> "ok"/"error"
}

// Health checks the health of the backend.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.health.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{Status: string(report.Status), Checks: checks}
}

// Clusters lists clusters that still contain unlabeled accounts, ascending.
func (c *Client) Clusters(ctx context.Context) (ids []int64, err error) {
	start := time.Now()
	defer func() { c.obs.observe("clusters.list", start, err) }()

	got, err := c.clusters.ListUnlabeled(ctx)
	if err != nil {
		return nil, err
	}
	ids = make([]int64, len(got))
	for i, id := range got {
		ids[i] = int64(id)
	}
	return ids, nil
}

// Cluster loads the ids and embeddings of one cluster.
func (c *Client) Cluster(ctx context.Context, id int64) (_ Cluster, err error) {
	start := time.Now()
	defer func() { c.obs.observe("clusters.get", start, err) }()

	dc, err := c.clusters.Get(ctx, domain.ClusterID(id))
	if err != nil {
		return Cluster{}, err
	}
	return clusterFromDomain(dc), nil
}

// Account returns the stored record of one account in one cluster.
func (c *Client) Account(ctx context.Context, accountID, clusterID int64) (_ Account, err error) {
	start := time.Now()
	defer func() { c.obs.observe("accounts.get", start, err) }()

	a, err := c.clusters.Account(ctx, domain.AccountID(accountID), domain.ClusterID(clusterID))
	if err != nil {
		return Account{}, err
	}
	return accountFromDomain(a), nil
}

// Project loads a cluster and projects it to 2D.
// Repeated calls for unchanged data return the memoized result.
func (c *Client) Project(ctx context.Context, clusterID int64) (_ Projection, err error) {
	start := time.Now()
	defer func() { c.obs.observe("clusters.project", start, err) }()

	dc, err := c.clusters.Get(ctx, domain.ClusterID(clusterID))
	if err != nil {
		return Projection{}, err
	}
	p, err := c.projector.Render(ctx, dc)
	if err != nil {
		return Projection{}, err
	}
	return projectionFromDomain(p), nil
}

// Commit validates and persists a batch of annotations. Returns the number committed.
func (c *Client) Commit(ctx context.Context, batch []Annotation) (n int, err error) {
	start := time.Now()
	defer func() { c.obs.observe("labels.commit", start, err) }()

	anns := make([]domann.Annotation, len(batch))
	for i, a := range batch {
		if a.Label == Unlabeled {
			return 0, fmt.Errorf("annotation %d: label must be human or bot: %w", i, ErrInvalidAnnotation)
		}
		anns[i], err = domann.New(domain.AccountID(a.AccountID), domain.ClusterID(a.ClusterID), a.Label)
		if err != nil {
			return 0, fmt.Errorf("annotation %d: %w", i, err)
		}
	}
	if err = c.clusters.CommitLabels(ctx, anns); err != nil {
		return 0, err
	}
	return len(anns), nil
}

// Import writes accounts as produced by the clustering pipeline, overwriting existing ones.
func (c *Client) Import(ctx context.Context, accounts []Account) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("accounts.import", start, err) }()

	out := make([]domain.Account, len(accounts))
	for i, a := range accounts {
		out[i] = domain.Account{
			ID:        domain.AccountID(a.ID),
			ClusterID: domain.ClusterID(a.ClusterID),
			Label:     a.Label,
			Embedding: a.Embedding,
		}
	}
	if err = c.importer.ImportAccounts(ctx, out); err != nil {
		return fmt.Errorf("import: %w", err)
	}
	return nil
}

func clusterFromDomain(c domain.Cluster) Cluster {
	ids := make([]int64, len(c.AccountIDs))
	for i, id := range c.AccountIDs {
		ids[i] = int64(id)
	}
	return Cluster{ID: int64(c.ID), AccountIDs: ids, Embeddings: c.Embeddings}
}

func accountFromDomain(a domain.Account) Account {
	return Account{ID: int64(a.ID), ClusterID: int64(a.ClusterID), Label: a.Label, Embedding: a.Embedding}
}

func projectionFromDomain(p domain.Projection) Projection {
	points := make([]Point, len(p.Points))
	for i, pt := range p.Points {
		points[i] = Point{AccountID: int64(pt.AccountID), X: pt.X, Y: pt.Y}
	}
	return Projection{Points: points, Spec: append([]byte(nil), p.Spec...)}
}
