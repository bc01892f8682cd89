package projection

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/labeldesk/internal/domain"
	"github.com/kailas-cloud/labeldesk/internal/metrics"
	"github.com/kailas-cloud/labeldesk/internal/tsne"
)

const cacheName = "projection"

// Config holds projection and chart parameters.
type Config struct {
	TSNE   tsne.Config
	Width  int
	Height int
}

// DefaultConfig returns the standard t-SNE parameters and an 800x800 chart.
func DefaultConfig() Config {
	return Config{TSNE: tsne.DefaultConfig(), Width: 800, Height: 800}
}

// Service renders clusters into 2D projections, memoized per distinct input.
type Service struct {
	cfg      Config
	embedder Embedder
	memo     *xsync.MapOf[string, domain.Projection]
	inflight singleflight.Group
	logger   *zap.Logger
}

// New creates a projection service. embedder nil uses tsne.Embed; logger can be nil.
func New(cfg Config, embedder Embedder, logger *zap.Logger) *Service {
	if embedder == nil {
		embedder = EmbedderFunc(tsne.Embed)
	}
	if cfg.Width <= 0 {
		cfg.Width = DefaultConfig().Width
	}
	if cfg.Height <= 0 {
		cfg.Height = DefaultConfig().Height
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:      cfg,
		embedder: embedder,
		memo:     xsync.NewMapOf[string, domain.Projection](),
		logger:   logger,
	}
}

// Render projects the cluster's embeddings to 2D and builds the chart spec.
// Identical input returns the identical cached value; concurrent identical
// renders share one computation.
func (s *Service) Render(ctx context.Context, c domain.Cluster) (domain.Projection, error) {
	if err := c.Validate(); err != nil {
		return domain.Projection{}, fmt.Errorf("render cluster %s: %w", c.ID, err)
	}

	key := batchKey(c)
	if p, ok := s.memo.Load(key); ok {
		metrics.CacheHit(cacheName)
		return p, nil
	}
	metrics.CacheMiss(cacheName)

	// the shared computation outlives any single caller so its result can be memoized
	detached := context.WithoutCancel(ctx)
	ch := s.inflight.DoChan(key, func() (any, error) {
		if p, ok := s.memo.Load(key); ok {
			return p, nil
		}
		p, err := s.compute(detached, c)
		if err != nil {
			return nil, err
		}
		s.memo.Store(key, p)
		return p, nil
	})

	select {
	case <-ctx.Done():
		return domain.Projection{}, fmt.Errorf("render cluster %s: %w", c.ID, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return domain.Projection{}, fmt.Errorf("render cluster %s: %w", c.ID, res.Err)
		}
		p, ok := res.Val.(domain.Projection)
		if !ok {
			return domain.Projection{}, fmt.Errorf("render cluster %s: unexpected result %T", c.ID, res.Val)
		}
		return p, nil
	}
}

// Cached reports the number of memoized projections.
func (s *Service) Cached() int { return s.memo.Size() }

func (s *Service) compute(ctx context.Context, c domain.Cluster) (domain.Projection, error) {
	start := time.Now()
	coords, err := s.embedder.Embed(ctx, c.Embeddings, s.cfg.TSNE)
	if err != nil {
		return domain.Projection{}, fmt.Errorf("embed: %w", err)
	}
	if len(coords) != c.Len() {
		return domain.Projection{}, fmt.Errorf("embedder returned %d points for %d inputs", len(coords), c.Len())
	}
	elapsed := time.Since(start)
	metrics.ProjectionDuration.Observe(elapsed.Seconds())

	points := make([]domain.Point, len(coords))
	for i, xy := range coords {
		points[i] = domain.Point{AccountID: c.AccountIDs[i], X: xy[0], Y: xy[1]}
	}
	spec, err := buildSpec(c.ID, points, s.cfg.Width, s.cfg.Height)
	if err != nil {
		return domain.Projection{}, err
	}

	s.logger.Debug("Projection computed",
		zap.Int64("cluster_id", int64(c.ID)),
		zap.Int("points", len(points)),
		zap.Duration("duration", elapsed),
	)
	return domain.Projection{Points: points, Spec: spec}, nil
}

// batchKey hashes the cluster id, account ids and raw float bits of every embedding.
func batchKey(c domain.Cluster) string {
	h := sha256.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(c.ID))
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(c.Len()))
	h.Write(buf[:])
	for i, id := range c.AccountIDs {
		binary.LittleEndian.PutUint64(buf[:], uint64(id))
		h.Write(buf[:])
		binary.LittleEndian.PutUint32(buf[:4], uint32(len(c.Embeddings[i])))
		h.Write(buf[:4])
		for _, f := range c.Embeddings[i] {
			binary.LittleEndian.PutUint32(buf[:4], math.Float32bits(f))
			h.Write(buf[:4])
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
