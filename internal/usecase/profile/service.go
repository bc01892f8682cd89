package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/labeldesk/internal/domain"
	"github.com/kailas-cloud/labeldesk/internal/metrics"
)

// FallbackHTML is shown in place of a profile that cannot be embedded.
const FallbackHTML = "There was an error while embedding this profile."

const cacheName = "profile"

// Embed is the resolved profile widget of one account.
type Embed struct {
	AccountID domain.AccountID
	Handle    string
	HTML      string
	Found     bool
}

// Service resolves account ids to embeddable profile HTML.
// Successful lookups, including "not found", are memoized for the process
// lifetime. Transport errors are returned and not memoized.
type Service struct {
	directory Directory
	embedder  Embedder
	memo      *xsync.MapOf[domain.AccountID, Embed]
	inflight  singleflight.Group
	logger    *zap.Logger
}

// New creates a profile service. logger can be nil.
func New(directory Directory, embedder Embedder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		directory: directory,
		embedder:  embedder,
		memo:      xsync.NewMapOf[domain.AccountID, Embed](),
		logger:    logger,
	}
}

// Resolve returns the profile widget for an account, or the fallback when the
// account has no handle.
func (s *Service) Resolve(ctx context.Context, id domain.AccountID) (Embed, error) {
	if e, ok := s.memo.Load(id); ok {
		metrics.CacheHit(cacheName)
		return e, nil
	}
	metrics.CacheMiss(cacheName)

	detached := context.WithoutCancel(ctx)
	ch := s.inflight.DoChan(id.String(), func() (any, error) {
		if e, ok := s.memo.Load(id); ok {
			return e, nil
		}
		e, err := s.resolve(detached, id)
		if err != nil {
			return nil, err
		}
		s.memo.Store(id, e)
		return e, nil
	})

	select {
	case <-ctx.Done():
		return Embed{}, fmt.Errorf("resolve profile %s: %w", id, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return Embed{}, fmt.Errorf("resolve profile %s: %w", id, res.Err)
		}
		e, ok := res.Val.(Embed)
		if !ok {
			return Embed{}, fmt.Errorf("resolve profile %s: unexpected result %T", id, res.Val)
		}
		return e, nil
	}
}

func (s *Service) resolve(ctx context.Context, id domain.AccountID) (Embed, error) {
	handle, found, err := s.directory.LookupHandle(ctx, id)
	if err != nil {
		return Embed{}, fmt.Errorf("lookup handle: %w", err)
	}
	if !found {
		s.logger.Debug("Profile not in directory", zap.Int64("account_id", int64(id)))
		return fallback(id, ""), nil
	}

	html, err := s.embedder.FetchEmbed(ctx, handle)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			s.logger.Debug("Profile has no embed", zap.String("handle", handle))
			return fallback(id, handle), nil
		}
		return Embed{}, fmt.Errorf("fetch embed for %s: %w", handle, err)
	}
	return Embed{AccountID: id, Handle: handle, HTML: html, Found: true}, nil
}

func fallback(id domain.AccountID, handle string) Embed {
	return Embed{AccountID: id, Handle: handle, HTML: FallbackHTML}
}
