package profile

import (
	"context"

	"github.com/kailas-cloud/labeldesk/internal/domain"
)

// Directory resolves account ids to public handles.
// found is false when the directory has no such account.
type Directory interface {
	LookupHandle(ctx context.Context, id domain.AccountID) (handle string, found bool, err error)
}

// Embedder fetches the embeddable HTML widget of a profile.
// Returns domain.ErrAccountNotFound when the service has no widget for the handle.
type Embedder interface {
	FetchEmbed(ctx context.Context, handle string) (string, error)
}
