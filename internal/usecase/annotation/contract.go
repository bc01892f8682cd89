package annotation

import (
	"context"

	domann "github.com/kailas-cloud/labeldesk/internal/domain/annotation"
)

// Committer persists a batch of annotations.
type Committer interface {
	CommitLabels(ctx context.Context, batch []domann.Annotation) error
}
