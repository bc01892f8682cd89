package labeldesk

import "github.com/kailas-cloud/labeldesk/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrClusterNotFound   = domain.ErrClusterNotFound
	ErrAccountNotFound   = domain.ErrAccountNotFound
	ErrInvalidBatch      = domain.ErrInvalidBatch
	ErrInvalidAnnotation = domain.ErrInvalidAnnotation
	ErrInvalidID         = domain.ErrInvalidID
	ErrPersistence       = domain.ErrPersistence
)
