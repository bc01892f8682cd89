package domain

import "errors"

var (
	// ErrClusterNotFound signals a missing cluster.
	ErrClusterNotFound = errors.New("cluster not found")
	// ErrAccountNotFound signals a missing account within a cluster.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidBatch signals mismatched or ragged embedding input.
	ErrInvalidBatch = errors.New("invalid embedding batch")
	// ErrInvalidAnnotation signals an annotation that failed validation.
	ErrInvalidAnnotation = errors.New("invalid annotation")
	// ErrInvalidID signals an unparsable account or cluster identifier.
	ErrInvalidID = errors.New("invalid identifier")

	// ErrRateLimited signals a rate limit hit on the directory service.
	ErrRateLimited = errors.New("rate limited")
	// ErrDirectoryUnavailable signals a directory or embed service failure.
	ErrDirectoryUnavailable = errors.New("directory service unavailable")
	// ErrPersistence signals a failed write to the label store.
	ErrPersistence = errors.New("persistence failure")
)
