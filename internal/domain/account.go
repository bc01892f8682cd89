package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kailas-cloud/labeldesk/internal/domain/label"
)

// KeyPrefix namespaces every key written to the shared store.
const KeyPrefix = "labeldesk:"

// AccountID is the numeric account identifier assigned by the social network.
type AccountID int64

// ClusterID identifies a cluster produced by the external pipeline.
type ClusterID int64

// String formats the id in base 10.
func (id AccountID) String() string { return strconv.FormatInt(int64(id), 10) }

// String formats the id in base 10.
func (id ClusterID) String() string { return strconv.FormatInt(int64(id), 10) }

// ParseAccountID parses a positive base-10 account id.
func ParseAccountID(s string) (AccountID, error) {
	n, err := parsePositive(s)
	if err != nil {
		return 0, fmt.Errorf("account id %q: %w", s, err)
	}
	return AccountID(n), nil
}

// ParseClusterID parses a non-negative base-10 cluster id.
func ParseClusterID(s string) (ClusterID, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("cluster id %q: %w", s, ErrInvalidID)
	}
	return ClusterID(n), nil
}

func parsePositive(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, ErrInvalidID
	}
	return n, nil
}

// Account is a single clustered account as stored by the pipeline.
type Account struct {
	ID        AccountID
	ClusterID ClusterID
	Label     label.Label
	Embedding []float32
}

// Cluster is the read model of one cluster: ids and embeddings are order-correspondent.
type Cluster struct {
	ID         ClusterID
	AccountIDs []AccountID
	Embeddings [][]float32
}

// Len returns the number of accounts in the cluster.
func (c Cluster) Len() int { return len(c.AccountIDs) }

// Contains reports whether the account belongs to the cluster.
func (c Cluster) Contains(id AccountID) bool {
	for _, a := range c.AccountIDs {
		if a == id {
			return true
		}
	}
	return false
}

// Validate checks that ids and embeddings correspond, vectors share one dimension
// and every component is finite.
func (c Cluster) Validate() error {
	if len(c.AccountIDs) != len(c.Embeddings) {
		return fmt.Errorf("%d ids for %d embeddings: %w", len(c.AccountIDs), len(c.Embeddings), ErrInvalidBatch)
	}
	if len(c.Embeddings) == 0 {
		return nil
	}
	dim := len(c.Embeddings[0])
	if dim == 0 {
		return fmt.Errorf("empty embedding at index 0: %w", ErrInvalidBatch)
	}
	for i, e := range c.Embeddings {
		if len(e) != dim {
			return fmt.Errorf("embedding %d has dimension %d, want %d: %w", i, len(e), dim, ErrInvalidBatch)
		}
		for k, v := range e {
			if f := float64(v); math.IsNaN(f) || math.IsInf(f, 0) {
				return fmt.Errorf("embedding %d component %d is %v: %w", i, k, v, ErrInvalidBatch)
			}
		}
	}
	return nil
}
