package annotation

import (
	"fmt"

	"github.com/kailas-cloud/labeldesk/internal/domain"
	"github.com/kailas-cloud/labeldesk/internal/domain/label"
)

// Annotation is a human-assigned label for one account in one cluster (immutable value object).
type Annotation struct {
	accountID domain.AccountID
	clusterID domain.ClusterID
	label     label.Label
}

// New validates and creates an Annotation.
func New(accountID domain.AccountID, clusterID domain.ClusterID, l label.Label) (Annotation, error) {
	if accountID <= 0 {
		return Annotation{}, fmt.Errorf("account id must be positive: %w", domain.ErrInvalidAnnotation)
	}
	if clusterID < 0 {
		return Annotation{}, fmt.Errorf("cluster id must not be negative: %w", domain.ErrInvalidAnnotation)
	}
	if !l.IsValid() {
		return Annotation{}, fmt.Errorf("label %d: %w", int(l), domain.ErrInvalidAnnotation)
	}
	return Annotation{accountID: accountID, clusterID: clusterID, label: l}, nil
}

// AccountID returns the annotated account.
func (a Annotation) AccountID() domain.AccountID { return a.accountID }

// ClusterID returns the cluster the account was annotated in.
func (a Annotation) ClusterID() domain.ClusterID { return a.clusterID }

// Label returns the assigned label.
func (a Annotation) Label() label.Label { return a.label }
