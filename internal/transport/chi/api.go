package chi

import (
	"encoding/json"

	"github.com/kailas-cloud/labeldesk/internal/domain"
	domann "github.com/kailas-cloud/labeldesk/internal/domain/annotation"
	"github.com/kailas-cloud/labeldesk/internal/domain/label"
	"github.com/kailas-cloud/labeldesk/internal/usecase/profile"
)

// ErrorCode is a machine-readable JSON API error code.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest       ErrorCode = "bad_request"
	ErrorCodeUnauthorized     ErrorCode = "unauthorized"
	ErrorCodeValidation       ErrorCode = "validation_failed"
	ErrorCodeClusterNotFound  ErrorCode = "cluster_not_found"
	ErrorCodeAccountNotFound  ErrorCode = "account_not_found"
	ErrorCodeRateLimited      ErrorCode = "rate_limited"
	ErrorCodeUpstreamError    ErrorCode = "upstream_error"
	ErrorCodePersistenceError ErrorCode = "persistence_error"
	ErrorCodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the body of every JSON API error.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Account ids travel as JSON strings: they exceed the 2^53 integer range of JavaScript.

// ClusterListResponse lists clusters with unlabeled accounts.
type ClusterListResponse struct {
	Clusters []domain.ClusterID `json:"clusters"`
}

// ClusterResponse describes one cluster.
type ClusterResponse struct {
	ClusterID  domain.ClusterID `json:"cluster_id"`
	AccountIDs []string         `json:"account_ids"`
	Dimensions int              `json:"dimensions"`
}

// PointResponse is one projected account.
type PointResponse struct {
	AccountID string  `json:"account_id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

// ProjectionResponse carries the projected points and the Vega-Lite spec.
type ProjectionResponse struct {
	ClusterID domain.ClusterID `json:"cluster_id"`
	Points    []PointResponse  `json:"points"`
	Spec      json.RawMessage  `json:"spec"`
}

// AccountResponse is the stored record of one account.
type AccountResponse struct {
	AccountID string           `json:"account_id"`
	ClusterID domain.ClusterID `json:"cluster_id"`
	Label     label.Label      `json:"label"`
}

// EmbedResponse is a resolved profile widget.
type EmbedResponse struct {
	AccountID string `json:"account_id"`
	Handle    string `json:"handle,omitempty"`
	HTML      string `json:"html"`
	Found     bool   `json:"found"`
}

// AnnotationBody is one pending annotation.
type AnnotationBody struct {
	AccountID string           `json:"account_id"`
	ClusterID domain.ClusterID `json:"cluster_id"`
	Label     string           `json:"label"`
}

// AnnotationListResponse lists the session's pending annotations in insertion order.
type AnnotationListResponse struct {
	Annotations []AnnotationBody `json:"annotations"`
	Count       int              `json:"count"`
}

// FlushResponse reports how many annotations were persisted.
type FlushResponse struct {
	Flushed int `json:"flushed"`
}

// HealthResponse reports component health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func clusterToAPI(c domain.Cluster) ClusterResponse {
	ids := make([]string, len(c.AccountIDs))
	for i, id := range c.AccountIDs {
		ids[i] = id.String()
	}
	dim := 0
	if len(c.Embeddings) > 0 {
		dim = len(c.Embeddings[0])
	}
	return ClusterResponse{ClusterID: c.ID, AccountIDs: ids, Dimensions: dim}
}

func projectionToAPI(cid domain.ClusterID, p domain.Projection) ProjectionResponse {
	points := make([]PointResponse, len(p.Points))
	for i, pt := range p.Points {
		points[i] = PointResponse{AccountID: pt.AccountID.String(), X: pt.X, Y: pt.Y}
	}
	return ProjectionResponse{ClusterID: cid, Points: points, Spec: p.Spec}
}

func accountToAPI(a domain.Account) AccountResponse {
	return AccountResponse{AccountID: a.ID.String(), ClusterID: a.ClusterID, Label: a.Label}
}

func embedToAPI(e profile.Embed) EmbedResponse {
	return EmbedResponse{AccountID: e.AccountID.String(), Handle: e.Handle, HTML: e.HTML, Found: e.Found}
}

func annotationsToAPI(batch []domann.Annotation) AnnotationListResponse {
	out := make([]AnnotationBody, len(batch))
	for i, a := range batch {
		out[i] = AnnotationBody{
			AccountID: a.AccountID().String(),
			ClusterID: a.ClusterID(),
			Label:     a.Label().String(),
		}
	}
	return AnnotationListResponse{Annotations: out, Count: len(out)}
}
