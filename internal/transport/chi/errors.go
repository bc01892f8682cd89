package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/labeldesk/internal/domain"
	"github.com/kailas-cloud/labeldesk/internal/logger"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// domainSentinels are the errors whose message is safe to show to clients.
var domainSentinels = []error{
	domain.ErrClusterNotFound,
	domain.ErrAccountNotFound,
	domain.ErrInvalidBatch,
	domain.ErrInvalidAnnotation,
	domain.ErrInvalidID,
	domain.ErrRateLimited,
	domain.ErrDirectoryUnavailable,
	domain.ErrPersistence,
}

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		sentinelHandler(domain.ErrClusterNotFound, http.StatusNotFound, ErrorCodeClusterNotFound),
		sentinelHandler(domain.ErrAccountNotFound, http.StatusNotFound, ErrorCodeAccountNotFound),
		sentinelHandler(domain.ErrInvalidID, http.StatusBadRequest, ErrorCodeValidation),
		sentinelHandler(domain.ErrInvalidAnnotation, http.StatusBadRequest, ErrorCodeValidation),
		sentinelHandler(domain.ErrInvalidBatch, http.StatusBadRequest, ErrorCodeValidation),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, ErrorCodeRateLimited),
		sentinelHandler(domain.ErrDirectoryUnavailable, http.StatusBadGateway, ErrorCodeUpstreamError),
		sentinelHandler(domain.ErrPersistence, http.StatusInternalServerError, ErrorCodePersistenceError),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	for _, s := range domainSentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
