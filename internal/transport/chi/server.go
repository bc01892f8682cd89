package chi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kailas-cloud/labeldesk/internal/domain"
	domann "github.com/kailas-cloud/labeldesk/internal/domain/annotation"
	"github.com/kailas-cloud/labeldesk/internal/domain/label"
	annotationuc "github.com/kailas-cloud/labeldesk/internal/usecase/annotation"
	clusteruc "github.com/kailas-cloud/labeldesk/internal/usecase/cluster"
	healthuc "github.com/kailas-cloud/labeldesk/internal/usecase/health"
	profileuc "github.com/kailas-cloud/labeldesk/internal/usecase/profile"
	projectionuc "github.com/kailas-cloud/labeldesk/internal/usecase/projection"
)

const healthTimeout = 3 * time.Second

// Options configures the HTTP surface.
type Options struct {
	CookieName   string
	SecureCookie bool
	APIKeys      []string
}

// Server serves the labeling dashboard and its JSON API.
type Server struct {
	clusters      *clusteruc.Service
	projections   *projectionuc.Service
	profiles      *profileuc.Service
	sessions      *annotationuc.Registry
	health        *healthuc.Service
	opts          Options
	errorHandlers []errorHandler
}

// NewServer creates an HTTP server.
func NewServer(
	clusters *clusteruc.Service,
	projections *projectionuc.Service,
	profiles *profileuc.Service,
	sessions *annotationuc.Registry,
	health *healthuc.Service,
	opts Options,
) *Server {
	if opts.CookieName == "" {
		opts.CookieName = "labeldesk_session"
	}
	return &Server{
		clusters:      clusters,
		projections:   projections,
		profiles:      profiles,
		sessions:      sessions,
		health:        health,
		opts:          opts,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Routes registers every route on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	withSession := SessionMiddleware(s.sessions, s.opts.CookieName, s.opts.SecureCookie)

	r.Group(func(r chi.Router) {
		r.Use(withSession)
		r.Get("/", s.Dashboard)
		r.Post("/annotations", s.MarkAccount)
		r.Post("/annotations/save", s.SaveAnnotations)
		r.Post("/annotations/reset", s.ResetAnnotations)
		r.Post("/annotations/remove", s.RemoveAnnotation)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(s.opts.APIKeys))
		r.Get("/clusters", s.ListClusters)
		r.Get("/clusters/{clusterID}", s.GetCluster)
		r.Get("/clusters/{clusterID}/projection", s.GetProjection)
		r.Get("/clusters/{clusterID}/accounts/{accountID}", s.GetAccount)
		r.Get("/accounts/{accountID}/embed", s.GetEmbed)

		r.Group(func(r chi.Router) {
			r.Use(withSession)
			r.Get("/session/annotations", s.ListAnnotations)
			r.Put("/session/annotations", s.PutAnnotation)
			r.Delete("/session/annotations", s.ResetSession)
			r.Delete("/session/annotations/{accountID}", s.DeleteAnnotation)
			r.Post("/session/flush", s.FlushSession)
		})
	})
}

// ListClusters handles GET /api/clusters.
func (s *Server) ListClusters(w http.ResponseWriter, r *http.Request) {
	ids, err := s.clusters.ListUnlabeled(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if ids == nil {
		ids = []domain.ClusterID{}
	}
	writeJSON(w, http.StatusOK, ClusterListResponse{Clusters: ids})
}

// GetCluster handles GET /api/clusters/{clusterID}.
func (s *Server) GetCluster(w http.ResponseWriter, r *http.Request) {
	cid, ok := s.clusterParam(w, r)
	if !ok {
		return
	}
	c, err := s.clusters.Get(r.Context(), cid)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, clusterToAPI(c))
}

// GetProjection handles GET /api/clusters/{clusterID}/projection.
func (s *Server) GetProjection(w http.ResponseWriter, r *http.Request) {
	cid, ok := s.clusterParam(w, r)
	if !ok {
		return
	}
	c, err := s.clusters.Get(r.Context(), cid)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	p, err := s.projections.Render(r.Context(), c)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projectionToAPI(cid, p))
}

// GetAccount handles GET /api/clusters/{clusterID}/accounts/{accountID}.
func (s *Server) GetAccount(w http.ResponseWriter, r *http.Request) {
	cid, ok := s.clusterParam(w, r)
	if !ok {
		return
	}
	aid, ok := s.accountParam(w, r)
	if !ok {
		return
	}
	a, err := s.clusters.Account(r.Context(), aid, cid)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accountToAPI(a))
}

// GetEmbed handles GET /api/accounts/{accountID}/embed.
func (s *Server) GetEmbed(w http.ResponseWriter, r *http.Request) {
	aid, ok := s.accountParam(w, r)
	if !ok {
		return
	}
	e, err := s.profiles.Resolve(r.Context(), aid)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, embedToAPI(e))
}

// ListAnnotations handles GET /api/session/annotations.
func (s *Server) ListAnnotations(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	writeJSON(w, http.StatusOK, annotationsToAPI(sess.Snapshot()))
}

// PutAnnotation handles PUT /api/session/annotations.
func (s *Server) PutAnnotation(w http.ResponseWriter, r *http.Request) {
	var body AnnotationBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	a, err := annotationFromInput(body.AccountID, body.ClusterID.String(), body.Label)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if err := s.checkStored(r.Context(), a); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	sess := sessionFrom(r.Context())
	sess.Upsert(a)
	sess.Select(a.ClusterID(), a.AccountID())
	writeJSON(w, http.StatusOK, annotationsToAPI(sess.Snapshot()))
}

// DeleteAnnotation handles DELETE /api/session/annotations/{accountID}.
func (s *Server) DeleteAnnotation(w http.ResponseWriter, r *http.Request) {
	aid, ok := s.accountParam(w, r)
	if !ok {
		return
	}
	sess := sessionFrom(r.Context())
	if !sess.Remove(aid) {
		writeError(w, http.StatusNotFound, ErrorCodeAccountNotFound, "no pending annotation for account "+aid.String())
		return
	}
	writeJSON(w, http.StatusOK, annotationsToAPI(sess.Snapshot()))
}

// ResetSession handles DELETE /api/session/annotations.
func (s *Server) ResetSession(w http.ResponseWriter, r *http.Request) {
	sessionFrom(r.Context()).Reset()
	w.WriteHeader(http.StatusNoContent)
}

// FlushSession handles POST /api/session/flush.
func (s *Server) FlushSession(w http.ResponseWriter, r *http.Request) {
	n, err := sessionFrom(r.Context()).Flush(r.Context(), s.clusters)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, FlushResponse{Flushed: n})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	report := s.health.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	// a degraded directory only affects the profile pane
	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, HealthResponse{Status: string(report.Status), Checks: checks})
}

func (s *Server) clusterParam(w http.ResponseWriter, r *http.Request) (domain.ClusterID, bool) {
	var v int64
	if err := bindPathParam(r, "clusterID", &v); err != nil || v < 0 {
		writeError(w, http.StatusBadRequest, ErrorCodeValidation, "Invalid format for parameter clusterID")
		return 0, false
	}
	return domain.ClusterID(v), true
}

func (s *Server) accountParam(w http.ResponseWriter, r *http.Request) (domain.AccountID, bool) {
	var v int64
	if err := bindPathParam(r, "accountID", &v); err != nil || v <= 0 {
		writeError(w, http.StatusBadRequest, ErrorCodeValidation, "Invalid format for parameter accountID")
		return 0, false
	}
	return domain.AccountID(v), true
}

func bindPathParam(r *http.Request, name string, dest any) error {
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), dest,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return fmt.Errorf("bind %s: %w", name, err)
	}
	return nil
}

// checkStored rejects annotations for accounts the store does not hold in that cluster,
// so one bad entry cannot block every later flush.
func (s *Server) checkStored(ctx context.Context, a domann.Annotation) error {
	if _, err := s.clusters.Account(ctx, a.AccountID(), a.ClusterID()); err != nil {
		return fmt.Errorf("annotate account %s in cluster %s: %w", a.AccountID(), a.ClusterID(), err)
	}
	return nil
}

// annotationFromInput validates raw form or JSON input into an annotation.
// Only bot and human are accepted from clients.
func annotationFromInput(accountID, clusterID, rawLabel string) (domann.Annotation, error) {
	aid, err := domain.ParseAccountID(accountID)
	if err != nil {
		return domann.Annotation{}, err
	}
	cid, err := domain.ParseClusterID(clusterID)
	if err != nil {
		return domann.Annotation{}, err
	}
	l, err := label.Parse(rawLabel)
	if err != nil || l == label.Unlabeled {
		return domann.Annotation{}, fmt.Errorf("label %q: %w", rawLabel, domain.ErrInvalidAnnotation)
	}
	return domann.New(aid, cid, l)
}
