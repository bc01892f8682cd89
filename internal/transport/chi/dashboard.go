package chi

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"slices"

	"go.uber.org/zap"

	"github.com/kailas-cloud/labeldesk/internal/domain"
	"github.com/kailas-cloud/labeldesk/internal/domain/label"
	"github.com/kailas-cloud/labeldesk/internal/logger"
	annotationuc "github.com/kailas-cloud/labeldesk/internal/usecase/annotation"
	profileuc "github.com/kailas-cloud/labeldesk/internal/usecase/profile"
)

// Pane fallback messages.
const (
	msgClustersUnavailable = "Clusters could not be loaded."
	msgNoClusters          = "No clusters with unlabeled accounts."
	msgClusterUnavailable  = "This cluster could not be loaded."
	msgChartUnavailable    = "The projection could not be rendered."
	msgRecordUnavailable   = "record unavailable"
	msgSaved               = "Annotations saved successfully!"
	msgNothingToSave       = "There are no pending annotations to save."
	msgReset               = "Pending annotations discarded."
)

//go:embed templates/dashboard.html
var templateFS embed.FS

var dashboardTmpl = template.Must(template.ParseFS(templateFS, "templates/dashboard.html"))

type recordView struct {
	AccountID domain.AccountID
	ClusterID domain.ClusterID
	Label     label.Label
}

type pendingRow struct {
	AccountID domain.AccountID
	ClusterID domain.ClusterID
	Label     string
}

type dashboardView struct {
	Clusters      []domain.ClusterID
	ClusterNotice string

	Cluster    domain.ClusterID
	HasCluster bool
	Accounts   []domain.AccountID
	Account    domain.AccountID
	HasAccount bool

	ChartSpec  template.JS
	ChartError string

	EmbedHTML  string
	EmbedError string

	Record      recordView
	RecordError string

	Pending []pendingRow
	Flash   string
}

// Dashboard handles GET /. Every pane degrades on its own; the page always renders.
func (s *Server) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	sess := sessionFrom(ctx)
	q := r.URL.Query()

	var v dashboardView
	v.Flash = sess.TakeFlash()

	ids, err := s.clusters.ListUnlabeled(ctx)
	switch {
	case err != nil:
		log.Warn("list clusters", zap.Error(err))
		v.ClusterNotice = msgClustersUnavailable
	case len(ids) == 0:
		v.ClusterNotice = msgNoClusters
	}
	v.Clusters = ids

	cid, hasCID := s.pickCluster(q.Get("cluster"), ids, sess)
	if hasCID {
		s.fillCluster(r, &v, cid, q.Get("account"), sess)
	}
	v.Pending = pendingRows(sess)

	var buf bytes.Buffer
	if err := dashboardTmpl.Execute(&buf, v); err != nil {
		log.Error("render dashboard", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// pickCluster resolves the cluster to show: query, then the session selection, then the first listed.
func (s *Server) pickCluster(raw string, listed []domain.ClusterID, sess *annotationuc.Session) (domain.ClusterID, bool) {
	if raw != "" {
		if cid, err := domain.ParseClusterID(raw); err == nil {
			return cid, true
		}
	}
	if sel, ok := sess.Selection(); ok {
		return sel.ClusterID, true
	}
	if len(listed) > 0 {
		return listed[0], true
	}
	return 0, false
}

func (s *Server) fillCluster(r *http.Request, v *dashboardView, cid domain.ClusterID, rawAccount string, sess *annotationuc.Session) {
	ctx := r.Context()
	log := logger.FromContext(ctx).With(zap.Stringer("cluster_id", cid))

	v.Cluster = cid
	v.HasCluster = true
	if !slices.Contains(v.Clusters, cid) {
		v.Clusters = append(v.Clusters, cid)
	}

	c, err := s.clusters.Get(ctx, cid)
	if err != nil {
		log.Warn("load cluster", zap.Error(err))
		v.ChartError = msgClusterUnavailable
		if errors.Is(err, domain.ErrClusterNotFound) {
			v.ChartError = fmt.Sprintf("Cluster %s was not found.", cid)
		}
		return
	}
	v.Accounts = c.AccountIDs

	if p, err := s.projections.Render(ctx, c); err != nil {
		log.Warn("render projection", zap.Error(err))
		v.ChartError = msgChartUnavailable
	} else {
		v.ChartSpec = template.JS(p.Spec) //nolint:gosec // encoding/json escapes <, > and &
	}

	aid, ok := pickAccount(rawAccount, c, sess)
	if !ok {
		return
	}
	v.Account = aid
	v.HasAccount = true
	sess.Select(cid, aid)

	if e, err := s.profiles.Resolve(ctx, aid); err != nil {
		log.Warn("resolve profile", zap.Stringer("account_id", aid), zap.Error(err))
		v.EmbedError = profileuc.FallbackHTML
	} else if !e.Found {
		v.EmbedError = e.HTML
	} else {
		v.EmbedHTML = e.HTML
	}

	if a, err := s.clusters.Account(ctx, aid, cid); err != nil {
		log.Warn("load record", zap.Stringer("account_id", aid), zap.Error(err))
		v.RecordError = msgRecordUnavailable
	} else {
		v.Record = recordView{AccountID: a.ID, ClusterID: a.ClusterID, Label: a.Label}
	}
}

// pickAccount resolves the account to show: query, then the session selection, then the first in the cluster.
func pickAccount(raw string, c domain.Cluster, sess *annotationuc.Session) (domain.AccountID, bool) {
	if raw != "" {
		if aid, err := domain.ParseAccountID(raw); err == nil && c.Contains(aid) {
			return aid, true
		}
	}
	if sel, ok := sess.Selection(); ok && sel.ClusterID == c.ID && c.Contains(sel.AccountID) {
		return sel.AccountID, true
	}
	if c.Len() > 0 {
		return c.AccountIDs[0], true
	}
	return 0, false
}

// MarkAccount handles POST /annotations.
func (s *Server) MarkAccount(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if err := r.ParseForm(); err != nil {
		sess.SetFlash("Invalid form submission.")
		redirectDashboard(w, r, "", "")
		return
	}

	account, cluster := r.PostForm.Get("account_id"), r.PostForm.Get("cluster_id")
	a, err := annotationFromInput(account, cluster, r.PostForm.Get("label"))
	if err != nil {
		logger.FromContext(r.Context()).Warn("mark account", zap.Error(err))
		sess.SetFlash("Could not mark account: " + safeDomainMessage(err) + ".")
		redirectDashboard(w, r, cluster, account)
		return
	}

	if err := s.checkStored(r.Context(), a); err != nil {
		logger.FromContext(r.Context()).Warn("mark account", zap.Error(err))
		sess.SetFlash("Could not mark account " + a.AccountID().String() + ": " + safeDomainMessage(err) + ".")
		redirectDashboard(w, r, cluster, "")
		return
	}

	sess.Upsert(a)
	sess.Select(a.ClusterID(), a.AccountID())
	redirectDashboard(w, r, a.ClusterID().String(), a.AccountID().String())
}

// RemoveAnnotation handles POST /annotations/remove.
func (s *Server) RemoveAnnotation(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	cluster := r.PostFormValue("cluster_id")

	aid, err := domain.ParseAccountID(r.PostFormValue("account_id"))
	switch {
	case err != nil:
		sess.SetFlash("Could not remove annotation: " + safeDomainMessage(err) + ".")
	case sess.Remove(aid):
		sess.SetFlash(fmt.Sprintf("Removed pending annotation for account %s.", aid))
	default:
		sess.SetFlash(fmt.Sprintf("Account %s has no pending annotation.", aid))
	}
	redirectDashboard(w, r, cluster, "")
}

// SaveAnnotations handles POST /annotations/save.
func (s *Server) SaveAnnotations(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	cluster := r.PostFormValue("cluster_id")

	n, err := sess.Flush(r.Context(), s.clusters)
	switch {
	case err != nil:
		logger.FromContext(r.Context()).Error("save annotations", zap.Int("pending", sess.Len()), zap.Error(err))
		sess.SetFlash("Saving annotations failed: " + safeDomainMessage(err) + ". Your pending annotations were kept.")
	case n == 0:
		sess.SetFlash(msgNothingToSave)
	default:
		sess.SetFlash(fmt.Sprintf("%s (%d saved)", msgSaved, n))
	}
	redirectDashboard(w, r, cluster, "")
}

// ResetAnnotations handles POST /annotations/reset.
func (s *Server) ResetAnnotations(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	sess.Reset()
	sess.SetFlash(msgReset)
	redirectDashboard(w, r, r.PostFormValue("cluster_id"), "")
}

func redirectDashboard(w http.ResponseWriter, r *http.Request, cluster, account string) {
	q := url.Values{}
	if cluster != "" {
		q.Set("cluster", cluster)
	}
	if account != "" {
		q.Set("account", account)
	}
	target := "/"
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func pendingRows(sess *annotationuc.Session) []pendingRow {
	batch := sess.Snapshot()
	rows := make([]pendingRow, len(batch))
	for i, a := range batch {
		rows[i] = pendingRow{AccountID: a.AccountID(), ClusterID: a.ClusterID(), Label: a.Label().String()}
	}
	return rows
}
