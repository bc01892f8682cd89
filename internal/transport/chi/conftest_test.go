package chi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kailas-cloud/labeldesk/internal/domain"
	domann "github.com/kailas-cloud/labeldesk/internal/domain/annotation"
	"github.com/kailas-cloud/labeldesk/internal/domain/label"
	"github.com/kailas-cloud/labeldesk/internal/tsne"
	annotationuc "github.com/kailas-cloud/labeldesk/internal/usecase/annotation"
	clusteruc "github.com/kailas-cloud/labeldesk/internal/usecase/cluster"
	healthuc "github.com/kailas-cloud/labeldesk/internal/usecase/health"
	profileuc "github.com/kailas-cloud/labeldesk/internal/usecase/profile"
	projectionuc "github.com/kailas-cloud/labeldesk/internal/usecase/projection"
)

// --- Mocks ---

type fakeGateway struct {
	mu        sync.Mutex
	accounts  []domain.Account
	committed [][]domann.Annotation
	listErr   error
	getErr    error
	userErr   error
	commitErr error
}

func (f *fakeGateway) ListUnlabeledClusters(_ context.Context) ([]domain.ClusterID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var ids []domain.ClusterID
	for _, a := range f.accounts {
		if a.Label == label.Unlabeled && !slices.Contains(ids, a.ClusterID) {
			ids = append(ids, a.ClusterID)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (f *fakeGateway) GetCluster(_ context.Context, id domain.ClusterID) (domain.Cluster, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return domain.Cluster{}, f.getErr
	}
	c := domain.Cluster{ID: id}
	for _, a := range f.accounts {
		if a.ClusterID == id {
			c.AccountIDs = append(c.AccountIDs, a.ID)
			c.Embeddings = append(c.Embeddings, a.Embedding)
		}
	}
	if c.Len() == 0 {
		return domain.Cluster{}, domain.ErrClusterNotFound
	}
	return c, nil
}

func (f *fakeGateway) GetUser(_ context.Context, aid domain.AccountID, cid domain.ClusterID) (domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.userErr != nil {
		return domain.Account{}, f.userErr
	}
	for _, a := range f.accounts {
		if a.ID == aid && a.ClusterID == cid {
			return a, nil
		}
	}
	return domain.Account{}, domain.ErrAccountNotFound
}

func (f *fakeGateway) CommitLabels(_ context.Context, batch []domann.Annotation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commitErr != nil {
		return f.commitErr
	}
	f.committed = append(f.committed, batch)
	for _, an := range batch {
		for i := range f.accounts {
			if f.accounts[i].ID == an.AccountID() && f.accounts[i].ClusterID == an.ClusterID() {
				f.accounts[i].Label = an.Label()
			}
		}
	}
	return nil
}

type fakeDirectory struct {
	handles map[domain.AccountID]string
	err     error
}

func (f *fakeDirectory) LookupHandle(_ context.Context, id domain.AccountID) (string, bool, error) {
	if f.err != nil {
		return "", false, f.err
	}
	h, ok := f.handles[id]
	return h, ok, nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) FetchEmbed(_ context.Context, handle string) (string, error) {
	return `<blockquote class="twitter-tweet">@` + handle + `</blockquote>`, nil
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(_ context.Context) error { return f.err }

// lineEmbedder places points on a line so router tests stay fast.
func lineEmbedder(_ context.Context, data [][]float32, _ tsne.Config) ([][2]float64, error) {
	out := make([][2]float64, len(data))
	for i := range data {
		out[i] = [2]float64{float64(i), float64(-i)}
	}
	return out, nil
}

// --- Fixtures ---

type testEnv struct {
	gw       *fakeGateway
	dir      *fakeDirectory
	sessions *annotationuc.Registry
	server   *Server
	handler  http.Handler
}

func seedAccounts() []domain.Account {
	return []domain.Account{
		{ID: 101, ClusterID: 3, Label: label.Unlabeled, Embedding: []float32{0, 1}},
		{ID: 102, ClusterID: 3, Label: label.Unlabeled, Embedding: []float32{1, 0}},
		{ID: 201, ClusterID: 5, Label: label.Unlabeled, Embedding: []float32{1, 1}},
		{ID: 301, ClusterID: 9, Label: label.Bot, Embedding: []float32{2, 2}},
	}
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	gw := &fakeGateway{accounts: seedAccounts()}
	dir := &fakeDirectory{handles: map[domain.AccountID]string{101: "alice", 201: "carol"}}
	sessions := annotationuc.NewRegistry(time.Hour, nil)

	srv := NewServer(
		clusteruc.New(gw, nil),
		projectionuc.New(projectionuc.DefaultConfig(), projectionuc.EmbedderFunc(lineEmbedder), nil),
		profileuc.New(dir, fakeEmbedder{}, nil),
		sessions,
		healthuc.New(fakePinger{}, nil),
		opts,
	)
	r := chi.NewRouter()
	srv.Routes(r)
	return &testEnv{gw: gw, dir: dir, sessions: sessions, server: srv, handler: r}
}

// do sends a request, replaying the session cookie when one is given.
func (e *testEnv) do(req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == "labeldesk_session" {
			return c
		}
	}
	t.Fatal("no session cookie issued")
	return nil
}
