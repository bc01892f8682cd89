package account

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/kailas-cloud/labeldesk/internal/db"
	"github.com/kailas-cloud/labeldesk/internal/domain"
	"github.com/kailas-cloud/labeldesk/internal/domain/annotation"
	"github.com/kailas-cloud/labeldesk/internal/domain/label"
)

// batchSize bounds the number of commands per pipelined round-trip.
const batchSize = 500

// store is the consumer interface for accounts (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	HGetMulti(ctx context.Context, keys []string, field string) ([]string, error)
	ExistsMulti(ctx context.Context, keys []string) ([]bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements usecase/cluster.Gateway on Redis/Valkey hashes.
type Repo struct {
	store  store
	prefix string
}

// New creates an account repository. An empty prefix falls back to domain.KeyPrefix.
func New(s store, prefix string) *Repo {
	if prefix == "" {
		prefix = domain.KeyPrefix
	}
	return &Repo{store: s, prefix: prefix}
}

// ListUnlabeledClusters returns, ascending, every cluster with at least one unlabeled account.
func (r *Repo) ListUnlabeledClusters(ctx context.Context) ([]domain.ClusterID, error) {
	keys, err := r.store.Scan(ctx, r.prefix+"account:*")
	if err != nil {
		return nil, fmt.Errorf("scan accounts: %w", err)
	}

	seen := make(map[domain.ClusterID]struct{})
	for chunk := range slices.Chunk(keys, batchSize) {
		labels, err := r.store.HGetMulti(ctx, chunk, fieldLabel)
		if err != nil {
			return nil, fmt.Errorf("read labels: %w", err)
		}
		for i, raw := range labels {
			cid, ok := r.clusterFromKey(chunk[i])
			if !ok {
				continue
			}
			if l, err := label.Parse(raw); err == nil && l == label.Unlabeled {
				seen[cid] = struct{}{}
			}
		}
	}

	out := make([]domain.ClusterID, 0, len(seen))
	for cid := range seen {
		out = append(out, cid)
	}
	slices.Sort(out)
	return out, nil
}

// GetCluster loads every account of a cluster, ordered by account id.
func (r *Repo) GetCluster(ctx context.Context, id domain.ClusterID) (domain.Cluster, error) {
	keys, err := r.store.Scan(ctx, r.clusterPattern(id))
	if err != nil {
		return domain.Cluster{}, fmt.Errorf("scan cluster %s: %w", id, err)
	}
	if len(keys) == 0 {
		return domain.Cluster{}, fmt.Errorf("cluster %s: %w", id, domain.ErrClusterNotFound)
	}

	accounts := make([]domain.Account, 0, len(keys))
	for chunk := range slices.Chunk(keys, batchSize) {
		hashes, err := r.store.HGetAllMulti(ctx, chunk)
		if err != nil {
			return domain.Cluster{}, fmt.Errorf("read cluster %s: %w", id, err)
		}
		for i, m := range hashes {
			// deleted between SCAN and HGETALL
			if len(m) == 0 {
				continue
			}
			a, err := parseHashFields(m)
			if err != nil {
				return domain.Cluster{}, fmt.Errorf("parse %s: %w", chunk[i], err)
			}
			accounts = append(accounts, a)
		}
	}
	if len(accounts) == 0 {
		return domain.Cluster{}, fmt.Errorf("cluster %s: %w", id, domain.ErrClusterNotFound)
	}

	slices.SortFunc(accounts, func(a, b domain.Account) int {
		return cmp.Compare(a.ID, b.ID)
	})

	c := domain.Cluster{
		ID:         id,
		AccountIDs: make([]domain.AccountID, len(accounts)),
		Embeddings: make([][]float32, len(accounts)),
	}
	for i, a := range accounts {
		c.AccountIDs[i] = a.ID
		c.Embeddings[i] = a.Embedding
	}
	return c, nil
}

// GetUser returns the stored record of one account in one cluster.
func (r *Repo) GetUser(ctx context.Context, accountID domain.AccountID, clusterID domain.ClusterID) (domain.Account, error) {
	key := r.accountKey(clusterID, accountID)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.Account{}, fmt.Errorf("account %s in cluster %s: %w", accountID, clusterID, domain.ErrAccountNotFound)
		}
		return domain.Account{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	a, err := parseHashFields(m)
	if err != nil {
		return domain.Account{}, fmt.Errorf("parse %s: %w", key, err)
	}
	return a, nil
}

// CommitLabels writes the label of every annotation. All keys are checked for
// existence first so a missing account aborts the batch before any write.
// The pipelined HSET itself is not atomic across keys.
func (r *Repo) CommitLabels(ctx context.Context, batch []annotation.Annotation) error {
	if len(batch) == 0 {
		return nil
	}

	keys := make([]string, len(batch))
	for i, a := range batch {
		keys[i] = r.accountKey(a.ClusterID(), a.AccountID())
	}

	exists, err := r.store.ExistsMulti(ctx, keys)
	if err != nil {
		return fmt.Errorf("check accounts: %w: %w", domain.ErrPersistence, err)
	}
	for i, ok := range exists {
		if !ok {
			a := batch[i]
			return fmt.Errorf("account %s in cluster %s: %w", a.AccountID(), a.ClusterID(), domain.ErrAccountNotFound)
		}
	}

	items := make([]db.HashSetItem, len(batch))
	for i, a := range batch {
		items[i] = db.HashSetItem{
			Key:    keys[i],
			Fields: map[string]string{fieldLabel: labelCode(a.Label())},
		}
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("write labels: %w: %w", domain.ErrPersistence, err)
	}
	return nil
}

// ImportAccounts upserts full account records.
func (r *Repo) ImportAccounts(ctx context.Context, accounts []domain.Account) error {
	for chunk := range slices.Chunk(accounts, batchSize) {
		items := make([]db.HashSetItem, len(chunk))
		for i, a := range chunk {
			items[i] = db.HashSetItem{
				Key:    r.accountKey(a.ClusterID, a.ID),
				Fields: buildHashFields(a),
			}
		}
		if err := r.store.HSetMulti(ctx, items); err != nil {
			return fmt.Errorf("import accounts: %w: %w", domain.ErrPersistence, err)
		}
	}
	return nil
}

func (r *Repo) accountKey(cid domain.ClusterID, id domain.AccountID) string {
	return r.prefix + "account:" + cid.String() + ":" + id.String()
}

func (r *Repo) clusterPattern(cid domain.ClusterID) string {
	return r.prefix + "account:" + cid.String() + ":*"
}

// clusterFromKey extracts the cluster id from "<prefix>account:{cluster}:{id}".
func (r *Repo) clusterFromKey(key string) (domain.ClusterID, bool) {
	rest, ok := strings.CutPrefix(key, r.prefix+"account:")
	if !ok {
		return 0, false
	}
	cidStr, _, ok := strings.Cut(rest, ":")
	if !ok {
		return 0, false
	}
	cid, err := domain.ParseClusterID(cidStr)
	if err != nil {
		return 0, false
	}
	return cid, true
}
