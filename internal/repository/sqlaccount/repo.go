// Package sqlaccount implements the label store on PostgreSQL or SQLite.
package sqlaccount

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kailas-cloud/labeldesk/internal/db/sqldb"
	"github.com/kailas-cloud/labeldesk/internal/domain"
	"github.com/kailas-cloud/labeldesk/internal/domain/annotation"
	"github.com/kailas-cloud/labeldesk/internal/domain/label"
)

// Repo implements usecase/cluster.Gateway on the accounts table.
type Repo struct {
	db *sqldb.DB
}

// New creates an SQL account repository.
func New(d *sqldb.DB) *Repo {
	return &Repo{db: d}
}

// ListUnlabeledClusters returns, ascending, every cluster with at least one unlabeled account.
func (r *Repo) ListUnlabeledClusters(ctx context.Context) ([]domain.ClusterID, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(
		`SELECT DISTINCT cluster_id FROM accounts WHERE label = ? ORDER BY cluster_id`),
		int(label.Unlabeled))
	if err != nil {
		return nil, fmt.Errorf("query unlabeled clusters: %w", err)
	}
	defer rows.Close()

	var out []domain.ClusterID
	for rows.Next() {
		var cid int64
		if err := rows.Scan(&cid); err != nil {
			return nil, fmt.Errorf("scan cluster id: %w", err)
		}
		out = append(out, domain.ClusterID(cid))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clusters: %w", err)
	}
	return out, nil
}

// GetCluster loads every account of a cluster, ordered by account id.
func (r *Repo) GetCluster(ctx context.Context, id domain.ClusterID) (domain.Cluster, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(
		`SELECT account_id, embedding FROM accounts WHERE cluster_id = ? ORDER BY account_id`),
		int64(id))
	if err != nil {
		return domain.Cluster{}, fmt.Errorf("query cluster %s: %w", id, err)
	}
	defer rows.Close()

	c := domain.Cluster{ID: id}
	for rows.Next() {
		var (
			aid  int64
			blob []byte
		)
		if err := rows.Scan(&aid, &blob); err != nil {
			return domain.Cluster{}, fmt.Errorf("scan account: %w", err)
		}
		vec, ok := decodeVector(blob)
		if !ok {
			return domain.Cluster{}, fmt.Errorf("account %d: corrupt embedding of %d bytes", aid, len(blob))
		}
		c.AccountIDs = append(c.AccountIDs, domain.AccountID(aid))
		c.Embeddings = append(c.Embeddings, vec)
	}
	if err := rows.Err(); err != nil {
		return domain.Cluster{}, fmt.Errorf("iterate cluster %s: %w", id, err)
	}
	if c.Len() == 0 {
		return domain.Cluster{}, fmt.Errorf("cluster %s: %w", id, domain.ErrClusterNotFound)
	}
	return c, nil
}

// GetUser returns the stored record of one account in one cluster.
func (r *Repo) GetUser(ctx context.Context, accountID domain.AccountID, clusterID domain.ClusterID) (domain.Account, error) {
	var (
		code int
		blob []byte
	)
	err := r.db.QueryRowContext(ctx, r.db.Rebind(
		`SELECT label, embedding FROM accounts WHERE account_id = ? AND cluster_id = ?`),
		int64(accountID), int64(clusterID)).Scan(&code, &blob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, fmt.Errorf("account %s in cluster %s: %w", accountID, clusterID, domain.ErrAccountNotFound)
		}
		return domain.Account{}, fmt.Errorf("query account %s: %w", accountID, err)
	}

	l := label.Label(code)
	if !l.IsValid() {
		return domain.Account{}, fmt.Errorf("account %s: stored label %d is invalid", accountID, code)
	}
	vec, ok := decodeVector(blob)
	if !ok {
		return domain.Account{}, fmt.Errorf("account %s: corrupt embedding of %d bytes", accountID, len(blob))
	}
	return domain.Account{ID: accountID, ClusterID: clusterID, Label: l, Embedding: vec}, nil
}

// CommitLabels updates every label in one transaction. A missing account rolls back the batch.
func (r *Repo) CommitLabels(ctx context.Context, batch []annotation.Annotation) error {
	if len(batch) == 0 {
		return nil
	}

	return r.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, r.db.Rebind(
			`UPDATE accounts SET label = ? WHERE account_id = ? AND cluster_id = ?`))
		if err != nil {
			return fmt.Errorf("prepare update: %w", err)
		}
		defer stmt.Close()

		for _, a := range batch {
			res, err := stmt.ExecContext(ctx, int(a.Label()), int64(a.AccountID()), int64(a.ClusterID()))
			if err != nil {
				return fmt.Errorf("update account %s: %w: %w", a.AccountID(), domain.ErrPersistence, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w: %w", domain.ErrPersistence, err)
			}
			if n == 0 {
				return fmt.Errorf("account %s in cluster %s: %w", a.AccountID(), a.ClusterID(), domain.ErrAccountNotFound)
			}
		}
		return nil
	})
}

// ImportAccounts upserts full account records in one transaction.
func (r *Repo) ImportAccounts(ctx context.Context, accounts []domain.Account) error {
	if len(accounts) == 0 {
		return nil
	}

	return r.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, r.db.Rebind(
			`INSERT INTO accounts (account_id, cluster_id, label, embedding) VALUES (?, ?, ?, ?)
			ON CONFLICT (account_id, cluster_id) DO UPDATE SET label = excluded.label, embedding = excluded.embedding`))
		if err != nil {
			return fmt.Errorf("prepare import: %w", err)
		}
		defer stmt.Close()

		for _, a := range accounts {
			_, err := stmt.ExecContext(ctx, int64(a.ID), int64(a.ClusterID), int(a.Label), encodeVector(a.Embedding))
			if err != nil {
				return fmt.Errorf("import account %s: %w: %w", a.ID, domain.ErrPersistence, err)
			}
		}
		return nil
	})
}

func (r *Repo) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w: %w", domain.ErrPersistence, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w: %w", domain.ErrPersistence, err)
	}
	return nil
}
