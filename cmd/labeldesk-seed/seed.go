package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/labeldesk/internal/config"
	"github.com/kailas-cloud/labeldesk/internal/domain"
	"github.com/kailas-cloud/labeldesk/internal/domain/label"
	logpkg "github.com/kailas-cloud/labeldesk/internal/logger"
	"github.com/kailas-cloud/labeldesk/internal/storage"
	"github.com/kailas-cloud/labeldesk/internal/version"
)

const seedLongDesc string = `Import clustered accounts into the configured label store.

Input is JSON Lines, one account per line:
  {"account_id": 12, "cluster_id": 3, "label": 0, "embedding": [0.1, 0.2]}

label accepts 0/1/2 or unlabeled/human/bot and defaults to unlabeled.
Existing accounts are overwritten.

Examples:
  labeldesk-seed --file accounts.jsonl
  ENV=prod labeldesk-seed --file - < accounts.jsonl
  labeldesk-seed --config ./config/local.yaml --file accounts.jsonl --batch 200`

const seedShortDesc string = "Import clustered accounts"

type seedCommander struct {
	env        string
	configPath string
	file       string
	batch      int
}

type seedRecord struct {
	AccountID json.Number     `json:"account_id"`
	ClusterID json.Number     `json:"cluster_id"`
	Label     json.RawMessage `json:"label"`
	Embedding []float32       `json:"embedding"`
}

func newSeedCmd() *cobra.Command {
	cmder := &seedCommander{}

	cmd := &cobra.Command{
		Use:     "labeldesk-seed",
		Short:   seedShortDesc,
		Long:    seedLongDesc,
		Args:    cobra.NoArgs,
		Version: version.String(),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd.InOrStdin())
		},
	}

	cmd.Flags().StringVarP(&cmder.env, "env", "e", config.GetEnv(), "Config environment (local, dev, prod)")
	cmd.Flags().StringVarP(&cmder.configPath, "config", "c", "", "Path to a config file (overrides --env)")
	cmd.Flags().StringVarP(&cmder.file, "file", "f", "", "JSONL file to import, - for stdin")
	cmd.Flags().IntVarP(&cmder.batch, "batch", "b", 500, "Accounts per write")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func (c *seedCommander) run(ctx context.Context, stdin io.Reader) error {
	if c.batch <= 0 {
		return fmt.Errorf("--batch must be positive, got %d", c.batch)
	}

	var (
		cfg config.Config
		err error
	)
	if c.configPath != "" {
		cfg, err = config.LoadFile(c.configPath)
	} else {
		cfg, err = config.Load(c.env)
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logEnv := c.env
	if logEnv != "prod" {
		logEnv = "local"
	}
	logger, err := logpkg.NewLogger(logEnv, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	in := stdin
	if c.file != "-" {
		f, err := os.Open(filepath.Clean(c.file))
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	accounts, err := parseRecords(in)
	if err != nil {
		return err
	}

	backend, err := storage.Open(ctx, cfg.Database, cfg.Storage.KeyPrefix, logger)
	if err != nil {
		return fmt.Errorf("open label store: %w", err)
	}
	defer backend.Close()

	imported := 0
	for chunk := range slices.Chunk(accounts, c.batch) {
		if err := backend.Repo.ImportAccounts(ctx, chunk); err != nil {
			return fmt.Errorf("import after %d accounts: %w", imported, err)
		}
		imported += len(chunk)
		logger.Debug("Batch imported", zap.Int("imported", imported), zap.Int("total", len(accounts)))
	}

	logger.Info("Seed complete",
		zap.Int("accounts", imported),
		zap.Int("clusters", countClusters(accounts)),
		zap.String("driver", cfg.Database.Driver),
	)
	return nil
}

// parseRecords decodes a JSON Lines stream of accounts. Embeddings within one
// cluster must share a dimension.
func parseRecords(r io.Reader) ([]domain.Account, error) {
	dec := json.NewDecoder(r)
	dims := make(map[domain.ClusterID]int)

	var accounts []domain.Account
	for n := 1; ; n++ {
		var rec seedRecord
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("record %d: %w", n, err)
		}

		a, err := rec.toAccount()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", n, err)
		}
		if d, ok := dims[a.ClusterID]; ok && d != len(a.Embedding) {
			return nil, fmt.Errorf("record %d: embedding dimension %d, cluster %s uses %d: %w",
				n, len(a.Embedding), a.ClusterID, d, domain.ErrInvalidBatch)
		}
		dims[a.ClusterID] = len(a.Embedding)
		accounts = append(accounts, a)
	}
	return accounts, nil
}

func (r seedRecord) toAccount() (domain.Account, error) {
	aid, err := domain.ParseAccountID(r.AccountID.String())
	if err != nil {
		return domain.Account{}, err
	}
	cid, err := domain.ParseClusterID(r.ClusterID.String())
	if err != nil {
		return domain.Account{}, err
	}
	l, err := label.Parse(strings.Trim(string(r.Label), `"`))
	if err != nil {
		return domain.Account{}, err
	}
	if len(r.Embedding) == 0 {
		return domain.Account{}, fmt.Errorf("account %s has no embedding: %w", aid, domain.ErrInvalidBatch)
	}
	return domain.Account{ID: aid, ClusterID: cid, Label: l, Embedding: r.Embedding}, nil
}

func countClusters(accounts []domain.Account) int {
	seen := make(map[domain.ClusterID]struct{})
	for _, a := range accounts {
		seen[a.ClusterID] = struct{}{}
	}
	return len(seen)
}
