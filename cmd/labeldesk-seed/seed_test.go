package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kailas-cloud/labeldesk/internal/domain"
	"github.com/kailas-cloud/labeldesk/internal/domain/label"
)

func TestParseRecords(t *testing.T) {
	in := `{"account_id": 1234567890123456789, "cluster_id": 3, "label": 0, "embedding": [0.5, 1]}
{"account_id": "42", "cluster_id": 3, "label": "bot", "embedding": [2, 3]}

{"account_id": 7, "cluster_id": 4, "embedding": [1, 2, 3]}
`
	got, err := parseRecords(strings.NewReader(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("records: got %d, want 3", len(got))
	}
	if got[0].ID != 1234567890123456789 {
		t.Errorf("large id lost precision: %d", got[0].ID)
	}
	if got[1].ID != 42 || got[1].Label != label.Bot {
		t.Errorf("unexpected second record: %+v", got[1])
	}
	if got[2].Label != label.Unlabeled || len(got[2].Embedding) != 3 {
		t.Errorf("unexpected third record: %+v", got[2])
	}
}

func TestParseRecords_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"zero account id", `{"account_id": 0, "cluster_id": 1, "embedding": [1]}`, domain.ErrInvalidID},
		{"negative cluster", `{"account_id": 1, "cluster_id": -1, "embedding": [1]}`, domain.ErrInvalidID},
		{"missing embedding", `{"account_id": 1, "cluster_id": 1}`, domain.ErrInvalidBatch},
		{
			"ragged cluster",
			`{"account_id": 1, "cluster_id": 1, "embedding": [1, 2]}
{"account_id": 2, "cluster_id": 1, "embedding": [1]}`,
			domain.ErrInvalidBatch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseRecords(strings.NewReader(tt.in))
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := parseRecords(strings.NewReader(`{"account_id": 1, "cluster_id": 1, "label": "maybe", "embedding": [1]}`)); err == nil {
		t.Error("expected error for unknown label")
	}
	if _, err := parseRecords(strings.NewReader(`{"account_id": `)); err == nil {
		t.Error("expected error for truncated input")
	}
}

func TestSeedCommand_SQLite(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "seed.yaml")
	dbPath := filepath.Join(dir, "labels.db")
	cfgYAML := "http:\n  port: 8080\ndatabase:\n  driver: sqlite\n  dsn: \"" + dbPath + "\"\n"
	if err := os.WriteFile(cfgPath, []byte(cfgYAML), 0o600); err != nil {
		t.Fatal(err)
	}

	cmd := newSeedCmd()
	cmd.SetIn(strings.NewReader(`{"account_id": 5, "cluster_id": 2, "embedding": [1, 2]}
{"account_id": 6, "cluster_id": 2, "embedding": [2, 1]}`))
	cmd.SetArgs([]string{"--config", cfgPath, "--env", "local", "--file", "-", "--batch", "1"})

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database not created: %v", err)
	}
}

func TestSeedCommand_RequiresFile(t *testing.T) {
	cmd := newSeedCmd()
	cmd.SetArgs([]string{"--env", "local"})
	cmd.SetOut(&strings.Builder{})
	cmd.SetErr(&strings.Builder{})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error without --file")
	}
}
