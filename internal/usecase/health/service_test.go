package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubStore struct{ err error }

func (s stubStore) Ping(context.Context) error { return s.err }

type countingDirectory struct {
	err   error
	calls int
}

func (d *countingDirectory) HealthCheck(context.Context) error {
	d.calls++
	return d.err
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name       string
		storeErr   error
		dirErr     error
		noDir      bool
		wantStatus Status
		wantDB     CheckResult
		wantDir    CheckResult
	}{
		{name: "all up", wantStatus: Healthy, wantDB: CheckOK, wantDir: CheckOK},
		{name: "directory down", dirErr: errors.New("401"), wantStatus: Degraded, wantDB: CheckOK, wantDir: CheckError},
		{name: "store down", storeErr: errors.New("conn refused"), wantStatus: Unhealthy, wantDB: CheckError, wantDir: CheckOK},
		{
			name: "both down", storeErr: errors.New("conn refused"), dirErr: errors.New("timeout"),
			wantStatus: Unhealthy, wantDB: CheckError, wantDir: CheckError,
		},
		{name: "no directory", noDir: true, wantStatus: Healthy, wantDB: CheckOK},
		{name: "no directory, store down", noDir: true, storeErr: errors.New("x"), wantStatus: Unhealthy, wantDB: CheckError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dir DirectoryChecker
			if !tt.noDir {
				dir = &countingDirectory{err: tt.dirErr}
			}
			r := New(stubStore{err: tt.storeErr}, dir).Check(context.Background())

			if r.Status != tt.wantStatus {
				t.Errorf("status: got %q, want %q", r.Status, tt.wantStatus)
			}
			if r.Checks[ComponentDatabase] != tt.wantDB {
				t.Errorf("database: got %q, want %q", r.Checks[ComponentDatabase], tt.wantDB)
			}
			got, ok := r.Checks[ComponentDirectory]
			if tt.noDir {
				if ok {
					t.Error("directory must not be reported when not configured")
				}
				return
			}
			if got != tt.wantDir {
				t.Errorf("directory: got %q, want %q", got, tt.wantDir)
			}
		})
	}
}

func TestCheck_DirectoryResultCached(t *testing.T) {
	dir := &countingDirectory{}
	svc := New(stubStore{}, dir, WithDirectoryTTL(time.Minute))
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	svc.Check(context.Background())
	dir.err = errors.New("token revoked")
	if r := svc.Check(context.Background()); r.Status != Healthy {
		t.Errorf("cached result expected within ttl, got %q", r.Status)
	}
	if dir.calls != 1 {
		t.Fatalf("directory calls within ttl: got %d, want 1", dir.calls)
	}

	now = now.Add(time.Minute)
	if r := svc.Check(context.Background()); r.Status != Degraded {
		t.Errorf("expected degraded after ttl, got %q", r.Status)
	}
	if dir.calls != 2 {
		t.Errorf("directory calls after ttl: got %d, want 2", dir.calls)
	}
}

func TestCheck_StoreAlwaysProbed(t *testing.T) {
	store := &flippingStore{}
	svc := New(store, nil)

	svc.Check(context.Background())
	store.err = errors.New("down")
	if r := svc.Check(context.Background()); r.Status != Unhealthy {
		t.Errorf("store outage must be seen immediately, got %q", r.Status)
	}
}

type flippingStore struct{ err error }

func (s *flippingStore) Ping(context.Context) error { return s.err }
