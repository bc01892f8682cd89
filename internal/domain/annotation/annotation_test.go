package annotation

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/labeldesk/internal/domain"
	"github.com/kailas-cloud/labeldesk/internal/domain/label"
)

func TestNew_Valid(t *testing.T) {
	a, err := New(42, 7, label.Bot)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.AccountID() != 42 || a.ClusterID() != 7 || a.Label() != label.Bot {
		t.Errorf("unexpected annotation: %+v", a)
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		account domain.AccountID
		cluster domain.ClusterID
		label   label.Label
	}{
		{"zero account", 0, 1, label.Bot},
		{"negative cluster", 1, -1, label.Human},
		{"unknown label", 1, 1, label.Label(5)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.account, tc.cluster, tc.label)
			if !errors.Is(err, domain.ErrInvalidAnnotation) {
				t.Errorf("expected ErrInvalidAnnotation, got %v", err)
			}
		})
	}
}
