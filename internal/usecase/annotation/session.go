package annotation

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/kailas-cloud/labeldesk/internal/domain"
	domann "github.com/kailas-cloud/labeldesk/internal/domain/annotation"
)

// Selection is the cluster and account currently picked in a session.
type Selection struct {
	ClusterID domain.ClusterID
	AccountID domain.AccountID
}

// Session buffers pending annotations for one browser session.
// The buffer is keyed by account id and keeps insertion order.
type Session struct {
	id string

	mu        sync.Mutex
	order     []domain.AccountID
	entries   map[domain.AccountID]domann.Annotation
	selection *Selection
	flash     string
	lastSeen  time.Time
}

func newSession(id string, now time.Time) *Session {
	return &Session{
		id:       id,
		entries:  make(map[domain.AccountID]domann.Annotation),
		lastSeen: now,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Upsert inserts an annotation or overwrites the pending one for the same account in place.
func (s *Session) Upsert(a domann.Annotation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[a.AccountID()]; !ok {
		s.order = append(s.order, a.AccountID())
	}
	s.entries[a.AccountID()] = a
}

// Remove drops the pending annotation for one account. Reports whether one existed.
func (s *Session) Remove(id domain.AccountID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return false
	}
	delete(s.entries, id)
	s.order = slices.DeleteFunc(s.order, func(x domain.AccountID) bool { return x == id })
	return true
}

// Snapshot returns a copy of the pending annotations in insertion order.
func (s *Session) Snapshot() []domann.Annotation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Len returns the number of pending annotations.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Flush commits the pending annotations. An empty buffer is a no-op.
// On error the buffer is left untouched. On success exactly the committed
// entries are removed (an entry changed during the commit survives) and the
// selection is cleared.
func (s *Session) Flush(ctx context.Context, c Committer) (int, error) {
	batch := s.Snapshot()
	if len(batch) == 0 {
		return 0, nil
	}

	if err := c.CommitLabels(ctx, batch); err != nil {
		return 0, fmt.Errorf("flush %d annotations: %w", len(batch), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range batch {
		if cur, ok := s.entries[a.AccountID()]; ok && cur == a {
			delete(s.entries, a.AccountID())
		}
	}
	kept := s.order[:0]
	for _, id := range s.order {
		if _, ok := s.entries[id]; ok {
			kept = append(kept, id)
		}
	}
	s.order = kept
	s.selection = nil
	return len(batch), nil
}

// Reset drops every pending annotation and the selection.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.entries = make(map[domain.AccountID]domann.Annotation)
	s.selection = nil
}

// Select records the cluster and account being viewed.
func (s *Session) Select(cluster domain.ClusterID, account domain.AccountID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = &Selection{ClusterID: cluster, AccountID: account}
}

// Selection returns the current selection, if any.
func (s *Session) Selection() (Selection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selection == nil {
		return Selection{}, false
	}
	return *s.selection, true
}

// SetFlash stores a one-shot notice for the next page render.
func (s *Session) SetFlash(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flash = msg
}

// TakeFlash returns and clears the pending notice.
func (s *Session) TakeFlash() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := s.flash
	s.flash = ""
	return msg
}

func (s *Session) snapshotLocked() []domann.Annotation {
	out := make([]domann.Annotation, len(s.order))
	for i, id := range s.order {
		out[i] = s.entries[id]
	}
	return out
}
