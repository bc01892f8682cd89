package health

import (
	"context"
	"sync"
	"time"
)

// Status is the overall state reported on /health.
type Status string

const (
	// Healthy means the store and the directory both answer.
	Healthy Status = "ok"
	// Degraded means the store answers but profile embeds fall back.
	Degraded Status = "degraded"
	// Unhealthy means the label store is unreachable.
	Unhealthy Status = "error"
)

// CheckResult is the outcome of one component check.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

// Component names used as report keys.
const (
	ComponentDatabase  = "database"
	ComponentDirectory = "directory"
)

// DefaultDirectoryTTL bounds how often the directory is probed.
// Its lookups count against the API rate limit shared with profile resolution.
const DefaultDirectoryTTL = time.Minute

// Report is the result of one health check run.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Option configures the Service.
type Option func(*Service)

// WithDirectoryTTL sets how long a directory result is reused. Zero probes every time.
func WithDirectoryTTL(ttl time.Duration) Option {
	return func(s *Service) { s.dirTTL = ttl }
}

// Service checks the label store on every call and the directory at most once per TTL.
type Service struct {
	db        DBPinger
	directory DirectoryChecker
	dirTTL    time.Duration
	now       func() time.Time

	mu        sync.Mutex
	dirResult CheckResult
	dirAt     time.Time
}

// New creates a Service. directory can be nil, in which case it is not reported.
func New(db DBPinger, directory DirectoryChecker, opts ...Option) *Service {
	s := &Service{
		db:        db,
		directory: directory,
		dirTTL:    DefaultDirectoryTTL,
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Check pings the store and, when configured, the directory.
func (s *Service) Check(ctx context.Context) Report {
	checks := map[string]CheckResult{ComponentDatabase: CheckOK}
	status := Healthy

	if s.directory != nil {
		checks[ComponentDirectory] = s.checkDirectory(ctx)
		if checks[ComponentDirectory] == CheckError {
			status = Degraded
		}
	}

	if err := s.db.Ping(ctx); err != nil {
		checks[ComponentDatabase] = CheckError
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}

func (s *Service) checkDirectory(ctx context.Context) CheckResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !s.dirAt.IsZero() && now.Sub(s.dirAt) < s.dirTTL {
		return s.dirResult
	}

	s.dirResult = CheckOK
	if err := s.directory.HealthCheck(ctx); err != nil {
		s.dirResult = CheckError
	}
	s.dirAt = now
	return s.dirResult
}
