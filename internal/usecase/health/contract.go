package health

import "context"

// DBPinger is the label store. Without it nothing can be listed or saved.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// DirectoryChecker is the profile directory. Without it only the profile pane falls back.
type DirectoryChecker interface {
	HealthCheck(ctx context.Context) error
}
