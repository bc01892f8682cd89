package labeldesk

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/labeldesk/internal/config"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver    string // valkey, redis, postgres or sqlite
	addrs     []string
	password  string
	dsn       string
	keyPrefix string

	perplexity float64
	iterations int
	seed       uint64

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithValkey configures the client to connect to a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = config.DriverValkey
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = config.DriverRedis
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithPostgres configures the client to use a PostgreSQL database.
func WithPostgres(dsn string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = config.DriverPostgres
		c.dsn = dsn
	})
}

// WithSQLite configures the client to use a SQLite file (or ":memory:").
func WithSQLite(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = config.DriverSQLite
		c.dsn = path
	})
}

// WithKeyPrefix sets the key namespace on Redis/Valkey. Default: "labeldesk:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithProjection overrides t-SNE perplexity, iteration count and seed.
// Zero values keep the defaults (10, 1000, 0).
func WithProjection(perplexity float64, iterations int, seed uint64) Option {
	return optionFunc(func(c *clientConfig) {
		c.perplexity = perplexity
		c.iterations = iterations
		c.seed = seed
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
