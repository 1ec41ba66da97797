package invoicedex

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	addrs       []string
	password    string
	postgresDSN string

	keyPrefix     string
	defaultSize   int
	deadLetterTTL time.Duration

	workers     int
	queueSize   int
	maxAttempts int

	readinessTimeout time.Duration

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

// WithRedis configures the Redis instance backing the search index.
// Canonical records and mapping specs live there too unless WithPostgres is set.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedisCluster configures several seed addresses.
func WithRedisCluster(addrs []string, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = append([]string(nil), addrs...)
		c.password = password
	})
}

// WithPostgres keeps canonical records and mapping specs in Postgres.
func WithPostgres(dsn string) Option {
	return optionFunc(func(c *clientConfig) {
		c.postgresDSN = dsn
	})
}

// WithKeyPrefix namespaces every key and index name. Default: "invoicedex:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithDefaultSearchSize sets the page size used when a query names none.
func WithDefaultSearchSize(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaultSize = n
	})
}

// WithDeadLetterTTL sets how long dead-letter records are kept. Zero keeps them forever.
func WithDeadLetterTTL(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.deadLetterTTL = ttl
	})
}

// WithIndexer tunes the asynchronous index writer.
func WithIndexer(workers, queueSize, maxAttempts int) Option {
	return optionFunc(func(c *clientConfig) {
		c.workers = workers
		c.queueSize = queueSize
		c.maxAttempts = maxAttempts
	})
}

// WithReadinessTimeout bounds the initial connectivity check. Default: 10s.
func WithReadinessTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.readinessTimeout = d
	})
}

// WithLogger enables structured logging for client operations.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers client metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
