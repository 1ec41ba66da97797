package invoicedex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	dbPostgres "github.com/kailas-cloud/invoicedex/internal/db/postgres"
	dbRedis "github.com/kailas-cloud/invoicedex/internal/db/redis"
	"github.com/kailas-cloud/invoicedex/internal/domain"
	"github.com/kailas-cloud/invoicedex/internal/domain/deadletter"
	"github.com/kailas-cloud/invoicedex/internal/domain/search/query"
	deadletterrepo "github.com/kailas-cloud/invoicedex/internal/repository/deadletter"
	invoicerepo "github.com/kailas-cloud/invoicedex/internal/repository/invoice"
	mappingrepo "github.com/kailas-cloud/invoicedex/internal/repository/mapping"
	"github.com/kailas-cloud/invoicedex/internal/repository/searchindex"
	healthuc "github.com/kailas-cloud/invoicedex/internal/usecase/health"
	indexinguc "github.com/kailas-cloud/invoicedex/internal/usecase/indexing"
	invoiceuc "github.com/kailas-cloud/invoicedex/internal/usecase/invoice"
	normalizeuc "github.com/kailas-cloud/invoicedex/internal/usecase/normalize"
	searchuc "github.com/kailas-cloud/invoicedex/internal/usecase/search"
	"go.uber.org/zap"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultKeyPrefix        = "invoicedex:"
	defaultDeadLetterTTL    = 7 * 24 * time.Hour
)

// Internal interfaces, replaced by mocks in tests.
type invoiceUseCase interface {
	BulkCreate(ctx context.Context, in invoiceuc.BulkInput) (invoiceuc.BulkResult, error)
	Reindex(ctx context.Context, pageSize int, progress func(done, total int)) (invoiceuc.ReindexResult, error)
}

type searchUseCase interface {
	Preview(p searchuc.Params) (query.Query, error)
	ExecuteCompiled(ctx context.Context, q query.Query) (searchuc.Page, error)
}

type deadLetterStore interface {
	List(ctx context.Context) ([]deadletter.Entry, error)
	Remove(ctx context.Context, invoiceID string) error
}

type indexAdmin interface {
	Rebuild(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Client is the invoicedex entry point.
type Client struct {
	closers     []func(ctx context.Context) error
	ping        pinger
	invoiceSvc  invoiceUseCase
	searchSvc   searchUseCase
	deadLetters deadLetterStore
	index       indexAdmin
	healthSvc   healthUseCase
	obs         *observer
}

// New connects to Redis (and Postgres when configured), ensures the search
// indexes exist and starts the index writer.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		keyPrefix:        defaultKeyPrefix,
		deadLetterTTL:    defaultDeadLetterTTL,
		readinessTimeout: defaultReadinessTimeout,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("invoicedex: redis address required (use WithRedis)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	store, err := dbRedis.NewStore(dbRedis.Config{Addrs: cfg.addrs, Password: cfg.password})
	if err != nil {
		return nil, fmt.Errorf("invoicedex: create redis store: %w", err)
	}
	if err := store.WaitForReady(ctx, cfg.readinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("invoicedex: redis not ready: %w", err)
	}

	c, err := wireClient(ctx, store, cfg, obs)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

func wireClient(ctx context.Context, store *dbRedis.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	c := &Client{ping: store, obs: obs}
	c.closers = append(c.closers, func(context.Context) error { store.Close(); return nil })

	searchRepo := searchindex.New(store, cfg.keyPrefix)
	if err := searchRepo.EnsureIndex(ctx); err != nil {
		return nil, fmt.Errorf("invoicedex: ensure search index: %w", err)
	}

	var invoices invoiceuc.Repository
	var specs normalizeuc.SpecReader
	var secondary healthuc.Backend
	if cfg.postgresDSN != "" {
		pg, err := dbPostgres.Open(dbPostgres.Config{DSN: cfg.postgresDSN})
		if err != nil {
			return nil, fmt.Errorf("invoicedex: %w", err)
		}
		if err := pg.WaitForReady(ctx, cfg.readinessTimeout); err != nil {
			pg.Close()
			return nil, fmt.Errorf("invoicedex: postgres not ready: %w", err)
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, fmt.Errorf("invoicedex: migrate: %w", err)
		}
		c.closers = append(c.closers, func(context.Context) error { pg.Close(); return nil })
		invoices = dbPostgres.NewInvoiceRepo(pg)
		specs = dbPostgres.NewMappingRepo(pg)
		secondary = pg
	} else {
		invRepo := invoicerepo.New(store, cfg.keyPrefix)
		mapRepo := mappingrepo.New(store, cfg.keyPrefix)
		if err := invRepo.EnsureIndex(ctx); err != nil {
			return nil, fmt.Errorf("invoicedex: ensure invoice index: %w", err)
		}
		if err := mapRepo.EnsureIndex(ctx); err != nil {
			return nil, fmt.Errorf("invoicedex: ensure mapping index: %w", err)
		}
		invoices, specs = invRepo, mapRepo
	}

	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dead := deadletterrepo.New(store, cfg.keyPrefix, cfg.deadLetterTTL)
	indexer := indexinguc.New(searchRepo, dead, logger, indexinguc.Config{
		Workers:     cfg.workers,
		QueueSize:   cfg.queueSize,
		MaxAttempts: cfg.maxAttempts,
	})
	// The indexer drains before the stores close.
	c.closers = append([]func(context.Context) error{indexer.Close}, c.closers...)

	c.invoiceSvc = invoiceuc.New(invoices, normalizeuc.New(specs), indexer)
	c.searchSvc = searchuc.New(searchRepo, cfg.defaultSize)
	c.deadLetters = dead
	c.index = searchRepo
	c.healthSvc = healthuc.New(store, secondary)
	return c, nil
}

// Close drains pending index writes and releases connections.
func (c *Client) Close(ctx context.Context) error {
	var errs []error
	for _, fn := range c.closers {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Ping checks Redis connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.ping.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Import stores and indexes every row of a CSV file. Rows are validated
// together: one bad row rejects the whole file.
func (c *Client) Import(ctx context.Context, req ImportRequest) (res ImportResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("import", start, err) }()

	mode := invoiceuc.BulkMappingFixed
	if req.UseSupplierMapping {
		mode = invoiceuc.BulkMappingSupplier
	}
	out, err := c.invoiceSvc.BulkCreate(ctx, invoiceuc.BulkInput{
		SupplierID:     req.SupplierID,
		OrganizationID: req.OrganizationID,
		Filename:       req.Filename,
		Body:           req.Body,
		Mapping:        mode,
	})
	if err != nil {
		return ImportResult{}, fmt.Errorf("import: %w", err)
	}
	return ImportResult{Count: out.Count, Indexed: out.Indexed, DeadLettered: out.DeadLettered}, nil
}

// Reindex re-projects every stored invoice into the search index.
// progress, if non-nil, is called after each page.
func (c *Client) Reindex(ctx context.Context, pageSize int, progress func(done, total int)) (res ReindexResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("reindex", start, err) }()

	out, err := c.invoiceSvc.Reindex(ctx, pageSize, progress)
	if err != nil {
		return ReindexResult{}, fmt.Errorf("reindex: %w", err)
	}
	return ReindexResult{
		Total:        out.Total,
		Indexed:      out.Indexed,
		DeadLettered: out.DeadLettered,
		Skipped:      out.Skipped,
	}, nil
}

// RebuildIndex recreates the search index definition. Run Reindex afterwards
// to refresh documents written under an older projection.
func (c *Client) RebuildIndex(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("rebuild_index", start, err) }()

	if err = c.index.Rebuild(ctx); err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}
	return nil
}

// IndexedCount returns the number of documents in the search index.
func (c *Client) IndexedCount(ctx context.Context) (int, error) {
	n, err := c.index.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("indexed count: %w", err)
	}
	return n, nil
}

// Preview compiles search parameters into their JSON query form without running it.
func (c *Client) Preview(p SearchParams) ([]byte, error) {
	q, err := c.searchSvc.Preview(p.toInternal())
	if err != nil {
		return nil, fmt.Errorf("preview: %w", err)
	}
	data, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("preview: encode: %w", err)
	}
	return data, nil
}

// Execute runs a query previously returned by Preview.
func (c *Client) Execute(ctx context.Context, compiled []byte) (page SearchPage, err error) {
	start := time.Now()
	defer func() { c.obs.observe("execute", start, err) }()

	var q query.Query
	if err = json.Unmarshal(compiled, &q); err != nil {
		return SearchPage{}, fmt.Errorf("execute: %w: %w", domain.ErrQueryExecutionFailure, err)
	}
	out, err := c.searchSvc.ExecuteCompiled(ctx, q)
	if err != nil {
		return SearchPage{}, fmt.Errorf("execute: %w", err)
	}
	hits := make([]Hit, len(out.Hits))
	for i, h := range out.Hits {
		hits[i] = hitFromDomain(h)
	}
	return SearchPage{Total: out.Total, Hits: hits}, nil
}

// DeadLetters lists invoices whose index write failed permanently.
func (c *Client) DeadLetters(ctx context.Context) ([]DeadLetter, error) {
	entries, err := c.deadLetters.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("dead letters: %w", err)
	}
	out := make([]DeadLetter, len(entries))
	for i, e := range entries {
		out[i] = deadLetterFromDomain(e)
	}
	return out, nil
}

// RemoveDeadLetter forgets a dead-letter record.
func (c *Client) RemoveDeadLetter(ctx context.Context, invoiceID string) error {
	if err := c.deadLetters.Remove(ctx, invoiceID); err != nil {
		return fmt.Errorf("remove dead letter %s: %w", invoiceID, err)
	}
	return nil
}
