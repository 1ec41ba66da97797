package indexing

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/invoicedex/internal/domain"
	"github.com/kailas-cloud/invoicedex/internal/domain/deadletter"
	"github.com/kailas-cloud/invoicedex/internal/domain/invoice"
	"github.com/kailas-cloud/invoicedex/internal/domain/search/document"
	"github.com/kailas-cloud/invoicedex/internal/metrics"
)

// ErrClosed is returned when work is submitted after Close.
var ErrClosed = errors.New("indexer closed")

// Job is one invoice to project into the index.
type Job struct {
	InvoiceID string
	Issuer    string
	Recipient string
	Invoice   *invoice.Canonical
	Archived  bool
}

// Config tunes the worker pool and the retry policy.
type Config struct {
	Workers        int
	QueueSize      int
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	WriteTimeout   time.Duration
}

func (c *Config) applyDefaults() {
	if c.Workers <= 0 {
		c.Workers = 8
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 1024
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 100 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 5 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
}

// Result summarizes a joined batch.
type Result struct {
	Indexed      int
	DeadLettered []string
}

// Service projects canonical invoices into the search index off the request
// path. Jobs are routed to one of a fixed set of queues by invoice id, and
// each queue is served by a single worker, so writes and removals of one
// invoice run in submission order. Batches fan out through an errgroup capped
// at the worker count and are joined. Failed writes are retried with
// exponential backoff and then dead-lettered; they never surface to the caller.
type Service struct {
	docs   DocumentWriter
	dead   DeadLetterWriter
	logger *zap.Logger
	cfg    Config
	now    func() time.Time

	shards []chan task
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

type taskKind int

const (
	taskPut taskKind = iota
	taskRemove
)

type task struct {
	ctx  context.Context
	kind taskKind
	job  Job
	// done, when set, receives the outcome once the task has run.
	done chan error
}

// New creates the indexer and starts its workers. The caller owns Close.
func New(docs DocumentWriter, dead DeadLetterWriter, logger *zap.Logger, cfg Config) *Service {
	cfg.applyDefaults()
	s := &Service{
		docs:   docs,
		dead:   dead,
		logger: logger,
		cfg:    cfg,
		now:    time.Now,
		shards: make([]chan task, cfg.Workers),
	}
	depth := max(1, cfg.QueueSize/cfg.Workers)
	for i := range s.shards {
		s.shards[i] = make(chan task, depth)
		s.wg.Add(1)
		go s.worker(s.shards[i])
	}
	return s
}

// IndexOne enqueues job and returns without waiting for the write. It blocks
// while the invoice's queue is full. A job that cannot be enqueued is dead-lettered.
func (s *Service) IndexOne(ctx context.Context, job Job) {
	detached := context.WithoutCancel(ctx)
	if err := s.enqueue(ctx, task{ctx: detached, kind: taskPut, job: job}); err != nil {
		s.deadLetter(detached, job, 0, fmt.Errorf("enqueue: %w", err))
	}
}

func (s *Service) shardFor(invoiceID string) chan task {
	h := fnv.New32a()
	_, _ = h.Write([]byte(invoiceID))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

func (s *Service) enqueue(ctx context.Context, t task) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	select {
	case s.shardFor(t.job.InvoiceID) <- t:
		metrics.IndexQueueDepth.Set(float64(s.depth()))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) depth() int {
	n := 0
	for _, q := range s.shards {
		n += len(q)
	}
	return n
}

// IndexMany indexes all jobs and returns once every one has been written or
// dead-lettered.
func (s *Service) IndexMany(ctx context.Context, jobs []Job) Result {
	var (
		mu  sync.Mutex
		res Result
	)

	detached := context.WithoutCancel(ctx)
	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Workers)
	for _, job := range jobs {
		g.Go(func() error {
			done := make(chan error, 1)
			var err error
			if err = s.enqueue(detached, task{ctx: detached, kind: taskPut, job: job, done: done}); err != nil {
				s.deadLetter(detached, job, 0, fmt.Errorf("enqueue: %w", err))
			} else {
				err = <-done
			}
			mu.Lock()
			if err == nil {
				res.Indexed++
			} else {
				res.DeadLettered = append(res.DeadLettered, job.InvoiceID)
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return res
}

// Remove deletes the index document of an invoice once every job queued
// before it for the same invoice has run.
func (s *Service) Remove(ctx context.Context, invoiceID string) error {
	done := make(chan error, 1)
	t := task{ctx: context.WithoutCancel(ctx), kind: taskRemove, job: Job{InvoiceID: invoiceID}, done: done}
	if err := s.enqueue(ctx, t); err != nil {
		return fmt.Errorf("%w: delete %s: %w", domain.ErrIndexingFailure, invoiceID, err)
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%w: delete %s: %w", domain.ErrIndexingFailure, invoiceID, ctx.Err())
	}
}

// Close stops accepting jobs and waits for queued ones to finish or ctx to end.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		for _, q := range s.shards {
			close(q)
		}
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain index queue: %w", ctx.Err())
	}
}

func (s *Service) worker(queue <-chan task) {
	defer s.wg.Done()
	for t := range queue {
		metrics.IndexQueueDepth.Set(float64(s.depth()))
		var err error
		switch t.kind {
		case taskRemove:
			err = s.remove(t.ctx, t.job.InvoiceID)
		default:
			err = s.process(t.ctx, t.job)
		}
		if t.done != nil {
			t.done <- err
		}
	}
}

func (s *Service) remove(ctx context.Context, invoiceID string) error {
	wctx, cancel := context.WithTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()
	if err := s.docs.Delete(wctx, invoiceID); err != nil {
		return fmt.Errorf("%w: delete %s: %w", domain.ErrIndexingFailure, invoiceID, err)
	}
	return nil
}

// process builds and writes one document. A non-nil error means the job was
// dead-lettered.
func (s *Service) process(ctx context.Context, job Job) error {
	start := s.now()
	defer func() { metrics.IndexWriteDuration.Observe(time.Since(start).Seconds()) }()

	if job.Invoice == nil {
		err := errors.New("no canonical invoice")
		s.deadLetter(ctx, job, 0, err)
		return err
	}
	doc, err := document.Build(job.Invoice, job.Issuer, job.Recipient, job.InvoiceID, job.Archived)
	if err != nil {
		err = fmt.Errorf("build document: %w", err)
		s.deadLetter(ctx, job, 0, err)
		return err
	}

	attempts := 0
	op := func() error {
		attempts++
		wctx, cancel := context.WithTimeout(ctx, s.cfg.WriteTimeout)
		defer cancel()
		return s.docs.Put(wctx, doc)
	}
	notify := func(err error, wait time.Duration) {
		metrics.IndexRetriesTotal.Inc()
		s.logger.Warn("Index write failed, retrying",
			zap.String("invoice_id", job.InvoiceID),
			zap.Int("attempts", attempts),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
	}

	if err := backoff.RetryNotify(op, s.backoff(ctx), notify); err != nil {
		s.deadLetter(ctx, job, attempts, err)
		return err
	}

	metrics.IndexWritesTotal.WithLabelValues("ok").Inc()
	return nil
}

func (s *Service) backoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.InitialBackoff
	b.MaxInterval = s.cfg.MaxBackoff
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.cfg.MaxAttempts-1)), ctx)
}

func (s *Service) deadLetter(ctx context.Context, job Job, attempts int, cause error) {
	metrics.IndexWritesTotal.WithLabelValues("dead_letter").Inc()
	metrics.IndexDeadLettersTotal.Inc()

	err := fmt.Errorf("%w: %w", domain.ErrIndexingFailure, cause)
	s.logger.Error("Invoice dead-lettered",
		zap.String("invoice_id", job.InvoiceID),
		zap.Int("attempts", attempts),
		zap.Error(err),
	)

	entry := deadletter.Entry{
		InvoiceID: job.InvoiceID,
		Issuer:    job.Issuer,
		Recipient: job.Recipient,
		Attempts:  attempts,
		LastError: err.Error(),
		FailedAt:  s.now().UTC(),
	}
	if werr := s.dead.Put(ctx, entry); werr != nil {
		s.logger.Error("Dead letter write failed",
			zap.String("invoice_id", job.InvoiceID),
			zap.Error(werr),
		)
	}
}
