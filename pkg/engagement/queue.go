package engagement

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/releva-ai/releva-go/pkg/connectivity"
	"github.com/releva-ai/releva-go/pkg/log"
	"github.com/releva-ai/releva-go/pkg/metrics"
	"github.com/releva-ai/releva-go/pkg/storage"
	"github.com/releva-ai/releva-go/pkg/transport"
	"github.com/rs/zerolog"
)

// DefaultInterval is the period of the background flush
const DefaultInterval = 30 * time.Second

// Result describes what happened to a callback URL
type Result string

const (
	ResultEnqueued  Result = "enqueued"
	ResultDelivered Result = "delivered"
	ResultRequeued  Result = "requeued"
)

// Notification reports a change of state of one callback URL
type Notification struct {
	Result Result
	URL    string
	Err    error
}

// Option configures a Queue
type Option func(*Queue)

// WithInterval sets the background flush period
func WithInterval(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.interval = d
		}
	}
}

// WithChecker sets the connectivity check run before each flush
func WithChecker(c connectivity.Checker) Option {
	return func(q *Queue) {
		q.checker = c
	}
}

// WithNotifier registers a callback invoked for every enqueue, delivery and requeue
func WithNotifier(fn func(Notification)) Option {
	return func(q *Queue) {
		q.notify = fn
	}
}

// Queue delivers engagement callback URLs at least once. Pending URLs are
// persisted after every change and retried on each flush until a delivery
// succeeds. Delivery failures are logged and counted, never returned.
type Queue struct {
	store     storage.Store
	transport transport.Transport
	checker   connectivity.Checker
	interval  time.Duration
	notify    func(Notification)
	logger    zerolog.Logger

	mu      sync.Mutex
	pending []string

	// flushMu serializes flush passes
	flushMu sync.Mutex

	stopCh    chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// New creates a queue. Call Initialize to load persisted URLs and start the
// background flush.
func New(store storage.Store, tr transport.Transport, opts ...Option) *Queue {
	q := &Queue{
		store:     store,
		transport: tr,
		checker:   connectivity.Always{},
		interval:  DefaultInterval,
		logger:    log.WithComponent("engagement"),
		stopCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Initialize loads the persisted queue and starts the background flush
func (q *Queue) Initialize() error {
	if err := q.Load(); err != nil {
		return err
	}
	q.Start()
	return nil
}

// Load replaces the in-memory queue with the persisted one. A missing or
// corrupt persisted queue loads as empty.
func (q *Queue) Load() error {
	urls, _, err := q.store.GetStringList(storage.KeyPendingEngagementEvents)
	if err != nil {
		return fmt.Errorf("failed to load pending engagement events: %w", err)
	}

	q.mu.Lock()
	q.pending = append([]string(nil), urls...)
	n := len(q.pending)
	q.mu.Unlock()

	metrics.EngagementPending.Set(float64(n))
	if n > 0 {
		q.logger.Debug().Int("pending", n).Msg("loaded pending engagement events")
	}
	return nil
}

// Start begins the background flush loop
func (q *Queue) Start() {
	q.startOnce.Do(func() {
		q.wg.Add(1)
		go q.run()
	})
}

// Close stops the background flush and waits for a running pass to finish.
// Pending URLs stay persisted for the next Initialize. Safe to call more than once.
func (q *Queue) Close() {
	q.stopOnce.Do(func() {
		close(q.stopCh)
	})
	q.wg.Wait()
}

func (q *Queue) run() {
	defer q.wg.Done()

	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			q.Flush(context.Background())
		case <-q.stopCh:
			return
		}
	}
}

// Enqueue appends a callback URL, persists the queue and attempts a flush.
// Only a failure to persist is returned.
func (q *Queue) Enqueue(ctx context.Context, url string) error {
	q.mu.Lock()
	q.pending = append(q.pending, url)
	err := q.persistLocked()
	q.mu.Unlock()

	q.emit(Notification{Result: ResultEnqueued, URL: url})
	if err != nil {
		return err
	}

	q.Flush(ctx)
	return nil
}

// Flush attempts delivery of every pending URL. It does nothing when the
// queue is empty or the network is unavailable. The queue is cleared and
// persisted before delivery starts; each failed URL is appended back and
// persisted again.
func (q *Queue) Flush(ctx context.Context) {
	q.flushMu.Lock()
	defer q.flushMu.Unlock()

	if q.PendingCount() == 0 {
		return
	}
	if !q.checker.Available(ctx) {
		q.logger.Debug().Msg("no connectivity, keeping engagement events pending")
		return
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.EngagementFlushDuration)

	q.mu.Lock()
	batch := q.pending
	q.pending = nil
	if err := q.persistLocked(); err != nil {
		q.logger.Error().Err(err).Msg("failed to persist cleared engagement queue")
	}
	q.mu.Unlock()

	failed := 0
	for _, url := range batch {
		if err := q.deliver(ctx, url); err != nil {
			failed++
			metrics.EngagementDeliveriesTotal.WithLabelValues("failure").Inc()
			q.logger.Warn().Err(err).Str("url", url).Msg("engagement callback failed, requeued")

			q.mu.Lock()
			q.pending = append(q.pending, url)
			if perr := q.persistLocked(); perr != nil {
				q.logger.Error().Err(perr).Msg("failed to persist requeued engagement event")
			}
			q.mu.Unlock()

			q.emit(Notification{Result: ResultRequeued, URL: url, Err: err})
			continue
		}

		metrics.EngagementDeliveriesTotal.WithLabelValues("success").Inc()
		q.emit(Notification{Result: ResultDelivered, URL: url})
	}

	q.logger.Debug().
		Int("attempted", len(batch)).
		Int("failed", failed).
		Msg("engagement flush complete")
}

func (q *Queue) deliver(ctx context.Context, url string) error {
	resp, err := q.transport.Execute(ctx, transport.Request{
		Method: http.MethodGet,
		URL:    url,
	})
	if err != nil {
		return err
	}
	if !resp.Success() {
		return fmt.Errorf("callback returned status %d", resp.StatusCode)
	}
	return nil
}

// Pending returns a copy of the pending URLs in queue order
func (q *Queue) Pending() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string{}, q.pending...)
}

// PendingCount returns the number of pending URLs
func (q *Queue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Clear drops every pending URL
func (q *Queue) Clear() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending = nil
	if err := q.persistLocked(); err != nil {
		return err
	}
	q.logger.Debug().Msg("cleared pending engagement events")
	return nil
}

// persistLocked writes the queue to the store. q.mu must be held.
func (q *Queue) persistLocked() error {
	metrics.EngagementPending.Set(float64(len(q.pending)))
	if err := q.store.SetStringList(storage.KeyPendingEngagementEvents, q.pending); err != nil {
		return fmt.Errorf("failed to persist pending engagement events: %w", err)
	}
	return nil
}

func (q *Queue) emit(n Notification) {
	if q.notify != nil {
		q.notify(n)
	}
}
