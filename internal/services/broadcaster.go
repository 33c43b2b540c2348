package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"card/internal/core"
	"card/internal/fetch"
	"card/internal/log"
	"card/internal/ui"
)

// Publisher delivers state changes to one external sink.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, msg *core.StateChanged) error
}

// FailureRecorder counts failed deliveries per publisher.
type FailureRecorder interface {
	PublishFailed(publisher string)
}

// BroadcasterConfig holds configuration for the broadcaster
type BroadcasterConfig struct {
	// QueueSize bounds changes waiting for delivery (default: 64)
	QueueSize int

	// PublishTimeout caps one delivery to one publisher (default: 5s)
	PublishTimeout time.Duration
}

// DefaultBroadcasterConfig returns sensible defaults
func DefaultBroadcasterConfig() BroadcasterConfig {
	return BroadcasterConfig{
		QueueSize:      64,
		PublishTimeout: 5 * time.Second,
	}
}

// Broadcaster forwards settled screen states to every publisher.
//
// Store subscribers run on the UI loop, so they only enqueue; delivery
// happens on the broadcaster's own goroutine. When the queue is full the
// change is dropped and counted.
type Broadcaster struct {
	summary    *ui.Store[fetch.SummaryState]
	list       *ui.Store[fetch.ListState]
	publishers []Publisher
	failures   FailureRecorder
	logger     *log.Logger
	config     BroadcasterConfig
	now        func() time.Time

	queue   chan *core.StateChanged
	dropped atomic.Int64

	// touched only from store subscribers, which all run on the UI loop
	lastSummary time.Time
	listLoading bool

	// Lifecycle management
	mu          sync.Mutex
	running     bool
	unsubscribe []func()
	stopCh      chan struct{}
	doneCh      chan struct{}
}

// NewBroadcaster creates a broadcaster. failures may be nil.
func NewBroadcaster(
	summary *ui.Store[fetch.SummaryState],
	list *ui.Store[fetch.ListState],
	publishers []Publisher,
	failures FailureRecorder,
	logger *log.Logger,
	config BroadcasterConfig,
) *Broadcaster {
	if logger == nil {
		logger = log.Discard()
	}
	defaults := DefaultBroadcasterConfig()
	if config.QueueSize <= 0 {
		config.QueueSize = defaults.QueueSize
	}
	if config.PublishTimeout <= 0 {
		config.PublishTimeout = defaults.PublishTimeout
	}
	return &Broadcaster{
		summary:    summary,
		list:       list,
		publishers: publishers,
		failures:   failures,
		logger:     logger.WithComponent(log.ComponentPublish),
		config:     config,
		now:        time.Now,
	}
}

// Start subscribes to both stores and begins delivering. Returns an error if
// already running.
func (b *Broadcaster) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return fmt.Errorf("broadcaster is already running")
	}
	b.running = true
	b.queue = make(chan *core.StateChanged, b.config.QueueSize)
	b.stopCh = make(chan struct{})
	b.doneCh = make(chan struct{})
	b.unsubscribe = []func(){
		b.summary.Subscribe(b.onSummary),
		b.list.Subscribe(b.onList),
	}

	go b.run(ctx, b.queue, b.stopCh, b.doneCh)

	b.logger.InfoContext(ctx, "Broadcaster started", "publishers", len(b.publishers))
	return nil
}

// Stop unsubscribes, delivers what is already queued and waits for
// completion or ctx.
func (b *Broadcaster) Stop(ctx context.Context) error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return nil
	}
	for _, unsub := range b.unsubscribe {
		unsub()
	}
	b.unsubscribe = nil
	b.running = false
	stopCh, doneCh := b.stopCh, b.doneCh
	b.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		b.logger.InfoContext(ctx, "Broadcaster stopped gracefully", "dropped", b.dropped.Load())
		return nil
	case <-ctx.Done():
		b.logger.WarnContext(ctx, "Broadcaster stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the broadcaster is currently running
func (b *Broadcaster) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// Dropped returns how many changes were discarded because the queue was full.
func (b *Broadcaster) Dropped() int64 {
	return b.dropped.Load()
}

// onSummary publishes once per completed summary fetch.
func (b *Broadcaster) onSummary(st fetch.SummaryState) {
	if st.FetchedAt.IsZero() || st.FetchedAt.Equal(b.lastSummary) {
		return
	}
	b.lastSummary = st.FetchedAt
	b.enqueue(core.NewSummaryChanged(core.SummaryChange{
		Display: st.Display,
		Total:   st.Total,
		OK:      st.OK,
	}, b.now()))
}

// onList publishes when a list fetch settles, successful or not.
func (b *Broadcaster) onList(st fetch.ListState) {
	wasLoading := b.listLoading
	b.listLoading = st.Loading
	if st.Loading || !wasLoading {
		return
	}
	b.enqueue(core.NewUsagesChanged(st.Usages, st.Err, b.now()))
}

func (b *Broadcaster) enqueue(msg *core.StateChanged) {
	select {
	case b.queue <- msg:
	default:
		n := b.dropped.Add(1)
		b.logger.Warn("Publish queue full, dropping state change",
			log.FieldScreen, msg.Screen,
			"dropped", n)
	}
}

func (b *Broadcaster) run(ctx context.Context, queue <-chan *core.StateChanged, stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			b.drain(ctx, queue)
			return
		case msg := <-queue:
			b.deliver(ctx, msg)
		}
	}
}

func (b *Broadcaster) drain(ctx context.Context, queue <-chan *core.StateChanged) {
	for {
		select {
		case msg := <-queue:
			b.deliver(ctx, msg)
		default:
			return
		}
	}
}

// deliver hands msg to every publisher; one failing sink does not stop the
// others.
func (b *Broadcaster) deliver(ctx context.Context, msg *core.StateChanged) {
	for _, p := range b.publishers {
		pctx, cancel := context.WithTimeout(ctx, b.config.PublishTimeout)
		err := p.Publish(pctx, msg)
		cancel()
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return
		}
		if b.failures != nil {
			b.failures.PublishFailed(p.Name())
		}
		b.logger.ErrorContext(ctx, "Failed to publish state change",
			log.FieldPublisher, p.Name(),
			log.FieldScreen, msg.Screen,
			log.FieldError, err)
	}
}
