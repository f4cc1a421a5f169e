package history

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/echonet-sensehat/internal/echonet"
)

const (
	defaultQueueSize     = 256
	defaultPruneInterval = 24 * time.Hour
	writeTimeout         = 5 * time.Second
)

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// RecorderConfig configures a Recorder.
type RecorderConfig struct {
	// Retention is how long rows are kept. Zero disables pruning.
	Retention time.Duration

	// PruneInterval defaults to 24h.
	PruneInterval time.Duration

	// QueueSize defaults to 256.
	QueueSize int

	Logger Logger
}

// RecorderStats reports queue activity.
type RecorderStats struct {
	Recorded int64
	Dropped  int64
	Failed   int64
	Pruned   int64
}

// Recorder writes events to a Store from a single background goroutine.
//
// OnRequest and RecordReading never block: when the queue is full the
// event is dropped and counted.
type Recorder struct {
	store         Store
	queue         chan Event
	retention     time.Duration
	pruneInterval time.Duration
	logger        Logger

	// closed guards queue against sends after Stop.
	closed  bool
	queueMu sync.RWMutex

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	recorded atomic.Int64
	dropped  atomic.Int64
	failed   atomic.Int64
	pruned   atomic.Int64
}

// NewRecorder creates a Recorder. Call Start to begin writing.
func NewRecorder(store Store, cfg RecorderConfig) *Recorder {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.PruneInterval <= 0 {
		cfg.PruneInterval = defaultPruneInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = noopLogger{}
	}
	return &Recorder{
		store:         store,
		queue:         make(chan Event, cfg.QueueSize),
		retention:     cfg.Retention,
		pruneInterval: cfg.PruneInterval,
		logger:        cfg.Logger,
		done:          make(chan struct{}),
	}
}

// Start launches the writer and, when retention is set, the prune loop.
// Cancelling ctx ends pruning only; the writer keeps accepting events until
// Stop, so writes made while the node shuts down are still recorded.
func (r *Recorder) Start(ctx context.Context) {
	r.wg.Add(1)
	go r.writeLoop()

	if r.retention > 0 {
		r.wg.Add(1)
		go r.pruneLoop(ctx)
	}
}

// Stop drains the queue and waits for both loops. Safe to call twice.
func (r *Recorder) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)

		r.queueMu.Lock()
		r.closed = true
		close(r.queue)
		r.queueMu.Unlock()

		r.wg.Wait()
	})
}

// OnRequest records write requests. Reads are left to the sampler.
// Its signature matches echonet.Node.SetOnRequest.
func (r *Recorder) OnRequest(ev echonet.RequestEvent) {
	if !ev.ESV.IsWrite() {
		return
	}
	if err := r.Enqueue(FromRequest(ev)); err != nil {
		r.logger.Debug("property event not recorded", "object", ev.Object.String(), "error", err)
	}
}

// RecordReading records a sampler reading of prop from object.
func (r *Recorder) RecordReading(object echonet.ObjectCode, prop echonet.Property, at time.Time) {
	err := r.Enqueue(Event{
		Object:    object,
		ESV:       echonet.ESVReadRequest,
		EPC:       prop.Code,
		EDT:       prop.Data,
		Accepted:  true,
		Source:    SourceSampler,
		CreatedAt: at,
	})
	if err != nil {
		r.logger.Debug("sensor reading not recorded", "object", object.String(), "error", err)
	}
}

// Enqueue adds ev to the write queue without blocking.
func (r *Recorder) Enqueue(ev Event) error {
	r.queueMu.RLock()
	defer r.queueMu.RUnlock()

	if r.closed {
		return ErrRecorderStopped
	}

	select {
	case r.queue <- ev:
		return nil
	default:
		r.dropped.Add(1)
		return ErrQueueFull
	}
}

// Stats returns the recorder counters.
func (r *Recorder) Stats() RecorderStats {
	return RecorderStats{
		Recorded: r.recorded.Load(),
		Dropped:  r.dropped.Load(),
		Failed:   r.failed.Load(),
		Pruned:   r.pruned.Load(),
	}
}

func (r *Recorder) writeLoop() {
	defer r.wg.Done()

	for ev := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := r.store.Record(ctx, ev)
		cancel()

		if err != nil {
			r.failed.Add(1)
			r.logger.Warn("failed to record property event", "object", ev.Object.String(), "error", err)
			continue
		}
		r.recorded.Add(1)
	}
}

func (r *Recorder) pruneLoop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.pruneInterval)
	defer ticker.Stop()

	r.prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		case <-ticker.C:
			r.prune(ctx)
		}
	}
}

// PruneNow deletes rows older than the retention window.
func (r *Recorder) PruneNow(ctx context.Context) (int64, error) {
	if r.retention <= 0 {
		return 0, nil
	}
	n, err := r.store.Prune(ctx, time.Now().Add(-r.retention))
	if err != nil {
		return 0, err
	}
	r.pruned.Add(n)
	return n, nil
}

func (r *Recorder) prune(ctx context.Context) {
	n, err := r.PruneNow(ctx)
	if err != nil {
		r.logger.Warn("history prune failed", "error", err)
		return
	}
	if n > 0 {
		r.logger.Info("history pruned", "rows", n, "retention", r.retention.String())
	}
}
