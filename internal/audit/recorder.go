package audit

import (
	"context"
	"sync"
	"time"

	"github.com/docgate/docgate/pkg/logger"
	"github.com/docgate/docgate/pkg/metrics"
)

var log = logger.Named("audit")

// Recorder queues actions and writes them to a Sink from one background
// goroutine. Record never blocks the request path: when the queue is full the
// action is dropped and counted.
type Recorder struct {
	sink    Sink
	timeout time.Duration
	queue   chan Action
	done    chan struct{}
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
}

func NewRecorder(sink Sink, buffer int) *Recorder {
	if buffer < 1 {
		buffer = 1
	}
	r := &Recorder{
		sink:    sink,
		timeout: 5 * time.Second,
		queue:   make(chan Action, buffer),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

// Record enqueues a. It reports false when a was dropped.
func (r *Recorder) Record(a Action) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.drop("recorder closed")
		return false
	}
	select {
	case r.queue <- a:
		return true
	default:
		r.drop("queue full")
		return false
	}
}

func (r *Recorder) drop(reason string) {
	metrics.AuditDropped.Inc()
	log.Warnf("dropping audit record: %s", reason)
}

func (r *Recorder) run() {
	defer close(r.done)
	for a := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		if err := r.sink.Write(ctx, a); err != nil {
			metrics.AuditDropped.Inc()
			log.Errorf("audit write failed for %s %s: %v", a.Method, a.Path, err)
		}
		cancel()
	}
}

// Close stops accepting records and waits for queued ones to be written, or
// for ctx to end.
func (r *Recorder) Close(ctx context.Context) error {
	r.once.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.queue)
		r.mu.Unlock()
	})
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
