package emitter

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/framegate/framegate/internal/domain/service"
	"github.com/framegate/framegate/pkg/safego"
)

// MaxQueuedChunks bounds the outbound queue (MAX_QUEUED_CHUNKS). A
// producer that outruns the client blocks on Send until the flusher
// drains, so slow consumers throttle the stream instead of dropping
// events or growing memory.
const MaxQueuedChunks = 128

// PingInterval is how often a keepalive ping goes out on an idle
// stream.
const PingInterval = 15 * time.Second

// Sink writes one serialized event to the transport. Implementations
// are driven by a single goroutine and need not be concurrency-safe.
type Sink interface {
	WriteEvent(event string, data []byte) error
}

type queuedEvent struct {
	event string
	data  []byte
}

// Queue is the backpressured event emitter: a bounded FIFO
// between the session controller and the transport sink, drained by
// one flusher goroutine that also owns the keepalive ticker.
type Queue struct {
	sink         Sink
	logger       *zap.Logger
	pingInterval time.Duration

	ch     chan queuedEvent
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	failedMu sync.Mutex
	failed   bool
}

var _ service.Emitter = (*Queue)(nil)

// NewQueue starts a queue over sink bounded to capacity events
// (MAX_QUEUED_CHUNKS). A non-positive capacity falls back to
// MaxQueuedChunks.
func NewQueue(sink Sink, logger *zap.Logger, capacity int) *Queue {
	if capacity <= 0 {
		capacity = MaxQueuedChunks
	}
	return newQueue(sink, logger, capacity, PingInterval)
}

func newQueue(sink Sink, logger *zap.Logger, capacity int, pingInterval time.Duration) *Queue {
	q := &Queue{
		sink:         sink,
		logger:       logger.With(zap.String("component", "emitter")),
		pingInterval: pingInterval,
		ch:           make(chan queuedEvent, capacity),
	}
	q.wg.Add(1)
	safego.Go(q.logger, "emitter-flush", q.flush)
	return q
}

// Send enqueues one event. Events are delivered in Send order. When
// the queue is full, Send blocks until the flusher makes room. Send
// after Close is a no-op.
func (q *Queue) Send(event string, data any) {
	serialized, err := json.Marshal(data)
	if err != nil {
		q.logger.Error("Event payload not serializable",
			zap.String("event", event),
			zap.Error(err),
		)
		return
	}

	// The read lock spans the channel send so Close cannot close the
	// channel underneath a blocked producer.
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return
	}
	q.ch <- queuedEvent{event: event, data: serialized}
}

// Close stops accepting events, drains everything already queued and
// waits for the flusher to finish.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	q.wg.Wait()
}

// flush drains the queue to the sink and pings when idle. A write
// failure marks the transport dead; the queue keeps draining so
// producers never block forever.
func (q *Queue) flush() {
	defer q.wg.Done()

	ticker := time.NewTicker(q.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case qe, ok := <-q.ch:
			if !ok {
				return
			}
			q.write(qe.event, qe.data)
			ticker.Reset(q.pingInterval)
		case <-ticker.C:
			q.write("ping", []byte("{}"))
		}
	}
}

func (q *Queue) write(event string, data []byte) {
	q.failedMu.Lock()
	dead := q.failed
	q.failedMu.Unlock()
	if dead {
		return
	}

	if err := q.sink.WriteEvent(event, data); err != nil {
		q.logger.Warn("Transport write failed, discarding remaining events",
			zap.String("event", event),
			zap.Error(err),
		)
		q.failedMu.Lock()
		q.failed = true
		q.failedMu.Unlock()
	}
}
