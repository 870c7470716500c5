package outbound

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"deskwire/internal/pb"
)

// DefaultInterval is the drain period.
const DefaultInterval = time.Millisecond

// Sink receives drained messages.
type Sink interface {
	SendMessage(m *pb.Message) error
}

// Queue is a FIFO of outbound messages. Push is safe from any goroutine.
type Queue struct {
	interval time.Duration
	log      *zap.Logger

	mu      sync.Mutex
	msgs    []*pb.Message
	stopped bool
}

func New(interval time.Duration, log *zap.Logger) *Queue {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Queue{interval: interval, log: log}
}

// Push appends m. It reports false once the queue is stopped.
func (q *Queue) Push(m *pb.Message) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return false
	}
	q.msgs = append(q.msgs, m)
	return true
}

// Len returns the number of undrained messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.msgs)
}

// Run drains the queue into sink every interval until ctx is done or Stop
// is called. A send error drops the rest of that tick's batch.
func (q *Queue) Run(ctx context.Context, sink Sink) {
	t := time.NewTicker(q.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if !q.drain(sink) {
				return
			}
		}
	}
}

func (q *Queue) drain(sink Sink) bool {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return false
	}
	batch := q.msgs
	q.msgs = nil
	q.mu.Unlock()

	for i, m := range batch {
		if err := sink.SendMessage(m); err != nil {
			q.log.Debug("outbound send failed", zap.Error(err), zap.Int("dropped", len(batch)-i))
			return true
		}
	}
	return true
}

// Stop discards queued messages and ends Run at its next tick.
func (q *Queue) Stop() {
	q.mu.Lock()
	q.stopped = true
	q.msgs = nil
	q.mu.Unlock()
}
