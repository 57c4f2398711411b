package hub

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Temutjin2k/schoolbus-hub/internal/domain/models"
	"github.com/Temutjin2k/schoolbus-hub/pkg/metrics"
)

// Session is one authenticated live connection. It owns a bounded outbound
// queue drained by the transport's writer; room membership is owned by the Registry.
type Session struct {
	id          string
	identity    models.Identity
	connectedAt time.Time

	queue chan []byte
	done  chan struct{}

	mu      sync.Mutex // serializes enqueue and close
	closed  bool
	dropped int

	limiter *rate.Limiter

	// guarded by Registry.mu
	rooms map[RoomKey]struct{}
}

func newSession(id string, identity models.Identity, queueSize int, limiter *rate.Limiter) *Session {
	if queueSize <= 0 {
		queueSize = 1
	}

	return &Session{
		id:          id,
		identity:    identity,
		connectedAt: time.Now(),
		queue:       make(chan []byte, queueSize),
		done:        make(chan struct{}),
		limiter:     limiter,
		rooms:       make(map[RoomKey]struct{}),
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Identity() models.Identity {
	return s.identity
}

func (s *Session) ConnectedAt() time.Time {
	return s.connectedAt
}

// Messages is the outbound queue consumed by the connection writer.
func (s *Session) Messages() <-chan []byte {
	return s.queue
}

// Done is closed once the session is unregistered.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Dropped returns the number of frames discarded by the overflow policy.
func (s *Session) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Allow consumes one inbound event token.
func (s *Session) Allow() bool {
	if s.limiter == nil {
		return true
	}
	return s.limiter.Allow()
}

// send enqueues a frame without blocking. When the queue is full the oldest
// pending frame is discarded, so a stalled client never stalls a publisher and
// frames that do arrive keep their relative order.
func (s *Session) send(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	for {
		select {
		case s.queue <- frame:
			return true
		default:
		}

		select {
		case <-s.queue:
			s.dropped++
			metrics.RecordDrop()
		default:
		}
	}
}

// close marks the session finished; later sends are no-ops.
func (s *Session) close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	s.closed = true
	close(s.done)
	return true
}
