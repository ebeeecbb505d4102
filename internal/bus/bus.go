// Package bus provides the bounded, blocking event bus that serializes all
// pipeline events into a single total order.
package bus

import (
	"sync"

	"github.com/rxtech-lab/argo-signals/internal/types"
	"github.com/rxtech-lab/argo-signals/pkg/errors"
)

// DefaultCapacity is the buffer size used when none is configured.
const DefaultCapacity = 256

// Publisher is the producer side of the bus. Monitors depend on this
// interface so tests can capture published events.
type Publisher interface {
	Publish(event *types.Event) error
}

// Bus is a bounded FIFO buffer shared by all producers and one consumer.
// Publish blocks when the buffer is full (events are never dropped) and
// assigns each event a strictly increasing sequence number under the bus
// lock, so consumption order is a total order over all producers.
type Bus struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond
	buf      []*types.Event
	head     int
	count    int
	capacity int
	seq      uint64
	closed   bool
}

var _ Publisher = (*Bus)(nil)

// NewBus creates a bus with the given buffer capacity. Non-positive
// capacities fall back to DefaultCapacity.
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	b := &Bus{
		buf:      make([]*types.Event, capacity),
		capacity: capacity,
	}
	b.notFull = sync.NewCond(&b.mu)
	b.notEmpty = sync.NewCond(&b.mu)

	return b
}

// Publish enqueues an event, blocking while the buffer is full. The sequence
// number is assigned at enqueue. Returns a BusClosed error once the bus has
// been closed, including for publishers blocked at close time.
func (b *Bus) Publish(event *types.Event) error {
	if event == nil {
		return errors.New(errors.ErrCodeInvalidParameter, "cannot publish nil event")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for b.count == b.capacity && !b.closed {
		b.notFull.Wait()
	}

	if b.closed {
		return errors.New(errors.ErrCodeBusClosed, "event bus is closed")
	}

	b.seq++
	event.Sequence = b.seq
	b.buf[(b.head+b.count)%b.capacity] = event
	b.count++
	b.notEmpty.Signal()

	return nil
}

// Consume dequeues the next event, blocking while the buffer is empty. After
// Close it keeps returning buffered events until the bus is drained, then
// returns a BusClosed error.
func (b *Bus) Consume() (*types.Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for b.count == 0 && !b.closed {
		b.notEmpty.Wait()
	}

	if b.count == 0 {
		return nil, errors.New(errors.ErrCodeBusClosed, "event bus is closed")
	}

	event := b.buf[b.head]
	b.buf[b.head] = nil
	b.head = (b.head + 1) % b.capacity
	b.count--
	b.notFull.Signal()

	return event, nil
}

// Close marks the bus terminal and wakes every blocked producer and the
// consumer. Idempotent.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	b.notFull.Broadcast()
	b.notEmpty.Broadcast()
}

// Len returns the number of buffered events.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.count
}
