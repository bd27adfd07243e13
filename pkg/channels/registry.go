// Package channels implements the id-addressed message channels shared by
// the host surface and guest WASM modules.
//
// Each channel is a bounded FIFO of int64 values. Capacity 0 gives a
// rendezvous channel where send and receive synchronize. Channels are
// addressed by a process-unique uint64 id assigned monotonically from 0;
// ids are never reused within a process lifetime.
//
// Closing a channel stops all further sends. Values queued before close
// remain receivable in FIFO order; the receive that fails after the buffer
// has drained removes the registry entry.
package channels

import (
	"sync"

	"go.uber.org/zap"
)

// entry pairs the data channel with a close signal. The data channel is
// never closed directly: close is signalled through done so that senders
// blocked on a full or rendezvous channel fail instead of panicking.
type entry struct {
	ch     chan int64
	done   chan struct{}
	closed bool // guarded by Registry.mu
}

// Registry maps channel ids to endpoints.
//
// The registry lock is held only to look up or mutate the map; the send or
// receive itself always runs against the channel outside the lock.
type Registry struct {
	mu      sync.Mutex
	entries map[uint64]*entry
	nextID  uint64
	logger  *zap.Logger
}

// NewRegistry creates an empty channel registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		entries: make(map[uint64]*entry),
		logger:  logger,
	}
}

// Create allocates a fresh channel with the given capacity and returns its id.
// Capacity 0 creates a rendezvous channel.
func (r *Registry) Create(capacity uint32) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++

	r.entries[id] = &entry{
		ch:   make(chan int64, int(capacity)),
		done: make(chan struct{}),
	}

	r.logger.Debug("Channel created",
		zap.Uint64("channel_id", id),
		zap.Uint32("capacity", capacity),
	)

	return id
}

// Send delivers a value to the channel, blocking while the buffer is full
// (or until a receiver arrives, for rendezvous channels). It returns false
// if the id is unknown, the channel is closed, or the channel closes while
// the send is blocked.
func (r *Registry) Send(id uint64, value int64) bool {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok || e.closed {
		r.mu.Unlock()
		return false
	}
	r.mu.Unlock()

	select {
	case e.ch <- value:
		return true
	case <-e.done:
		return false
	}
}

// Receive performs a non-blocking receive. It returns (value, true) if a
// value is immediately available, and (0, false) if the id is unknown or
// the channel is empty. A failed receive on a closed channel whose buffer
// has drained removes the registry entry.
func (r *Registry) Receive(id uint64) (int64, bool) {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return 0, false
	}
	closed := e.closed
	r.mu.Unlock()

	select {
	case v := <-e.ch:
		return v, true
	default:
	}

	if closed {
		r.remove(id)
	}
	return 0, false
}

// ReceiveBlocking blocks until a value is available or the channel is
// closed with a drained buffer. On drained-close it returns (0, false) and
// removes the registry entry.
func (r *Registry) ReceiveBlocking(id uint64) (int64, bool) {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return 0, false
	}
	r.mu.Unlock()

	select {
	case v := <-e.ch:
		return v, true
	case <-e.done:
		// Closed; drain any values queued before close.
		select {
		case v := <-e.ch:
			return v, true
		default:
			r.remove(id)
			return 0, false
		}
	}
}

// Close marks the channel closed and unblocks pending senders. If the
// buffer is already empty the entry is removed outright; otherwise it is
// retained so queued values remain receivable, and removed by the receive
// that finds it drained.
func (r *Registry) Close(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return
	}
	if !e.closed {
		e.closed = true
		close(e.done)
	}
	if len(e.ch) == 0 {
		delete(r.entries, id)
	}

	r.logger.Debug("Channel closed",
		zap.Uint64("channel_id", id),
		zap.Int("queued", len(e.ch)),
	)
}

// Destroy removes the channel entry unconditionally. Operations already
// blocked on the channel keep their endpoint references and are unaffected.
func (r *Registry) Destroy(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// Len returns the number of live registry entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}
