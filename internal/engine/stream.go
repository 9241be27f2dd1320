package engine

import (
	"sync"

	"github.com/spec-kit/query-engine/internal/store"
)

// changeStream fans subscription deltas out to engine consumers as typed
// events. Slow consumers are skipped rather than allowed to stall the
// subscription loop.
type changeStream struct {
	mu          sync.Mutex
	subscribers map[int]chan store.ChangeEvent
	nextID      int
	bufferSize  int
}

func newChangeStream(bufferSize int) *changeStream {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &changeStream{
		subscribers: make(map[int]chan store.ChangeEvent),
		bufferSize:  bufferSize,
	}
}

// Subscribe registers a consumer. The cancel function must be called to
// release the channel.
func (cs *changeStream) Subscribe() (<-chan store.ChangeEvent, func()) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	id := cs.nextID
	cs.nextID++
	ch := make(chan store.ChangeEvent, cs.bufferSize)
	cs.subscribers[id] = ch

	cancel := func() {
		cs.mu.Lock()
		defer cs.mu.Unlock()
		if existing, ok := cs.subscribers[id]; ok {
			delete(cs.subscribers, id)
			close(existing)
		}
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber without blocking.
func (cs *changeStream) Publish(event store.ChangeEvent) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	for _, ch := range cs.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}
