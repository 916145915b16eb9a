package server

import (
	stdsync "sync"

	"github.com/spinshelf/spinshelf/internal/loggy"
	"github.com/spinshelf/spinshelf/internal/sync"
)

// subscriberBuffer bounds how far a slow consumer may lag before events
// are dropped for it. Ordering is never violated; a lagging subscriber
// loses intermediate snapshots, not their order.
const subscriberBuffer = 256

// hub fans progress events out to every connected event-stream client
type hub struct {
	mu     stdsync.Mutex
	subs   map[chan sync.Progress]struct{}
	logger *loggy.Logger
}

func newHub(logger *loggy.Logger) *hub {
	return &hub{
		subs:   make(map[chan sync.Progress]struct{}),
		logger: logger,
	}
}

// subscribe registers a new consumer and returns its event channel
func (h *hub) subscribe() chan sync.Progress {
	ch := make(chan sync.Progress, subscriberBuffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	return ch
}

// unsubscribe removes a consumer. Its channel is not closed; the consumer
// simply stops receiving.
func (h *hub) unsubscribe(ch chan sync.Progress) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
}

// broadcast delivers one progress snapshot to every subscriber. Delivery
// never blocks the sync run.
func (h *hub) broadcast(p sync.Progress) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		select {
		case ch <- p:
		default:
			h.logger.Warn("Dropping progress event for slow subscriber", "phase", p.Phase)
		}
	}
}
