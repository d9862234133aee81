package conversation

import (
	"context"
	"log/slog"
	"sync"

	"github.com/quailyquaily/kbmorph/internal/slack"
)

// Registry routes inbound events to one worker per conversation identity.
// Each worker is a goroutine draining a buffered channel into its Unit,
// which gives every transcript a single serialized owner; distinct
// conversations run fully concurrently and share nothing.
type Registry struct {
	engine    Generator
	deliver   DeliverFunc
	log       *slog.Logger
	queueSize int

	mu      sync.Mutex
	workers map[string]*worker
}

type worker struct {
	unit *Unit
	jobs chan slack.MessageEvent
}

type RegistryOptions struct {
	Engine    Generator
	Deliver   DeliverFunc
	Logger    *slog.Logger
	QueueSize int
}

func NewRegistry(opts RegistryOptions) *Registry {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = 16
	}
	return &Registry{
		engine:    opts.Engine,
		deliver:   opts.Deliver,
		log:       log,
		queueSize: queueSize,
		workers:   make(map[string]*worker),
	}
}

// Dispatch resolves the event's conversation identity and enqueues it for
// that conversation's worker. Ineligible events are a silent no-op; a
// full queue drops the event with a warning rather than blocking the
// intake path. The caller acks immediately either way.
func (r *Registry) Dispatch(ev slack.MessageEvent) bool {
	if !slack.Eligible(ev) {
		r.log.Debug("dispatch_skip", "event_type", ev.Type, "subtype", ev.Subtype)
		return false
	}
	id := slack.ConversationID(ev)
	if id == "" {
		r.log.Warn("dispatch_skip", "reason", "missing_ts")
		return false
	}

	r.mu.Lock()
	w := r.getOrStartWorkerLocked(id)
	r.mu.Unlock()

	select {
	case w.jobs <- ev:
		return true
	default:
		r.log.Warn("dispatch_drop", "conversation_id", id, "reason", "queue_full")
		return false
	}
}

func (r *Registry) getOrStartWorkerLocked(id string) *worker {
	if w, ok := r.workers[id]; ok && w != nil {
		return w
	}
	w := &worker{
		unit: NewUnit(id, r.engine, r.deliver, r.log),
		jobs: make(chan slack.MessageEvent, r.queueSize),
	}
	r.workers[id] = w

	go func() {
		for ev := range w.jobs {
			// Background continuation; no deadline beyond what the LLM
			// provider enforces per request.
			w.unit.Handle(context.Background(), ev)
		}
	}()

	return w
}

// Len reports the number of live conversation workers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workers)
}
