package hookbus

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// HookResultKind discriminates the outcome of a single handler call.
type HookResultKind int

const (
	ResultObservation HookResultKind = iota
	ResultVeto
	ResultModified
)

// HookResult is what a handler returns after seeing an event.
type HookResult struct {
	Kind       HookResultKind
	VetoReason string
	NewPayload Event
}

// Observation returns the no-op result: the event passes through unchanged.
func Observation() HookResult { return HookResult{Kind: ResultObservation} }

// Veto aborts the dispatch sequence with reason.
func Veto(reason string) HookResult { return HookResult{Kind: ResultVeto, VetoReason: reason} }

// Modified substitutes payload for the remaining handlers in the sequence.
func Modified(payload Event) HookResult { return HookResult{Kind: ResultModified, NewPayload: payload} }

// Handler is a script-provided (or host-provided) hook callback.
type Handler func(ctx context.Context, event Event) (HookResult, error)

// Registration identifies one registered handler and carries the
// monotone sequence number used to break priority ties. A zero-value
// Registration never matches a real one.
type Registration struct {
	ID               string
	PluginID         string
	EventName        string
	Priority         int
	Handler          Handler
	RegistrationSeq  uint64
}

// Registry is the per-event, priority-ordered handler table. Handlers run
// sequentially in (-priority, registration_seq) order: higher priority
// first, ties broken by registration order.
type Registry struct {
	mu       sync.RWMutex
	byEvent  map[string][]*Registration
	byID     map[string]*Registration
	seq      uint64
	logger   *slog.Logger
}

// NewRegistry returns an empty hook registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		byEvent: make(map[string][]*Registration),
		byID:    make(map[string]*Registration),
		logger:  logger.With("component", "hookbus.registry"),
	}
}

// Register adds handler for eventName at priority, under pluginID, and
// returns a Registration handle that Unregister accepts.
func (r *Registry) Register(pluginID, eventName string, priority int, handler Handler) *Registration {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	reg := &Registration{
		ID:              uuid.New().String(),
		PluginID:        pluginID,
		EventName:       eventName,
		Priority:        priority,
		Handler:         handler,
		RegistrationSeq: r.seq,
	}

	r.byEvent[eventName] = append(r.byEvent[eventName], reg)
	sortHandlers(r.byEvent[eventName])
	r.byID[reg.ID] = reg

	r.logger.Debug("registered hook", "id", reg.ID, "plugin_id", pluginID, "event", eventName, "priority", priority)
	return reg
}

// Unregister removes a previously registered handle. Returns false if it
// was already removed.
func (r *Registry) Unregister(reg *Registration) bool {
	if reg == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[reg.ID]; !ok {
		return false
	}
	delete(r.byID, reg.ID)

	handlers := r.byEvent[reg.EventName]
	for i, h := range handlers {
		if h.ID == reg.ID {
			r.byEvent[reg.EventName] = append(handlers[:i], handlers[i+1:]...)
			break
		}
	}
	return true
}

func sortHandlers(regs []*Registration) {
	sort.SliceStable(regs, func(i, j int) bool {
		if regs[i].Priority != regs[j].Priority {
			return regs[i].Priority > regs[j].Priority
		}
		return regs[i].RegistrationSeq < regs[j].RegistrationSeq
	})
}

// DispatchOutcome is the merged result of running every handler bound to
// an event's canonical name.
type DispatchOutcome struct {
	Vetoed       bool
	VetoReason   string
	FinalPayload Event
}

// Dispatch runs every handler registered for event.Name() in priority
// order. A Veto aborts the sequence immediately; a Modified result
// substitutes the payload passed to subsequent handlers and becomes the
// effective event returned to the host. A handler error is treated as an
// Observation (it never vetoes) but is logged.
func (r *Registry) Dispatch(ctx context.Context, event Event) DispatchOutcome {
	r.mu.RLock()
	handlers := make([]*Registration, len(r.byEvent[event.Name()]))
	copy(handlers, r.byEvent[event.Name()])
	r.mu.RUnlock()

	current := event
	for _, reg := range handlers {
		result, err := r.callHandler(ctx, reg, current)
		if err != nil {
			r.logger.Warn("hook handler error", "plugin_id", reg.PluginID, "event", event.Name(), "error", err)
			continue
		}
		switch result.Kind {
		case ResultVeto:
			return DispatchOutcome{Vetoed: true, VetoReason: result.VetoReason, FinalPayload: current}
		case ResultModified:
			current = result.NewPayload
		case ResultObservation:
			// leaves current unchanged
		}
	}
	return DispatchOutcome{FinalPayload: current}
}

func (r *Registry) callHandler(ctx context.Context, reg *Registration, event Event) (result HookResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = panicError{p}
		}
	}()
	return reg.Handler(ctx, event)
}

type panicError struct{ v any }

func (p panicError) Error() string { return "hook handler panicked" }

// HandlerCount reports how many handlers are bound to eventName.
func (r *Registry) HandlerCount(eventName string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byEvent[eventName])
}

// nextSeq exposes the registry's sequence counter for tests asserting
// stable tiebreak ordering across concurrent registrations.
func (r *Registry) nextSeq() uint64 {
	return atomic.LoadUint64(&r.seq)
}
