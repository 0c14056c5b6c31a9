package hookbus

import "encoding/json"

// ObserverEventKind discriminates the host telemetry events the observer
// bridge knows how to translate. Kinds with no entry in the translation
// table are silently dropped.
type ObserverEventKind int

const (
	ObserverAgentStart ObserverEventKind = iota
	ObserverToolCallStart
	ObserverMetric
)

// ObserverEvent is a host telemetry event, as delivered by the
// observability sink external to this package.
type ObserverEvent struct {
	Kind     ObserverEventKind
	Provider string
	Model    string
	Tool     string
}

// Observer translates host telemetry into plugin events and emits them on
// a shared event bus. Metrics are ignored; Flush is a no-op because the
// bus has nothing to batch.
type Observer struct {
	bus *Bus
}

// NewObserver returns an Observer that emits translated events onto bus.
func NewObserver(bus *Bus) *Observer {
	return &Observer{bus: bus}
}

// Record translates ev and emits it, if a mapping exists.
func (o *Observer) Record(ev ObserverEvent) {
	translated, ok := translate(ev)
	if !ok {
		return
	}
	o.bus.Emit(translated)
}

// Flush is a no-op: the observer holds no buffered state to drain.
func (o *Observer) Flush() {}

func translate(ev ObserverEvent) (Event, bool) {
	switch ev.Kind {
	case ObserverAgentStart:
		config, _ := json.Marshal(map[string]string{"provider": ev.Provider, "model": ev.Model})
		return NewBeforeAgentStart(config), true
	case ObserverToolCallStart:
		return NewToolCallPre(ev.Tool, nil, ""), true
	default:
		return Event{}, false
	}
}
