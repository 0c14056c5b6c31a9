// Package hookbus implements the host event bus and the per-event,
// priority-ordered hook registry that scripts observe and intercept host
// lifecycle moments through. Two concerns live here deliberately: the bus
// is a passive broadcast fan-out (subscribers get a copy of everything),
// while the registry is an ordered set of participants that can veto or
// rewrite the event for the handlers behind them. Nothing routes between
// the two silently.
package hookbus

import (
	"encoding/json"
	"fmt"
)

// Kind discriminates the closed set of event variants a host can emit.
type Kind int

const (
	KindMessageReceived Kind = iota
	KindToolCallPre
	KindToolCallPost
	KindLLMRequest
	KindSessionUpdate
	KindBeforeAgentStart
	KindCustom
)

// Event is a closed tagged union of host lifecycle moments. Exactly the
// fields relevant to Kind are populated; Name reports the canonical
// dotted event name a handler or subscriber matches against.
type Event struct {
	Kind Kind

	// MessageReceived
	ChannelID   string
	ChannelType string
	Message     json.RawMessage
	SessionID   string

	// ToolCallPre / ToolCallPost
	ToolName string
	Input    json.RawMessage
	Result   json.RawMessage

	// LlmRequest
	Provider string
	Model    string
	Messages []json.RawMessage
	Options  json.RawMessage

	// SessionUpdate
	Context json.RawMessage

	// BeforeAgentStart
	Config json.RawMessage

	// Custom
	Namespace string
	Name_     string
	Payload   json.RawMessage
}

// Name returns the canonical dotted event name used for hook and
// subscriber matching. For Kind==KindCustom it is the event's own Name
// field rather than a fixed constant.
func (e Event) Name() string {
	switch e.Kind {
	case KindMessageReceived:
		return "message.received"
	case KindToolCallPre:
		return "tool.call.pre"
	case KindToolCallPost:
		return "tool.call.post"
	case KindLLMRequest:
		return "llm.request"
	case KindSessionUpdate:
		return "session.update"
	case KindBeforeAgentStart:
		return "before.agent.start"
	case KindCustom:
		return e.Name_
	default:
		return ""
	}
}

// NewMessageReceived builds a MessageReceived event.
func NewMessageReceived(channelID, channelType string, message json.RawMessage, sessionID string) Event {
	return Event{Kind: KindMessageReceived, ChannelID: channelID, ChannelType: channelType, Message: message, SessionID: sessionID}
}

// NewToolCallPre builds a ToolCallPre event.
func NewToolCallPre(toolName string, input json.RawMessage, sessionID string) Event {
	return Event{Kind: KindToolCallPre, ToolName: toolName, Input: input, SessionID: sessionID}
}

// NewToolCallPost builds a ToolCallPost event.
func NewToolCallPost(toolName string, result json.RawMessage, sessionID string) Event {
	return Event{Kind: KindToolCallPost, ToolName: toolName, Result: result, SessionID: sessionID}
}

// NewLLMRequest builds an LlmRequest event.
func NewLLMRequest(provider, model string, messages []json.RawMessage, options json.RawMessage) Event {
	return Event{Kind: KindLLMRequest, Provider: provider, Model: model, Messages: messages, Options: options}
}

// NewSessionUpdate builds a SessionUpdate event.
func NewSessionUpdate(sessionID string, context json.RawMessage) Event {
	return Event{Kind: KindSessionUpdate, SessionID: sessionID, Context: context}
}

// NewBeforeAgentStart builds a BeforeAgentStart event.
func NewBeforeAgentStart(config json.RawMessage) Event {
	return Event{Kind: KindBeforeAgentStart, Config: config}
}

// NewCustom builds a Custom event under a namespace with an arbitrary name.
func NewCustom(namespace, name string, payload json.RawMessage) Event {
	return Event{Kind: KindCustom, Namespace: namespace, Name_: name, Payload: payload}
}

// wireEvent is the JSON-visible shape of Event, used so Encode/Decode
// round-trip without leaking the internal field layout to callers.
type wireEvent struct {
	Kind        string          `json:"kind"`
	ChannelID   string          `json:"channel_id,omitempty"`
	ChannelType string          `json:"channel_type,omitempty"`
	Message     json.RawMessage `json:"message,omitempty"`
	SessionID   string          `json:"session_id,omitempty"`
	ToolName    string          `json:"tool_name,omitempty"`
	Input       json.RawMessage `json:"input,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	Provider    string          `json:"provider,omitempty"`
	Model       string          `json:"model,omitempty"`
	Messages    []json.RawMessage `json:"messages,omitempty"`
	Options     json.RawMessage `json:"options,omitempty"`
	Context     json.RawMessage `json:"context,omitempty"`
	Config      json.RawMessage `json:"config,omitempty"`
	Namespace   string          `json:"namespace,omitempty"`
	Name        string          `json:"name,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

var kindNames = map[Kind]string{
	KindMessageReceived:  "message_received",
	KindToolCallPre:      "tool_call_pre",
	KindToolCallPost:     "tool_call_post",
	KindLLMRequest:       "llm_request",
	KindSessionUpdate:    "session_update",
	KindBeforeAgentStart: "before_agent_start",
	KindCustom:           "custom",
}

var namesToKind = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, v := range kindNames {
		m[v] = k
	}
	return m
}()

// Encode serializes an event to its wire JSON representation.
func Encode(e Event) ([]byte, error) {
	return json.Marshal(wireEvent{
		Kind:        kindNames[e.Kind],
		ChannelID:   e.ChannelID,
		ChannelType: e.ChannelType,
		Message:     e.Message,
		SessionID:   e.SessionID,
		ToolName:    e.ToolName,
		Input:       e.Input,
		Result:      e.Result,
		Provider:    e.Provider,
		Model:       e.Model,
		Messages:    e.Messages,
		Options:     e.Options,
		Context:     e.Context,
		Config:      e.Config,
		Namespace:   e.Namespace,
		Name:        e.Name_,
		Payload:     e.Payload,
	})
}

// Decode deserializes an event produced by Encode.
func Decode(data []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	kind, ok := namesToKind[w.Kind]
	if !ok {
		return Event{}, fmt.Errorf("decode event: unknown kind %q", w.Kind)
	}
	return Event{
		Kind:        kind,
		ChannelID:   w.ChannelID,
		ChannelType: w.ChannelType,
		Message:     w.Message,
		SessionID:   w.SessionID,
		ToolName:    w.ToolName,
		Input:       w.Input,
		Result:      w.Result,
		Provider:    w.Provider,
		Model:       w.Model,
		Messages:    w.Messages,
		Options:     w.Options,
		Context:     w.Context,
		Config:      w.Config,
		Namespace:   w.Namespace,
		Name_:       w.Name,
		Payload:     w.Payload,
	}, nil
}
