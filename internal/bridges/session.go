package bridges

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mmacedoeu/zeroclaw/pkg/models"
)

// ExecutionContext is the ambient, per-invocation context a script runs
// under. It is immutable for the life of a call.
type ExecutionContext struct {
	SessionID   string
	UserID      string // empty when absent
	ChannelType models.ChannelType
	Config      map[string]any
}

// typingChannel is the narrow surface a Session bridge needs from a
// channel adapter to drive reply/typing affordances.
type typingChannel interface {
	Send(ctx context.Context, msg *models.Message) error
	StartTyping(ctx context.Context, channelID string) error
	StopTyping(ctx context.Context, channelID string) error
}

// SessionBridge exposes reply/typing and session-scoped key/value
// storage. Both are optional add-ons layered on by with_channel and
// with_memory; without them, reply/typing calls fail and get/set are
// unavailable.
type SessionBridge struct {
	execCtx   ExecutionContext
	channel   typingChannel
	channelID string
	store     *Store
}

// NewSessionBridge returns a bridge scoped to execCtx with no channel or
// memory attached.
func NewSessionBridge(execCtx ExecutionContext) *SessionBridge {
	return &SessionBridge{execCtx: execCtx}
}

// WithChannel returns a copy of the bridge that can reply and manage
// typing indicators on channelID via channel.
func (b *SessionBridge) WithChannel(channel typingChannel, channelID string) *SessionBridge {
	clone := *b
	clone.channel = channel
	clone.channelID = channelID
	return &clone
}

// WithMemory returns a copy of the bridge that can get/set session-scoped
// values directly against store, namespaced under session:<session_id>:<key>
// so two sessions over the same store never collide. This is a separate
// namespace from MemoryBridge's js_plugin:<plugin_id>:<key> scheme: a
// session's data outlives any one plugin's memory and two plugins sharing a
// session should see the same session-scoped values, so it is keyed by
// session_id alone rather than routed through a plugin-namespaced bridge.
func (b *SessionBridge) WithMemory(store *Store) *SessionBridge {
	clone := *b
	clone.store = store
	return &clone
}

// SessionID returns the bound session identifier.
func (b *SessionBridge) SessionID() string { return b.execCtx.SessionID }

// UserID returns the bound user identifier, or "" if absent.
func (b *SessionBridge) UserID() string { return b.execCtx.UserID }

// ChannelType returns the channel type this session is running under.
func (b *SessionBridge) ChannelType() models.ChannelType { return b.execCtx.ChannelType }

func (b *SessionBridge) requireChannel() error {
	if b.channel == nil {
		return &RuntimeExecutionError{Msg: "Channel not set: session has no attached channel"}
	}
	return nil
}

// Reply sends content back on the attached channel.
func (b *SessionBridge) Reply(ctx context.Context, content string) error {
	if err := b.requireChannel(); err != nil {
		return err
	}
	msg := &models.Message{
		Channel:   b.execCtx.ChannelType,
		ChannelID: b.channelID,
		SessionID: b.execCtx.SessionID,
		Direction: models.DirectionOutbound,
		Role:      models.RoleAssistant,
		Content:   content,
	}
	return b.channel.Send(ctx, msg)
}

// StartTyping signals a typing indicator on the attached channel.
func (b *SessionBridge) StartTyping(ctx context.Context) error {
	if err := b.requireChannel(); err != nil {
		return err
	}
	return b.channel.StartTyping(ctx, b.channelID)
}

// StopTyping clears the typing indicator on the attached channel.
func (b *SessionBridge) StopTyping(ctx context.Context) error {
	if err := b.requireChannel(); err != nil {
		return err
	}
	return b.channel.StopTyping(ctx, b.channelID)
}

// WithTyping starts typing, runs f, and stops typing regardless of f's
// outcome. Typing start/stop errors are swallowed so they never mask f's
// result; f's own error, if any, is returned unchanged.
func (b *SessionBridge) WithTyping(ctx context.Context, f func() (any, error)) (any, error) {
	_ = b.StartTyping(ctx)
	defer func() { _ = b.StopTyping(ctx) }()
	return f()
}

func (b *SessionBridge) namespaced(key string) string {
	return fmt.Sprintf("session:%s:%s", b.execCtx.SessionID, key)
}

// Get reads a session-scoped value. Requires with_memory to have been
// called.
func (b *SessionBridge) Get(key string) (any, error) {
	if b.store == nil {
		return nil, &RuntimeExecutionError{Msg: "Memory not set: session has no attached memory"}
	}
	raw, ok, err := b.store.get(b.namespaced(key))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &MemoryError{Msg: fmt.Sprintf("Key not found: %s", key)}
	}
	var val any
	if err := json.Unmarshal(raw, &val); err != nil {
		return nil, &MemoryError{Msg: fmt.Sprintf("corrupt value for key %s: %v", key, err)}
	}
	return val, nil
}

// Set writes a session-scoped value. Requires with_memory to have been
// called.
func (b *SessionBridge) Set(key string, value any) error {
	if b.store == nil {
		return &RuntimeExecutionError{Msg: "Memory not set: session has no attached memory"}
	}
	data, err := json.Marshal(value)
	if err != nil {
		return &MemoryError{Msg: fmt.Sprintf("encode value for key %s: %v", key, err)}
	}
	return b.store.set(b.namespaced(key), data)
}
