package bridges

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmacedoeu/zeroclaw/internal/channels"
	"github.com/mmacedoeu/zeroclaw/internal/retry"
	"github.com/mmacedoeu/zeroclaw/pkg/models"
)

// classifySendError turns a raw adapter.Send failure into a *channels.Error
// so health metrics and retry decisions are driven by the channels error
// taxonomy rather than an opaque error value. An adapter that already
// returns a *channels.Error (e.g. one built with NewError/ErrRateLimit) is
// passed through unchanged; a context.DeadlineExceeded becomes a timeout
// error and everything else a connection failure, both of which
// channels.Error.IsRetryable reports as retryable.
func classifySendError(err error) *channels.Error {
	var chErr *channels.Error
	if errors.As(err, &chErr) {
		return chErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return channels.ErrTimeout("send timed out", err)
	}
	return channels.ErrConnection("send failed", err)
}

// ChannelNotFoundError maps to the taxonomy's Channel("Channel not
// found: <name>") message.
type ChannelNotFoundError struct {
	Name string
}

func (e *ChannelNotFoundError) Error() string {
	return fmt.Sprintf("Channel not found: %s", e.Name)
}

// ChannelRateLimitedError is returned when a named channel's rate limiter
// could not grant a token before ctx was done.
type ChannelRateLimitedError struct {
	Name string
	Err  error
}

func (e *ChannelRateLimitedError) Error() string {
	return fmt.Sprintf("channel %s: rate limited: %v", e.Name, e.Err)
}
func (e *ChannelRateLimitedError) Unwrap() error { return e.Err }

// ChannelTransportError wraps a failure from the underlying channel
// adapter's Send.
type ChannelTransportError struct {
	Name string
	Err  error
}

func (e *ChannelTransportError) Error() string {
	return fmt.Sprintf("channel %s: %v", e.Name, e.Err)
}
func (e *ChannelTransportError) Unwrap() error { return e.Err }

// namedChannel pairs a script-visible name with the outbound adapter and
// channel type it forwards to, plus the resilience plumbing (chunking,
// rate limiting, health/metrics) scoped to it.
type namedChannel struct {
	name    string
	kind    models.ChannelType
	adapter channels.OutboundAdapter
	chunker *channels.MessageChunker
	limiter *channels.RateLimiter
	health  *channels.BaseHealthAdapter
}

// ChannelsBridge exposes only the channels it was constructed with —
// scripts cannot discover or reach any channel outside this set.
type ChannelsBridge struct {
	byName map[string]namedChannel
	order  []string
	retry  retry.Config
}

// ChannelsBridgeOption configures optional resilience behavior for
// channels added to a ChannelsBridge.
type ChannelsBridgeOption func(*ChannelsBridge)

// WithSendRetry retries a failed adapter Send using cfg's backoff, unless
// the adapter wraps the failure in a non-retryable channels.Error. The
// default is a single attempt (no retry), matching a bridge built without
// this option.
func WithSendRetry(cfg retry.Config) ChannelsBridgeOption {
	return func(b *ChannelsBridge) { b.retry = cfg }
}

// NewChannelsBridge builds a bridge over the given (name, adapter) pairs.
// kind is the models.ChannelType the adapter was registered under.
// maxMessageLength, if nonzero, chunks content exceeding it into multiple
// sequential sends; ratePerSecond/burst, if nonzero, throttles sends to
// that channel with a token bucket.
func NewChannelsBridge(entries []struct {
	Name             string
	Kind             models.ChannelType
	Adapter          channels.OutboundAdapter
	MaxMessageLength int
	RatePerSecond    float64
	RateBurst        int
}, opts ...ChannelsBridgeOption) *ChannelsBridge {
	b := &ChannelsBridge{byName: make(map[string]namedChannel, len(entries)), retry: retry.Config{MaxAttempts: 1}}
	for _, opt := range opts {
		opt(b)
	}
	for _, e := range entries {
		nc := namedChannel{
			name:    e.Name,
			kind:    e.Kind,
			adapter: e.Adapter,
			chunker: channels.ChunkerFromMaxMessageLength(e.MaxMessageLength),
			health:  channels.NewBaseHealthAdapter(e.Kind, nil),
		}
		if e.RatePerSecond > 0 {
			nc.limiter = channels.NewRateLimiter(e.RatePerSecond, e.RateBurst)
		}
		b.byName[e.Name] = nc
		b.order = append(b.order, e.Name)
	}
	return b
}

// SendMessage sends content to recipient over the named channel. subject
// is optional (empty string means unset) and is carried in the message's
// metadata since models.Message has no dedicated subject field. Long
// content is chunked into multiple sequential sends when the channel was
// configured with a max message length.
func (b *ChannelsBridge) SendMessage(ctx context.Context, name, content, recipient, subject string) error {
	ch, ok := b.byName[name]
	if !ok {
		return &ChannelNotFoundError{Name: name}
	}

	for _, part := range ch.chunker.Chunk(content) {
		if ch.limiter != nil {
			if err := ch.limiter.Wait(ctx); err != nil {
				return &ChannelRateLimitedError{Name: name, Err: err}
			}
		}

		msg := &models.Message{
			Channel:   ch.kind,
			ChannelID: recipient,
			Direction: models.DirectionOutbound,
			Role:      models.RoleAssistant,
			Content:   part,
			CreatedAt: time.Now(),
		}
		if subject != "" {
			msg.Metadata = map[string]any{"subject": subject}
		}

		start := time.Now()
		result := retry.Do(ctx, b.retry, func() error {
			sendErr := ch.adapter.Send(ctx, msg)
			if sendErr == nil {
				return nil
			}
			chErr := classifySendError(sendErr)
			if !channels.IsRetryable(chErr) {
				return retry.Permanent(chErr)
			}
			return chErr
		})
		ch.health.RecordSendLatency(time.Since(start))
		if result.Err != nil {
			chErr := classifySendError(result.Err)
			ch.health.RecordError(channels.GetErrorCode(result.Err))
			ch.health.RecordMessageFailed()
			ch.health.SetStatus(false, chErr.Error())
			return &ChannelTransportError{Name: name, Err: chErr}
		}
		ch.health.RecordMessageSent()
		ch.health.SetStatus(true, "")
	}
	return nil
}

// HasChannel reports whether name is reachable from this bridge.
func (b *ChannelsBridge) HasChannel(name string) bool {
	_, ok := b.byName[name]
	return ok
}

// ChannelNames lists every script-visible channel name, in construction
// order.
func (b *ChannelsBridge) ChannelNames() []string {
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

// Health returns the health snapshot for a named channel.
func (b *ChannelsBridge) Health(name string) (channels.HealthStatus, bool) {
	ch, ok := b.byName[name]
	if !ok {
		return channels.HealthStatus{}, false
	}
	return ch.health.HealthCheck(context.Background()), true
}

// Metrics returns the send metrics snapshot for a named channel.
func (b *ChannelsBridge) Metrics(name string) (channels.MetricsSnapshot, bool) {
	ch, ok := b.byName[name]
	if !ok {
		return channels.MetricsSnapshot{}, false
	}
	return ch.health.Metrics(), true
}

// Len reports how many channels this bridge exposes.
func (b *ChannelsBridge) Len() int { return len(b.byName) }

// IsEmpty reports whether this bridge exposes zero channels.
func (b *ChannelsBridge) IsEmpty() bool { return len(b.byName) == 0 }
