package bridges

import (
	"context"
	"errors"
	"testing"

	"github.com/mmacedoeu/zeroclaw/internal/channels"
	"github.com/mmacedoeu/zeroclaw/pkg/models"
)

type fakeOutboundAdapter struct {
	sent    []*models.Message
	sendErr error
}

func (f *fakeOutboundAdapter) Send(ctx context.Context, msg *models.Message) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, msg)
	return nil
}

type channelEntry = struct {
	Name             string
	Kind             models.ChannelType
	Adapter          channels.OutboundAdapter
	MaxMessageLength int
	RatePerSecond    float64
	RateBurst        int
}

func entry(name string, kind models.ChannelType, adapter channels.OutboundAdapter) channelEntry {
	return channelEntry{Name: name, Kind: kind, Adapter: adapter}
}

func TestSendMessageUnknownChannelReturnsNotFound(t *testing.T) {
	bridge := NewChannelsBridge(nil)
	err := bridge.SendMessage(context.Background(), "unknown", "hi", "u", "")

	var notFound *ChannelNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected *ChannelNotFoundError, got %T: %v", err, err)
	}
	if notFound.Error() != "Channel not found: unknown" {
		t.Fatalf("Error() = %q, want %q", notFound.Error(), "Channel not found: unknown")
	}
}

func TestSendMessageDeliversToNamedAdapter(t *testing.T) {
	adapter := &fakeOutboundAdapter{}
	bridge := NewChannelsBridge([]channelEntry{entry("ops", models.ChannelSlack, adapter)})

	if err := bridge.SendMessage(context.Background(), "ops", "hello", "u1", "subj"); err != nil {
		t.Fatalf("SendMessage returned %v", err)
	}
	if len(adapter.sent) != 1 {
		t.Fatalf("expected 1 message sent, got %d", len(adapter.sent))
	}
	msg := adapter.sent[0]
	if msg.Content != "hello" || msg.ChannelID != "u1" || msg.Channel != models.ChannelSlack {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.Metadata["subject"] != "subj" {
		t.Fatalf("expected subject metadata, got %+v", msg.Metadata)
	}

	metrics, ok := bridge.Metrics("ops")
	if !ok || metrics.MessagesSent != 1 {
		t.Fatalf("expected 1 sent message recorded in metrics, got %+v (ok=%v)", metrics, ok)
	}
}

func TestSendMessageTransportErrorWraps(t *testing.T) {
	adapter := &fakeOutboundAdapter{sendErr: errors.New("boom")}
	bridge := NewChannelsBridge([]channelEntry{entry("ops", models.ChannelSlack, adapter)})

	err := bridge.SendMessage(context.Background(), "ops", "hello", "u1", "")
	var transportErr *ChannelTransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected *ChannelTransportError, got %T: %v", err, err)
	}

	health, ok := bridge.Health("ops")
	if !ok || health.Healthy {
		t.Fatalf("expected unhealthy status after a failed send, got %+v (ok=%v)", health, ok)
	}
}

func TestSendMessageChunksContentExceedingMaxLength(t *testing.T) {
	adapter := &fakeOutboundAdapter{}
	bridge := NewChannelsBridge([]channelEntry{{Name: "ops", Kind: models.ChannelSlack, Adapter: adapter, MaxMessageLength: 10}})

	if err := bridge.SendMessage(context.Background(), "ops", "hello there world", "u1", ""); err != nil {
		t.Fatalf("SendMessage returned %v", err)
	}
	if len(adapter.sent) < 2 {
		t.Fatalf("expected content exceeding MaxMessageLength to be split into multiple sends, got %d", len(adapter.sent))
	}
}

func TestSendMessageRateLimiterBlocksUntilContextDone(t *testing.T) {
	adapter := &fakeOutboundAdapter{}
	bridge := NewChannelsBridge([]channelEntry{{Name: "ops", Kind: models.ChannelSlack, Adapter: adapter, RatePerSecond: 1, RateBurst: 1}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Exhaust the single burst token first so the next Wait would block.
	if err := bridge.SendMessage(context.Background(), "ops", "first", "u1", ""); err != nil {
		t.Fatalf("first SendMessage returned %v", err)
	}

	err := bridge.SendMessage(ctx, "ops", "second", "u1", "")
	var rateLimited *ChannelRateLimitedError
	if !errors.As(err, &rateLimited) {
		t.Fatalf("expected *ChannelRateLimitedError on an already-canceled context, got %T: %v", err, err)
	}
}

func TestHasChannelAndNamesAndLen(t *testing.T) {
	adapter := &fakeOutboundAdapter{}
	bridge := NewChannelsBridge([]channelEntry{entry("alerts", models.ChannelDiscord, adapter)})

	if !bridge.HasChannel("alerts") {
		t.Fatal("expected HasChannel(alerts) true")
	}
	if bridge.HasChannel("other") {
		t.Fatal("expected HasChannel(other) false")
	}
	if bridge.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", bridge.Len())
	}
	names := bridge.ChannelNames()
	if len(names) != 1 || names[0] != "alerts" {
		t.Fatalf("ChannelNames() = %v", names)
	}
}

func TestEmptyBridgeIsEmpty(t *testing.T) {
	bridge := NewChannelsBridge(nil)
	if !bridge.IsEmpty() {
		t.Fatal("expected IsEmpty() true for a bridge with no channels")
	}
	if bridge.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", bridge.Len())
	}
	if bridge.HasChannel("anything") {
		t.Fatal("expected HasChannel(anything) false on empty bridge")
	}
}
