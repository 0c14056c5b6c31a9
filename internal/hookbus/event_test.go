package hookbus

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestEventRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		ev   Event
		want string
	}{
		{"message received", NewMessageReceived("c1", "discord", json.RawMessage(`{"a":1}`), "s1"), "message.received"},
		{"tool call pre", NewToolCallPre("search", json.RawMessage(`{}`), "s1"), "tool.call.pre"},
		{"tool call post", NewToolCallPost("search", json.RawMessage(`{}`), "s1"), "tool.call.post"},
		{"llm request", NewLLMRequest("anthropic", "claude", nil, json.RawMessage(`{}`)), "llm.request"},
		{"session update", NewSessionUpdate("s1", json.RawMessage(`{}`)), "session.update"},
		{"before agent start", NewBeforeAgentStart(json.RawMessage(`{}`)), "before.agent.start"},
		{"custom", NewCustom("myplugin", "myplugin.special", json.RawMessage(`{}`)), "myplugin.special"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.ev.Name(); got != tc.want {
				t.Fatalf("Name() = %q, want %q", got, tc.want)
			}

			data, err := Encode(tc.ev)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			decoded, err := Decode(data)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !reflect.DeepEqual(decoded, tc.ev) {
				t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, tc.ev)
			}
			if decoded.Name() != tc.want {
				t.Fatalf("decoded Name() = %q, want %q", decoded.Name(), tc.want)
			}
		})
	}
}

func TestDecodeUnknownKind(t *testing.T) {
	if _, err := Decode([]byte(`{"kind":"not_a_real_kind"}`)); err == nil {
		t.Fatal("expected error decoding unknown kind")
	}
}
