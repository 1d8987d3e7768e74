package embeddedmqtt

import (
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/packets"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Bawycle/lens/internal/lensd"
	"github.com/Bawycle/lens/pkg/lens"
)

func TestNewModuleDefaultsListen(t *testing.T) {
	m, err := NewModule(zap.NewNop(), Config{AllowAnonymous: true})
	if err != nil {
		t.Fatalf("NewModule: %v", err)
	}
	if m.config.Listen != DefaultListen {
		t.Fatalf("expected default listen, got %q", m.config.Listen)
	}
}

func TestNewServerRequiresAuthConfig(t *testing.T) {
	if _, err := newServer(zap.NewNop(), Config{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestCommandRoundTrip(t *testing.T) {
	server, err := newServer(zap.NewNop(), Config{AllowAnonymous: true})
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}

	cmdTopic := lens.TopicCommands(lens.BaseTopic, "lens:browser:pics")
	received := make(chan packets.Packet, 1)
	handler := func(_ *mqtt.Client, _ packets.Subscription, pk packets.Packet) {
		received <- pk
	}
	if err := server.Subscribe(cmdTopic, 1, handler); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	cmd := lens.CommandEnvelope{
		ID:   "cmd-1",
		Type: "browser.next",
		TS:   1,
		From: "lens@test",
		Body: []byte("{}"),
	}
	payload, err := json.Marshal(cmd)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := server.Publish(cmdTopic, payload, false, 1); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case pk := <-received:
		var got lens.CommandEnvelope
		if err := json.Unmarshal(pk.Payload, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.ID != cmd.ID || got.Type != cmd.Type {
			t.Fatalf("envelope mangled: %+v", got)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("timeout waiting for command")
	}
}

func TestQuietCloseDemotesRoutineDisconnects(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	// Same wiring newServer hands to the broker.
	slogger := slog.New(quietCloseHandler{next: lensd.SlogBridge(zap.New(core)).Handler()})

	slogger.Error("client disconnected", "error", "read connection: EOF")
	slogger.Error("acl failure", "error", "not authorised")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Level != zapcore.DebugLevel {
		t.Fatalf("routine close not demoted: %v", entries[0].Level)
	}
	if entries[1].Level != zapcore.ErrorLevel {
		t.Fatalf("real error demoted: %v", entries[1].Level)
	}
}

func TestBrokerURL(t *testing.T) {
	if BrokerURL("127.0.0.1:1883", false) != "mqtt://127.0.0.1:1883" {
		t.Fatalf("expected mqtt scheme")
	}
	if BrokerURL("127.0.0.1:8883", true) != "mqtts://127.0.0.1:8883" {
		t.Fatalf("expected mqtts scheme")
	}
}
