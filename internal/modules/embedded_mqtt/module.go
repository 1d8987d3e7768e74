// Package embeddedmqtt hosts an in-process MQTT broker so a bare lensd
// can carry its own bus without an external broker.
package embeddedmqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"go.uber.org/zap"

	"github.com/Bawycle/lens/internal/lensd"
)

// DefaultListen is the listen address used when none is configured. It
// matches the broker URL a broker-less lensd falls back to.
const DefaultListen = "127.0.0.1:1883"

// Config configures the embedded broker.
type Config struct {
	Listen         string
	AllowAnonymous bool
	Username       string
	Password       string
	TLSCA          string
	TLSCert        string
	TLSKey         string
}

// Module runs the embedded broker as a supervised daemon module.
type Module struct {
	log    *zap.Logger
	server *mqtt.Server
	config Config
}

// NewModule creates the broker module. Credentials or AllowAnonymous
// are required; an open broker must be an explicit choice.
func NewModule(log *zap.Logger, cfg Config) (*Module, error) {
	if strings.TrimSpace(cfg.Listen) == "" {
		cfg.Listen = DefaultListen
	}

	server, err := newServer(log, cfg)
	if err != nil {
		return nil, err
	}
	return &Module{log: log, server: server, config: cfg}, nil
}

// Run serves until ctx is cancelled.
func (m *Module) Run(ctx context.Context) error {
	listenerConfig := listeners.Config{ID: "lens-embedded", Address: m.config.Listen}
	if m.config.TLSCert != "" || m.config.TLSKey != "" || m.config.TLSCA != "" {
		tlsConfig, err := buildTLSConfig(m.config.TLSCA, m.config.TLSCert, m.config.TLSKey)
		if err != nil {
			return err
		}
		listenerConfig.TLSConfig = tlsConfig
	}

	if err := m.server.AddListener(listeners.NewTCP(listenerConfig)); err != nil {
		return err
	}

	go func() {
		_ = m.server.Serve()
	}()

	<-ctx.Done()
	m.server.Close()
	return nil
}

func newServer(log *zap.Logger, cfg Config) (*mqtt.Server, error) {
	slogger := slog.New(quietCloseHandler{next: lensd.SlogBridge(log).Handler()})
	server := mqtt.New(&mqtt.Options{InlineClient: true, Logger: slogger})

	switch {
	case cfg.AllowAnonymous:
		if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
			return nil, err
		}
	case cfg.Username != "":
		ledger := &auth.Ledger{
			Auth: auth.AuthRules{{Username: auth.RString(cfg.Username), Password: auth.RString(cfg.Password), Allow: true}},
			ACL:  auth.ACLRules{{Username: auth.RString(cfg.Username), Filters: auth.Filters{auth.RString("#"): auth.ReadWrite}}},
		}
		if err := server.AddHook(new(auth.Hook), &auth.Options{Ledger: ledger}); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("embedded mqtt requires allow_anonymous or username")
	}

	return server, nil
}

// quietCloseHandler demotes the broker's routine connection-close
// errors to debug so an idle bus does not look unhealthy in the logs.
type quietCloseHandler struct {
	next slog.Handler
}

func (h quietCloseHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h quietCloseHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level >= slog.LevelWarn && harmlessClose(record) {
		demoted := slog.NewRecord(record.Time, slog.LevelDebug, record.Message, record.PC)
		record.Attrs(func(attr slog.Attr) bool {
			demoted.AddAttrs(attr)
			return true
		})
		return h.next.Handle(ctx, demoted)
	}
	return h.next.Handle(ctx, record)
}

func (h quietCloseHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return quietCloseHandler{next: h.next.WithAttrs(attrs)}
}

func (h quietCloseHandler) WithGroup(name string) slog.Handler {
	return quietCloseHandler{next: h.next.WithGroup(name)}
}

func harmlessClose(record slog.Record) bool {
	quiet := false
	record.Attrs(func(attr slog.Attr) bool {
		if attr.Key != "error" {
			return true
		}
		msg := ""
		switch attr.Value.Kind() {
		case slog.KindString:
			msg = attr.Value.String()
		case slog.KindAny:
			if err, ok := attr.Value.Any().(error); ok {
				msg = err.Error()
			}
		}
		if msg == "EOF" || strings.Contains(msg, "read connection: EOF") {
			quiet = true
		}
		return true
	})
	return quiet
}

func buildTLSConfig(caPath, certPath, keyPath string) (*tls.Config, error) {
	if caPath == "" && certPath == "" && keyPath == "" {
		return nil, nil
	}

	config := &tls.Config{}
	if caPath != "" {
		pem, err := os.ReadFile(caPath)
		if err != nil {
			return nil, err
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.New("failed to parse CA bundle")
		}
		config.RootCAs = pool
	}

	if certPath != "" || keyPath != "" {
		if certPath == "" || keyPath == "" {
			return nil, errors.New("both tls cert and key are required")
		}
		cert, err := tls.LoadX509KeyPair(certPath, keyPath)
		if err != nil {
			return nil, err
		}
		config.Certificates = []tls.Certificate{cert}
	}

	return config, nil
}

// BrokerURL returns the broker URL for a listen address.
func BrokerURL(listen string, tlsEnabled bool) string {
	scheme := "mqtt"
	if tlsEnabled {
		scheme = "mqtts"
	}
	return fmt.Sprintf("%s://%s", scheme, listen)
}
