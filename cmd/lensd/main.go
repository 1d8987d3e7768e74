package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Bawycle/lens/internal/adapters/mqttserver"
	"github.com/Bawycle/lens/internal/lensd"
	"github.com/Bawycle/lens/internal/modules/browser"
	embeddedmqtt "github.com/Bawycle/lens/internal/modules/embedded_mqtt"
	"github.com/Bawycle/lens/internal/modules/loader"
	"github.com/Bawycle/lens/pkg/lens"
)

func main() {
	var (
		configPath  string
		broker      string
		identity    string
		topicBase   string
		browsePath  string
		logLevel    string
		logFormat   string
		logOutput   string
		logSource   bool
		logUTC      bool
		logColor    bool
		printConfig bool
		dryRun      bool
		moduleOnly  string
	)

	defaultConfig, err := lensd.DefaultConfigPath()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	flag.StringVar(&configPath, "config", defaultConfig, "config file path")
	flag.StringVar(&broker, "broker", "", "MQTT broker URL override")
	flag.StringVar(&identity, "identity", "", "server identity override")
	flag.StringVar(&topicBase, "topic-base", "", "topic base override")
	flag.StringVar(&browsePath, "path", "", "directory or file to browse (enables the browser module)")
	flag.StringVar(&logLevel, "log-level", "", "log level override")
	flag.StringVar(&logFormat, "log-format", "", "log format override (text|json)")
	flag.StringVar(&logOutput, "log-output", "", "log output override (stdout|stderr)")
	flag.BoolVar(&logSource, "log-source", false, "include source file in logs")
	flag.BoolVar(&logUTC, "log-utc", false, "use UTC timestamps in logs")
	flag.BoolVar(&logColor, "log-color", false, "enable colored log output (text only)")
	flag.StringVar(&moduleOnly, "module", "", "limit to a single module")
	flag.BoolVar(&printConfig, "print-config", false, "print resolved config and exit")
	flag.BoolVar(&dryRun, "dry-run", false, "validate config and exit")
	flag.Parse()

	cfg, err := loadConfig(configPath, defaultConfig)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	applyOverrides(&cfg, broker, identity, topicBase, browsePath, logLevel, logFormat, logOutput, logSource, logUTC, logColor)

	if printConfig {
		printResolvedConfig(cfg)
		return
	}
	if dryRun {
		return
	}

	logger := lensd.NewLogger(lensd.LogConfig{
		Level:     cfg.Server.LogLevel,
		Format:    cfg.Server.LogFormat,
		Output:    cfg.Server.LogOutput,
		AddSource: cfg.Server.LogSource,
		UTC:       cfg.Server.LogUTC,
		Color:     cfg.Server.LogColor,
	})
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	embeddedURL := embeddedBrokerURL(cfg)
	skipEmbedded := false

	if moduleOnly != "embedded_mqtt" && cfg.Modules.EmbeddedMQTT.Enabled && cfg.Server.Broker == embeddedURL {
		if err := startEmbeddedBroker(ctx, cfg, logger, cancel); err != nil {
			logger.Error("embedded mqtt failed", zap.Error(err))
			os.Exit(1)
		}
		skipEmbedded = true
	}

	if cfg.Server.Broker == "" && !(moduleOnly == "embedded_mqtt" && cfg.Modules.EmbeddedMQTT.Enabled) {
		logger.Error("broker is required")
		os.Exit(1)
	}
	logger.Info("lensd starting",
		zap.String("broker", cfg.Server.Broker),
		zap.String("identity", cfg.Server.Identity),
		zap.String("topic_base", cfg.Server.TopicBase),
		zap.Strings("modules", enabledModules(cfg)),
	)

	var client *mqttserver.Client
	if moduleOnly != "embedded_mqtt" {
		var err error
		client, err = mqttserver.NewClient(mqttserver.Options{
			BrokerURL:  cfg.Server.Broker,
			ClientID:   fmt.Sprintf("lensd-%d", time.Now().UnixNano()),
			Username:   cfg.Server.Auth.User,
			Password:   cfg.Server.Auth.Pass,
			TLSCA:      cfg.Server.TLS.CA,
			TLSCert:    cfg.Server.TLS.Cert,
			TLSKey:     cfg.Server.TLS.Key,
			Timeout:   2 * time.Second,
			Logger:    logger.With(zap.String("adapter", "mqtt")),
			WillTopic: willTopic(cfg),
		})
		if err != nil {
			logger.Error("mqtt connection failed", zap.Error(err))
			os.Exit(1)
		}
	}

	modules, err := buildModules(cfg, client, logger, moduleOnly, skipEmbedded)
	if err != nil {
		logger.Error("failed to build modules", zap.Error(err))
		os.Exit(1)
	}

	supervisor := lensd.Supervisor{Logger: logger}
	if err := supervisor.Run(ctx, modules); err != nil {
		logger.Error("supervisor error", zap.Error(err))
		os.Exit(1)
	}
}

// loadConfig tolerates a missing default config so that `lensd -path`
// works without any file on disk; an explicit -config must exist.
func loadConfig(path string, defaultPath string) (lensd.Config, error) {
	cfg, err := lensd.LoadConfig(path)
	if err != nil && path == defaultPath && errors.Is(err, os.ErrNotExist) {
		return lensd.Config{}, nil
	}
	return cfg, err
}

func applyOverrides(cfg *lensd.Config, broker, identity, topicBase, browsePath, logLevel, logFormat, logOutput string, logSource, logUTC, logColor bool) {
	if broker != "" {
		cfg.Server.Broker = broker
	}
	if identity != "" {
		cfg.Server.Identity = identity
	}
	if topicBase != "" {
		cfg.Server.TopicBase = topicBase
	}
	if browsePath != "" {
		cfg.Modules.Browser.Enabled = true
		cfg.Modules.Browser.Path = browsePath
	}
	if logLevel != "" {
		cfg.Server.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.Server.LogFormat = logFormat
	}
	if logOutput != "" {
		cfg.Server.LogOutput = logOutput
	}
	if logSource {
		cfg.Server.LogSource = true
	}
	if logUTC {
		cfg.Server.LogUTC = true
	}
	if logColor {
		cfg.Server.LogColor = true
	}
	if cfg.Server.TopicBase == "" {
		cfg.Server.TopicBase = lens.BaseTopic
	}
	if cfg.Modules.Browser.Enabled && cfg.Modules.Browser.NodeID == "" {
		cfg.Modules.Browser.NodeID = "lens:browser:default"
	}
	if cfg.Server.Broker == "" && cfg.Modules.EmbeddedMQTT.Enabled {
		cfg.Server.Broker = embeddedBrokerURL(*cfg)
	}
	// No broker configured at all: bring up the embedded one so a bare
	// `lensd -path DIR` is self-contained.
	if cfg.Server.Broker == "" {
		cfg.Modules.EmbeddedMQTT.Enabled = true
		cfg.Modules.EmbeddedMQTT.AllowAnonymous = true
		cfg.Server.Broker = embeddedBrokerURL(*cfg)
	}
}

// willTopic names the retained topic the broker clears if lensd drops
// off, so controllers never see presence for a dead node.
func willTopic(cfg lensd.Config) string {
	if !cfg.Modules.Browser.Enabled {
		return ""
	}
	return lens.TopicPresence(cfg.Server.TopicBase, cfg.Modules.Browser.NodeID)
}

func buildModules(cfg lensd.Config, client *mqttserver.Client, logger *zap.Logger, moduleOnly string, skipEmbedded bool) ([]lensd.ModuleRunner, error) {
	modules := []lensd.ModuleRunner{}
	if cfg.Modules.EmbeddedMQTT.Enabled && !skipEmbedded {
		if moduleOnly == "" || moduleOnly == "embedded_mqtt" {
			mod, err := embeddedmqtt.NewModule(logger.With(zap.String("module", "embedded_mqtt")), embeddedmqtt.Config{
				Listen:         cfg.Modules.EmbeddedMQTT.Listen,
				AllowAnonymous: cfg.Modules.EmbeddedMQTT.AllowAnonymous,
				Username:       cfg.Modules.EmbeddedMQTT.Username,
				Password:       cfg.Modules.EmbeddedMQTT.Password,
				TLSCA:          cfg.Modules.EmbeddedMQTT.TLSCA,
				TLSCert:        cfg.Modules.EmbeddedMQTT.TLSCert,
				TLSKey:         cfg.Modules.EmbeddedMQTT.TLSKey,
			})
			if err != nil {
				return nil, err
			}
			modules = append(modules, lensd.ModuleRunner{
				Name: "embedded_mqtt",
				Run:  mod.Run,
			})
		}
	}

	if cfg.Modules.Browser.Enabled {
		if moduleOnly == "" || moduleOnly == "browser" {
			pool := loader.New(logger.With(zap.String("module", "loader")), loader.Config{
				Workers:   cfg.Modules.Loader.Workers,
				QueueSize: cfg.Modules.Loader.QueueSize,
			})
			mod, err := browser.NewModule(logger.With(zap.String("module", "browser")), client, pool, pool.Results(), browser.Config{
				NodeID:          cfg.Modules.Browser.NodeID,
				TopicBase:       cfg.Server.TopicBase,
				Name:            cfg.Modules.Browser.Name,
				Path:            cfg.Modules.Browser.Path,
				SortOrder:       cfg.Modules.Browser.SortOrder,
				MaxSkipAttempts: cfg.Modules.Browser.MaxSkipAttempts,
				NotifyDismissMS: cfg.Modules.Browser.NotifyDismissMS,
			})
			if err != nil {
				return nil, err
			}
			modules = append(modules,
				lensd.ModuleRunner{Name: "loader", Run: pool.Run},
				lensd.ModuleRunner{Name: "browser", Run: mod.Run},
			)
		}
	}

	if moduleOnly != "" && len(modules) == 0 {
		return nil, errors.New("no modules enabled")
	}
	return modules, nil
}

func enabledModules(cfg lensd.Config) []string {
	out := []string{}
	if cfg.Modules.EmbeddedMQTT.Enabled {
		out = append(out, "embedded_mqtt")
	}
	if cfg.Modules.Browser.Enabled {
		out = append(out, "loader", "browser")
	}
	return out
}

func printResolvedConfig(cfg lensd.Config) {
	fmt.Fprintf(os.Stdout,
		"broker=%s identity=%s topic_base=%s browser=%t path=%s sort_order=%s max_skip_attempts=%d\n",
		cfg.Server.Broker,
		cfg.Server.Identity,
		cfg.Server.TopicBase,
		cfg.Modules.Browser.Enabled,
		cfg.Modules.Browser.Path,
		cfg.Modules.Browser.SortOrder,
		cfg.Modules.Browser.MaxSkipAttempts,
	)
}

func embeddedBrokerURL(cfg lensd.Config) string {
	listen := cfg.Modules.EmbeddedMQTT.Listen
	if listen == "" {
		listen = embeddedmqtt.DefaultListen
	}
	tlsEnabled := cfg.Modules.EmbeddedMQTT.TLSCert != "" || cfg.Modules.EmbeddedMQTT.TLSKey != "" || cfg.Modules.EmbeddedMQTT.TLSCA != ""
	return embeddedmqtt.BrokerURL(listen, tlsEnabled)
}

func startEmbeddedBroker(ctx context.Context, cfg lensd.Config, logger *zap.Logger, cancel context.CancelFunc) error {
	mod, err := embeddedmqtt.NewModule(logger.With(zap.String("module", "embedded_mqtt")), embeddedmqtt.Config{
		Listen:         cfg.Modules.EmbeddedMQTT.Listen,
		AllowAnonymous: cfg.Modules.EmbeddedMQTT.AllowAnonymous,
		Username:       cfg.Modules.EmbeddedMQTT.Username,
		Password:       cfg.Modules.EmbeddedMQTT.Password,
		TLSCA:          cfg.Modules.EmbeddedMQTT.TLSCA,
		TLSCert:        cfg.Modules.EmbeddedMQTT.TLSCert,
		TLSKey:         cfg.Modules.EmbeddedMQTT.TLSKey,
	})
	if err != nil {
		return err
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- mod.Run(ctx)
	}()
	go func() {
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("embedded mqtt exited", zap.Error(err))
			cancel()
		}
	}()

	listen := cfg.Modules.EmbeddedMQTT.Listen
	if listen == "" {
		listen = embeddedmqtt.DefaultListen
	}
	return waitForListen(listen, 3*time.Second)
}

func waitForListen(listen string, timeout time.Duration) error {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return err
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	addr := net.JoinHostPort(host, port)
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 200*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("embedded mqtt not ready at %s", addr)
}
