package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"zigbee-quirks/internal/coordinator"
	"zigbee-quirks/internal/device"
	"zigbee-quirks/internal/quirks"
	"zigbee-quirks/internal/quirks/builtin"
	"zigbee-quirks/internal/store"
	"zigbee-quirks/internal/zcl"
	"zigbee-quirks/internal/zcl/clusters"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

type Config struct {
	Store struct {
		Path string `yaml:"path"`
	} `yaml:"store"`
	MQTT struct {
		Enabled     bool   `yaml:"enabled"`
		Broker      string `yaml:"broker"`
		Username    string `yaml:"username"`
		Password    string `yaml:"password"`
		TopicPrefix string `yaml:"topic_prefix"`
	} `yaml:"mqtt"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Battery struct {
		// ReadTimeout bounds a single attribute read, e.g. "10s".
		ReadTimeout string `yaml:"read_timeout"`
	} `yaml:"battery"`
}

func (c *Config) validate() error {
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	if _, err := c.readTimeout(); err != nil {
		return err
	}
	return nil
}

func (c *Config) readTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Battery.ReadTimeout)
	if err != nil {
		return 0, fmt.Errorf("battery.read_timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("battery.read_timeout must be positive, got %s", d)
	}
	return d, nil
}

func main() {
	// Temporary logger for config loading errors.
	bootLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfgPath := "config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		bootLogger.Error("load config", "err", err)
		os.Exit(1)
	}

	if err := cfg.validate(); err != nil {
		bootLogger.Error("invalid config", "err", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)
	logger.Info("zigbee-quirks starting", "version", version)

	registry := zcl.NewRegistry(logger)
	registry.RegisterAll(clusters.Standard())

	catalog := quirks.NewCatalog(logger)
	builtin.Register(catalog)
	logger.Info("quirk catalog loaded", "clusters", registry.Len(), "quirks", catalog.Len())

	db, err := store.NewBoltStore(cfg.Store.Path)
	if err != nil {
		logger.Error("open store", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	readTimeout, _ := cfg.readTimeout()

	// No radio backend: devices are restored from the store and resolved
	// against the catalog.
	events := coordinator.NewEventBus(logger)
	coord := coordinator.New(nil, db, registry, catalog, events, coordinator.Config{
		ReadTimeout: readTimeout,
	}, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := coord.Start(ctx); err != nil {
		logger.Error("start coordinator", "err", err)
		cancel()
		db.Close()
		os.Exit(1)
	}
	cancel()

	printSummary(os.Stdout, coord.Devices().Sessions())

	if !cfg.MQTT.Enabled {
		coord.Stop()
		return
	}

	// Start MQTT bridge (no-op when built with no_mqtt tag).
	mqtt := initMQTT(coord, cfg, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	signal.Stop(sigCh)
	logger.Info("shutting down", "signal", sig)

	mqtt.Stop()
	coord.Stop()

	logger.Info("goodbye")
}

// printSummary writes one line per resolved device.
func printSummary(w io.Writer, devices []*device.Device) {
	for _, dev := range devices {
		quirk := dev.Quirk
		if quirk == "" {
			quirk = "-"
		}
		battery := "-"
		if dev.Battery != nil {
			r := dev.Battery.Readings()
			battery = fmt.Sprintf("battery=%s voltage=%s", r.Percent, r.Voltage)
		}
		name := strings.TrimSpace(dev.Manufacturer + " " + dev.Model)
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(w, "%s  %-32s  %-36s  %s\n", device.IEEEString(dev.IEEE), name, quirk, battery)
	}
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "zigbee-quirks.db"
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "zigbee2mqtt"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Battery.ReadTimeout == "" {
		cfg.Battery.ReadTimeout = "10s"
	}
	return &cfg, nil
}

func newLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(cfg.Log.Format) {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
