package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"zigbee-coop-door/internal/automation"
	"zigbee-coop-door/internal/device"
	"zigbee-coop-door/internal/hal"
	"zigbee-coop-door/internal/mqtt"
	"zigbee-coop-door/internal/stepper"
	"zigbee-coop-door/internal/store"
	"zigbee-coop-door/internal/web"
	"zigbee-coop-door/internal/zcl"
	"zigbee-coop-door/internal/zcl/clusters"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

// Device endpoint, used to receive door controlling commands.
const doorEndpoint = 10

// Basic cluster metadata, written once at startup.
const (
	basicZCLVersion   = 3
	basicAppVersion   = 1
	basicStackVersion = 10
	basicHWVersion    = 11
	basicManufName    = "Nordic"
	basicModelID      = "Chicken_Coop_v0.1"
	basicDateCode     = "20231121"
	basicLocation     = "Outside"
)

// Pin assignments, nRF52840-DK layout.
var (
	pinMotorStep   = hal.PinMap(1, 4)
	pinMotorDir    = hal.PinMap(1, 7)
	pinMotorEnable = hal.PinMap(1, 10)
	pinRunLED      = hal.PinMap(0, 13) // LED1
	pinNetworkLED  = hal.PinMap(0, 15) // LED3
	pinIdentifyLED = hal.PinMap(0, 16) // LED4
)

// Button used for identify mode and factory reset (BTN4).
const identifyButtonMask uint32 = 1 << 3

const runLEDBlinkInterval = time.Second

type Config struct {
	HAL struct {
		Backend string `yaml:"backend"` // "memory" or "serial"
		Port    string `yaml:"port"`
		Baud    int    `yaml:"baud"`
	} `yaml:"hal"`
	MQTT struct {
		Enabled     bool   `yaml:"enabled"`
		Broker      string `yaml:"broker"`
		Username    string `yaml:"username"`
		Password    string `yaml:"password"`
		TopicPrefix string `yaml:"topic_prefix"`
		DeviceName  string `yaml:"device_name"`
	} `yaml:"mqtt"`
	Web struct {
		Listen string `yaml:"listen"`
	} `yaml:"web"`
	Store struct {
		Path string `yaml:"path"`
	} `yaml:"store"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	HookScript string `yaml:"hook_script"`
}

func (c *Config) validate() error {
	switch c.HAL.Backend {
	case "memory":
	case "serial":
		if c.HAL.Port == "" {
			return fmt.Errorf("hal.port is required for the serial backend")
		}
	default:
		return fmt.Errorf("unknown hal.backend: %q (supported: memory, serial)", c.HAL.Backend)
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	return nil
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
	logger.Info("coop-door starting", "version", version)

	// Open the settings store.
	db, err := store.NewBoltStore(cfg.Store.Path)
	if err != nil {
		logger.Error("open store", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// Create the GPIO backend.
	gpio, err := createGPIO(cfg, logger)
	if err != nil {
		logger.Error("create GPIO backend", "err", err)
		os.Exit(1)
	}
	defer gpio.Close()

	// Attribute state, with metadata written once and the mutable slice
	// restored from the settings store.
	attrs := device.NewAttributeStore()
	if err := attrs.SetMetadata(device.Metadata{
		ZCLVersion:       basicZCLVersion,
		AppVersion:       basicAppVersion,
		StackVersion:     basicStackVersion,
		HWVersion:        basicHWVersion,
		ManufacturerName: basicManufName,
		ModelID:          basicModelID,
		DateCode:         basicDateCode,
		PowerSource:      zcl.PowerSourceDCSource,
		Location:         basicLocation,
	}); err != nil {
		logger.Error("init metadata", "err", err)
		os.Exit(1)
	}
	snap, err := db.GetAttributes()
	switch {
	case err == nil:
		attrs.Restore(snap)
		logger.Info("settings restored", "on_off", snap.OnOff)
	case errors.Is(err, store.ErrNotFound):
		logger.Info("no persisted settings, using defaults")
	default:
		logger.Error("load settings", "err", err)
	}

	// ZCL endpoint description.
	registry := zcl.NewRegistry(logger)
	registry.Register(clusters.Basic)
	registry.Register(clusters.Identify)
	registry.Register(clusters.Groups)
	registry.Register(clusters.Scenes)
	registry.Register(clusters.OnOff)
	endpoint := registry.Endpoint(doorEndpoint, 0x0104, 0x0002,
		clusters.Basic.ID, clusters.Identify.ID, clusters.Groups.ID,
		clusters.Scenes.ID, clusters.OnOff.ID)

	events := device.NewEventBus(logger)
	netState := device.NewNetworkState(gpio.Pin(pinNetworkLED), events, logger)

	// Motor control.
	seq := stepper.New(gpio.Pin(pinMotorStep), gpio.Pin(pinMotorDir), gpio.Pin(pinMotorEnable), logger)
	seq.Init()

	identify := device.NewIdentifyController(attrs, gpio.Pin(pinIdentifyLED), events, netState.Joined, logger)
	defer identify.Cancel()

	bridge := device.NewBridge(attrs, seq, identify, db, events, logger)

	// Button handling: factory reset long-press timer plus the release
	// classifier feeding the identify toggle.
	factoryReset := device.NewFactoryReset(identifyButtonMask, func() {
		identify.Cancel()
		if err := db.Wipe(); err != nil {
			logger.Error("wipe settings", "err", err)
		}
	}, events, logger)
	classifier := device.NewButtonClassifier(identifyButtonMask, factoryReset, logger)

	gpio.OnButton(func(state, changed uint32) {
		if classifier.Classify(state, changed) == device.IntentIdentifyToggle {
			if err := bridge.ToggleIdentify(); err != nil {
				logger.Warn("cannot enter identify mode", "err", err)
			}
		}
		factoryReset.Check(state, changed)
	})

	// MQTT transport. Without it the device runs standalone and counts as
	// joined so local control keeps working.
	var transport *mqtt.Bridge
	if cfg.MQTT.Enabled {
		transport, err = mqtt.NewBridge(bridge, attrs, netState, events, mqtt.Config{
			Broker:      cfg.MQTT.Broker,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			DeviceName:  cfg.MQTT.DeviceName,
		}, logger)
		if err != nil {
			logger.Error("connect mqtt", "err", err)
			os.Exit(1)
		}
		transport.Start()
	} else {
		logger.Info("mqtt disabled, running standalone")
		netState.SetJoined(true)
	}

	// Optional hook script.
	var engine *automation.Engine
	if cfg.HookScript != "" {
		engine = automation.NewEngine(bridge, events, cfg.HookScript, logger)
		if err := engine.Start(); err != nil {
			logger.Error("start automation", "err", err)
			os.Exit(1)
		}
	}

	// Web diagnostics surface.
	webServer := web.NewServer(bridge, attrs, netState, events, endpoint, logger, web.WithVersion(version))
	httpServer := &http.Server{
		Addr:         cfg.Web.Listen,
		Handler:      webServer,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		logger.Info("web server starting", "addr", cfg.Web.Listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", "err", err)
		}
	}()

	// Run status heartbeat.
	heartbeatDone := make(chan struct{})
	go heartbeat(gpio.Pin(pinRunLED), heartbeatDone)

	logger.Info("coop door ready", "endpoint", doorEndpoint, "model", basicModelID)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	signal.Stop(sigCh)
	logger.Info("shutting down", "signal", sig)

	close(heartbeatDone)
	if engine != nil {
		engine.Stop()
	}
	if transport != nil {
		transport.Stop()
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", "err", err)
	}
	shutdownCancel()
	webServer.Stop()
	identify.Cancel()

	logger.Info("goodbye")
}

func heartbeat(led hal.Pin, done <-chan struct{}) {
	ticker := time.NewTicker(runLEDBlinkInterval)
	defer ticker.Stop()
	on := false
	for {
		select {
		case <-done:
			led.Clear()
			return
		case <-ticker.C:
			on = !on
			if on {
				led.Set()
			} else {
				led.Clear()
			}
		}
	}
}

func createGPIO(cfg *Config, logger *slog.Logger) (hal.GPIO, error) {
	switch cfg.HAL.Backend {
	case "serial":
		logger.Info("using serial pin expander", "port", cfg.HAL.Port, "baud", cfg.HAL.Baud)
		return hal.NewSerialGPIO(cfg.HAL.Port, cfg.HAL.Baud, logger)
	default:
		logger.Info("using in-memory GPIO (simulation)")
		return hal.NewMemoryGPIO(), nil
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
	if cfg.HAL.Backend == "" {
		cfg.HAL.Backend = "memory"
	}
	if cfg.HAL.Baud == 0 {
		cfg.HAL.Baud = 115200
	}
	if cfg.Web.Listen == "" {
		cfg.Web.Listen = "127.0.0.1:8080"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "coop-door.db"
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "coop"
	}
	if cfg.MQTT.DeviceName == "" {
		cfg.MQTT.DeviceName = "coop-door"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
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
