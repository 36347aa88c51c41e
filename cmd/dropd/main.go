package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dropgate/config"
	"dropgate/core/events"
	"dropgate/core/types"
	corestate "dropgate/core/state"
	nativecommon "dropgate/native/common"
	"dropgate/native/drop"
	"dropgate/observability"
	"dropgate/observability/logging"
	"dropgate/rpc"
	"dropgate/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("DROPGATE_ENV"))

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	if env == "" {
		env = cfg.Environment
	}
	logger := logging.Setup(cfg.ServiceName, env, cfg.LogFile)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Error("failed to create data directory", "dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}
	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "state"))
	if err != nil {
		logger.Error("failed to open state database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	manager := corestate.NewManager(db)
	emitter := newLogEmitter(logger)

	registry := drop.NewRegistry(manager)
	registry.SetEmitter(emitter)

	tokens := corestate.NewTokenBook(manager)
	funds := corestate.NewPaymentLedger(manager)
	pauses := nativecommon.NewStaticPauses(cfg.PausedModules)
	observability.Mint().SetPause(pauses.IsPaused("drop"))

	engine := drop.NewEngine()
	engine.SetState(manager)
	engine.SetRegistry(registry)
	engine.SetEmitter(emitter)
	engine.SetPauses(pauses)
	engine.SetTokens(tokens)
	engine.SetOwnership(tokens)
	engine.SetFunds(funds)

	secret := cfg.AdminSecret()
	if len(secret) == 0 {
		logger.Warn("admin secret not configured, configuration methods disabled", "env", cfg.AdminSecretEnv)
	}

	server := rpc.NewServer(engine, registry, rpc.ServerOptions{
		AdminSecret:     secret,
		RateLimitPerSec: cfg.RateLimitPerSec,
		RateLimitBurst:  cfg.RateLimitBurst,
		Logger:          logger,
	})
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("rpc server stopped", "error", err)
		os.Exit(1)
	}
}

// logEmitter surfaces module events on the structured log. A chain embedding
// the module would route these into its event stream instead.
type logEmitter struct {
	log interface {
		Info(msg string, args ...any)
	}
}

func newLogEmitter(log interface {
	Info(msg string, args ...any)
}) events.Emitter {
	return &logEmitter{log: log}
}

func (l *logEmitter) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	detailed, ok := evt.(interface{ Event() *types.Event })
	if !ok {
		l.log.Info(evt.EventType())
		return
	}
	wrapped := detailed.Event()
	if wrapped == nil {
		return
	}
	args := make([]any, 0, len(wrapped.Attributes)*2)
	for key, value := range wrapped.Attributes {
		args = append(args, key, value)
	}
	l.log.Info(wrapped.Type, args...)
}
