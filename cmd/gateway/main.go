package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/framegate/framegate/internal/application/usecase"
	"github.com/framegate/framegate/internal/domain/repository"
	"github.com/framegate/framegate/internal/domain/schema"
	"github.com/framegate/framegate/internal/domain/service"
	domaintool "github.com/framegate/framegate/internal/domain/tool"
	"github.com/framegate/framegate/internal/infrastructure/config"
	"github.com/framegate/framegate/internal/infrastructure/llm"
	_ "github.com/framegate/framegate/internal/infrastructure/llm/openai"
	_ "github.com/framegate/framegate/internal/infrastructure/llm/scripted"
	"github.com/framegate/framegate/internal/infrastructure/logger"
	"github.com/framegate/framegate/internal/infrastructure/persistence"
	infratool "github.com/framegate/framegate/internal/infrastructure/tool"
	httpiface "github.com/framegate/framegate/internal/interfaces/http"
)

const (
	appName    = "framegate"
	appVersion = "0.1.0"
)

func main() {
	configDir := flag.String("config", ".", "directory holding config.yaml")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s v%s\n", appName, appVersion)
		return
	}

	cfg, err := config.Load(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, logLevel, err := logger.NewLoggerWithLevel(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		OutputPath: "stdout",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting framegate",
		zap.String("version", appVersion),
		zap.String("provider", cfg.Provider.Type),
		zap.String("model", cfg.Provider.Model),
	)

	// Runtime log level follows config.yaml edits.
	configFile := filepath.Join(*configDir, "config.yaml")
	if _, statErr := os.Stat(configFile); statErr == nil {
		stop, watchErr := config.Watch(configFile, log, func() {
			reloaded, err := config.Load(*configDir)
			if err != nil {
				log.Warn("Ignoring invalid config reload", zap.Error(err))
				return
			}
			if lvl, err := zapcore.ParseLevel(reloaded.Log.Level); err == nil {
				logLevel.SetLevel(lvl)
			}
		})
		if watchErr != nil {
			log.Warn("Config watcher unavailable", zap.Error(watchErr))
		} else {
			defer stop()
		}
	}

	provider, err := llm.CreateProvider(llm.ProviderConfig{
		Type:    cfg.Provider.Type,
		BaseURL: cfg.Provider.BaseURL,
		APIKey:  cfg.Provider.APIKey,
		Model:   cfg.Provider.Model,
	}, log)
	if err != nil {
		log.Fatal("Failed to create provider", zap.Error(err))
	}

	schemas, err := schema.NewBuiltinRegistry()
	if err != nil {
		log.Fatal("Failed to compile builtin schemas", zap.Error(err))
	}

	tools := domaintool.NewInMemoryRegistry()
	if err := infratool.RegisterBuiltins(tools); err != nil {
		log.Fatal("Failed to register builtin tools", zap.Error(err))
	}
	log.Info("Tools registered", zap.Strings("tools", tools.Names()))

	sessions := newSessionRepository(cfg, log)

	uc := usecase.NewStreamUseCase(cfg, provider, schemas, tools,
		service.NewIdempotencyCache(), sessions, log)

	server := httpiface.NewServer(httpiface.Config{
		Addr: cfg.Server.Addr(),
		Mode: "release",
	}, uc, log)
	server.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("Received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Shutdown did not complete cleanly", zap.Error(err))
	}
	log.Info("Gateway stopped")
}

// newSessionRepository opens the configured session store, falling
// back to memory when the database cannot be opened.
func newSessionRepository(cfg *config.Config, log *zap.Logger) repository.SessionRepository {
	if cfg.Database.Type == "memory" {
		return persistence.NewMemorySessionRepository()
	}
	db, err := persistence.NewDBConnection(&cfg.Database)
	if err != nil {
		log.Warn("Database unavailable, using in-memory session store", zap.Error(err))
		return persistence.NewMemorySessionRepository()
	}
	return persistence.NewGormSessionRepository(db)
}
