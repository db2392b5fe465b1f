// Command kernel runs the agent code executor kernel: it opens the
// store, wires every component, recovers from a prior crash, and serves
// the internal remote-runtime callback API until it is asked to stop.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agentkernel/kernel/pkg/approval"
	kernelconfig "github.com/agentkernel/kernel/pkg/config"
	"github.com/agentkernel/kernel/pkg/credential"
	"github.com/agentkernel/kernel/pkg/eventbus"
	"github.com/agentkernel/kernel/pkg/httpapi"
	"github.com/agentkernel/kernel/pkg/mediator"
	"github.com/agentkernel/kernel/pkg/models"
	"github.com/agentkernel/kernel/pkg/policy"
	"github.com/agentkernel/kernel/pkg/registry"
	"github.com/agentkernel/kernel/pkg/runtime"
	"github.com/agentkernel/kernel/pkg/scheduler"
	"github.com/agentkernel/kernel/pkg/store"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	envPath := flag.String("env-file", getEnv("ENV_FILE", ".env"), "Path to a .env file to load before reading configuration")
	flag.Parse()

	if err := godotenv.Load(*envPath); err != nil {
		slog.Warn("could not load env file, continuing with existing environment", "path", *envPath, "error", err)
	}

	var logHandler slog.Handler
	if getEnv("LOG_FORMAT", "json") == "text" {
		logHandler = slog.NewTextHandler(os.Stdout, nil)
	} else {
		logHandler = slog.NewJSONHandler(os.Stdout, nil)
	}
	slog.SetDefault(slog.New(logHandler))

	if err := run(); err != nil {
		slog.Error("kernel exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := kernelconfig.Load()
	if err != nil {
		return err
	}

	st, err := store.NewPostgresStore(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer st.Close()

	bus := eventbus.New()
	log := eventbus.NewLog(st, bus)
	reg := registry.New()
	pol := policy.New(st)
	cred := credential.New(st)
	appr := approval.New(st, log)
	med := mediator.New(st, log, reg, pol, appr, cred)
	runtimes := runtime.NewRegistry()
	callbacks := runtime.NewCallbackRegistry()
	sched := scheduler.New(st, log, runtimes, med)

	for _, entry := range cfg.Runtimes {
		if entry.Kind != "remote" {
			continue
		}
		timeout, _ := time.ParseDuration(entry.RequestTimeout)
		runtimes.Register(entry.ID, runtime.NewRemoteRuntime(models.RuntimeCatalogEntry{
			ID: entry.ID, Kind: entry.Kind, SandboxBaseURL: entry.SandboxBaseURL,
			AuthToken: entry.AuthToken, RequestTimeout: timeout, CallbackBaseURL: entry.CallbackBaseURL,
		}, callbacks))
	}

	recovered, err := sched.RecoverOnBoot(ctx)
	if err != nil {
		return err
	}
	slog.Info("boot-time recovery sweep complete", "tasks_marked_failed", recovered)

	gin.SetMode(getEnv("GIN_MODE", "release"))
	server := httpapi.NewServer(callbacks, cfg.InternalToken)
	httpServer := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: server.Engine()}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("kernel http server listening", "port", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-serveErr:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sched.Shutdown(shutdownCtx); err != nil {
		slog.Warn("scheduler shutdown did not complete cleanly", "error", err)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http server shutdown did not complete cleanly", "error", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
