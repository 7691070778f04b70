// file: cmd/hostbridge/serve.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/hostbridge/hostbridge/internal/bridge"
	"github.com/hostbridge/hostbridge/internal/config"
	"github.com/hostbridge/hostbridge/internal/editor"
	"github.com/hostbridge/hostbridge/internal/identity"
	"github.com/hostbridge/hostbridge/internal/logging"
	"github.com/hostbridge/hostbridge/internal/mcp"
	"github.com/hostbridge/hostbridge/internal/shell"
	"github.com/hostbridge/hostbridge/internal/tools"
	"github.com/hostbridge/hostbridge/internal/transport"
	"github.com/hostbridge/hostbridge/internal/workspace"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Connect to the backend and serve tool requests",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.DefaultConfig(), nil
}

func runServe(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Server.Version == "" || cfg.Server.Version == "dev" {
		cfg.Server.Version = Version
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	logger := logging.NewLogrusLogger(os.Stderr, cfg.Server.LogLevel)
	logging.SetDefaultLogger(logger)

	clientID, err := resolveClientID(cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("Resolved client identity.", "clientID", clientID)

	opener, err := editor.NewLauncher(cfg.Editor.Name, logger)
	if err != nil {
		return err
	}

	ws := workspace.New(cfg.Workspace.Root, logger)
	runner := shell.NewRunner(logger, shell.WithDefaultTimeout(cfg.ShellTimeout()))

	registry := mcp.NewRegistry()
	if err := tools.Register(registry, tools.Deps{
		Workspace:   ws,
		Shell:       runner,
		Editor:      opener,
		TypingDelay: cfg.TypingDelay(),
		Logger:      logger,
	}); err != nil {
		return errors.Wrap(err, "failed to register tools")
	}

	newServer := func() (*mcp.Server, error) {
		return mcp.NewServer(cfg.Server.Name, cfg.Server.Version, registry, logger)
	}

	dial := func(ctx context.Context) (transport.Conn, error) {
		dialCtx, cancel := context.WithTimeout(ctx, cfg.HandshakeTimeout())
		defer cancel()
		return transport.Dial(dialCtx, cfg.Backend.BaseURL, clientID)
	}

	supervisor, err := bridge.NewSupervisor(dial, newServer, cfg.ReconnectDelay(), logger)
	if err != nil {
		return err
	}
	supervisor.OnConnected(func() {
		logger.Info("Bridge established.", "backend", cfg.Backend.BaseURL)
	})
	supervisor.OnDisconnected(func() {
		logger.Warn("Bridge lost, reconnect scheduled.", "delay", cfg.ReconnectDelay().String())
	})
	supervisor.OnError(func(err error) {
		logger.Warn("Bridge attempt failed.", "error", err)
	})

	runCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := supervisor.Start(runCtx); err != nil {
		// The backend may simply not be up yet; keep retrying on the
		// supervisor's schedule instead of exiting.
		logger.Warn("Initial connection failed, will retry.", "error", err)
		supervisor.ScheduleRetry(runCtx)
	}

	var httpServer *http.Server
	if cfg.Server.HTTPPort > 0 {
		httpServer = startHTTPGate(cfg, registry, logger)
	}

	<-runCtx.Done()
	logger.Info("Shutting down.")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("HTTP gate shutdown failed.", "error", err)
		}
	}
	return supervisor.Stop(shutdownCtx)
}

// resolveClientID produces the stable client identity: the configured value
// if any, otherwise a persisted one from the OS keyring with a config-file
// fallback, generated on first run.
func resolveClientID(cfg *config.Config, logger logging.Logger) (string, error) {
	fileStore, err := identity.NewFileStore(identity.DefaultFilePath(), logger)
	if err != nil {
		return "", err
	}
	return identity.Resolve(cfg.Backend.ClientID, identity.NewKeyringStore(logger), fileStore, logger)
}

// startHTTPGate serves the POST-only /rpc endpoint for local callers. The
// gate gets its own protocol session, independent of the bridge's.
func startHTTPGate(cfg *config.Config, registry *mcp.Registry, logger logging.Logger) *http.Server {
	server, err := mcp.NewServer(cfg.Server.Name, cfg.Server.Version, registry, logger)
	if err != nil {
		logger.Error("Failed to build HTTP gate session.", "error", err)
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/rpc", mcp.NewHTTPGate(server, logger))

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("localhost:%d", cfg.Server.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("HTTP gate listening.", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP gate failed.", "error", err)
		}
	}()
	return httpServer
}
