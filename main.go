package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/mkoeppen/zugboard/internal/api/bahn"
	"github.com/mkoeppen/zugboard/internal/config"
	"github.com/mkoeppen/zugboard/internal/notify"
	"github.com/mkoeppen/zugboard/internal/session"
	"github.com/mkoeppen/zugboard/internal/tools"
	"github.com/mkoeppen/zugboard/internal/transit"
	"github.com/mkoeppen/zugboard/internal/watch"
)

const version = "1.0.0"

var CLI struct {
	Config   string `help:"Path to config file" type:"path"`
	Stdio    bool   `help:"Serve MCP over stdio instead of HTTP"`
	Listen   string `help:"HTTP listen address" default:":3001"`
	LogLevel string `help:"Log level" default:"info" enum:"debug,info,warn,error"`
}

func main() {
	kong.Parse(&CLI)

	// Setup structured logging with logfmt. In stdio mode the protocol
	// owns stdout, so logs go to stderr.
	logger := logrus.New()
	if CLI.Stdio {
		logger.SetOutput(os.Stderr)
	} else {
		logger.SetOutput(os.Stdout)
	}
	level, err := logrus.ParseLevel(CLI.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableColors: true,
		FullTimestamp: true,
	})

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		logger.WithField("error", err).Fatal("failed to load config")
	}

	client := bahn.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.Timeout())
	svc := transit.NewBoardService(client, logger)
	sessions := session.NewManager(svc, logger)

	// Watch alerts are optional: they need Pushover credentials.
	var watcher *watch.Watcher
	pushoverToken := os.Getenv("PUSHOVER_TOKEN")
	pushoverUser := os.Getenv("PUSHOVER_USER")
	if cfg.Watch.Enabled && pushoverToken != "" && pushoverUser != "" {
		notifier := notify.NewNotifier(pushoverToken, pushoverUser, logger)
		watcher = watch.NewWatcher(svc, notifier, logger, cfg.Watch.Interval())
	} else {
		logger.Info("departure watching disabled (set PUSHOVER_TOKEN and PUSHOVER_USER to enable)")
	}

	handler := tools.NewHandler(svc, sessions, watcher, cfg.Board, logger)

	mcpServer := server.NewMCPServer("zugboard", version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithRecovery(),
	)
	tools.Register(mcpServer, handler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.WithField("signal", sig).Info("received signal, shutting down")
		cancel()
	}()

	if watcher != nil {
		watcher.Start(ctx)
		defer watcher.Stop()
	}

	if CLI.Stdio {
		logger.Info("serving MCP over stdio")
		// Listen takes the cancellable context so a signal actually
		// terminates the server instead of waiting for stdin to close.
		stdioServer := server.NewStdioServer(mcpServer)
		if err := stdioServer.Listen(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
			logger.WithField("error", err).Fatal("stdio server failed")
		}
		logger.Info("zugboard stopped")
		return
	}

	httpServer := server.NewStreamableHTTPServer(mcpServer)
	logger.WithField("listen", CLI.Listen).Info("serving MCP over HTTP")

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start(CLI.Listen)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.WithField("error", err).Fatal("http server failed")
		}
	case <-ctx.Done():
		if err := httpServer.Shutdown(context.Background()); err != nil {
			logger.WithField("error", err).Warn("http server shutdown failed")
		}
	}

	logger.Info("zugboard stopped")
}
