package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/rs/zerolog"

	"github.com/lox/holdem-core/config"
	"github.com/lox/holdem-core/registry"
	"github.com/lox/holdem-core/transport"

	"github.com/coder/quartz"
)

var CLI struct {
	Config   string `short:"c" long:"config" default:"holdem-server.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" long:"addr" help:"Listen address (overrides config)"`
	LogLevel string `short:"l" long:"log-level" help:"Log level (overrides config)"`
	Seed     int64  `short:"s" long:"seed" help:"Random seed for deterministic table shuffles"`
}

func main() {
	ctx := kong.Parse(&CLI)

	cliLogger := log.New(os.Stderr)
	cliLogger.SetLevel(log.InfoLevel)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		cliLogger.Error("failed to load configuration", "err", err)
		ctx.Exit(1)
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		cliLogger.Error("invalid configuration", "err", err)
		ctx.Exit(1)
	}

	switch cfg.Server.LogLevel {
	case "debug":
		cliLogger.SetLevel(log.DebugLevel)
	case "warn":
		cliLogger.SetLevel(log.WarnLevel)
	case "error":
		cliLogger.SetLevel(log.ErrorLevel)
	default:
		cliLogger.SetLevel(log.InfoLevel)
	}

	serviceLogger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger()

	seed := CLI.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	reg := registry.New(cfg, quartz.NewReal(), serviceLogger, seed)
	srv := transport.NewServer(reg, serviceLogger)

	addr := cfg.Address()
	if CLI.Addr != "" {
		addr = CLI.Addr
	}
	cliLogger.Info("starting holdem-core server", "addr", addr, "seed", seed)

	serverErr := make(chan error, 1)
	go func() { serverErr <- srv.Start(addr) }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			cliLogger.Error("server exited", "err", err)
			ctx.Exit(1)
		}
	case sig := <-sigChan:
		cliLogger.Info("received signal, shutting down", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			cliLogger.Error("graceful shutdown failed", "err", err)
		}
		if err := <-serverErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
			cliLogger.Error("server exited with error", "err", err)
		} else {
			cliLogger.Info("server shutdown complete")
		}
	}
}
