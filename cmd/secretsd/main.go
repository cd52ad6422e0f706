package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/godbus/dbus/v5"

	"github.com/gosecrets/secretsd/internal/config"
	"github.com/gosecrets/secretsd/internal/service"
	"github.com/gosecrets/secretsd/internal/store"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "secretsd: %v\n", err)
		os.Exit(1)
	}

	if cfg.ShowVersion {
		fmt.Printf("secretsd version %s\n", Version)
		os.Exit(0)
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "secretsd: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()
	slog.SetDefault(logger)

	logger.Info("starting secretsd", slog.String("version", Version), slog.String("db_path", cfg.DBPath))

	st, err := store.Open(cfg.DBPath, logger)
	if err != nil {
		logger.Error("open store", slog.Any("error", err))
		os.Exit(1)
	}

	conn, err := connectBus(cfg.Bus)
	if err != nil {
		logger.Error("connect bus", slog.Any("error", err))
		st.Close()
		os.Exit(1)
	}
	defer conn.Close()

	svc := service.New(conn, st, cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := svc.Start(ctx); err != nil {
		logger.Error("start service", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("service started", slog.String("name", "org.freedesktop.secrets"))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", slog.String("signal", sig.String()))

	if err := svc.Stop(); err != nil {
		logger.Warn("error during shutdown", slog.Any("error", err))
	}
	logger.Info("service stopped")
}

func connectBus(bus string) (*dbus.Conn, error) {
	switch bus {
	case "system":
		return dbus.ConnectSystemBus()
	case "session", "":
		return dbus.ConnectSessionBus()
	default:
		return nil, fmt.Errorf("unknown bus %q: must be \"session\" or \"system\"", bus)
	}
}

func newLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	var level slog.Level
	if cfg.Debug {
		level = slog.LevelDebug
	} else if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	out := os.Stderr
	closeFn := func() {}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closeFn = func() { f.Close() }
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	return slog.New(handler), closeFn, nil
}
