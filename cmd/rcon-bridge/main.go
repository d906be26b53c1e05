package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rconduit/rconduit/internal/bridge"
	"github.com/rconduit/rconduit/internal/logging"
)

func main() {
	logging.ConfigureRuntime()

	path := "rcon-bridge.toml"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	cfg, err := loadBridgeConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rcon-bridge: %v\n", err)
		os.Exit(1)
	}
	if v := os.Getenv("RCONDUIT_CONSOLE_PASSWORD"); v != "" {
		cfg.Password = v
	}

	srv, err := bridge.NewServer(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rcon-bridge: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := srv.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "rcon-bridge: %v\n", err)
		os.Exit(1)
	}
}
