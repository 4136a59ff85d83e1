package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bdobrica/Koyomi/common/version"
	"github.com/bdobrica/Koyomi/internal/koyomi/app"
	"github.com/bdobrica/Koyomi/internal/koyomi/config"
	"github.com/bdobrica/Koyomi/internal/koyomi/observability"
)

func main() {
	fmt.Printf("Koyomi Calendar Assistant\n")
	fmt.Printf("Version: %s\n", version.Version)
	fmt.Printf("Commit: %s\n", version.GitCommit)
	fmt.Printf("Build Time: %s\n", version.BuildTime)
	fmt.Println()

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if err := observability.Setup(cfg.LogLevel, cfg.LogFormat); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	slog.Info("configuration loaded", cfg.LogArgs()...)

	koyomi, err := app.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize Koyomi: %s\n", observability.RedactSecrets(err.Error(), cfg.Secrets()...))
		os.Exit(1)
	}
	defer koyomi.Close()

	if err := koyomi.Run(context.Background()); err != nil {
		slog.Error("Koyomi stopped", "err", observability.RedactSecrets(err.Error(), cfg.Secrets()...))
		koyomi.Close()
		os.Exit(1)
	}
}
