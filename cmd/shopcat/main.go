package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"shopcat/internal/config"
	"shopcat/internal/logging"
)

func main() {
	var addr string
	flag.StringVar(&addr, "addr", "", "Address to bind (defaults to HOST:PORT)")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("failed to load .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	flush, err := logging.Setup(context.Background(), os.Stdout, cfg.Log.Level)
	if err != nil {
		log.Fatalf("failed to set up logging: %v", err)
	}

	if addr == "" {
		addr = cfg.Server.Addr()
	}
	err = runServer(cfg, addr)
	if err != nil {
		slog.Error("server error", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if flushErr := flush(ctx); flushErr != nil {
		log.Printf("failed to flush logs: %v", flushErr)
	}
	if err != nil {
		os.Exit(1)
	}
}
