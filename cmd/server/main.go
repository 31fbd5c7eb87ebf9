package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/vdavid/mailview/internal/config"
	"github.com/vdavid/mailview/internal/db"
	"github.com/vdavid/mailview/internal/server"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewConnection(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.CloseConnection(pool)

	log.Printf("Successfully connected to database")

	srv, err := server.NewServer(cfg, pool)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}
	defer srv.Close()

	if err := server.Serve(ctx, ":"+cfg.Port, srv); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
	log.Printf("mailview server stopped")
}
