package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"anoa.com/labeebacademy/internal/backend"
	"anoa.com/labeebacademy/internal/bootstrap"
	"anoa.com/labeebacademy/internal/config"
	"anoa.com/labeebacademy/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := backend.New(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to connect backend: %v", err)
	}
	defer client.Close()

	if err := bootstrap.Migrate(client.DB); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	if cfg.IsDevelopment() && cfg.AdminPassword != "" {
		if err := bootstrap.SeedAdminUser(client.DB, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Fatalf("failed to seed admin user: %v", err)
		}
	}

	srv, err := server.NewServer(cfg, client)
	if err != nil {
		log.Fatalf("failed to build server: %v", err)
	}

	if err := srv.Run(ctx); err != nil {
		log.Printf("server exited with error: %v", err)
	}
}
