package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GriffinCanCode/ncube-web/internal/infrastructure/config"
	"github.com/GriffinCanCode/ncube-web/internal/infrastructure/server"
)

func main() {
	cfg := config.LoadOrDefault()

	// Flags override the environment
	flag.StringVar(&cfg.Server.Port, "port", cfg.Server.Port, "Server port")
	flag.StringVar(&cfg.Server.Host, "host", cfg.Server.Host, "Listen address")
	flag.StringVar(&cfg.Release.URL, "release-url", cfg.Release.URL, "Upstream release bundle URL")
	flag.StringVar(&cfg.Bootstrap.BundlePath, "bundle", cfg.Bootstrap.BundlePath, "Serve sessions from a local bundle instead of the proxy")
	flag.BoolVar(&cfg.Logging.Development, "dev", cfg.Logging.Development, "Development logging")
	configFile := flag.String("config", "", "YAML config file applied over the environment")
	flag.Parse()

	if *configFile != "" {
		if err := cfg.ApplyFile(*configFile); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	log.Println("-- ncube --")

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Run()
	}()

	select {
	case <-sigChan:
		log.Println("Shutting down gracefully...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Close(ctx); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	case err := <-errChan:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}
}
