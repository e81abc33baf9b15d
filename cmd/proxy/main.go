// Command proxy forwards /api requests from the web client to the Damara
// API and answers CORS preflights itself.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"damara/internal/config"
	"damara/internal/observability"
	"damara/internal/proxy"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	app := proxy.NewApp(proxy.New(cfg.BackendURL))

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(ctx); err != nil {
			observability.Logger.Error("proxy shutdown error", "error", err)
		}
	}()

	observability.Logger.Info("Proxy starting", "port", cfg.ProxyPort, "backend", cfg.BackendURL)
	if err := app.Listen(":" + cfg.ProxyPort); err != nil {
		log.Fatal(err)
	}
}
