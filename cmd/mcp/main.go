package main

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/knou-assistant/internal/adapters/mcp"
	"github.com/kirillkom/knou-assistant/internal/bootstrap"
	"github.com/kirillkom/knou-assistant/internal/config"
	"github.com/kirillkom/knou-assistant/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	// stdout carries the protocol
	logger := logging.NewJSONLoggerTo(os.Stderr, "mcp", cfg.LogLevel)

	app, err := bootstrap.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	s := mcpadapter.NewServer(app.Search, app.DataRange, cfg.RAGTopK, logger)
	if err := server.ServeStdio(s); err != nil {
		logger.Error("mcp_serve_failed", "error", err)
	}
}
