package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatbridge-mcp-server/internal/browser"
	"chatbridge-mcp-server/internal/chat"
	"chatbridge-mcp-server/internal/config"
	"chatbridge-mcp-server/internal/discovery"
	mcpserver "chatbridge-mcp-server/internal/mcp"
	"chatbridge-mcp-server/internal/transcript"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the ChatBridge MCP config file")
	ssePort := flag.Int("sse-port", 0, "Optional SSE port override (falls back to config)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatalf("failed to load config: %v", err)
		}
		// No config file is fine; defaults cover every field.
		cfg = config.DefaultConfig()
	}
	if *ssePort != 0 {
		cfg.Server.SSEPort = *ssePort
	}

	// Redirect logging to file for stdio mode (stderr interferes with the MCP protocol).
	if cfg.Server.SSEPort == 0 && cfg.Server.LogFile != "" {
		logFile, err := os.OpenFile(cfg.Server.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			log.SetOutput(logFile)
			defer logFile.Close()
		} else {
			log.SetOutput(io.Discard)
		}
	}

	sessions := browser.NewSessionManager(cfg.Chat, discovery.NewPortResolver(), browser.NewRodConnector())
	handler := chat.NewHandler(cfg.Chat, sessions)

	if cfg.Transcript.Enabled {
		rec, err := transcript.NewRecorder(cfg.Transcript.Dir)
		if err != nil {
			log.Printf("transcript recorder disabled: %v", err)
		} else {
			handler = handler.WithTranscript(rec)
			defer rec.Close()
		}
	}

	server, err := mcpserver.NewServer(cfg, handler, sessions)
	if err != nil {
		log.Fatalf("failed to initialize MCP server: %v", err)
	}

	var startErr error
	if cfg.Server.SSEPort > 0 {
		log.Printf("starting ChatBridge MCP SSE server on port %d", cfg.Server.SSEPort)
		startErr = server.StartSSE(ctx, cfg.Server.SSEPort)
	} else {
		log.Printf("starting ChatBridge MCP stdio server")
		startErr = server.Start(ctx)
	}

	disposeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	handler.Dispose(disposeCtx)
	cancel()

	if startErr != nil && !errors.Is(startErr, context.Canceled) {
		log.Fatalf("server exited with error: %v", startErr)
	}
}
