// Package cmd provides the mlbb-coach CLI.
//
// Commands:
//   - serve: HTTP API server
//   - ask: one-shot coaching question
//   - ingest: index guide HTML into the knowledge base
//   - version: build and configuration info
//
// All long-running commands shut down gracefully on SIGINT/SIGTERM via
// context cancellation.
package cmd

import (
	"fmt"
	"os"

	"github.com/mlbb-ai/coach/internal/config"
	"github.com/mlbb-ai/coach/internal/log"
)

// Execute is the CLI entry point.
func Execute() error {
	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe(os.Args[2:])
	case "ask":
		return runAsk(os.Args[2:])
	case "ingest":
		return runIngest(os.Args[2:])
	case "version", "--version", "-v":
		return runVersion()
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// loadConfig loads configuration and builds the logger from it.
func loadConfig() (*config.Config, log.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	logger := log.New(log.Config{
		Level: log.ParseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})
	return cfg, logger, nil
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("mlbb-coach - Mobile Legends: Bang Bang coaching assistant")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  mlbb-coach serve [-addr host:port]   Start the HTTP API server")
	fmt.Println("  mlbb-coach ask [-provider name] <question>")
	fmt.Println("                                       Ask a one-shot coaching question")
	fmt.Println("  mlbb-coach ingest -partition name <file.html ...>")
	fmt.Println("                                       Index guide HTML into the knowledge base")
	fmt.Println("  mlbb-coach version                   Show version information")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY       Gemini API key (googleai provider)")
	fmt.Println("  COACH_OLLAMA_HOST    Ollama server address (ollama provider)")
	fmt.Println("  COACH_POSTGRES_DSN   PostgreSQL DSN; unset runs memory-only")
	fmt.Println("  COACH_LOG_LEVEL      debug, info, warn, error")
}
