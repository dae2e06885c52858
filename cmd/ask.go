package cmd

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mlbb-ai/coach/internal/app"
	"github.com/mlbb-ai/coach/internal/coach"
)

// runAsk answers a one-shot coaching question and prints the reply with its
// follow-up suggestions.
func runAsk(args []string) error {
	fs := flag.NewFlagSet("ask", flag.ContinueOnError)
	provider := fs.String("provider", "", "backend to use (googleai, ollama); default from config")
	session := fs.String("session", "", "session id to continue; empty starts fresh")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parsing ask flags: %w", err)
	}

	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		return fmt.Errorf("usage: mlbb-coach ask [-provider name] <question>")
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	res, err := a.Engine.Invoke(ctx, coach.Request{
		SessionID: *session,
		Message:   question,
		Provider:  *provider,
	})
	if err != nil {
		return fmt.Errorf("asking: %w", err)
	}

	fmt.Println(res.Answer)
	if len(res.Suggestions) > 0 {
		fmt.Println()
		fmt.Println("You could also ask:")
		for _, s := range res.Suggestions {
			fmt.Printf("  - %s\n", s)
		}
	}
	fmt.Printf("\n(session: %s)\n", res.SessionID)
	return nil
}
