package cmd

import (
	"fmt"

	"github.com/mlbb-ai/coach/internal/llm"
)

// Version information, injected at build time via ldflags.
var (
	Version   = "development"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// runVersion prints build and configuration information.
func runVersion() error {
	fmt.Printf("mlbb-coach %s\n", Version)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
	fmt.Println()

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Println("Configuration:")
	fmt.Printf("  Provider: %s\n", cfg.Provider)
	fmt.Printf("  Model: %s\n", cfg.ModelName)
	fmt.Printf("  Temperature: %.2f\n", cfg.Temperature)
	fmt.Printf("  Max tokens: %d\n", cfg.MaxTokens)
	if cfg.PostgresDSN != "" {
		fmt.Println("  Storage: postgres")
	} else {
		fmt.Println("  Storage: memory (set COACH_POSTGRES_DSN to persist)")
	}

	if llm.GoogleAIAvailable() {
		fmt.Println("  GEMINI_API_KEY: configured")
	} else {
		fmt.Println("  GEMINI_API_KEY: not set")
		fmt.Println()
		fmt.Println("Hint: export GEMINI_API_KEY=your-api-key to enable the googleai provider")
	}
	return nil
}
