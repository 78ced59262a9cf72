package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"whence/internal/config"
	"whence/internal/logging"
	"whence/internal/repostate"
	"whence/internal/synthesis"
	"whence/internal/version"
)

var (
	logLevelFlag  string
	logFormatFlag string
)

var rootCmd = &cobra.Command{
	Use:   "whence",
	Short: "whence - code provenance analysis",
	Long: `whence explains where a piece of code came from and whether it is safe to
change. Given a file and a line range inside a git worktree, it gathers the
enclosing syntactic scope, the commits that shaped those exact lines, and the
references to the enclosing symbol, then asks a configured reasoning backend
for an intent/analysis/risk/verdict summary.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("whence version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "",
		"Log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "",
		"Log format: human, json (overrides config)")
}

// mustRepoRoot resolves the enclosing repository root or exits with the
// suggested fixes.
func mustRepoRoot(ctx context.Context) string {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	root, err := repostate.FindRoot(ctx, cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return root
}

// loadConfigOrExit loads the repo config, honoring the log override flags.
func loadConfigOrExit(repoRoot string) *config.Config {
	cfg, err := config.LoadConfig(repoRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if logLevelFlag != "" {
		cfg.Logging.Level = logLevelFlag
	}
	if logFormatFlag != "" {
		cfg.Logging.Format = logFormatFlag
	}
	return cfg
}

func newLogger(cfg *config.Config) *logging.Logger {
	return logging.NewLogger(logging.Config{
		Format: logging.Format(cfg.Logging.Format),
		Level:  logging.ParseLevel(cfg.Logging.Level),
	})
}

func backendConfig(cfg *config.Config) synthesis.BackendConfig {
	return synthesis.BackendConfig{
		Provider:  cfg.Backend.Provider,
		Model:     cfg.Backend.Model,
		BaseURL:   cfg.Backend.BaseURL,
		APIKey:    cfg.Backend.Credential(),
		MaxTokens: cfg.Backend.MaxTokens,
		Timeout:   time.Duration(cfg.Backend.TimeoutMs) * time.Millisecond,
	}
}
