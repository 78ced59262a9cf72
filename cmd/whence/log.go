package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"whence/internal/store"
)

var (
	logLimit int
	logFile  string
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "List past analyses",
	Long: `List analyses recorded in the journal, newest first.

Examples:
  whence log              # Last 20 analyses
  whence log -n 50        # Last 50
  whence log --file calc.py`,
	RunE: runLog,
}

func init() {
	logCmd.Flags().IntVarP(&logLimit, "limit", "n", 20, "Number of entries to show")
	logCmd.Flags().StringVar(&logFile, "file", "", "Only show analyses of this file")
	rootCmd.AddCommand(logCmd)
}

func runLog(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	repoRoot := mustRepoRoot(ctx)
	cfg := loadConfigOrExit(repoRoot)
	logger := newLogger(cfg)

	journal, err := store.Open(filepath.Join(repoRoot, cfg.Store.Path), logger)
	if err != nil {
		return err
	}
	defer func() { _ = journal.Close() }()

	entries, err := journal.Recent(ctx, logFile, logLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No analyses recorded yet.")
		return nil
	}

	for _, e := range entries {
		fmt.Printf("%s  %s:%d-%d  [%s]\n",
			e.CreatedAt.Format("2006-01-02 15:04"), e.FilePath, e.StartLine, e.EndLine, e.Risk)
		fmt.Printf("    %s\n", firstLine(e.Verdict))
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 120 {
		return s[:120] + "..."
	}
	return s
}
