package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"whence/internal/analyze"
	"whence/internal/bundle"
	"whence/internal/store"
	"whence/internal/synthesis"
	"whence/internal/usage"
)

var (
	analyzeStart  int
	analyzeEnd    int
	analyzeOutput string
	analyzeBundle string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze the provenance of a line range",
	Long: `Analyze gathers the enclosing scope, the line-range commit history, and the
symbol usage for the selected lines, then asks the configured backend for a
four-field verdict.

Examples:
  whence analyze calc.py -s 5 -e 9
  whence analyze internal/server.go -s 120 -e 145 --output json
  whence analyze calc.py -s 5 -e 9 --bundle area.whence.zst`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().IntVarP(&analyzeStart, "start", "s", 0, "First line of the selection (1-based)")
	analyzeCmd.Flags().IntVarP(&analyzeEnd, "end", "e", 0, "Last line of the selection (inclusive)")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "text", "Output format (text, json, yaml)")
	analyzeCmd.Flags().StringVar(&analyzeBundle, "bundle", "", "Write a compressed evidence bundle to this path")
	_ = analyzeCmd.MarkFlagRequired("start")
	_ = analyzeCmd.MarkFlagRequired("end")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repoRoot := mustRepoRoot(ctx)
	cfg := loadConfigOrExit(repoRoot)
	logger := newLogger(cfg)

	backend, err := synthesis.NewBackend(backendConfig(cfg), logger)
	if err != nil {
		return err
	}

	var provider usage.ReferenceProvider
	scip, err := usage.LoadSCIPIndex(filepath.Join(repoRoot, cfg.Index.ScipPath), repoRoot, logger)
	if err != nil {
		logger.Warn("SCIP index unusable, usage reporting disabled", map[string]interface{}{
			"error": err.Error(),
		})
	} else if scip != nil {
		provider = scip
	}

	var journal *store.Store
	if cfg.Store.Enabled {
		journal, err = store.Open(filepath.Join(repoRoot, cfg.Store.Path), logger)
		if err != nil {
			logger.Warn("Analysis journal unavailable", map[string]interface{}{
				"error": err.Error(),
			})
			journal = nil
		} else {
			defer func() { _ = journal.Close() }()
		}
	}

	engine := analyze.New(repoRoot, cfg, backend, provider, journal, logger)

	outcome, err := engine.Analyze(ctx, analyze.Request{
		FilePath:  args[0],
		StartLine: analyzeStart,
		EndLine:   analyzeEnd,
	})
	if err != nil {
		return err
	}

	if analyzeBundle != "" {
		b := bundle.Build(outcome.RequestID, outcome.Payload, outcome.Prompt, outcome.Result)
		if err := bundle.Write(b, analyzeBundle); err != nil {
			return err
		}
		logger.Info("Evidence bundle written", map[string]interface{}{
			"path": analyzeBundle,
		})
	}

	return printOutcome(outcome)
}

// analysisView is the serializable shape for json/yaml output.
type analysisView struct {
	RequestID string            `json:"requestId" yaml:"requestId"`
	File      string            `json:"file" yaml:"file"`
	StartLine int               `json:"startLine" yaml:"startLine"`
	EndLine   int               `json:"endLine" yaml:"endLine"`
	Scope     string            `json:"scope,omitempty" yaml:"scope,omitempty"`
	Commits   int               `json:"commits" yaml:"commits"`
	Usage     string            `json:"usage" yaml:"usage"`
	Result    *synthesis.Result `json:"result" yaml:"result"`
}

func viewOf(o *analyze.Outcome) analysisView {
	v := analysisView{
		RequestID: o.RequestID,
		File:      o.Target.FilePath,
		StartLine: o.Target.StartLine,
		EndLine:   o.Target.EndLine,
		Scope:     o.Payload.Chain.Path(),
		Result:    o.Result,
	}
	if o.Payload.History != nil {
		v.Commits = o.Payload.History.Len()
	}
	switch {
	case o.Payload.Usage == nil || o.Payload.Usage.Availability != usage.Confirmed:
		v.Usage = "unknown"
	case o.Payload.Usage.TotalCount == 0:
		v.Usage = "orphaned"
	default:
		v.Usage = fmt.Sprintf("%d references", o.Payload.Usage.TotalCount)
	}
	return v
}

func printOutcome(o *analyze.Outcome) error {
	view := viewOf(o)

	switch analyzeOutput {
	case "json":
		out, err := json.MarshalIndent(view, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	case "yaml":
		out, err := yaml.Marshal(view)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
	default:
		fmt.Printf("%s:%d-%d\n", view.File, view.StartLine, view.EndLine)
		if view.Scope != "" {
			fmt.Printf("Scope:    %s\n", view.Scope)
		}
		fmt.Printf("History:  %d commit(s)\n", view.Commits)
		fmt.Printf("Usage:    %s\n", view.Usage)
		fmt.Println()
		fmt.Printf("Intent:   %s\n", view.Result.Intent)
		fmt.Printf("Analysis: %s\n", view.Result.Analysis)
		fmt.Printf("Risk:     %s\n", view.Result.Risk)
		fmt.Printf("Verdict:  %s\n", view.Result.Verdict)
	}
	return nil
}
