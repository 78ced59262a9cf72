package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"whence/internal/config"
	"whence/internal/repostate"
	"whence/internal/scope"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose whence setup issues",
	Long: `Checks the environment whence depends on: git, the working tree, the
tree-sitter build, the SCIP index, and the backend credential.`,
	Run: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

type check struct {
	name     string
	ok       bool
	detail   string
	critical bool
}

func runDoctor(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	var checks []check

	_, gitErr := exec.LookPath("git")
	checks = append(checks, check{
		name:     "git on PATH",
		ok:       gitErr == nil,
		detail:   "install git; history extraction shells out to it",
		critical: true,
	})

	cwd, _ := os.Getwd()
	inTree := gitErr == nil && repostate.IsGitRepository(ctx, cwd)
	checks = append(checks, check{
		name:     "inside a git working tree",
		ok:       inTree,
		detail:   "run whence from inside a repository, or git init",
		critical: true,
	})

	checks = append(checks, check{
		name:   "structural analysis (tree-sitter)",
		ok:     scope.IsAvailable(),
		detail: "rebuild with CGO_ENABLED=1; without it scope resolution degrades",
	})

	var cfg *config.Config
	if inTree {
		root, err := repostate.FindRoot(ctx, cwd)
		if err == nil {
			cfg, _ = config.LoadConfig(root)
			_, statErr := os.Stat(config.ConfigPath(root))
			checks = append(checks, check{
				name:   "config file present",
				ok:     statErr == nil,
				detail: "run whence init (defaults are used until then)",
			})
			if cfg != nil {
				_, idxErr := os.Stat(filepath.Join(root, cfg.Index.ScipPath))
				checks = append(checks, check{
					name:   "SCIP index present",
					ok:     idxErr == nil,
					detail: "generate one (scip-go, scip-typescript, ...); usage stays unknown without it",
				})
			}
		}
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	credentialed := cfg.Backend.Provider == "custom" || cfg.Backend.Credential() != ""
	checks = append(checks, check{
		name:   "backend credential set",
		ok:     credentialed,
		detail: fmt.Sprintf("export %s=...", cfg.Backend.CredentialEnv),
	})

	failedCritical := false
	for _, c := range checks {
		mark := "ok"
		if !c.ok {
			mark = "FAIL"
			if c.critical {
				failedCritical = true
			}
		}
		fmt.Printf("[%4s] %s\n", mark, c.name)
		if !c.ok {
			fmt.Printf("       %s\n", c.detail)
		}
	}

	if failedCritical {
		os.Exit(1)
	}
}
