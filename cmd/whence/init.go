package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"whence/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize whence configuration",
	Long:  "Creates a .whence/ directory with a commented default config.toml at the repository root",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing configuration")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	repoRoot := mustRepoRoot(context.Background())

	if initForce {
		if err := os.Remove(config.ConfigPath(repoRoot)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	path, err := config.WriteDefault(repoRoot)
	if os.IsExist(err) {
		// Idempotent: already initialized is success.
		fmt.Println("whence already initialized.")
		fmt.Printf("Configuration at: %s\n", path)
		fmt.Println("\nRun 'whence init --force' to rewrite the defaults.")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Println("Initialized whence.")
	fmt.Printf("Configuration written to: %s\n", path)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Set the backend credential, e.g. export ANTHROPIC_API_KEY=...")
	fmt.Println("  2. Optionally generate a SCIP index (e.g. scip-go, scip-typescript) for usage reporting")
	fmt.Println("  3. Run: whence analyze <file> -s <start> -e <end>")
	return nil
}
