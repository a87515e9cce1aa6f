// Package cmd provides the command-line interface for vitalsim.
package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use: "vitalsim",
	Short: "Vitalsim runs agent-based demographic simulations with " +
		"rate-driven births, deaths, and pregnancies.",
	Long: `Vitalsim runs agent-based demographic simulations. A population ` +
		`of agents ages through a yearly timeline while birth, death, and ` +
		`pregnancy modules update it; result series are written to a SQLite ` +
		`database for analysis.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	// A .env file, if present, provides defaults for the flags.
	_ = godotenv.Load()

	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	_ = os.Stdout.Sync()
	atexit.Exit(0)
}
