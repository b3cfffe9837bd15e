package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"landscaping_invoices/internal/app"
)

var rootCmd = &cobra.Command{
	Use:   "landscaping_invoices",
	Short: "Reconciles landscaping invoices against contracted rates",
	Long: `landscaping_invoices downloads the contracted rates sheet, pulls the
weekly invoice report out of the mailbox, compares every work order
against its contracted rate, approves the invoices that match, and
emails a summary of the results.

Each stage is also available as its own command so a run can be
resumed or inspected halfway.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		app.SetupEnvironment()
		// Argument errors still print usage; runtime failures only log.
		cmd.SilenceUsage = true
	},
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
