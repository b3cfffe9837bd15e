package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"landscaping_invoices/internal/notify"
	"landscaping_invoices/internal/pipeline"
)

var downloadContractCmd = &cobra.Command{
	Use:   "download-contract",
	Short: "Download the contracted rates workbook",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := pipeline.DownloadContract(cmd.Context(), ".")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var fetchInvoicesCmd = &cobra.Command{
	Use:   "fetch-invoices",
	Short: "Fetch invoice mail attachments and expand them",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		files, _, err := pipeline.FetchInvoices()
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Fprintln(cmd.OutOrStdout(), f)
		}
		return nil
	},
}

var analyzeContract string

var analyzeCmd = &cobra.Command{
	Use:   "analyze <invoice-report>",
	Short: "Reconcile an invoice report against the contracted rates",
	Long: `Reconcile an invoice report against the contracted rates.

The report may be the CSV straight out of the mail attachment or an
already converted workbook. The comparison results are written into the
workbook as a new sheet and the workbook path is printed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := pipeline.Analyze(args[0], analyzeContract)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var approveCmd = &cobra.Command{
	Use:   "approve <workbook>",
	Short: "Submit approvals for a reconciled workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := pipeline.Approve(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "approved: %d\nfailed: %d\nneeds review: %d\n",
			summary.Approved, summary.Failed, summary.NeedsReview)
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the whole pipeline and email the summary",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return pipeline.Run(cmd.Context())
	},
}

var gmailSetupCmd = &cobra.Command{
	Use:   "gmail-setup",
	Short: "Authorize Gmail sending and save the token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return notify.RunTokenSetup(cmd.Context(), notify.LoadConfig())
	},
}

func init() {
	rootCmd.SetOut(os.Stdout)

	analyzeCmd.Flags().StringVar(&analyzeContract, "contract", "",
		"path to the contracted rates workbook (found automatically when omitted)")

	rootCmd.AddCommand(
		downloadContractCmd,
		fetchInvoicesCmd,
		analyzeCmd,
		approveCmd,
		runCmd,
		gmailSetupCmd,
	)
}
