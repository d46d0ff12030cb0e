package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/invoice-corrector/pkg/utils"
)

// globalOptions are the persistent flags shared by every subcommand
type globalOptions struct {
	configPath string
	verbose    bool
}

func (o *globalOptions) logger() (*zap.Logger, error) {
	return utils.NewCLILogger(o.verbose)
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "invoicefix",
		Short: "Correct week-split PIXID invoices against their timecards",
		Long: `invoicefix reads HR-XML SIDES invoices, compares the billed quantities
with the hours reported in the embedded timecards and, when the timecards
only cover part of the billed week, prorates the lines and recomputes
totals, tax and period bounds. The rest of the document is left untouched.

Example Usage:
  invoicefix correct facture.xml                 # writes corrected_facture.xml
  invoicefix correct facture.xml -o fixed.xml
  invoicefix batch ./inbox --report summary.xlsx`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML configuration file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging on stderr")

	root.AddCommand(
		newCorrectCmd(opts),
		newBatchCmd(opts),
		newVersionCmd(),
	)
	return root
}
