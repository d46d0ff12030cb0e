package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/invoice-corrector/internal/reconcile"
)

type correctOptions struct {
	output string
	json   bool
}

func newCorrectCmd(global *globalOptions) *cobra.Command {
	opts := &correctOptions{}

	cmd := &cobra.Command{
		Use:   "correct <file>",
		Short: "Correct a single invoice document",
		Long: `Correct a single invoice document. The corrected document is written
only when a correction was made, by default next to the input as
corrected_<name>.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := global.logger()
			if err != nil {
				return err
			}
			defer logger.Sync()
			return runCorrect(cmd.OutOrStdout(), args[0], opts, logger)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "where to write the corrected document")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the full correction result as JSON")
	return cmd
}

func runCorrect(out io.Writer, path string, opts *correctOptions, logger *zap.Logger) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	logger.Debug("Correcting document", zap.String("path", path), zap.Int("size", len(raw)))

	result, err := reconcile.Correct(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	written := ""
	if result.Changed {
		written = opts.output
		if written == "" {
			written = filepath.Join(filepath.Dir(path), "corrected_"+filepath.Base(path))
		}
		if err := os.WriteFile(written, result.CorrectedXML, 0644); err != nil {
			return fmt.Errorf("failed to write corrected document: %w", err)
		}
		logger.Debug("Corrected document written", zap.String("path", written))
	}

	if opts.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printSummary(out, result, written)
	return nil
}

func printSummary(out io.Writer, result *reconcile.CorrectionResult, written string) {
	before, after := result.Original, result.Corrected

	fmt.Fprintf(out, "Invoice:       %s\n", before.InvoiceID)
	if result.Report.HasDiscrepancy {
		fmt.Fprintf(out, "Discrepancy:   billed %s, worked %s\n",
			result.Report.OriginalPeriod, result.Report.CorrectedPeriod)
	} else {
		fmt.Fprintf(out, "Discrepancy:   none (%s)\n", result.Report.Message)
	}
	fmt.Fprintf(out, "Hours:         %s -> %s\n", before.InvoicedHours.StringFixed(2), after.InvoicedHours.StringFixed(2))
	fmt.Fprintf(out, "Total HT:      %s -> %s\n", before.Totals.SubtotalHT.StringFixed(2), after.Totals.SubtotalHT.StringFixed(2))
	fmt.Fprintf(out, "Total TTC:     %s -> %s\n", before.Totals.TotalTTC.StringFixed(2), after.Totals.TotalTTC.StringFixed(2))

	if v := result.Verification; v != nil {
		if v.OK {
			fmt.Fprintln(out, "Verification:  OK")
		} else {
			fmt.Fprintf(out, "Verification:  %d mismatch(es)\n", len(v.Mismatches))
			for _, m := range v.Mismatches {
				fmt.Fprintf(out, "  %s: expected %s, found %s\n", m.Field, m.Expected, m.Actual)
			}
		}
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(out, "Warning:       %s\n", w)
	}
	if written != "" {
		fmt.Fprintf(out, "Written:       %s\n", written)
	}
}
