package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status BUSINESS JOB",
		Short: "Show the status of a filing job",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseBusinessID(args[0])
			if err != nil {
				return err
			}
			return withEnv(cmd, func(e *env) error {
				status, err := e.client.FilingStatus(cmd.Context(), id, args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", status, status.Message())
				return nil
			})
		},
	}
}

func receiptCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "receipt BUSINESS JOB",
		Short: "Download the receipt PDF of a completed filing",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseBusinessID(args[0])
			if err != nil {
				return err
			}
			if output == "" {
				output = "receipt_" + args[1] + ".pdf"
			}
			return withEnv(cmd, func(e *env) error {
				pdf, err := e.client.Receipt(cmd.Context(), id, args[1])
				if err != nil {
					return err
				}
				if err := os.WriteFile(output, pdf, 0o644); err != nil {
					return fmt.Errorf("write receipt: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d bytes)\n", output, len(pdf))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default receipt_JOB.pdf)")
	return cmd
}
