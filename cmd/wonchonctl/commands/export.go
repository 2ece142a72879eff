package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"wonchon/internal/core"
	"wonchon/internal/documents"
)

func exportCmd() *cobra.Command {
	var (
		output  string
		overdue bool
	)
	cmd := &cobra.Command{
		Use:   "export BUSINESS YEAR MONTH",
		Short: "Write a draft as a payment statement spreadsheet",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseDraftKey(args)
			if err != nil {
				return err
			}
			if output == "" {
				output = fmt.Sprintf("draft_%d_%d%02d.xlsx", key.BusinessID, key.Period.Year, key.Period.Month)
			}
			return withEnv(cmd, func(e *env) error {
				earners, ok := e.drafts.Load(cmd.Context(), key)
				if !ok {
					return fmt.Errorf("no draft for business %d, %s", key.BusinessID, key.Period.Label())
				}
				xlsx, err := documents.Statement(documents.Filing{
					Business: core.Company{ID: key.BusinessID},
					Period:   key.Period,
					Overdue:  overdue,
					Earners:  earners,
					Tax:      core.CalculateTax(earners, overdue),
				})
				if err != nil {
					return err
				}
				if err := os.WriteFile(output, xlsx, 0o644); err != nil {
					return fmt.Errorf("write statement: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d earners)\n", output, len(earners))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file")
	cmd.Flags().BoolVar(&overdue, "overdue", false, "filed after the deadline")
	return cmd
}
