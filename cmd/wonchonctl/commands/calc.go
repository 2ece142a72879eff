package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"wonchon/internal/core"
)

func calcCmd() *cobra.Command {
	var (
		amounts []int64
		overdue bool
	)
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Calculate withholding for a list of payment amounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(amounts) == 0 {
				return fmt.Errorf("at least one --amount is required")
			}
			earners := make([]core.IncomeEarner, len(amounts))
			for i, a := range amounts {
				if a < 0 {
					return fmt.Errorf("amount %d is negative", a)
				}
				earners[i] = core.IncomeEarner{Amount: a}
			}
			printTax(cmd.OutOrStdout(), core.CalculateTax(earners, overdue))
			return nil
		},
	}
	cmd.Flags().Int64SliceVar(&amounts, "amount", nil, "payment amount in won (repeatable)")
	cmd.Flags().BoolVar(&overdue, "overdue", false, "apply the late filing surcharge")
	return cmd
}

func printTax(w io.Writer, t core.TaxCalculation) {
	fmt.Fprintf(w, "소득세:     %s원\n", core.FormatWon(t.NationalTax))
	fmt.Fprintf(w, "지방소득세: %s원\n", core.FormatWon(t.LocalTax))
	if t.Surcharge != nil {
		fmt.Fprintf(w, "가산세:     %s원\n", core.FormatWon(*t.Surcharge))
	}
	fmt.Fprintf(w, "납부할 세액: %s원\n", core.FormatWon(t.TotalTax))
}

func dueDateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "due-date YEAR MONTH",
		Short: "Print the filing deadline for an attribution month",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid year %q", args[0])
			}
			month, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid month %q", args[1])
			}
			p, err := core.NewPeriod(year, month)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", p.Label(), p.DueDate().Format("2006-01-02"))
			return nil
		},
	}
}
