package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"wonchon/internal/core"
)

func draftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Inspect and remove saved drafts",
	}
	cmd.AddCommand(draftListCmd(), draftShowCmd(), draftRemoveCmd())
	return cmd
}

func draftListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List saved drafts",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(e *env) error {
				keys, err := e.drafts.List(cmd.Context())
				if err != nil {
					return err
				}
				if len(keys) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No drafts")
					return nil
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "BUSINESS\tPERIOD\tEARNERS")
				for _, k := range keys {
					earners, _ := e.drafts.Load(cmd.Context(), k)
					fmt.Fprintf(tw, "%d\t%s\t%d\n", k.BusinessID, k.Period.Key(), len(earners))
				}
				return tw.Flush()
			})
		},
	}
}

func draftShowCmd() *cobra.Command {
	var overdue bool
	cmd := &cobra.Command{
		Use:   "show BUSINESS YEAR MONTH",
		Short: "Print the earners of a draft and its tax",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseDraftKey(args)
			if err != nil {
				return err
			}
			return withEnv(cmd, func(e *env) error {
				earners, ok := e.drafts.Load(cmd.Context(), key)
				if !ok {
					return fmt.Errorf("no draft for business %d, %s", key.BusinessID, key.Period.Label())
				}
				out := cmd.OutOrStdout()
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tRESIDENT NO\tTYPE\tCODE\tPAID\tAMOUNT")
				for _, er := range earners {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
						er.Name,
						core.MaskResidentNumber(er.ResidentNumber),
						er.IncomeType.Label(),
						er.IncomeCode,
						er.PaymentDate,
						core.FormatWon(er.Amount))
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				fmt.Fprintln(out)
				printTax(out, core.CalculateTax(earners, overdue))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&overdue, "overdue", false, "include the late filing surcharge")
	return cmd
}

func draftRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm BUSINESS YEAR MONTH",
		Aliases: []string{"remove"},
		Short:   "Delete a saved draft",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseDraftKey(args)
			if err != nil {
				return err
			}
			return withEnv(cmd, func(e *env) error {
				if err := e.drafts.Remove(cmd.Context(), key); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", key)
				return nil
			})
		},
	}
}
