package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"walleet/internal/core"
)

func newExpensesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "expenses",
		Aliases: []string{"exp"},
		Short:   "Inspect and edit the ledger",
	}

	var (
		category string
		asJSON   bool
	)
	ls := &cobra.Command{
		Use:   "ls",
		Short: "List expenses, newest first",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(cmd *cobra.Command, _ []string, e *env) error {
			xs := e.ledger.View(category)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), xs)
			}
			return writeExpenses(cmd.OutOrStdout(), xs)
		}),
	}
	ls.Flags().StringVarP(&category, "category", "c", core.AllCategories, "Only show this category")
	ls.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")

	var draft struct {
		description, amount, date, category, subcategory string
	}
	add := &cobra.Command{
		Use:   "add",
		Short: "Record an expense",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(cmd *cobra.Command, _ []string, e *env) error {
			cents, err := core.ParseDecimalToCents(draft.amount)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", draft.amount, err)
			}
			d := core.Draft{
				Description: draft.description,
				Amount:      core.Money{Cents: cents},
				Date:        core.Date(draft.date),
				Category:    draft.category,
				Subcategory: draft.subcategory,
			}
			if d.Date == "" {
				d.Date = e.ledger.Today()
			}
			d = d.Normalize()
			if !e.tax.ValidSubcategory(d.Category, d.Subcategory) {
				return fmt.Errorf("subcategory %q does not belong to %q", d.Subcategory, d.Category)
			}
			x, err := e.capture.AddManual(cmd.Context(), d)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", x.ID)
			return nil
		}),
	}
	add.Flags().StringVarP(&draft.description, "description", "d", "", "What the money was spent on")
	add.Flags().StringVarP(&draft.amount, "amount", "a", "", "Amount in euros, e.g. 12.50")
	add.Flags().StringVar(&draft.date, "date", "", "Date as YYYY-MM-DD (default today)")
	add.Flags().StringVarP(&draft.category, "category", "c", "", "Category (default "+core.DefaultCategory+")")
	add.Flags().StringVarP(&draft.subcategory, "subcategory", "s", "", "Subcategory")
	_ = add.MarkFlagRequired("amount")

	rm := &cobra.Command{
		Use:   "rm ID",
		Short: "Delete an expense",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
			if _, ok := e.ledger.Get(args[0]); !ok {
				return fmt.Errorf("expense %s: %w", args[0], core.ErrNotFound)
			}
			if err := e.ledger.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		}),
	}

	mv := &cobra.Command{
		Use:   "mv ID CATEGORY",
		Short: "Move an expense to another category, clearing its subcategory",
		Args:  cobra.ExactArgs(2),
		RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
			x, ok := e.ledger.Get(args[0])
			if !ok {
				return fmt.Errorf("expense %s: %w", args[0], core.ErrNotFound)
			}
			x = x.Recategorize(strings.TrimSpace(args[1]))
			if err := e.ledger.Update(cmd.Context(), x); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "moved %s to %s\n", x.ID, x.CategoryOrDefault())
			return nil
		}),
	}

	cmd.AddCommand(ls, add, mv, rm)
	return cmd
}

func newDashboardCmd() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show totals by category and month",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(cmd *cobra.Command, _ []string, e *env) error {
			return writeDashboard(cmd.OutOrStdout(), e.ledger.Dashboard(category))
		}),
	}
	cmd.Flags().StringVarP(&category, "category", "c", core.AllCategories, "Only summarize this category")
	return cmd
}

func writeExpenses(w io.Writer, xs []core.Expense) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tAMOUNT\tCATEGORY\tDESCRIPTION")
	for _, x := range xs {
		category := x.CategoryOrDefault()
		if x.Subcategory != "" {
			category += "/" + x.Subcategory
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", x.ID, x.Date, x.Amount, category, x.Description)
	}
	return tw.Flush()
}

func writeDashboard(w io.Writer, d core.Dashboard) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Total\t%s\n", d.Total)
	fmt.Fprintf(tw, "Today\t%s\n", d.Today)
	if len(d.ByCategory) > 0 {
		fmt.Fprintln(tw, "\nCATEGORY\tTOTAL")
		for _, c := range d.ByCategory {
			fmt.Fprintf(tw, "%s\t%s\n", c.Name, c.Total)
		}
	}
	if len(d.ByMonth) > 0 {
		fmt.Fprintln(tw, "\nMONTH\tTOTAL")
		for _, m := range d.ByMonth {
			fmt.Fprintf(tw, "%s\t%s\n", m.MonthStart.Format("2006-01"), m.Total)
		}
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
