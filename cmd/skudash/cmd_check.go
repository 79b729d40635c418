package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"skudash/internal/catalog"
	"skudash/internal/report"
)

var checkProfile string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Load the inputs and report totals and cleaning issues",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkProfile, "profile", "", "Also write a markdown profiling report to this path")
}

func runCheck(cmd *cobra.Command, args []string) error {
	table, err := loadTable()
	if err != nil {
		return err
	}
	printCheck(cmd, table)
	if checkProfile == "" {
		return nil
	}

	res, err := newResolver()
	if err != nil {
		return err
	}
	resolved, err := res.ResolveAll(cmd.Context(), table.Records())
	if err != nil {
		return err
	}
	if err := os.WriteFile(checkProfile, []byte(report.Profile(table, resolved)), 0o644); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	logger.Info("profile written", zap.String("path", checkProfile))
	return nil
}

func printCheck(cmd *cobra.Command, table *catalog.Table) {
	out := cmd.OutOrStdout()
	totals := table.Totals()
	fmt.Fprintf(out, "source:        %s\n", table.Source())
	fmt.Fprintf(out, "rows:          %d\n", table.Len())
	fmt.Fprintf(out, "mapping:       %t\n", table.MappingApplied())
	fmt.Fprintf(out, "total units:   %d\n", totals.TotalUnits)
	fmt.Fprintf(out, "total revenue: %s\n", totals.TotalRevenue.StringFixed(2))

	issues := table.Issues()
	if len(issues) == 0 {
		fmt.Fprintln(out, "issues:        none")
		return
	}
	fmt.Fprintf(out, "issues:        %d\n", len(issues))
	for _, is := range issues {
		if is.Row == 0 {
			fmt.Fprintf(out, "  column %q: %s\n", is.Column, is.Reason)
			continue
		}
		fmt.Fprintf(out, "  row %d, %s: %q %s\n", is.Row, is.Column, is.Value, is.Reason)
	}
}
