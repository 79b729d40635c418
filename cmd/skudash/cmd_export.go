package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"skudash/internal/catalog"
	"skudash/internal/export"
)

var (
	exportOut    string
	exportVerify bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the CSV export (SKU, Total Count, Total Net Sales, images)",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (stdout when empty)")
	exportCmd.Flags().BoolVar(&exportVerify, "verify", false, "Re-read the written file and fail on any mismatch")
}

func runExport(cmd *cobra.Command, args []string) error {
	table, err := loadTable()
	if err != nil {
		return err
	}
	if exportOut == "" {
		if exportVerify {
			return fmt.Errorf("--verify requires --out")
		}
		return export.WriteCSV(cmd.OutOrStdout(), table.Records())
	}
	if err := writeExportFile(exportOut, table); err != nil {
		return err
	}
	logger.Info("export written", zap.String("path", exportOut), zap.Int("rows", table.Len()))

	if !exportVerify {
		return nil
	}
	f, err := os.Open(exportOut)
	if err != nil {
		return err
	}
	defer f.Close()
	mismatches, err := export.Verify(table.Records(), f)
	if err != nil {
		return fmt.Errorf("verify %s: %w", exportOut, err)
	}
	for _, m := range mismatches {
		fmt.Fprintln(cmd.ErrOrStderr(), m.String())
	}
	if len(mismatches) > 0 {
		return fmt.Errorf("verify %s: %d mismatched rows", exportOut, len(mismatches))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "verified %d rows in %s\n", table.Len(), exportOut)
	return nil
}

// writeExportFile writes to a temp file next to path and renames it into
// place so a failed export never leaves a truncated artifact.
func writeExportFile(path string, table *catalog.Table) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".skudash-export-*.csv")
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := export.WriteCSV(tmp, table.Records()); err != nil {
		tmp.Close()
		return fmt.Errorf("write export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close export: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
