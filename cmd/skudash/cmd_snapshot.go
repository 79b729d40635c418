package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"skudash/internal/store"
)

var (
	snapshotDriver string
	snapshotDSN    string
	snapshotVerify bool
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Write the canonical table to SQLite or PostgreSQL",
	Long: `Replaces the sku_sales table in the target database with the canonical
table, including the resolved image URL of every row.`,
	Args: cobra.NoArgs,
	RunE: runSnapshot,
}

func init() {
	snapshotCmd.Flags().StringVar(&snapshotDriver, "driver", "", "Database driver: sqlite or postgres (overrides snapshot.driver)")
	snapshotCmd.Flags().StringVar(&snapshotDSN, "dsn", "", "Data source name (overrides snapshot.dsn)")
	snapshotCmd.Flags().BoolVar(&snapshotVerify, "verify", false, "Read the snapshot back and compare it with the table")
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	driver, dsn := cfg.Snapshot.Driver, cfg.Snapshot.DSN
	if snapshotDriver != "" {
		driver = snapshotDriver
	}
	if snapshotDSN != "" {
		dsn = snapshotDSN
	}

	table, err := loadTable()
	if err != nil {
		return err
	}
	res, err := newResolver()
	if err != nil {
		return err
	}
	recs := table.Records()
	urls, err := res.ResolveAll(ctx, recs)
	if err != nil {
		return err
	}

	st, err := store.Open(ctx, driver, dsn)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.WriteSnapshot(ctx, recs, urls); err != nil {
		return err
	}
	logger.Info("snapshot written",
		zap.String("driver", string(st.Dialect())),
		zap.String("table", store.TableName),
		zap.Int("rows", len(recs)))

	if !snapshotVerify {
		return nil
	}
	rows, err := st.ReadSnapshot(ctx)
	if err != nil {
		return err
	}
	if len(rows) != len(recs) {
		return fmt.Errorf("snapshot verify: %d rows stored, want %d", len(rows), len(recs))
	}
	for i, row := range rows {
		r := recs[i]
		if row.SKU != r.SKU || row.Images != r.ImageName || row.TotalCount != r.UnitCount ||
			!row.TotalNetSales.Equal(r.NetSales) || row.DriveID != r.CloudImageID {
			return fmt.Errorf("snapshot verify: row %d differs (stored SKU %q, want %q)", i+1, row.SKU, r.SKU)
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "verified %d rows in %s\n", len(rows), store.TableName)
	return nil
}
