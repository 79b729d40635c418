// Package store writes a point-in-time copy of the canonical table into a
// SQL database (SQLite file or PostgreSQL) for ad-hoc querying.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"skudash/internal/catalog"
	"skudash/internal/images"
)

const TableName = "sku_sales"

var columns = []string{"position", "sku", "images", "total_count", "total_net_sales", "drive_id", "img_url"}

type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

func ParseDialect(driver string) (Dialect, error) {
	d, _, err := resolveDriver(driver)
	return d, err
}

// resolveDriver maps a configured driver name to its dialect and the
// database/sql driver that serves it. "pgx" selects jackc/pgx instead of
// lib/pq for PostgreSQL.
func resolveDriver(driver string) (Dialect, string, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		return SQLite, "sqlite", nil
	case "postgres", "postgresql", "pq":
		return Postgres, "postgres", nil
	case "pgx":
		return Postgres, "pgx", nil
	}
	return "", "", fmt.Errorf("unsupported snapshot driver %q (valid: sqlite, postgres, pgx)", driver)
}

type Store struct {
	db      *sql.DB
	dialect Dialect
	sq      sq.StatementBuilderType
}

func newStore(db *sql.DB, dialect Dialect) *Store {
	ph := sq.PlaceholderFormat(sq.Question)
	if dialect == Postgres {
		ph = sq.Dollar
	}
	return &Store{db: db, dialect: dialect, sq: sq.StatementBuilder.PlaceholderFormat(ph)}
}

// Open connects and pings the database. For SQLite the parent directory of
// dsn is created when missing.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	dialect, sqlDriver, err := resolveDriver(driver)
	if err != nil {
		return nil, err
	}
	if dialect == SQLite && dsn != "" && !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("make db dir: %w", err)
		}
	}
	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}
	return newStore(db, dialect), nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Dialect() Dialect { return s.dialect }

// Row is one snapshot row as stored.
type Row struct {
	Position      int
	SKU           string
	Images        string
	TotalCount    int64
	TotalNetSales decimal.Decimal
	DriveID       string
	ImageURL      string
}

// WriteSnapshot replaces the snapshot table with recs. urls, when non-nil,
// must be index-aligned with recs.
func (s *Store) WriteSnapshot(ctx context.Context, recs []catalog.Record, urls []images.Resolution) error {
	if urls != nil && len(urls) != len(recs) {
		return fmt.Errorf("snapshot: %d image resolutions for %d records", len(urls), len(recs))
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range s.schema() {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create snapshot table: %w", err)
		}
	}

	insertSQL, err := s.insertSQL()
	if err != nil {
		return err
	}
	ins, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer ins.Close()

	for i, r := range recs {
		var imgURL sql.NullString
		if urls != nil && urls[i].Found() {
			imgURL = sql.NullString{String: urls[i].URL, Valid: true}
		}
		driveID := sql.NullString{String: r.CloudImageID, Valid: r.CloudImageID != ""}
		if _, err := ins.ExecContext(ctx, i+1, r.SKU, r.ImageName, r.UnitCount, r.NetSales.String(), driveID, imgURL); err != nil {
			return fmt.Errorf("insert row %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot returns the stored rows in canonical order.
func (s *Store) ReadSnapshot(ctx context.Context) ([]Row, error) {
	sqlStr, args, err := s.sq.Select(columns...).From(quoteIdent(TableName)).OrderBy("position").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			r               Row
			driveID, imgURL sql.NullString
		)
		if err := rows.Scan(&r.Position, &r.SKU, &r.Images, &r.TotalCount, &r.TotalNetSales, &driveID, &imgURL); err != nil {
			return nil, err
		}
		r.DriveID = driveID.String
		r.ImageURL = imgURL.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) schema() []string {
	amount := "TEXT"
	if s.dialect == Postgres {
		amount = "NUMERIC"
	}
	t := quoteIdent(TableName)
	return []string{
		`DROP TABLE IF EXISTS ` + t,
		`CREATE TABLE ` + t + ` (
			position INTEGER PRIMARY KEY,
			sku TEXT NOT NULL,
			images TEXT NOT NULL,
			total_count BIGINT NOT NULL,
			total_net_sales ` + amount + ` NOT NULL,
			drive_id TEXT,
			img_url TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_` + TableName + `_sku ON ` + t + ` (sku)`,
	}
}

// insertSQL renders the single-row insert that WriteSnapshot prepares once
// and executes per record.
func (s *Store) insertSQL() (string, error) {
	sqlStr, _, err := s.sq.Insert(quoteIdent(TableName)).
		Columns(columns...).
		Values(make([]any, len(columns))...).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build insert: %w", err)
	}
	return sqlStr, nil
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
