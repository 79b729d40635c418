package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skudash/internal/catalog"
)

// execute runs the root command against the repository testdata with a
// config path that does not exist, so defaults plus env apply.
func execute(t *testing.T, baseDir string, args ...string) (string, error) {
	t.Helper()
	abs, err := filepath.Abs(baseDir)
	require.NoError(t, err)
	t.Setenv("SKUDASH_BASE_DIR", abs)
	t.Setenv("SKUDASH_LOG_LEVEL", "error")

	exportOut, exportVerify = "", false
	snapshotDriver, snapshotDSN, snapshotVerify = "", "", false
	serveAddr, checkProfile = "", ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, args...))
	err = rootCmd.Execute()
	return out.String(), err
}

const testdataDir = "../../testdata"

func TestCheck(t *testing.T) {
	out, err := execute(t, testdataDir, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "rows:          6")
	assert.Contains(t, out, "mapping:       true")
	assert.Contains(t, out, "total units:   48")
	assert.Contains(t, out, "total revenue: 3829.46")
	assert.Contains(t, out, `"n/a"`)
}

func TestCheck_Profile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.md")
	_, err := execute(t, testdataDir, "check", "--profile", path)
	require.NoError(t, err)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	md := string(b)
	assert.Contains(t, md, "- Rows: 6")
	assert.Contains(t, md, "- cloud: 2")
	assert.Contains(t, md, "- url: 1")
	assert.Contains(t, md, "- local: 1")
	assert.Contains(t, md, "- none: 2")
}

func TestCheck_MissingPrimary(t *testing.T) {
	_, err := execute(t, t.TempDir(), "check")
	require.Error(t, err)
	var missing *catalog.MissingInputError
	assert.True(t, errors.As(err, &missing), "got %T", err)
}

func TestExport_Stdout(t *testing.T) {
	out, err := execute(t, testdataDir, "export")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "\ufeffSKU,Total Count,Total Net Sales,images\n"), out)
	assert.Contains(t, out, "A-100,12,1234.56,a100.jpg\n")
}

func TestExport_FileVerify(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "sku_sales.csv")
	out, err := execute(t, testdataDir, "export", "--out", path, "--verify")
	require.NoError(t, err)
	assert.Contains(t, out, "verified 6 rows")

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 7, strings.Count(string(b), "\n"))
}

func TestExport_VerifyNeedsOut(t *testing.T) {
	_, err := execute(t, testdataDir, "export", "--verify")
	assert.Error(t, err)
}

func TestSnapshot_SQLite(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "snap.sqlite")
	out, err := execute(t, testdataDir, "snapshot", "--driver", "sqlite", "--dsn", dsn, "--verify")
	require.NoError(t, err)
	assert.Contains(t, out, "verified 6 rows in sku_sales")
	assert.FileExists(t, dsn)
}

func TestSnapshot_BadDriver(t *testing.T) {
	_, err := execute(t, testdataDir, "snapshot", "--driver", "oracle", "--dsn", "x")
	assert.Error(t, err)
}
