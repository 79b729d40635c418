package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skudash/internal/catalog"
)

func sampleRecords() []catalog.Record {
	return []catalog.Record{
		{SKU: "A-100", UnitCount: 12, NetSales: decimal.RequireFromString("1234.56"), ImageName: "a100.jpg", CloudImageID: "x"},
		{SKU: "B,200", UnitCount: 0, NetSales: decimal.Zero, ImageName: `say "cheese".png`},
		{SKU: "C-300", UnitCount: 3, NetSales: decimal.RequireFromString("0.1"), ImageName: " padded "},
		{SKU: "A-100", UnitCount: 1, NetSales: decimal.RequireFromString("5"), ImageName: ""},
	}
}

type tuple struct {
	SKU      string
	Count    int64
	NetSales string
	Image    string
}

func tuples(recs []catalog.Record) []tuple {
	out := make([]tuple, len(recs))
	for i, r := range recs {
		out[i] = tuple{r.SKU, r.UnitCount, r.NetSales.String(), r.ImageName}
	}
	return out
}

func TestWriteCSV_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRecords()[:2]))
	want := "\xEF\xBB\xBFSKU,Total Count,Total Net Sales,images\n" +
		"A-100,12,1234.56,a100.jpg\n" +
		`"B,200",0,0,"say ""cheese"".png"` + "\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSV_RoundTripThroughPrepare(t *testing.T) {
	recs := sampleRecords()
	path := filepath.Join(t.TempDir(), "export.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, WriteCSV(f, recs))
	require.NoError(t, f.Close())

	tbl, err := catalog.Prepare(catalog.Options{PrimaryPath: path})
	require.NoError(t, err)
	if diff := cmp.Diff(tuples(recs), tuples(tbl.Records())); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, tbl.Issues())
}

func TestVerify(t *testing.T) {
	recs := sampleRecords()
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, recs))

	mm, err := Verify(recs, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Empty(t, mm)

	mm, err = Verify(recs[:3], bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, mm, 1)
	assert.Equal(t, 4, mm[0].Row)
	assert.Nil(t, mm[0].Want)

	tampered := strings.Replace(buf.String(), "1234.56", "1234.57", 1)
	mm, err = Verify(recs, strings.NewReader(tampered))
	require.NoError(t, err)
	require.Len(t, mm, 1)
	assert.Equal(t, 1, mm[0].Row)
	assert.Contains(t, mm[0].String(), "1234.57")

	extra := append(recs, catalog.Record{SKU: "Z", NetSales: decimal.Zero})
	mm, err = Verify(extra, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, mm, 1)
	assert.Nil(t, mm[0].Got)

	_, err = Verify(recs, strings.NewReader("a,b\n"))
	assert.Error(t, err)
	_, err = Verify(recs, strings.NewReader(""))
	assert.Error(t, err)
}
