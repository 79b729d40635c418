// Package export writes the canonical table as the downloadable CSV
// artifact and checks an artifact against the table it came from.
package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"skudash/internal/catalog"
)

// Columns is the artifact header, in order.
var Columns = []string{"SKU", "Total Count", "Total Net Sales", "images"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV writes records in canonical order: UTF-8 BOM, LF line endings,
// fields quoted only when they need it.
func WriteCSV(w io.Writer, records []catalog.Record) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}
	if err := writeRecord(w, Columns); err != nil {
		return err
	}
	for _, r := range records {
		if err := writeRecord(w, row(r)); err != nil {
			return err
		}
	}
	return nil
}

func row(r catalog.Record) []string {
	return []string{
		r.SKU,
		strconv.FormatInt(r.UnitCount, 10),
		r.NetSales.String(),
		r.ImageName,
	}
}

func writeRecord(w io.Writer, rec []string) error {
	for i, field := range rec {
		if i > 0 {
			if _, err := io.WriteString(w, ","); err != nil {
				return err
			}
		}
		if needsQuote(field) {
			field = `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
		}
		if _, err := io.WriteString(w, field); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func needsQuote(s string) bool {
	return s != strings.TrimSpace(s) || strings.ContainsAny(s, ",\"\n\r")
}

// Mismatch describes one artifact row that differs from the table.
type Mismatch struct {
	Row  int      // 1-based data row
	Want []string // nil when the artifact has an extra row
	Got  []string // nil when the artifact is missing the row
}

func (m Mismatch) String() string {
	return fmt.Sprintf("row %d: want %q, got %q", m.Row, m.Want, m.Got)
}

// Verify parses an artifact and compares it positionally with records.
// A nil slice means the round trip is exact.
func Verify(records []catalog.Record, r io.Reader) ([]Mismatch, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	cr := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(b, utf8BOM)))
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("artifact is empty")
	}
	if err != nil {
		return nil, err
	}
	if strings.Join(header, ",") != strings.Join(Columns, ",") {
		return nil, fmt.Errorf("unexpected header %q", header)
	}

	var out []Mismatch
	i := 0
	for ; ; i++ {
		got, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if i >= len(records) {
			out = append(out, Mismatch{Row: i + 1, Got: got})
			continue
		}
		if want := row(records[i]); !sameTuple(want, got) {
			out = append(out, Mismatch{Row: i + 1, Want: want, Got: got})
		}
	}
	for ; i < len(records); i++ {
		out = append(out, Mismatch{Row: i + 1, Want: row(records[i])})
	}
	return out, nil
}

func sameTuple(want, got []string) bool {
	if len(want) != len(got) {
		return false
	}
	if want[0] != got[0] || want[3] != got[3] {
		return false
	}
	count, ok := catalog.ParseCount(got[1])
	if !ok || strconv.FormatInt(count, 10) != want[1] {
		return false
	}
	sales, ok := catalog.ParseAmount(got[2])
	return ok && sales.String() == want[2]
}
