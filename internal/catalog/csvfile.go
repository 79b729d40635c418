package catalog

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type csvTable struct {
	Path    string
	Headers []string
	Rows    []map[string]string
}

func (t csvTable) hasColumn(name string) bool {
	for _, h := range t.Headers {
		if h == name {
			return true
		}
	}
	return false
}

func (t csvTable) missing(names ...string) []string {
	var out []string
	for _, n := range names {
		if !t.hasColumn(n) {
			out = append(out, n)
		}
	}
	return out
}

// loadCSV reads a whole CSV file keyed by header. A leading BOM and ragged
// rows are tolerated; an empty file yields a table with no headers.
func loadCSV(path string) (csvTable, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return csvTable{}, err
	}
	return parseCSV(path, b)
}

func parseCSV(path string, b []byte) (csvTable, error) {
	b = bytes.TrimPrefix(b, utf8BOM)
	r := csv.NewReader(bytes.NewReader(b))
	r.FieldsPerRecord = -1
	// Product names carry inch marks (TV 55" panel) without quoting.
	r.LazyQuotes = true
	headers, err := r.Read()
	if errors.Is(err, io.EOF) {
		return csvTable{Path: path}, nil
	}
	if err != nil {
		return csvTable{}, err
	}
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}
	var rows []map[string]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return csvTable{}, err
		}
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if _, dup := row[h]; dup {
				continue
			}
			if i < len(rec) {
				row[h] = rec[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return csvTable{Path: path, Headers: headers, Rows: rows}, nil
}
