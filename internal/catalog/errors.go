package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// MissingInputError means a required input file does not exist. It carries
// the contents of the directory the file was expected in.
type MissingInputError struct {
	Path       string
	DirEntries []string
	Err        error
}

func (e *MissingInputError) Error() string {
	dir := filepath.Dir(e.Path)
	if e.DirEntries == nil {
		return fmt.Sprintf("input file not found: %s (directory %s is not readable)", e.Path, dir)
	}
	listing := "<empty>"
	if len(e.DirEntries) > 0 {
		listing = strings.Join(e.DirEntries, ", ")
	}
	return fmt.Sprintf("input file not found: %s (contents of %s: %s)", e.Path, dir, listing)
}

func (e *MissingInputError) Unwrap() error { return e.Err }

func newMissingInputError(path string, err error) *MissingInputError {
	e := &MissingInputError{Path: path, Err: err}
	entries, dirErr := os.ReadDir(filepath.Dir(path))
	if dirErr != nil {
		return e
	}
	e.DirEntries = make([]string, 0, len(entries))
	for _, ent := range entries {
		name := ent.Name()
		if ent.IsDir() {
			name += "/"
		}
		e.DirEntries = append(e.DirEntries, name)
	}
	sort.Strings(e.DirEntries)
	return e
}

// SchemaError means the primary file lacks a column the table is keyed on.
type SchemaError struct {
	Path    string
	Missing []string
	Found   []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: missing required column(s) %s (found: %s)",
		e.Path, quoteList(e.Missing), quoteList(e.Found))
}

func quoteList(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(quoted, ", ")
}
