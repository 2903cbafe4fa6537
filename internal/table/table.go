// Package table reads and writes delimited text tables with a header row.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/starford/resnum/internal/apperr"
	"github.com/starford/resnum/internal/models"
)

// Output columns appended by Join.
const (
	ResidueColumn  = "residue"
	SpanColumn     = "span"
	OriginalColumn = "original_sequence"
)

// Row holds one record's values in column order.
type Row []string

// Table is an ordered set of named columns and their rows.
type Table struct {
	Columns []string
	Rows    []Row
	index   map[string]int
}

// New creates an empty table with the given header.
func New(columns []string) *Table {
	t := &Table{Columns: append([]string(nil), columns...)}
	t.reindex()
	return t
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		if _, dup := t.index[c]; !dup {
			t.index[c] = i
		}
	}
}

// Read parses delimited text. Every row must have as many fields as the header.
func Read(r io.Reader, delim rune) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.LazyQuotes = true
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("table: empty input: %w", apperr.ErrInvalid)
		}
		return nil, fmt.Errorf("table: read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	t := New(header)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("table: %w: %w", apperr.ErrInvalid, err)
		}
		t.Rows = append(t.Rows, Row(rec))
	}
	return t, nil
}

// Write emits t as delimited text with a header row.
func Write(w io.Writer, t *Table, delim rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = delim
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("table: write header: %w", err)
	}
	for _, r := range t.Rows {
		if err := cw.Write(r); err != nil {
			return fmt.Errorf("table: write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Col returns the index of the named column, or -1.
func (t *Table) Col(name string) int {
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// Get returns the value of column name in row i ("" if the column is absent).
func (t *Table) Get(i int, name string) string {
	c := t.Col(name)
	if c < 0 || c >= len(t.Rows[i]) {
		return ""
	}
	return t.Rows[i][c]
}

// Set overwrites the value of an existing column in row i.
func (t *Table) Set(i int, name, value string) {
	if c := t.Col(name); c >= 0 {
		t.Rows[i][c] = value
	}
}

// AddColumn appends a column whose value for row i is fill(i). An existing
// column with the same name is overwritten in place instead.
func (t *Table) AddColumn(name string, fill func(i int) string) {
	if c := t.Col(name); c >= 0 {
		for i := range t.Rows {
			t.Rows[i][c] = fill(i)
		}
		return
	}
	t.Columns = append(t.Columns, name)
	t.index[name] = len(t.Columns) - 1
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], fill(i))
	}
}

// Require checks that every named column is present.
func (t *Table) Require(cols ...string) error {
	for _, c := range cols {
		if t.Col(c) < 0 {
			return fmt.Errorf("table: column %q not found (have %s): %w",
				c, strings.Join(t.Columns, ", "), apperr.ErrInvalid)
		}
	}
	return nil
}

// StripMask removes every character of mask from peptide.
func StripMask(peptide, mask string) string {
	if mask == "" {
		return peptide
	}
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(mask, r) {
			return -1
		}
		return r
	}, peptide)
}

// Join builds the output table: for every span record, a copy of its source
// row followed by the residue and span columns. Rows without spans are dropped.
func Join(t *Table, spans []models.SpanRecord) *Table {
	out := New(append(append([]string(nil), t.Columns...), ResidueColumn, SpanColumn))
	out.Rows = make([]Row, 0, len(spans))
	for _, s := range spans {
		if s.Row < 0 || s.Row >= len(t.Rows) {
			continue
		}
		src := t.Rows[s.Row]
		row := make(Row, 0, len(src)+2)
		row = append(row, src...)
		row = append(row, s.Residue, s.Span)
		out.Rows = append(out.Rows, row)
	}
	return out
}
