// Package expand turns (accession, peptide) rows into one span record per
// pivot occurrence.
package expand

import (
	"errors"
	"fmt"

	"github.com/starford/resnum/internal/apperr"
	"github.com/starford/resnum/internal/models"
	"github.com/starford/resnum/internal/span"
)

// Lookuper resolves an accession to its protein residues. Implementations
// return an error wrapping apperr.ErrNotFound for unknown accessions.
type Lookuper interface {
	Lookup(accession string) (string, error)
}

// Result holds the expanded spans and the rows that produced none.
type Result struct {
	Rows  int                 `json:"rows"`
	Spans []models.SpanRecord `json:"spans"`
	Skips []models.SkipEvent  `json:"skips"`
}

// Summary counts the outcome of an expansion.
type Summary struct {
	Rows              int `json:"rows"`
	Spans             int `json:"spans"`
	PivotAbsent       int `json:"pivot_absent"`
	ProteinNotFound   int `json:"protein_not_found"`
	PeptideNotLocated int `json:"peptide_not_located"`
}

// Skipped returns the total number of skipped rows.
func (s Summary) Skipped() int {
	return s.PivotAbsent + s.ProteinNotFound + s.PeptideNotLocated
}

// Summary tallies r by skip reason.
func (r Result) Summary() Summary {
	s := Summary{Rows: r.Rows, Spans: len(r.Spans)}
	for _, ev := range r.Skips {
		switch ev.Reason {
		case models.SkipPivotAbsent:
			s.PivotAbsent++
		case models.SkipProteinNotFound:
			s.ProteinNotFound++
		case models.SkipPeptideNotLocated:
			s.PeptideNotLocated++
		}
	}
	return s
}

// Expand processes rows in order. Rows without the pivot are skipped before
// any protein lookup. Unknown accessions and peptides absent from their
// protein are skipped too; any other lookup failure aborts the expansion.
func Expand(rows []models.InputRow, store Lookuper, pivot byte, flank int) (Result, error) {
	res := Result{
		Rows:  len(rows),
		Spans: []models.SpanRecord{},
		Skips: []models.SkipEvent{},
	}

	for _, row := range rows {
		if !span.HasPivot(row.Peptide, pivot) {
			res.Skips = append(res.Skips, models.SkipEvent{
				Reason: models.SkipPivotAbsent,
				Row:    row,
				Detail: fmt.Sprintf("%c not found in sequence: %s", pivot, row.Peptide),
			})
			continue
		}

		protein, err := store.Lookup(row.ID)
		if err != nil {
			if !errors.Is(err, apperr.ErrNotFound) {
				return res, fmt.Errorf("expand: lookup %s: %w", row.ID, err)
			}
			res.Skips = append(res.Skips, models.SkipEvent{
				Reason: models.SkipProteinNotFound,
				Row:    row,
				Detail: err.Error(),
			})
			continue
		}

		start, err := span.Locate(protein, row.Peptide)
		if err != nil {
			res.Skips = append(res.Skips, models.SkipEvent{
				Reason: models.SkipPeptideNotLocated,
				Row:    row,
				Detail: err.Error(),
			})
			continue
		}

		for _, f := range span.Extract(protein, row.Peptide, start, pivot, flank) {
			res.Spans = append(res.Spans, models.SpanRecord{
				Row:      row.Index,
				ID:       row.ID,
				Peptide:  row.Peptide,
				Residue:  f.Label,
				Position: f.Residue + 1,
				Span:     f.Span,
			})
		}
	}
	return res, nil
}
