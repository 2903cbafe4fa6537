// Package models defines the domain types for resnum.
package models

import "time"

// SequenceRecord is one protein entry taken from a FASTA file.
type SequenceRecord struct {
	Accession string `json:"accession"`
	Residues  string `json:"residues"`
}

// InputRow is the part of an input table row the expander needs.
// Index is the row's position in the source table.
type InputRow struct {
	Index   int    `json:"index"`
	ID      string `json:"id"`
	Peptide string `json:"peptide"`
}

// SpanRecord is one pivot occurrence of a located peptide.
type SpanRecord struct {
	Row      int    `json:"row"`
	ID       string `json:"id"`
	Peptide  string `json:"peptide"`
	Residue  string `json:"residue"`  // pivot letter + 1-based protein position, e.g. "C2"
	Position int    `json:"position"` // 1-based protein position
	Span     string `json:"span"`
}

// SkipReason explains why an input row produced no spans.
type SkipReason string

const (
	SkipPivotAbsent       SkipReason = "pivot_absent"
	SkipProteinNotFound   SkipReason = "protein_not_found"
	SkipPeptideNotLocated SkipReason = "peptide_not_located"
)

// SkipEvent records an input row that was excluded from the output.
type SkipEvent struct {
	Reason SkipReason `json:"reason"`
	Row    InputRow   `json:"row"`
	Detail string     `json:"detail,omitempty"`
}

// ResultMetadata describes a stored output table.
type ResultMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}
