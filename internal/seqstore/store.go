// Package seqstore indexes FASTA protein sequences by accession.
package seqstore

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/starford/resnum/internal/apperr"
	"github.com/starford/resnum/internal/models"
)

// DefaultExclude matches decoy entries added by reverse-database searches.
const DefaultExclude = `^>Reverse_`

// Store maps accessions to residue strings. It is immutable after Build and
// safe for concurrent readers.
type Store struct {
	seqs map[string]string
}

// Build indexes lines of FASTA text. A header is followed by exactly one
// sequence line; headers matching exclude (if non-nil) are dropped together
// with their sequence. A repeated accession replaces the earlier entry.
func Build(lines []string, exclude *regexp.Regexp) (*Store, error) {
	s := &Store{seqs: make(map[string]string)}

	for i := 0; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], " \t\r\n")
		acc, kind := parseHeader(line)
		if kind == notHeader {
			continue
		}
		if exclude != nil && exclude.MatchString(line) {
			// The sequence line that follows is not a header and is ignored
			// on the next iteration.
			continue
		}
		if kind == shortHeader {
			return nil, &apperr.ParseError{Line: i + 1, Text: line, Reason: "header has fewer than three '|' fields"}
		}
		if i+1 >= len(lines) {
			return nil, &apperr.ParseError{Line: i + 1, Text: line, Reason: "header has no sequence line"}
		}
		seq := strings.TrimRight(lines[i+1], " \t\r\n")
		if strings.HasPrefix(seq, ">") {
			return nil, &apperr.ParseError{Line: i + 1, Text: line, Reason: "header is followed by another header"}
		}
		s.seqs[acc] = seq
		i++
	}
	return s, nil
}

// FromRecords builds a Store from already parsed records.
func FromRecords(records []models.SequenceRecord) *Store {
	s := &Store{seqs: make(map[string]string, len(records))}
	for _, r := range records {
		s.seqs[r.Accession] = r.Residues
	}
	return s
}

// Lookup returns the residues for id or an error wrapping apperr.ErrNotFound.
func (s *Store) Lookup(id string) (string, error) {
	seq, ok := s.seqs[id]
	if !ok {
		return "", fmt.Errorf("%s not found in fasta file: %w", id, apperr.ErrNotFound)
	}
	return seq, nil
}

// Len returns the number of indexed accessions.
func (s *Store) Len() int {
	return len(s.seqs)
}

// Accessions returns every accession in sorted order.
func (s *Store) Accessions() []string {
	out := make([]string, 0, len(s.seqs))
	for acc := range s.seqs {
		out = append(out, acc)
	}
	sort.Strings(out)
	return out
}

// Records returns all entries sorted by accession.
func (s *Store) Records() []models.SequenceRecord {
	accs := s.Accessions()
	out := make([]models.SequenceRecord, len(accs))
	for i, acc := range accs {
		out[i] = models.SequenceRecord{Accession: acc, Residues: s.seqs[acc]}
	}
	return out
}
