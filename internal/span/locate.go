// Package span locates peptides inside proteins and cuts pivot-centred
// context windows out of the protein sequence.
package span

import (
	"fmt"
	"strings"

	"github.com/starford/resnum/internal/apperr"
)

// Locate returns the leftmost 0-based offset of peptide in protein.
// Only exact matches count; an empty peptide is never located.
func Locate(protein, peptide string) (int, error) {
	if peptide == "" {
		return -1, fmt.Errorf("empty peptide: %w", apperr.ErrNotLocated)
	}
	i := strings.Index(protein, peptide)
	if i < 0 {
		return -1, fmt.Errorf("%s not found in protein sequence: %w", peptide, apperr.ErrNotLocated)
	}
	return i, nil
}
