package span

import (
	"strconv"
	"strings"
)

// Fragment is one pivot occurrence translated to protein coordinates.
type Fragment struct {
	Residue int    // 0-based index in the protein
	Label   string // pivot + 1-based position, e.g. "C2"
	Span    string
}

// HasPivot reports whether peptide contains pivot.
func HasPivot(peptide string, pivot byte) bool {
	return strings.IndexByte(peptide, pivot) >= 0
}

// Extract emits one Fragment per occurrence of pivot in peptide, left to
// right. start is the peptide's offset in protein as returned by Locate.
func Extract(protein, peptide string, start int, pivot byte, flank int) []Fragment {
	if flank < 0 {
		flank = 0
	}
	var out []Fragment
	for j := 0; j < len(peptide); j++ {
		if peptide[j] != pivot {
			continue
		}
		residue := start + j
		out = append(out, Fragment{
			Residue: residue,
			Label:   Label(pivot, residue),
			Span:    Window(protein, residue, flank),
		})
	}
	return out
}

// Label formats a 0-based residue index as pivot letter + 1-based position.
func Label(pivot byte, residue int) string {
	return string(pivot) + strconv.Itoa(residue+1)
}

// Window returns protein[residue-flank : residue+flank+1], truncated at
// either end of the sequence instead of failing.
func Window(protein string, residue, flank int) string {
	low := max(0, residue-flank)
	high := min(len(protein), residue+flank+1)
	if low > high {
		return ""
	}
	return protein[low:high]
}
