// Package testutil provides shared test helpers for protein stores and result directories.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/starford/resnum/internal/batch"
	"github.com/starford/resnum/internal/seqstore"
	"github.com/starford/resnum/internal/spanservice"
	"github.com/starford/resnum/internal/storage"
)

// FASTA is a small protein database used across package tests.
const FASTA = `>sp|P1|PROT1_HUMAN Protein one
MACDEFGHIK
>sp|P2|PROT2_HUMAN Protein two
AACKKCAAAC
>Reverse_sp|P1|PROT1_HUMAN
KIHGFEDCAM
`

// Params returns the expansion defaults used in tests.
func Params() batch.Params {
	return batch.Params{IDColumn: "ipi", SeqColumn: "sequence", Pivot: "C", Flank: 2, Mask: "*", Delimiter: '\t'}
}

// TestFASTA writes FASTA into a temporary directory and returns its path.
func TestFASTA(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db.fasta")
	if err := os.WriteFile(path, []byte(FASTA), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestStore builds a store from FASTA with the default decoy exclusion.
func TestStore(t *testing.T) *seqstore.Store {
	t.Helper()
	lines := strings.Split(FASTA, "\n")
	store, err := seqstore.Build(lines, regexp.MustCompile(seqstore.DefaultExclude))
	if err != nil {
		t.Fatal(err)
	}
	return store
}

// TestResults creates a temporary results directory with a storage.Provider.
func TestResults(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	results, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, results
}

// TestService wires a span service over TestStore and a temporary results dir.
func TestService(t *testing.T, notify spanservice.Notifier) *spanservice.Service {
	t.Helper()
	_, results := TestResults(t)
	return spanservice.NewService(TestStore(t), results, Params(), notify)
}

// QuietLogger discards all log output.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
