package seqstore

import (
	"compress/gzip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/resnum/internal/apperr"
)

const sample = `>sp|P1|PROT1_HUMAN Protein one
MACDEFGHIK
>tr|Q9XYZ1|Q9XYZ1_MOUSE Uncharacterized
MKKCCLLPP
>Reverse_sp|P1|PROT1_HUMAN
KIHGFEDCAM
`

func splitLines(s string) []string {
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

func TestBuildAndLookup(t *testing.T) {
	s, err := Build(splitLines(sample), regexp.MustCompile(DefaultExclude))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}

	for acc, want := range map[string]string{"P1": "MACDEFGHIK", "Q9XYZ1": "MKKCCLLPP"} {
		got, err := s.Lookup(acc)
		if err != nil {
			t.Fatalf("Lookup(%s): %v", acc, err)
		}
		if got != want {
			t.Errorf("Lookup(%s) = %q, want %q", acc, got, want)
		}
	}

	_, err = s.Lookup("P404")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("Lookup(P404) err = %v, want ErrNotFound", err)
	}
	if !strings.Contains(err.Error(), "P404") {
		t.Errorf("error %q should name the accession", err)
	}
}

func TestBuildTrimsLineEndings(t *testing.T) {
	s, err := Build([]string{">sp|P1|x\r", "MACD \t\r"}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	got, _ := s.Lookup("P1")
	if got != "MACD" {
		t.Errorf("residues = %q, want MACD", got)
	}
}

func TestBuildExcludedNotRetrievable(t *testing.T) {
	lines := splitLines(`>sp|P1|DECOY_P1
AAAA
>sp|P2|real
CCCC
>sp|P1|DECOY_P1 again
GGGG
`)
	s, err := Build(lines, regexp.MustCompile(`\|DECOY_`))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := s.Lookup("P1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("excluded accession should not be retrievable, err = %v", err)
	}
	if got, _ := s.Lookup("P2"); got != "CCCC" {
		t.Errorf("P2 = %q", got)
	}
}

func TestBuildExcludedDoesNotShadowRealRecord(t *testing.T) {
	lines := splitLines(`>sp|P1|real
MACD
>sp|P1|DECOY_P1
DCAM
`)
	s, err := Build(lines, regexp.MustCompile(`\|DECOY_`))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got, _ := s.Lookup("P1"); got != "MACD" {
		t.Errorf("P1 = %q, want MACD", got)
	}
}

func TestBuildDuplicateLastWins(t *testing.T) {
	s, err := Build(splitLines(">sp|P1|a\nAAAA\n>sp|P1|b\nCCCC\n"), nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got, _ := s.Lookup("P1"); got != "CCCC" {
		t.Errorf("duplicate accession = %q, want last record CCCC", got)
	}
}

func TestBuildParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		line  int
	}{
		{"too few fields", []string{">sp|P1", "MACD"}, 1},
		{"empty accession field", []string{">sp|", "MACD"}, 1},
		{"description without pipe", []string{">sp|P1 Protein one", "MACD"}, 1},
		{"isoform suffix without pipe", []string{">sp|P1|x", "MACD", ">sp|P1-2", "MACD"}, 3},
		{"header on last line", []string{">sp|P1|x", "MACD", ">sp|P2|y"}, 3},
		{"header followed by header", []string{">sp|P1|x", ">sp|P2|y", "MACD"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.lines, nil)
			if !errors.Is(err, apperr.ErrParse) {
				t.Fatalf("err = %v, want ErrParse", err)
			}
			var pe *apperr.ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("err %T is not *ParseError", err)
			}
			if pe.Line != tt.line {
				t.Errorf("line = %d, want %d", pe.Line, tt.line)
			}
		})
	}
}

func TestBuildIgnoresNonHeaders(t *testing.T) {
	lines := []string{
		"# comment",
		">SP|P1|upper-case tag",
		"MACD",
		">sp|P-2|dash in accession",
		"MACD",
		">sp|P3|ok",
		"KKKK",
	}
	s, err := Build(lines, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if diff := cmp.Diff([]string{"P3"}, s.Accessions()); diff != "" {
		t.Errorf("accessions mismatch (-want +got):\n%s", diff)
	}
}

func TestParseHeader(t *testing.T) {
	tests := []struct {
		line string
		acc  string
		kind headerKind
	}{
		{">sp|P12345|PROT_HUMAN", "P12345", validHeader},
		{">tr|A0A024R161|", "A0A024R161", validHeader},
		{">sp|P1", "", shortHeader},
		{">sp|", "", shortHeader},
		{">sp|P1 Protein one", "", shortHeader},
		{">sp|P1-2", "", shortHeader},
		{">sp|P-2|x", "", notHeader},
		{">sp||x", "", notHeader},
		{">|P1|x", "", notHeader},
		{"sp|P1|x", "", notHeader},
		{">Reverse_sp|P1|x", "", notHeader},
		{">sp1|P1|x", "", notHeader},
		{"", "", notHeader},
	}
	for _, tt := range tests {
		acc, kind := parseHeader(tt.line)
		if acc != tt.acc || kind != tt.kind {
			t.Errorf("parseHeader(%q) = (%q, %d), want (%q, %d)", tt.line, acc, kind, tt.acc, tt.kind)
		}
	}
}

func TestRecordsSorted(t *testing.T) {
	s, _ := Build(splitLines(">sp|B|x\nBB\n>sp|A|x\nAA\n"), nil)
	recs := s.Records()
	if len(recs) != 2 || recs[0].Accession != "A" || recs[1].Residues != "BB" {
		t.Errorf("records = %+v", recs)
	}
	again := FromRecords(recs)
	if got, _ := again.Lookup("B"); got != "BB" {
		t.Errorf("FromRecords lookup = %q", got)
	}
}

func TestLoadPlainAndGzip(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "db.fasta")
	if err := os.WriteFile(plain, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}

	gzPath := filepath.Join(dir, "db.fasta.gz")
	fh, err := os.Create(gzPath)
	if err != nil {
		t.Fatal(err)
	}
	gw := gzip.NewWriter(fh)
	_, _ = gw.Write([]byte(sample))
	gw.Close()
	fh.Close()

	for _, p := range []string{plain, gzPath} {
		s, err := Load(context.Background(), p, regexp.MustCompile(DefaultExclude))
		if err != nil {
			t.Fatalf("Load(%s): %v", p, err)
		}
		if s.Len() != 2 {
			t.Errorf("Load(%s) Len = %d, want 2", p, s.Len())
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.fasta"), nil)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.fasta")
	_ = os.WriteFile(path, []byte(sample), 0o644)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Load(ctx, path, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
