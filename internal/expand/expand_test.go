package expand

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/resnum/internal/apperr"
	"github.com/starford/resnum/internal/models"
)

type mapStore map[string]string

func (m mapStore) Lookup(id string) (string, error) {
	seq, ok := m[id]
	if !ok {
		return "", apperr.ErrNotFound
	}
	return seq, nil
}

// countingStore records lookups to prove the pivot check short-circuits.
type countingStore struct {
	mapStore
	calls int
}

func (c *countingStore) Lookup(id string) (string, error) {
	c.calls++
	return c.mapStore.Lookup(id)
}

type brokenStore struct{}

func (brokenStore) Lookup(string) (string, error) { return "", errors.New("disk on fire") }

var store = mapStore{
	"P1": "MACDEFGHIK",
	"P2": "AACKKCAAAC",
}

func TestExpandExample(t *testing.T) {
	rows := []models.InputRow{{Index: 0, ID: "P1", Peptide: "CDEF"}}
	res, err := Expand(rows, store, 'C', 2)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	want := []models.SpanRecord{{Row: 0, ID: "P1", Peptide: "CDEF", Residue: "C3", Position: 3, Span: "MACDE"}}
	if diff := cmp.Diff(want, res.Spans); diff != "" {
		t.Errorf("spans mismatch (-want +got):\n%s", diff)
	}
	if len(res.Skips) != 0 {
		t.Errorf("unexpected skips: %+v", res.Skips)
	}
}

func TestExpandSkipReasons(t *testing.T) {
	rows := []models.InputRow{
		{Index: 0, ID: "P1", Peptide: "GHIK"},
		{Index: 1, ID: "P404", Peptide: "CDEF"},
		{Index: 2, ID: "P1", Peptide: "XYZC"},
	}
	res, err := Expand(rows, store, 'C', 2)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(res.Spans) != 0 {
		t.Fatalf("expected no spans, got %+v", res.Spans)
	}
	var reasons []models.SkipReason
	for _, ev := range res.Skips {
		reasons = append(reasons, ev.Reason)
	}
	want := []models.SkipReason{models.SkipPivotAbsent, models.SkipProteinNotFound, models.SkipPeptideNotLocated}
	if diff := cmp.Diff(want, reasons); diff != "" {
		t.Errorf("skip reasons mismatch (-want +got):\n%s", diff)
	}

	sum := res.Summary()
	if sum.Rows != 3 || sum.Skipped() != 3 || sum.PivotAbsent != 1 || sum.ProteinNotFound != 1 || sum.PeptideNotLocated != 1 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestExpandPivotAbsentSkipsLookup(t *testing.T) {
	cs := &countingStore{mapStore: store}
	_, err := Expand([]models.InputRow{{ID: "P1", Peptide: "GHIK"}, {ID: "P404", Peptide: "KKK"}}, cs, 'C', 5)
	if err != nil {
		t.Fatal(err)
	}
	if cs.calls != 0 {
		t.Errorf("lookups = %d, want 0 for pivot-free peptides", cs.calls)
	}
}

func TestExpandOrderPreserved(t *testing.T) {
	rows := []models.InputRow{
		{Index: 0, ID: "P2", Peptide: "CKKCAAAC"},
		{Index: 1, ID: "P1", Peptide: "ACD"},
	}
	res, err := Expand(rows, store, 'C', 1)
	if err != nil {
		t.Fatal(err)
	}
	var labels []string
	for _, s := range res.Spans {
		labels = append(labels, s.ID+":"+s.Residue)
	}
	want := []string{"P2:C3", "P2:C6", "P2:C10", "P1:C3"}
	if diff := cmp.Diff(want, labels); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestExpandIdempotent(t *testing.T) {
	rows := []models.InputRow{
		{Index: 0, ID: "P2", Peptide: "CKKCAAAC"},
		{Index: 1, ID: "P1", Peptide: "GHIK"},
		{Index: 2, ID: "P1", Peptide: "CDEF"},
	}
	first, err := Expand(rows, store, 'C', 3)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Expand(rows, store, 'C', 3)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("expansion not idempotent (-first +second):\n%s", diff)
	}
}

func TestExpandLookupFailureAborts(t *testing.T) {
	_, err := Expand([]models.InputRow{{ID: "P1", Peptide: "C"}}, brokenStore{}, 'C', 1)
	if err == nil {
		t.Fatal("expected non-NotFound lookup error to abort")
	}
}

func TestExpandEmpty(t *testing.T) {
	res, err := Expand(nil, store, 'C', 5)
	if err != nil {
		t.Fatal(err)
	}
	if res.Rows != 0 || len(res.Spans) != 0 || len(res.Skips) != 0 {
		t.Errorf("empty input result = %+v", res)
	}
}
