// Package spanservice serves span lookups against the currently loaded
// protein database and stores expanded tables.
package spanservice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/starford/resnum/internal/apperr"
	"github.com/starford/resnum/internal/batch"
	"github.com/starford/resnum/internal/expand"
	"github.com/starford/resnum/internal/models"
	"github.com/starford/resnum/internal/seqstore"
	"github.com/starford/resnum/internal/storage"
	"github.com/starford/resnum/internal/table"
)

// Event kinds passed to the Notifier.
const (
	EventStoreReloaded  = "store.reloaded"
	EventTableCompleted = "table.completed"
	EventTableDeleted   = "table.deleted"
)

const resultExt = ".tsv"

// Notifier is told about state changes, e.g. to fan them out over SSE.
type Notifier func(kind, id string)

// ProteinDetail is a single protein entry.
type ProteinDetail struct {
	Accession string `json:"accession"`
	Length    int    `json:"length"`
	Residues  string `json:"residues"`
}

// SpansResult is the outcome of an ad-hoc expansion.
type SpansResult struct {
	Spans   []models.SpanRecord `json:"spans"`
	Skips   []models.SkipEvent  `json:"skips"`
	Summary expand.Summary      `json:"summary"`
}

// Overrides replaces the configured defaults for one request. Zero values
// keep the default.
type Overrides struct {
	Pivot     string
	Flank     *int
	IDColumn  string
	SeqColumn string
}

// TableJob describes a stored expansion of an uploaded table.
type TableJob struct {
	ID      string         `json:"id"`
	Path    string         `json:"path"`
	Written int            `json:"written"`
	Summary expand.Summary `json:"summary"`
}

// Stats describes the loaded protein database.
type Stats struct {
	Proteins int       `json:"proteins"`
	LoadedAt time.Time `json:"loaded_at"`
}

type snapshot struct {
	store    *seqstore.Store
	loadedAt time.Time
}

// Service coordinates the sequence store and results storage.
type Service struct {
	current  atomic.Pointer[snapshot]
	results  storage.Provider
	defaults batch.Params
	notify   Notifier
}

// NewService creates a new span service. notify may be nil.
func NewService(store *seqstore.Store, results storage.Provider, defaults batch.Params, notify Notifier) *Service {
	s := &Service{results: results, defaults: defaults, notify: notify}
	s.current.Store(&snapshot{store: store, loadedAt: time.Now()})
	return s
}

// Reload swaps in a new store. Requests already running keep the old one.
func (s *Service) Reload(store *seqstore.Store) {
	s.current.Store(&snapshot{store: store, loadedAt: time.Now()})
	s.emit(EventStoreReloaded, "")
}

// Stats reports the size of the loaded store.
func (s *Service) Stats() Stats {
	snap := s.current.Load()
	return Stats{Proteins: snap.store.Len(), LoadedAt: snap.loadedAt}
}

// Defaults returns the configured expansion parameters.
func (s *Service) Defaults() batch.Params {
	return s.defaults
}

// Protein returns the residues for accession.
func (s *Service) Protein(_ context.Context, accession string) (*ProteinDetail, error) {
	seq, err := s.store().Lookup(accession)
	if err != nil {
		return nil, err
	}
	return &ProteinDetail{Accession: accession, Length: len(seq), Residues: seq}, nil
}

// Spans expands rows against the loaded store. Peptides are mask-stripped
// with the configured mask and rows are numbered in the order given.
func (s *Service) Spans(_ context.Context, rows []models.InputRow, o Overrides) (*SpansResult, error) {
	p, err := s.params(o)
	if err != nil {
		return nil, err
	}
	in := make([]models.InputRow, len(rows))
	for i, r := range rows {
		in[i] = models.InputRow{Index: i, ID: strings.TrimSpace(r.ID), Peptide: table.StripMask(r.Peptide, p.Mask)}
	}
	res, err := expand.Expand(in, s.store(), p.Pivot[0], p.Flank)
	if err != nil {
		return nil, err
	}
	return &SpansResult{Spans: res.Spans, Skips: res.Skips, Summary: res.Summary()}, nil
}

// RunTable expands an uploaded table and stores the output under a new id.
func (s *Service) RunTable(ctx context.Context, data []byte, o Overrides) (*TableJob, error) {
	p, err := s.params(o)
	if err != nil {
		return nil, err
	}
	tbl, err := table.Read(bytes.NewReader(data), p.Delimiter)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, res, err := batch.Process(tbl, s.store(), p)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := table.Write(&buf, out, p.Delimiter); err != nil {
		return nil, err
	}
	id := uuid.NewString()
	path := id + resultExt
	if err := s.results.Write(path, buf.Bytes()); err != nil {
		return nil, err
	}
	s.emit(EventTableCompleted, id)
	return &TableJob{ID: id, Path: path, Written: len(out.Rows), Summary: res.Summary()}, nil
}

// TableResult returns the stored output of job id.
func (s *Service) TableResult(_ context.Context, id string) ([]byte, error) {
	path, err := resultPath(id)
	if err != nil {
		return nil, err
	}
	data, err := s.results.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("table %s: %w", id, apperr.ErrNotFound)
		}
		return nil, err
	}
	return data, nil
}

// ListTables returns metadata for every stored output table.
func (s *Service) ListTables(_ context.Context) ([]models.ResultMetadata, error) {
	items, err := s.results.List("")
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.ResultMetadata{}
	}
	return items, nil
}

// DeleteTable removes the stored output of job id.
func (s *Service) DeleteTable(_ context.Context, id string) error {
	path, err := resultPath(id)
	if err != nil {
		return err
	}
	if err := s.results.Delete(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("table %s: %w", id, apperr.ErrNotFound)
		}
		return err
	}
	s.emit(EventTableDeleted, id)
	return nil
}

func (s *Service) store() *seqstore.Store {
	return s.current.Load().store
}

func (s *Service) params(o Overrides) (batch.Params, error) {
	p := s.defaults
	if o.Pivot != "" {
		p.Pivot = o.Pivot
	}
	if o.Flank != nil {
		p.Flank = *o.Flank
	}
	if o.IDColumn != "" {
		p.IDColumn = o.IDColumn
	}
	if o.SeqColumn != "" {
		p.SeqColumn = o.SeqColumn
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("%w: %w", apperr.ErrInvalid, err)
	}
	return p, nil
}

func (s *Service) emit(kind, id string) {
	if s.notify != nil {
		s.notify(kind, id)
	}
}

// resultPath maps a job id to its storage path; ids are UUIDs so that
// nothing else under the results root can be addressed.
func resultPath(id string) (string, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("table id %q: %w", id, apperr.ErrInvalid)
	}
	return u.String() + resultExt, nil
}
