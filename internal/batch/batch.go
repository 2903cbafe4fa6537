// Package batch runs the peptide table → span table pipeline.
package batch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/resnum/internal/apperr"
	"github.com/starford/resnum/internal/expand"
	"github.com/starford/resnum/internal/index"
	"github.com/starford/resnum/internal/models"
	"github.com/starford/resnum/internal/seqstore"
	"github.com/starford/resnum/internal/storage"
	"github.com/starford/resnum/internal/table"
)

// Params controls how a table is expanded.
type Params struct {
	IDColumn  string
	SeqColumn string
	Pivot     string
	Flank     int
	Mask      string
	Delimiter rune
}

// Validate validates the expansion parameters.
func (p *Params) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.IDColumn, validation.Required),
		validation.Field(&p.SeqColumn, validation.Required),
		validation.Field(&p.Pivot, validation.Required, validation.By(SingleByte)),
		validation.Field(&p.Flank, validation.Min(0)),
		validation.Field(&p.Delimiter, validation.Required),
	)
}

// SingleByte is a validation rule for one-character ASCII residues.
func SingleByte(value interface{}) error {
	s, _ := value.(string)
	if len(s) != 1 {
		return fmt.Errorf("%q is not a valid pivot residue", s)
	}
	return nil
}

// Options describes a full run from files on disk.
type Options struct {
	Params

	FastaPath  string
	InputPath  string
	OutputPath string // "-" writes to stdout
	Exclude    *regexp.Regexp
	IndexPath  string // optional SQLite index
}

// Validate validates the run options.
func (o *Options) Validate() error {
	if err := o.Params.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(o,
		validation.Field(&o.FastaPath, validation.Required),
		validation.Field(&o.InputPath, validation.Required),
		validation.Field(&o.OutputPath, validation.Required),
	)
}

// Report summarises a finished run.
type Report struct {
	Summary    expand.Summary
	OutputPath string
	Written    int
}

// Process expands tbl in place: the peptide column is replaced by its
// mask-stripped form, the untouched value is kept under original_sequence,
// and the joined output table is returned alongside the raw expansion.
func Process(tbl *table.Table, store expand.Lookuper, p Params) (*table.Table, expand.Result, error) {
	if err := p.Validate(); err != nil {
		return nil, expand.Result{}, fmt.Errorf("%w: %w", apperr.ErrInvalid, err)
	}
	if err := tbl.Require(p.IDColumn, p.SeqColumn); err != nil {
		return nil, expand.Result{}, err
	}

	tbl.AddColumn(table.OriginalColumn, func(i int) string { return tbl.Get(i, p.SeqColumn) })

	rows := make([]models.InputRow, len(tbl.Rows))
	for i := range tbl.Rows {
		pep := table.StripMask(tbl.Get(i, p.SeqColumn), p.Mask)
		tbl.Set(i, p.SeqColumn, pep)
		rows[i] = models.InputRow{Index: i, ID: tbl.Get(i, p.IDColumn), Peptide: pep}
	}

	res, err := expand.Expand(rows, store, p.Pivot[0], p.Flank)
	if err != nil {
		return nil, res, err
	}
	return table.Join(tbl, res.Spans), res, nil
}

// Run executes the pipeline described by opts and writes the output table.
func Run(ctx context.Context, opts Options, logger *slog.Logger) (*Report, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrInvalid, err)
	}

	store, closeStore, err := openStore(ctx, opts, logger)
	if err != nil {
		return nil, err
	}
	defer closeStore()

	logger.Info("reading input", slog.String("path", opts.InputPath))
	tbl, err := readTable(opts.InputPath, opts.Delimiter)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Info("expanding peptides",
		slog.Int("rows", len(tbl.Rows)),
		slog.String("pivot", opts.Pivot),
		slog.Int("flank", opts.Flank))
	out, res, err := Process(tbl, store, opts.Params)
	if err != nil {
		return nil, err
	}
	for _, ev := range res.Skips {
		logger.Warn("skipping peptide",
			slog.String("reason", string(ev.Reason)),
			slog.String("id", ev.Row.ID),
			slog.String("peptide", ev.Row.Peptide),
			slog.String("detail", ev.Detail))
	}

	var buf bytes.Buffer
	if err := table.Write(&buf, out, opts.Delimiter); err != nil {
		return nil, err
	}
	if err := writeOutput(opts.OutputPath, buf.Bytes()); err != nil {
		return nil, err
	}

	sum := res.Summary()
	logger.Info("data written",
		slog.String("path", opts.OutputPath),
		slog.Int("rows", sum.Rows),
		slog.Int("spans", sum.Spans),
		slog.Int("skipped", sum.Skipped()),
		slog.Int("pivot_absent", sum.PivotAbsent),
		slog.Int("protein_not_found", sum.ProteinNotFound),
		slog.Int("peptide_not_located", sum.PeptideNotLocated))

	return &Report{Summary: sum, OutputPath: opts.OutputPath, Written: len(out.Rows)}, nil
}

// openStore returns the lookup source: the SQLite index when configured,
// otherwise an in-memory store parsed from the FASTA file.
func openStore(ctx context.Context, opts Options, logger *slog.Logger) (expand.Lookuper, func(), error) {
	if opts.IndexPath != "" && opts.FastaPath != "-" {
		db, err := index.Open(opts.IndexPath)
		if err != nil {
			return nil, nil, err
		}
		if _, err := index.Sync(ctx, db, opts.FastaPath, opts.Exclude, logger); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("error reading fasta file: %w", err)
		}
		return db, func() { db.Close() }, nil
	}

	logger.Info("reading fasta", slog.String("path", opts.FastaPath))
	store, err := seqstore.Load(ctx, opts.FastaPath, opts.Exclude)
	if err != nil {
		return nil, nil, fmt.Errorf("error reading fasta file: %w", err)
	}
	logger.Info("fasta loaded", slog.Int("proteins", store.Len()))
	return store, func() {}, nil
}

func readTable(path string, delim rune) (*table.Table, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("error reading input file: %w", err)
		}
		defer f.Close()
		r = f
	}
	tbl, err := table.Read(r, delim)
	if err != nil {
		return nil, fmt.Errorf("error reading input file %s: %w", path, err)
	}
	return tbl, nil
}

func writeOutput(path string, data []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error writing %s: %w", abs, err)
	}
	fs, err := storage.NewFS(dir)
	if err != nil {
		return err
	}
	if err := fs.Write(filepath.Base(abs), data); err != nil {
		return fmt.Errorf("error writing %s: %w", abs, err)
	}
	return nil
}
