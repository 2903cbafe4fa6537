package seqstore

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
)

// maxLine bounds a single FASTA line. Single-line proteome exports can carry
// titin-sized sequences well past bufio's 64 KiB default.
const maxLine = 16 << 20

// Load reads the FASTA file at path ("-" for stdin, gzip detected by magic
// bytes) and builds a Store from it.
func Load(ctx context.Context, path string, exclude *regexp.Regexp) (*Store, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	lines, err := ReadLines(ctx, rc)
	if err != nil {
		return nil, fmt.Errorf("seqstore: read %s: %w", path, err)
	}
	s, err := Build(lines, exclude)
	if err != nil {
		return nil, fmt.Errorf("seqstore: %s: %w", path, err)
	}
	return s, nil
}

// ReadLines splits r into lines without their trailing newline.
func ReadLines(ctx context.Context, r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLine)

	var lines []string
	for sc.Scan() {
		if len(lines)%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// Open returns a reader over path, transparently decompressing gzip input.
func Open(path string) (io.ReadCloser, error) {
	var src io.ReadCloser
	if path == "-" {
		src = io.NopCloser(os.Stdin)
	} else {
		fh, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("seqstore: open: %w", err)
		}
		src = fh
	}

	br := bufio.NewReader(src)
	if magic, _ := br.Peek(2); len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gr, err := gzip.NewReader(br)
		if err != nil {
			src.Close()
			return nil, fmt.Errorf("seqstore: gzip: %w", err)
		}
		return struct {
			io.Reader
			io.Closer
		}{Reader: gr, Closer: src}, nil
	}
	return struct {
		io.Reader
		io.Closer
	}{Reader: br, Closer: src}, nil
}
