package index

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/starford/resnum/internal/checksum"
	"github.com/starford/resnum/internal/seqstore"
)

// Fingerprint combines the FASTA checksum with the exclusion pattern, since
// either one changes what ends up in the index.
func Fingerprint(fastaPath string, exclude *regexp.Regexp) (string, error) {
	cs, err := checksum.File(fastaPath)
	if err != nil {
		return "", err
	}
	pattern := ""
	if exclude != nil {
		pattern = exclude.String()
	}
	return cs + ":" + checksum.Sum([]byte(pattern)), nil
}

// Sync brings the index up to date with the FASTA file at fastaPath.
// The file is only parsed when its fingerprint differs from the indexed one;
// the return value reports whether a rebuild happened.
func Sync(ctx context.Context, db SequenceIndex, fastaPath string, exclude *regexp.Regexp, logger *slog.Logger) (bool, error) {
	if fastaPath == "-" {
		return false, fmt.Errorf("index: cannot index stdin")
	}

	fp, err := Fingerprint(fastaPath, exclude)
	if err != nil {
		return false, err
	}
	current, err := db.Fingerprint()
	if err != nil {
		return false, err
	}
	if current == fp {
		logger.Debug("sync: index current", slog.String("path", fastaPath))
		return false, nil
	}

	store, fp, err := loadConsistent(ctx, fastaPath, exclude)
	if err != nil {
		return false, err
	}
	if err := db.Replace(fastaPath, fp, store.Records()); err != nil {
		return false, err
	}
	logger.Info("sync: indexed",
		slog.String("path", fastaPath),
		slog.Int("proteins", store.Len()))
	return true, nil
}

// loadAttempts bounds how often a FASTA file that keeps changing mid-read
// is parsed again.
const loadAttempts = 3

var loadFasta = seqstore.Load

// loadConsistent parses the FASTA file and returns the fingerprint of the
// contents that were parsed. The file is fingerprinted before and after the
// parse; a mismatch means it was rewritten in between, so it is read again.
func loadConsistent(ctx context.Context, fastaPath string, exclude *regexp.Regexp) (*seqstore.Store, string, error) {
	before, err := Fingerprint(fastaPath, exclude)
	if err != nil {
		return nil, "", err
	}
	for range loadAttempts {
		store, err := loadFasta(ctx, fastaPath, exclude)
		if err != nil {
			return nil, "", err
		}
		after, err := Fingerprint(fastaPath, exclude)
		if err != nil {
			return nil, "", err
		}
		if after == before {
			return store, after, nil
		}
		before = after
	}
	return nil, "", fmt.Errorf("index: %s kept changing while being read", fastaPath)
}
