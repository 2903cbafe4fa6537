package index

import "github.com/starford/resnum/internal/models"

// SequenceIndex defines the persisted accession index operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type SequenceIndex interface {
	Replace(source, fingerprint string, records []models.SequenceRecord) error
	Lookup(accession string) (string, error)
	Count() (int, error)
	Records() ([]models.SequenceRecord, error)
	Fingerprint() (string, error)
	Close() error
}

// Verify *DB satisfies SequenceIndex at compile time.
var _ SequenceIndex = (*DB)(nil)
