package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/resnum/internal/apperr"
	"github.com/starford/resnum/internal/models"
)

const (
	metaSource      = "source_path"
	metaFingerprint = "source_fingerprint"
	metaIndexedAt   = "indexed_at"
)

// Replace swaps the whole index for records within a single transaction and
// records where they came from.
func (db *DB) Replace(source, fingerprint string, records []models.SequenceRecord) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM proteins`); err != nil {
		return fmt.Errorf("index: clear proteins: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO proteins (accession, residues) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare insert: %w", err)
	}
	defer stmt.Close()
	for _, r := range records {
		if _, err := stmt.Exec(r.Accession, r.Residues); err != nil {
			return fmt.Errorf("index: insert %s: %w", r.Accession, err)
		}
	}

	meta, err := tx.Prepare(`
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`)
	if err != nil {
		return fmt.Errorf("index: prepare meta: %w", err)
	}
	defer meta.Close()
	for k, v := range map[string]string{
		metaSource:      source,
		metaFingerprint: fingerprint,
		metaIndexedAt:   time.Now().UTC().Format(time.RFC3339),
	} {
		if _, err := meta.Exec(k, v); err != nil {
			return fmt.Errorf("index: set %s: %w", k, err)
		}
	}

	return tx.Commit()
}

// Lookup returns the residues for accession or an error wrapping apperr.ErrNotFound.
func (db *DB) Lookup(accession string) (string, error) {
	var seq string
	err := db.conn.QueryRow(`SELECT residues FROM proteins WHERE accession = ?`, accession).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%s not found in sequence index: %w", accession, apperr.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("index: lookup %s: %w", accession, err)
	}
	return seq, nil
}

// Count returns the number of indexed proteins.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM proteins`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count: %w", err)
	}
	return n, nil
}

// Fingerprint returns the fingerprint of the last indexed source, or empty
// string if nothing has been indexed yet.
func (db *DB) Fingerprint() (string, error) {
	var v string
	err := db.conn.QueryRow(`SELECT value FROM meta WHERE key = ?`, metaFingerprint).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: fingerprint: %w", err)
	}
	return v, nil
}

// Records returns every indexed protein ordered by accession.
func (db *DB) Records() ([]models.SequenceRecord, error) {
	rows, err := db.conn.Query(`SELECT accession, residues FROM proteins ORDER BY accession`)
	if err != nil {
		return nil, fmt.Errorf("index: records: %w", err)
	}
	defer rows.Close()

	var out []models.SequenceRecord
	for rows.Next() {
		var r models.SequenceRecord
		if err := rows.Scan(&r.Accession, &r.Residues); err != nil {
			return nil, fmt.Errorf("index: scan record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
