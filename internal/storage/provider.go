// Package storage defines the results directory abstraction.
package storage

import "github.com/starford/resnum/internal/models"

// Provider is the interface for stored output tables.
type Provider interface {
	// List returns metadata for every result table under dir (relative to root).
	List(dir string) ([]models.ResultMetadata, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to root).
	Delete(path string) error
}
