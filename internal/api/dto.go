package api

import (
	"github.com/starford/resnum/internal/expand"
	"github.com/starford/resnum/internal/models"
	"github.com/starford/resnum/internal/spanservice"
)

// SpanRow is one peptide to expand.
type SpanRow struct {
	ID      string `json:"id" example:"P1" validate:"required"`
	Peptide string `json:"peptide" example:"C*DEF" validate:"required"`
}

// SpansRequest is the request body for ad-hoc span extraction.
type SpansRequest struct {
	Rows  []SpanRow `json:"rows" validate:"required"`
	Pivot string    `json:"pivot,omitempty" example:"C"`
	Flank *int      `json:"flank,omitempty" example:"5"`
}

// ProteinDetail is the protein response type (aliased from the domain layer).
type ProteinDetail = spanservice.ProteinDetail

// SpansResponse is the response type for span extraction (aliased from the domain layer).
type SpansResponse = spanservice.SpansResult

// TableUploadResponse is returned after a table has been expanded and stored.
type TableUploadResponse struct {
	ID      string         `json:"id" example:"3f1c2a9e-8f0b-4c1e-9d2a-5b7e6f4a1c3d" validate:"required"`
	Written int            `json:"written" example:"120" validate:"required"`
	Skipped int            `json:"skipped" example:"4" validate:"required"`
	Summary expand.Summary `json:"summary" validate:"required"`
	URL     string         `json:"url" example:"/api/tables/3f1c2a9e-8f0b-4c1e-9d2a-5b7e6f4a1c3d" validate:"required"`
}

// TableListResponse wraps stored result tables.
type TableListResponse struct {
	Tables []models.ResultMetadata `json:"tables" validate:"required"`
}

// StatsResponse describes the loaded protein database.
type StatsResponse = spanservice.Stats
