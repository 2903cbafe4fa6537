package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/resnum/internal/models"
	"github.com/starford/resnum/internal/spanservice"
)

const maxJSONBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *spanservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *spanservice.Service) *Handler {
	return &Handler{svc: svc}
}

// Stats handles GET /api/stats.
//
//	@Summary		Describe the loaded protein database
//	@Tags			proteins
//	@Produce		json
//	@Success		200	{object}	StatsResponse
//	@Security		BearerAuth
//	@Router			/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Stats())
}

// GetProtein handles GET /api/proteins/{accession}.
//
//	@Summary		Get a protein by accession
//	@Tags			proteins
//	@Produce		json
//	@Param			accession	path		string	true	"Protein accession"
//	@Success		200			{object}	ProteinDetail
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/proteins/{accession} [get]
func (h *Handler) GetProtein(w http.ResponseWriter, r *http.Request) {
	acc := chi.URLParam(r, "accession")
	if acc == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("accession is required"))
		return
	}
	p, err := h.svc.Protein(r.Context(), acc)
	if err != nil {
		writeError(w, "get protein", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Spans handles POST /api/spans.
//
//	@Summary		Extract pivot-centred spans for a list of peptides
//	@Tags			spans
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SpansRequest	true	"Peptides to expand"
//	@Success		200		{object}	SpansResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/spans [post]
func (h *Handler) Spans(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	var req SpansRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if len(req.Rows) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("rows are required"))
		return
	}

	rows := make([]models.InputRow, len(req.Rows))
	for i, row := range req.Rows {
		rows[i] = models.InputRow{ID: row.ID, Peptide: row.Peptide}
	}
	res, err := h.svc.Spans(r.Context(), rows, spanservice.Overrides{Pivot: req.Pivot, Flank: req.Flank})
	if err != nil {
		writeError(w, "spans", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
