package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/resnum/internal/spanservice"
)

const maxUploadBytes = 50 << 20 // 50 MB

// UploadTable handles POST /api/tables (multipart/form-data, field "file").
// Optional form fields pivot, flank, id_col and seq_col override the
// configured defaults.
//
//	@Summary		Expand an uploaded peptide table
//	@Tags			tables
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"Peptide table"
//	@Param			pivot	formData	string	false	"Pivot residue"
//	@Param			flank	formData	int		false	"Flank width"
//	@Success		201		{object}	TableUploadResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tables [post]
func (h *Handler) UploadTable(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	o := spanservice.Overrides{
		Pivot:     r.FormValue("pivot"),
		IDColumn:  r.FormValue("id_col"),
		SeqColumn: r.FormValue("seq_col"),
	}
	if v := r.FormValue("flank"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("flank must be an integer"))
			return
		}
		o.Flank = &n
	}

	job, err := h.svc.RunTable(r.Context(), data, o)
	if err != nil {
		writeError(w, "upload table", err)
		return
	}
	writeJSON(w, http.StatusCreated, TableUploadResponse{
		ID:      job.ID,
		Written: job.Written,
		Skipped: job.Summary.Skipped(),
		Summary: job.Summary,
		URL:     "/api/tables/" + job.ID,
	})
}

// GetTable handles GET /api/tables/{id}.
//
//	@Summary		Download an expanded table
//	@Tags			tables
//	@Produce		text/tab-separated-values
//	@Param			id	path	string	true	"Job id"
//	@Success		200
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tables/{id} [get]
func (h *Handler) GetTable(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	data, err := h.svc.TableResult(r.Context(), id)
	if err != nil {
		writeError(w, "get table", err)
		return
	}
	w.Header().Set("Content-Type", "text/tab-separated-values; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+id+`.tsv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ListTables handles GET /api/tables.
//
//	@Summary		List stored tables
//	@Tags			tables
//	@Produce		json
//	@Success		200	{object}	TableListResponse
//	@Security		BearerAuth
//	@Router			/tables [get]
func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListTables(r.Context())
	if err != nil {
		writeError(w, "list tables", err)
		return
	}
	writeJSON(w, http.StatusOK, TableListResponse{Tables: items})
}

// DeleteTable handles DELETE /api/tables/{id}.
//
//	@Summary		Delete a stored table
//	@Tags			tables
//	@Param			id	path	string	true	"Job id"
//	@Success		204	"Table deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tables/{id} [delete]
func (h *Handler) DeleteTable(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteTable(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete table", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
