package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/resnum/internal/spanservice"
	"github.com/starford/resnum/internal/testutil"
)

// testEnv sets up a span service over the shared test FASTA and a router.
// A non-empty authToken enables token mode.
func testEnv(t *testing.T, authToken string) (*spanservice.Service, http.Handler) {
	t.Helper()
	svc := testutil.TestService(t, nil)
	return svc, NewRouter(svc, authToken != "", authToken, nil)
}

func do(t *testing.T, router http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetProtein(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/proteins/P1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var p ProteinDetail
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatal(err)
	}
	if p.Accession != "P1" || p.Length != 10 || p.Residues != "MACDEFGHIK" {
		t.Errorf("protein = %+v", p)
	}
}

func TestGetProtein_NotFound(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/proteins/P404", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing protein = %d, want 404", w.Code)
	}
	if !strings.Contains(w.Body.String(), "P404") {
		t.Errorf("error body should name accession: %s", w.Body.String())
	}
}

func TestSpans(t *testing.T) {
	_, router := testEnv(t, "")

	body, _ := json.Marshal(SpansRequest{Rows: []SpanRow{
		{ID: "P1", Peptide: "C*DEF"},
		{ID: "P1", Peptide: "GHIK"},
		{ID: "P2", Peptide: "CKKC"},
	}})
	w := do(t, router, http.MethodPost, "/spans", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp SpansResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Spans) != 3 {
		t.Fatalf("spans = %d, want 3", len(resp.Spans))
	}
	if resp.Spans[0].Residue != "C3" || resp.Spans[0].Span != "MACDE" {
		t.Errorf("first span = %+v", resp.Spans[0])
	}
	if resp.Summary.PivotAbsent != 1 || len(resp.Skips) != 1 {
		t.Errorf("summary = %+v skips = %+v", resp.Summary, resp.Skips)
	}
}

func TestSpans_Overrides(t *testing.T) {
	_, router := testEnv(t, "")

	body := []byte(`{"rows":[{"id":"P1","peptide":"CDEF"}],"pivot":"D","flank":0}`)
	w := do(t, router, http.MethodPost, "/spans", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp SpansResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Spans) != 1 || resp.Spans[0].Residue != "D4" || resp.Spans[0].Span != "D" {
		t.Errorf("spans = %+v", resp.Spans)
	}
}

func TestSpans_BadRequests(t *testing.T) {
	_, router := testEnv(t, "")

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"rows":`},
		{"no rows", `{"rows":[]}`},
		{"multi-char pivot", `{"rows":[{"id":"P1","peptide":"C"}],"pivot":"CC"}`},
		{"negative flank", `{"rows":[{"id":"P1","peptide":"C"}],"flank":-1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/spans", []byte(tt.body))
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body %s)", w.Code, w.Body.String())
			}
		})
	}
}

func TestStats(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var s StatsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &s)
	if s.Proteins != 2 {
		t.Errorf("proteins = %d, want 2", s.Proteins)
	}
}

// Table upload tests.

func uploadTable(t *testing.T, router http.Handler, content string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "peptides.tsv")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write([]byte(content))
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/tables", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

const peptideTable = "ipi\tsequence\tratio\n" +
	"P1\tC*DEF\t1.5\n" +
	"P9\tCAT\t0.2\n"

func TestUploadAndFetchTable(t *testing.T) {
	_, router := testEnv(t, "")

	w := uploadTable(t, router, peptideTable, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d, body = %s", w.Code, w.Body.String())
	}
	var resp TableUploadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Written != 1 || resp.Skipped != 1 || resp.Summary.ProteinNotFound != 1 {
		t.Errorf("resp = %+v", resp)
	}
	if resp.URL != "/api/tables/"+resp.ID {
		t.Errorf("url = %q", resp.URL)
	}

	w = do(t, router, http.MethodGet, "/tables/"+resp.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/tab-separated-values") {
		t.Errorf("content-type = %q", ct)
	}
	want := "ipi\tsequence\tratio\toriginal_sequence\tresidue\tspan\n" +
		"P1\tCDEF\t1.5\tC*DEF\tC3\tMACDE\n"
	if w.Body.String() != want {
		t.Errorf("table = %q, want %q", w.Body.String(), want)
	}

	w = do(t, router, http.MethodGet, "/tables", nil)
	var list TableListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Tables) != 1 {
		t.Errorf("tables = %+v", list.Tables)
	}

	w = do(t, router, http.MethodDelete, "/tables/"+resp.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete = %d", w.Code)
	}
	w = do(t, router, http.MethodGet, "/tables/"+resp.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
}

func TestUploadTable_FormOverrides(t *testing.T) {
	_, router := testEnv(t, "")

	w := uploadTable(t, router, "acc\tpep\nP2\tCKKC\n", map[string]string{
		"id_col":  "acc",
		"seq_col": "pep",
		"flank":   "1",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d, body = %s", w.Code, w.Body.String())
	}
	var resp TableUploadResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Written != 2 {
		t.Errorf("written = %d, want 2", resp.Written)
	}
}

func TestUploadTable_Errors(t *testing.T) {
	_, router := testEnv(t, "")

	if w := uploadTable(t, router, "id\tpep\nP1\tC\n", nil); w.Code != http.StatusBadRequest {
		t.Errorf("missing columns = %d, want 400", w.Code)
	}
	if w := uploadTable(t, router, peptideTable, map[string]string{"flank": "wide"}); w.Code != http.StatusBadRequest {
		t.Errorf("bad flank = %d, want 400", w.Code)
	}
	if w := uploadTable(t, router, "", nil); w.Code != http.StatusBadRequest {
		t.Errorf("empty table = %d, want 400", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/tables", strings.NewReader("plain"))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("non-multipart = %d, want 400", w.Code)
	}
}

func TestGetTable_InvalidID(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/tables/not-a-uuid", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid id = %d, want 400", w.Code)
	}
	w = do(t, router, http.MethodGet, "/tables/3f1c2a9e-8f0b-4c1e-9d2a-5b7e6f4a1c3d", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown id = %d, want 404", w.Code)
	}
}

// Auth tests.

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/proteins/P1", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authed get = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	w := do(t, router, http.MethodGet, "/proteins/P1", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/proteins/P1", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/tables", nil)
	if w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// SSE endpoint auth tests.

// testEnvWithSSE creates a router with a stub SSE handler to test auth on /events.
func testEnvWithSSE(t *testing.T, authEnabled bool, token string) http.Handler {
	t.Helper()
	svc := testutil.TestService(t, nil)

	// Writes headers and blocks until the request context is done.
	sseHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})

	return NewRouter(svc, authEnabled, token, sseHandler)
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	router := testEnvWithSSE(t, true, "secret")

	w := do(t, router, http.MethodGet, "/events", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	router := testEnvWithSSE(t, true, "tok")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}
