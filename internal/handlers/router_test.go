package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/xelth-com/wotrack/internal/ai"
	"github.com/xelth-com/wotrack/internal/config"
	"github.com/xelth-com/wotrack/internal/lifecycle"
	"github.com/xelth-com/wotrack/internal/models"
	"github.com/xelth-com/wotrack/internal/store"
	"github.com/xelth-com/wotrack/internal/sync"
	"github.com/xelth-com/wotrack/internal/utils"
)

const testAccessKey = "shared-key"

type fakeOCR struct {
	code string
	err  error
}

func (f fakeOCR) ExtractCode(ctx context.Context, image []byte, mimeType string) (string, error) {
	return f.code, f.err
}

func newTestRouter(t *testing.T, ocr Extractor) (*Router, string) {
	t.Helper()
	cfg := &config.Config{JWTSecret: "test-secret", AccessKey: testAccessKey, SessionTTL: time.Hour}
	st := store.New(store.NewMemoryCache())
	syncCfg := &config.SyncConfig{SaveDebounceMs: 50, RemoteTimeout: 1, BatchSize: 10, ConflictResolution: "fresh_window", FreshWindow: 300}

	r, err := NewRouter(Deps{
		Config:    cfg,
		Store:     st,
		Lifecycle: lifecycle.NewEngine(st),
		Sync:      sync.NewSyncEngine(st, nil, syncCfg),
		OCR:       ocr,
	})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}

	token, err := utils.GenerateSessionToken("Ana", cfg.JWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}
	return r, token
}

func do(t *testing.T, r *Router, method, path, token string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestLogin(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	testCases := []struct {
		name string
		body LoginRequest
		want int
	}{
		{"ok", LoginRequest{Name: "Márcia", AccessKey: testAccessKey}, http.StatusOK},
		{"short name", LoginRequest{Name: " Al ", AccessKey: testAccessKey}, http.StatusBadRequest},
		{"wrong key", LoginRequest{Name: "Márcia", AccessKey: "nope"}, http.StatusUnauthorized},
	}
	for _, tc := range testCases {
		rec := do(t, r, http.MethodPost, "/auth/login", "", tc.body)
		if rec.Code != tc.want {
			t.Errorf("%s: status = %d, want %d (%s)", tc.name, rec.Code, tc.want, rec.Body.String())
		}
	}

	rec := do(t, r, http.MethodPost, "/auth/login", "", LoginRequest{Name: "Márcia", AccessKey: testAccessKey})
	var resp struct {
		Token string `json:"token"`
	}
	decode(t, rec, &resp)
	if rec := do(t, r, http.MethodGet, "/api/documents", resp.Token, nil); rec.Code != http.StatusOK {
		t.Fatalf("issued token rejected: %d", rec.Code)
	}
}

func TestAPIRequiresSession(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	if rec := do(t, r, http.MethodGet, "/api/documents", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if rec := do(t, r, http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
}

func TestScanFlow(t *testing.T) {
	r, token := newTestRouter(t, nil)

	rec := do(t, r, http.MethodPost, "/api/scan", token, ScanRequest{Code: "00200123456", Source: utils.SourceScanner})
	if rec.Code != http.StatusCreated {
		t.Fatalf("first scan: %d %s", rec.Code, rec.Body.String())
	}
	var out lifecycle.ScanOutcome
	decode(t, rec, &out)
	if out.Action != lifecycle.ScanCreated || out.Document.ID != "200123456" || out.Document.Type != models.DocTypeFAR {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if out.Document.CreatedBy != "Ana" {
		t.Errorf("createdBy = %q", out.Document.CreatedBy)
	}

	rec = do(t, r, http.MethodPost, "/api/scan", token, ScanRequest{Code: "200123456", Source: utils.SourceManual})
	decode(t, rec, &out)
	if rec.Code != http.StatusOK || out.Action != lifecycle.ScanFound {
		t.Fatalf("second scan: %d %+v", rec.Code, out)
	}

	rec = do(t, r, http.MethodPost, "/api/scan", token, ScanRequest{Code: "12-3"})
	decode(t, rec, &out)
	if rec.Code != http.StatusUnprocessableEntity || out.Action != lifecycle.ScanRejected {
		t.Fatalf("short scan: %d %+v", rec.Code, out)
	}

	rec = do(t, r, http.MethodPost, "/api/scan", token, ScanRequest{Code: "100000777", OriginalDate: "2024-01-31"})
	decode(t, rec, &out)
	if rec.Code != http.StatusCreated || out.Document.OriginalDate.Format("2006-01-02") != "2024-01-31" {
		t.Fatalf("scan with original date: %d %+v", rec.Code, out.Document)
	}

	if rec := do(t, r, http.MethodPost, "/api/scan", token, ScanRequest{Code: "100000778", OriginalDate: "31/01"}); rec.Code != http.StatusBadRequest {
		t.Errorf("bad originalDate status = %d", rec.Code)
	}
}

func TestDocumentActions(t *testing.T) {
	r, token := newTestRouter(t, nil)
	do(t, r, http.MethodPost, "/api/scan", token, ScanRequest{Code: "100123456"})

	type actionResp struct {
		Document models.Document `json:"document"`
		Changed  bool            `json:"changed"`
	}

	steps := []struct {
		action string
		want   models.Status
	}{
		{"advance", models.StatusScanner},
		{"report-error", models.StatusReturn},
		{"resolve-error", models.StatusReturn},
		{"advance", models.StatusConference},
		{"report-error", models.StatusReturn},
		{"corrected", models.StatusConference},
		{"revert", models.StatusConference},
	}
	for _, s := range steps {
		rec := do(t, r, http.MethodPost, "/api/documents/100123456/"+s.action, token, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d %s", s.action, rec.Code, rec.Body.String())
		}
		var resp actionResp
		decode(t, rec, &resp)
		if resp.Document.Status != s.want {
			t.Fatalf("%s: status = %s, want %s", s.action, resp.Document.Status, s.want)
		}
	}

	if rec := do(t, r, http.MethodPost, "/api/documents/100123456/teleport", token, nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown action status = %d", rec.Code)
	}
	if rec := do(t, r, http.MethodPost, "/api/documents/999999999/advance", token, nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing document status = %d", rec.Code)
	}

	rec := do(t, r, http.MethodGet, "/api/documents/100123456", token, nil)
	var doc models.Document
	decode(t, rec, &doc)
	// the last revert dropped one error history entry
	if doc.ErrorCount != 1 || doc.HasErrors {
		t.Errorf("error state = %d/%v", doc.ErrorCount, doc.HasErrors)
	}
}

func TestPatchDocument(t *testing.T) {
	r, token := newTestRouter(t, nil)
	do(t, r, http.MethodPost, "/api/scan", token, ScanRequest{Code: "100123456"})

	rec := do(t, r, http.MethodPatch, "/api/documents/100123456", token, FieldUpdateRequest{Field: "originalDate", Value: "2023-12-24"})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch: %d %s", rec.Code, rec.Body.String())
	}

	for _, field := range []string{"id", "createdBy", "color"} {
		rec := do(t, r, http.MethodPatch, "/api/documents/100123456", token, FieldUpdateRequest{Field: field, Value: "x"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("patch %s: status = %d, want 400", field, rec.Code)
		}
	}

	rec = do(t, r, http.MethodGet, "/api/documents?axis=original&from=2023-12-24&to=2023-12-24", token, nil)
	var list struct {
		Total int `json:"total"`
	}
	decode(t, rec, &list)
	if list.Total != 1 {
		t.Errorf("original axis total = %d, want 1", list.Total)
	}
}

func TestListDocumentsFilters(t *testing.T) {
	r, token := newTestRouter(t, nil)
	for _, code := range []string{"100000001", "100000002", "200000003"} {
		do(t, r, http.MethodPost, "/api/scan", token, ScanRequest{Code: code})
	}
	do(t, r, http.MethodPost, "/api/documents/100000002/advance", token, nil)

	testCases := []struct {
		query string
		code  int
		total int
	}{
		{"", http.StatusOK, 3},
		{"?status=conference", http.StatusOK, 2},
		{"?status=SCANNER", http.StatusOK, 1},
		{"?q=far", http.StatusOK, 1},
		{"?status=LOST", http.StatusBadRequest, 0},
		{"?axis=updated", http.StatusBadRequest, 0},
		{"?from=yesterday", http.StatusBadRequest, 0},
	}
	for _, tc := range testCases {
		rec := do(t, r, http.MethodGet, "/api/documents"+tc.query, token, nil)
		if rec.Code != tc.code {
			t.Errorf("%q: status = %d, want %d", tc.query, rec.Code, tc.code)
			continue
		}
		if tc.code != http.StatusOK {
			continue
		}
		var list struct {
			Total     int  `json:"total"`
			SyncError bool `json:"syncError"`
		}
		decode(t, rec, &list)
		if list.Total != tc.total {
			t.Errorf("%q: total = %d, want %d", tc.query, list.Total, tc.total)
		}
	}

	rec := do(t, r, http.MethodGet, "/api/documents/stats", token, nil)
	var stats struct {
		All struct {
			Total int `json:"total"`
		} `json:"all"`
	}
	decode(t, rec, &stats)
	if stats.All.Total != 3 {
		t.Errorf("stats total = %d", stats.All.Total)
	}
}

func TestDeleteRequiresAccessKey(t *testing.T) {
	r, token := newTestRouter(t, nil)
	for _, code := range []string{"100000001", "100000002", "100000003"} {
		do(t, r, http.MethodPost, "/api/scan", token, ScanRequest{Code: code})
	}

	if rec := do(t, r, http.MethodDelete, "/api/documents/100000001", token, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("delete without key: %d", rec.Code)
	}
	if rec := do(t, r, http.MethodDelete, "/api/documents/100000001", token, nil, "X-Access-Key", "guess"); rec.Code != http.StatusForbidden {
		t.Fatalf("delete with wrong key: %d", rec.Code)
	}

	rec := do(t, r, http.MethodDelete, "/api/documents/100000001", token, nil, "X-Access-Key", testAccessKey)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: %d %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Deleted []string         `json:"deleted"`
		Sync    *sync.SyncResult `json:"sync"`
	}
	decode(t, rec, &resp)
	if len(resp.Deleted) != 1 || resp.Sync == nil || resp.Sync.Success {
		t.Fatalf("unexpected delete response %s", rec.Body.String())
	}

	rec = do(t, r, http.MethodPost, "/api/documents/delete", token, DeleteRequest{IDs: []string{"100000002", "100000003"}}, "X-Access-Key", testAccessKey)
	decode(t, rec, &resp)
	if len(resp.Deleted) != 2 {
		t.Fatalf("bulk delete: %s", rec.Body.String())
	}
	if r.store.Len() != 0 {
		t.Errorf("store still has %d documents", r.store.Len())
	}
}

func TestScanImage(t *testing.T) {
	r, token := newTestRouter(t, fakeOCR{code: "200777888"})

	req := httptest.NewRequest(http.MethodPost, "/api/scan/image", strings.NewReader("\xff\xd8fake-jpeg"))
	req.Header.Set("Content-Type", "image/jpeg")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("scan image: %d %s", rec.Code, rec.Body.String())
	}

	r, token = newTestRouter(t, fakeOCR{err: ai.ErrNoCodeFound})
	req = httptest.NewRequest(http.MethodPost, "/api/scan/image", strings.NewReader("\xff\xd8blurry"))
	req.Header.Set("Content-Type", "image/jpeg")
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unreadable image: %d", rec.Code)
	}

	r, token = newTestRouter(t, nil)
	if rec := do(t, r, http.MethodPost, "/api/scan/image", token, nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("no OCR configured: %d", rec.Code)
	}
}

func TestTrackingSheetAndSyncStatus(t *testing.T) {
	r, token := newTestRouter(t, nil)
	do(t, r, http.MethodPost, "/api/scan", token, ScanRequest{Code: "100123456"})

	rec := do(t, r, http.MethodGet, "/api/documents/100123456/sheet.pdf", token, nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("sheet: %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Error("sheet body is not a PDF")
	}

	rec = do(t, r, http.MethodPost, "/api/sync/fetch", token, nil)
	var res sync.SyncResult
	decode(t, rec, &res)
	if res.Success {
		t.Error("fetch without remote should report failure")
	}

	rec = do(t, r, http.MethodGet, "/api/sync/status", token, nil)
	var status map[string]interface{}
	decode(t, rec, &status)
	if status["has_remote"] != false || status["sync_error"] != true {
		t.Errorf("unexpected status %v", status)
	}
}
