package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"datapulse/internal/alerts"
	"datapulse/internal/analytics"
	"datapulse/internal/dataset"
	"datapulse/internal/ingest"
	"datapulse/internal/respond"
	"datapulse/internal/schema"
)

const testOrdersCSV = `Order ID,Total Amount,Order Status,Payment Method,City,Order Date
ORD1,2000,Delivered,COD,Mumbai,2024-03-05
ORD2,2000,Delivered,UPI,Mumbai,2024-03-06
ORD3,1500,RTO,COD,Delhi,2024-03-07
`

func newAPIHandlers(t *testing.T) *APIHandlers {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := dataset.NewStore()
	mappings := schema.NewMappingStore()
	pipeline := ingest.NewPipeline(store, mappings, logger)
	if _, err := pipeline.Ingest(strings.NewReader(testOrdersCSV), "orders.csv"); err != nil {
		t.Fatalf("seed data: %v", err)
	}

	analyzer := analytics.NewAnalyzer(store, mappings)
	assembler := respond.NewAssembler(analyzer, store, logger)
	return NewAPIHandlers(assembler, analyzer, pipeline, store, mappings, alerts.DefaultRules(), 1<<20, logger)
}

func decodeSuccess(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var response map[string]any
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if success, ok := response["success"].(bool); !ok || !success {
		t.Fatalf("expected success=true, got %v", response)
	}
	return response
}

func TestHandleQuery(t *testing.T) {
	h := newAPIHandlers(t)

	body := bytes.NewBufferString(`{"query": "what is my revenue"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/query", body)
	w := httptest.NewRecorder()

	h.HandleQuery(w, req)

	response := decodeSuccess(t, w)
	data := response["data"].(map[string]any)
	content, _ := data["content"].(string)
	if !strings.Contains(content, "₹") {
		t.Errorf("expected formatted revenue in content, got %q", content)
	}
}

func TestHandleQueryRejectsEmpty(t *testing.T) {
	h := newAPIHandlers(t)

	req := httptest.NewRequest(http.MethodPost, "/api/query", bytes.NewBufferString(`{"query": "  "}`))
	w := httptest.NewRecorder()

	h.HandleQuery(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleQueryRejectsBadJSON(t *testing.T) {
	h := newAPIHandlers(t)

	req := httptest.NewRequest(http.MethodPost, "/api/query", bytes.NewBufferString("not json"))
	w := httptest.NewRecorder()

	h.HandleQuery(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestHandleUpload(t *testing.T) {
	h := newAPIHandlers(t)

	customers := "Customer ID,Customer Name,Email\nC1,Priya,priya@example.com\n"
	body, contentType := multipartBody(t, "customers.csv", customers)

	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	h.HandleUpload(w, req)

	response := decodeSuccess(t, w)
	data := response["data"].(map[string]any)
	if data["type"] != "customers" {
		t.Errorf("detected type = %v, want customers", data["type"])
	}
	if !h.store.Has(dataset.TypeCustomers) {
		t.Error("customers dataset should be in the store")
	}
}

func TestHandleUploadRejectsNonCSV(t *testing.T) {
	h := newAPIHandlers(t)

	body, contentType := multipartBody(t, "data.xlsx", "binary junk")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	h.HandleUpload(w, req)

	if w.Code != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want 415", w.Code)
	}
}

func TestHandleDatasets(t *testing.T) {
	h := newAPIHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/api/datasets", nil)
	w := httptest.NewRecorder()

	h.HandleDatasets(w, req)

	response := decodeSuccess(t, w)
	infos, ok := response["data"].([]any)
	if !ok || len(infos) != 1 {
		t.Fatalf("expected one dataset, got %v", response["data"])
	}
}

func TestHandleSetMappingAndClear(t *testing.T) {
	h := newAPIHandlers(t)

	body := bytes.NewBufferString(`{"type": "orders", "field": "city", "column": "City"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/mappings", body)
	w := httptest.NewRecorder()

	h.HandleSetMapping(w, req)
	decodeSuccess(t, w)

	mapping := h.mappings.Get(dataset.TypeOrders)
	if mapping[schema.FieldCity] != "City" {
		t.Errorf("override not applied: %v", mapping)
	}

	body = bytes.NewBufferString(`{"type": "orders", "field": "city", "column": "NoSuchColumn"}`)
	w = httptest.NewRecorder()
	h.HandleSetMapping(w, httptest.NewRequest(http.MethodPost, "/api/mappings", body))
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown column should be rejected, got %d", w.Code)
	}
}

func TestHandleAlerts(t *testing.T) {
	h := newAPIHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/api/alerts", nil)
	w := httptest.NewRecorder()

	h.HandleAlerts(w, req)

	response := decodeSuccess(t, w)
	data := response["data"].(map[string]any)
	// 1 RTO out of 3 shipped is 33%, above the 15% default threshold.
	fired, ok := data["alerts"].([]any)
	if !ok || len(fired) == 0 {
		t.Fatalf("expected high RTO alert to fire, got %v", data)
	}
}

func TestHandleSummary(t *testing.T) {
	h := newAPIHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	w := httptest.NewRecorder()

	h.HandleSummary(w, req)
	response := decodeSuccess(t, w)
	data := response["data"].(map[string]any)
	if data["TotalOrders"] != float64(3) {
		t.Errorf("TotalOrders = %v, want 3", data["TotalOrders"])
	}
}

func TestHandleHealth(t *testing.T) {
	h := newAPIHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	h.HandleHealth(w, req)

	response := decodeSuccess(t, w)
	data := response["data"].(map[string]any)
	if data["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", data["status"])
	}
}

func TestHandleStats(t *testing.T) {
	h := newAPIHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	w := httptest.NewRecorder()

	h.HandleStats(w, req)

	response := decodeSuccess(t, w)
	data := response["data"].(map[string]any)
	if data["total_rows"] != float64(3) {
		t.Errorf("total_rows = %v, want 3", data["total_rows"])
	}
}
