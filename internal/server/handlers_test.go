package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/hyperjump/doctext/internal/config"
	"github.com/hyperjump/doctext/internal/convert"
	"github.com/hyperjump/doctext/internal/extract"
	"github.com/hyperjump/doctext/internal/metrics"
	"github.com/hyperjump/doctext/internal/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) (*Server, *metrics.Metrics) {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	m := metrics.New()
	logger := zap.NewNop()
	svc := convert.NewService(extract.NewExtractor(), m, logger)
	return NewServer(svc, cfg, m, logger), m
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func decodeDetail(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var out models.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out), "body: %s", w.Body.String())
	return out.Detail
}

func TestHandleFileToText_schema1CSV(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	body := fmt.Sprintf(`{"contentBytes": %q, "name": "x.csv"}`, b64("a,b\nc,d"))
	w := do(srv.Handler(), http.MethodPost, ConvertPath, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var out models.FileText
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	assert.Equal(t, models.FileText{Filename: "x.csv", Extension: "csv", Text: "a,b\nc,d"}, out)
}

func TestHandleFileToText_schema2JSON(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	body := fmt.Sprintf(`{"Content": %q, "Name": "x.json"}`, b64(`{"a":1}`))
	w := do(srv.Handler(), http.MethodPost, ConvertPath, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out models.FileText
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	assert.Equal(t, "{\n  \"a\": 1\n}", out.Text)
	assert.Equal(t, "json", out.Extension)
}

func TestHandleFileToText_xlsx(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"name", "qty"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"apple", 3}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	srv, _ := newTestServer(t, nil)
	body := fmt.Sprintf(`{"contentBytes": %q, "name": "Stock.XLSX"}`, base64.StdEncoding.EncodeToString(buf.Bytes()))
	w := do(srv.Handler(), http.MethodPost, ConvertPath, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out models.FileText
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	assert.Equal(t, "xlsx", out.Extension)
	assert.Equal(t, "name,qty\napple,3\n", out.Text)
}

func TestHandleFileToText_errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantDetail string
		wantPrefix bool
	}{
		{"invalid base64", `{"contentBytes": "not-valid-base64!!", "name": "x.csv"}`, "Invalid base64 content", false},
		{"empty object", `{}`, "Invalid schema. Missing contentBytes or Content/Name.", false},
		{"name only", `{"Name": "x.csv"}`, "Invalid schema. Missing contentBytes or Content/Name.", false},
		{"malformed json", `{"contentBytes":`, "Invalid request body", false},
		{"array body", `[]`, "Invalid request body", false},
		{"bad spreadsheet", fmt.Sprintf(`{"contentBytes": %q, "name": "x.xlsx"}`, b64("not a workbook")), "Failed to parse file: ", true},
		{"bad json payload", fmt.Sprintf(`{"contentBytes": %q, "name": "x.json"}`, b64("{")), "Failed to parse file: ", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, nil)
			w := do(srv.Handler(), http.MethodPost, ConvertPath, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			detail := decodeDetail(t, w)
			if tt.wantPrefix {
				assert.True(t, strings.HasPrefix(detail, tt.wantDetail), "detail = %q", detail)
				assert.Greater(t, len(detail), len(tt.wantDetail), "detail should carry the underlying error")
				return
			}
			assert.Equal(t, tt.wantDetail, detail)
		})
	}
}

func TestHandleFileToText_bodyTooLarge(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()
	body := fmt.Sprintf(`{"contentBytes": %q, "name": "x.txt"}`, b64(strings.Repeat("a", 64)))

	w := do(h, http.MethodPost, ConvertPath, body)
	require.Equal(t, http.StatusOK, w.Code)

	srv.SetMaxBodyBytes(16)
	assert.Equal(t, int64(16), srv.MaxBodyBytes())
	w = do(h, http.MethodPost, ConvertPath, body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "Request body too large", decodeDetail(t, w))

	srv.SetMaxBodyBytes(0)
	assert.Equal(t, int64(16), srv.MaxBodyBytes(), "non-positive limits are ignored")
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	w := do(srv.Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestHandleFormats(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	w := do(srv.Handler(), http.MethodGet, "/formats", "")
	require.Equal(t, http.StatusOK, w.Code)

	var out models.FormatsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	assert.Equal(t, "raw", out.Fallback)
	exts := make([]string, 0, len(out.Formats))
	for _, f := range out.Formats {
		exts = append(exts, f.Extension)
	}
	assert.Equal(t, []string{"xlsx", "xls", "csv", "json", "docx"}, exts)
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()

	w := do(h, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Not Found", decodeDetail(t, w))

	w = do(h, http.MethodGet, ConvertPath, "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "Method Not Allowed", decodeDetail(t, w))
}

func TestMetricsRoute(t *testing.T) {
	srv, m := newTestServer(t, nil)
	h := srv.Handler()
	do(h, http.MethodPost, ConvertPath, fmt.Sprintf(`{"contentBytes": %q, "name": "a.csv"}`, b64("x")))
	do(h, http.MethodPost, ConvertPath, `{}`)

	w := do(h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `doctext_conversions_total{extension="csv",result="ok"} 1`)

	const want = `
# HELP doctext_http_requests_total The total number of HTTP requests partitioned by route and status code
# TYPE doctext_http_requests_total counter
doctext_http_requests_total{code="200",route="/file-to-text"} 1
doctext_http_requests_total{code="400",route="/file-to-text"} 1
doctext_http_requests_total{code="200",route="/metrics"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(want), "doctext_http_requests_total"))
}

func TestMetricsRoute_disabled(t *testing.T) {
	srv, _ := newTestServer(t, func(cfg *config.Config) {
		f := false
		cfg.Metrics.Enabled = &f
	})
	w := do(srv.Handler(), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequestID(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()

	w := do(h, http.MethodGet, "/health", "")
	_, err := uuid.Parse(w.Header().Get(RequestIDHeader))
	assert.NoError(t, err, "generated request id should be a UUID")

	id := uuid.NewString()
	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.Header.Set(RequestIDHeader, id)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, id, rec.Header().Get(RequestIDHeader))

	r = httptest.NewRequest(http.MethodGet, "/health", nil)
	r.Header.Set(RequestIDHeader, "not-a-uuid")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.NotEqual(t, "not-a-uuid", rec.Header().Get(RequestIDHeader))
}

func TestRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, func(cfg *config.Config) {
		cfg.RateLimit.Requests = 1
	})
	h := srv.Handler()

	w := do(h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	w = do(h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, "Rate limit exceeded, please try again later", decodeDetail(t, w))
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, func(cfg *config.Config) {
		cfg.Server.CORSOrigins = []string{"https://app.example"}
	})
	r := httptest.NewRequest(http.MethodOptions, ConvertPath, nil)
	r.Header.Set("Origin", "https://app.example")
	r.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, r)
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))

	r = httptest.NewRequest(http.MethodGet, "/health", nil)
	r.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, r)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_StopWithoutStart(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	assert.NoError(t, srv.Stop(context.Background()))
}

func TestHandleFileToText_largeBodyUnderLimit(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	payload := bytes.Repeat([]byte("row,value\n"), 10000)
	body := fmt.Sprintf(`{"contentBytes": %q, "name": "big.csv"}`, base64.StdEncoding.EncodeToString(payload))
	w := do(srv.Handler(), http.MethodPost, ConvertPath, body)
	require.Equal(t, http.StatusOK, w.Code)
	var out models.FileText
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	assert.Equal(t, string(payload), out.Text)
}
