package server_test

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"golang.org/x/net/http2"

	"github.com/kbukum/xform/config"
	"github.com/kbukum/xform/logger"
	"github.com/kbukum/xform/observability"
	"github.com/kbukum/xform/security"
	"github.com/kbukum/xform/security/tlstest"
	"github.com/kbukum/xform/server"
	"github.com/kbukum/xform/streams"
	"github.com/kbukum/xform/xform"
	"github.com/kbukum/xform/xformtest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newServer(t *testing.T, opts ...server.Option) http.Handler {
	t.Helper()
	e, err := xform.New(config.EngineConfig{BatchSize: 128},
		xform.WithStreams(streams.NewMemory()),
		xform.WithLogger(logger.NewNop()),
		xform.WithTable(xformtest.WebRequestTable, xformtest.WebRequest()),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { e.Close() })
	opts = append([]server.Option{server.WithLogger(logger.NewNop())}, opts...)
	return server.New(config.ServerConfig{Addr: "127.0.0.1:0"}, e, opts...).Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type queryResponse struct {
	Data xform.Result `json:"data"`
}

type errorResponse struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid body %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestQuery(t *testing.T) {
	h := newServer(t)

	tests := []struct {
		name      string
		body      server.QueryRequest
		rows      int
		truncated bool
	}{
		{"count", server.QueryRequest{Query: "read WebRequest\nwhere ServerPort = 80\ncount"}, 1, false},
		{"limit", server.QueryRequest{Query: "read WebRequest\ncolumns ID", Limit: 10}, 10, true},
		{"default limit", server.QueryRequest{Query: "read WebRequest\ncolumns ID"}, xformtest.WebRequestRows, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/v1/query", tc.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
			}
			got := decode[queryResponse](t, rec).Data
			if got.RowCount != tc.rows || got.Truncated != tc.truncated {
				t.Errorf("got %d rows truncated=%v", got.RowCount, got.Truncated)
			}
		})
	}
}

func TestQuery_CountValue(t *testing.T) {
	h := newServer(t)
	rec := do(t, h, http.MethodPost, "/v1/query", server.QueryRequest{Query: "read WebRequest\nwhere ServerPort = 80\ncount"})
	got := decode[queryResponse](t, rec).Data
	if len(got.Columns) != 1 || got.Columns[0].Name != "Count" {
		t.Fatalf("unexpected columns %+v", got.Columns)
	}
	if n, ok := got.Rows[0][0].(float64); !ok || int(n) != xformtest.Port80Rows {
		t.Errorf("expected count %d, got %v", xformtest.Port80Rows, got.Rows[0][0])
	}
}

func TestQuery_Errors(t *testing.T) {
	h := newServer(t, server.WithRowLimit(50))

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"usage error", server.QueryRequest{Query: "read WebRequest\nwhere NoSuchColumn = 1"}, http.StatusBadRequest, "USAGE_ERROR"},
		{"unknown verb", server.QueryRequest{Query: "frobnicate"}, http.StatusBadRequest, "USAGE_ERROR"},
		{"missing query", server.QueryRequest{}, http.StatusBadRequest, "INVALID_INPUT"},
		{"limit above cap", server.QueryRequest{Query: "read WebRequest", Limit: 51}, http.StatusBadRequest, "INVALID_INPUT"},
		{"not json", "not an object", http.StatusBadRequest, "INVALID_INPUT"},
		{"unknown table", server.QueryRequest{Query: "read Nowhere"}, http.StatusBadRequest, "USAGE_ERROR"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/v1/query", tc.body)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
			got := decode[errorResponse](t, rec)
			if got.Error.Code != tc.code {
				t.Errorf("expected code %s, got %s", tc.code, got.Error.Code)
			}
		})
	}
}

func TestQuery_UsageDetails(t *testing.T) {
	h := newServer(t)
	rec := do(t, h, http.MethodPost, "/v1/query", server.QueryRequest{Query: "read WebRequest\nlimit ten"})
	got := decode[errorResponse](t, rec)
	if got.Error.Details["line"] != float64(2) || got.Error.Details["invalid_value"] != "ten" {
		t.Errorf("unexpected details %v", got.Error.Details)
	}
	if !strings.Contains(got.Error.Message, `"ten" was not a valid`) {
		t.Errorf("unexpected message %q", got.Error.Message)
	}
}

func TestListings(t *testing.T) {
	h := newServer(t)

	tests := []struct {
		path string
		want string
	}{
		{"/v1/verbs", "count"},
		{"/v1/types", "int32"},
		{"/v1/tables", xformtest.WebRequestTable},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, tc.path, nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("status %d", rec.Code)
			}
			got := decode[struct {
				Data json.RawMessage `json:"data"`
				Meta server.Meta     `json:"meta"`
			}](t, rec)
			if got.Meta.Total == 0 || !strings.Contains(string(got.Data), tc.want) {
				t.Errorf("expected %q in %s (total %d)", tc.want, got.Data, got.Meta.Total)
			}
		})
	}
}

func TestStoreTable(t *testing.T) {
	h := newServer(t)

	rec := do(t, h, http.MethodPut, "/v1/tables/Port80", server.QueryRequest{Query: "read WebRequest\nwhere ServerPort = 80\ncolumns ID"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	stored := decode[struct {
		Data server.TableResponse `json:"data"`
	}](t, rec).Data
	if stored.Rows != xformtest.Port80Rows || len(stored.Columns) != 1 {
		t.Errorf("unexpected table %+v", stored)
	}

	rec = do(t, h, http.MethodPost, "/v1/query", server.QueryRequest{Query: "read Port80\ncount"})
	got := decode[queryResponse](t, rec).Data
	if n, _ := got.Rows[0][0].(float64); int(n) != xformtest.Port80Rows {
		t.Errorf("expected stored table to be readable, got %v", got.Rows)
	}

	rec = do(t, h, http.MethodPut, "/v1/tables/a.b", server.QueryRequest{Query: "read WebRequest"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for dotted name, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	h := newServer(t)
	rec := do(t, h, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	got := decode[observability.ServiceHealth](t, rec)
	if got.Service != "xform" || got.Status != observability.HealthStatusUp || len(got.Components) == 0 {
		t.Errorf("unexpected health %+v", got)
	}
}

type downEngine struct{ server.Engine }

func (downEngine) CheckHealth(context.Context) []observability.Health {
	return []observability.Health{{Name: "sqlite", Status: observability.HealthStatusDown}}
}

func TestHealth_Down(t *testing.T) {
	h := server.New(config.ServerConfig{}, downEngine{}, server.WithLogger(logger.NewNop())).Handler()
	rec := do(t, h, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

type panicEngine struct{ server.Engine }

func (panicEngine) Verbs() []xform.VerbInfo { panic("boom") }

func TestRecovery(t *testing.T) {
	h := server.New(config.ServerConfig{}, panicEngine{}, server.WithLogger(logger.NewNop())).Handler()
	rec := do(t, h, http.MethodGet, "/v1/verbs", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if got := decode[errorResponse](t, rec); got.Error.Code != "INTERNAL_ERROR" {
		t.Errorf("unexpected code %s", got.Error.Code)
	}
}

func TestRequestID(t *testing.T) {
	h := newServer(t)
	const id = "6f1c2b9e-8d4a-4c1b-9a7e-3f2d1c0b9a8e"

	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{"propagated", id, true},
		{"invalid replaced", "not-a-uuid", false},
		{"missing assigned", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/types", nil)
			if tc.header != "" {
				req.Header.Set("X-Request-Id", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			got := rec.Header().Get("X-Request-Id")
			if got == "" {
				t.Fatal("expected a request id")
			}
			if (got == tc.header) != tc.keep {
				t.Errorf("header %q produced %q", tc.header, got)
			}
		})
	}
}

func TestStartStop(t *testing.T) {
	e := downEngine{}
	s := server.New(config.ServerConfig{Addr: "127.0.0.1:0"}, e, server.WithLogger(logger.NewNop()))
	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	resp, err := http.Get("http://" + s.Addr() + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503 from down engine, got %d", resp.StatusCode)
	}
	if err := s.Stop(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestStart_HTTP2Cleartext(t *testing.T) {
	s := server.New(config.ServerConfig{Addr: "127.0.0.1:0"}, downEngine{}, server.WithLogger(logger.NewNop()))
	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer s.Stop(ctx)

	client := &http.Client{Transport: &http2.Transport{
		AllowHTTP: true,
		DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, addr)
		},
	}}
	resp, err := client.Get("http://" + s.Addr() + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.ProtoMajor != 2 {
		t.Errorf("expected HTTP/2, got %s", resp.Proto)
	}
}

var _ server.Engine = (*xform.Engine)(nil)

func TestQueryStream(t *testing.T) {
	h := newServer(t)

	rec := do(t, h, http.MethodPost, "/v1/query/stream", server.QueryRequest{Query: "read WebRequest\nwhere ServerPort = 80\ncolumns ID"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("unexpected content type %q", ct)
	}
	body := rec.Body.String()
	columns := strings.Index(body, "event:"+server.EventColumns)
	rows := strings.Index(body, "event:"+server.EventRows)
	done := strings.Index(body, "event:"+server.EventDone)
	if columns < 0 || rows < columns || done < rows {
		t.Fatalf("expected columns, rows, done in order:\n%s", body)
	}
	if !strings.Contains(body, `"row_count":423`) {
		t.Errorf("expected the row count in the done event:\n%s", body[done:])
	}
}

func TestQueryStream_UsageErrorIsJSON(t *testing.T) {
	h := newServer(t)
	rec := do(t, h, http.MethodPost, "/v1/query/stream", server.QueryRequest{Query: "read WebRequest\nlimit ten"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := decode[errorResponse](t, rec); got.Error.Code != "USAGE_ERROR" {
		t.Errorf("unexpected code %s", got.Error.Code)
	}
}

type blockingEngine struct {
	server.Engine
	started chan struct{}
	release chan struct{}
}

func (e *blockingEngine) Execute(context.Context, string, int) (*xform.Result, error) {
	close(e.started)
	<-e.release
	return &xform.Result{Rows: [][]any{}}, nil
}

func TestQuery_BusyRunnerIs503(t *testing.T) {
	e := &blockingEngine{started: make(chan struct{}), release: make(chan struct{})}
	h := server.New(config.ServerConfig{MaxConcurrent: 1}, e, server.WithLogger(logger.NewNop())).Handler()

	first := make(chan int, 1)
	go func() {
		first <- do(t, h, http.MethodPost, "/v1/query", server.QueryRequest{Query: "count"}).Code
	}()
	<-e.started

	rec := do(t, h, http.MethodPost, "/v1/query", server.QueryRequest{Query: "count"})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
	if got := decode[errorResponse](t, rec); got.Error.Code != "SERVICE_UNAVAILABLE" {
		t.Errorf("unexpected code %s", got.Error.Code)
	}

	close(e.release)
	if code := <-first; code != http.StatusOK {
		t.Errorf("first request: expected 200, got %d", code)
	}
}

func TestStart_TLS(t *testing.T) {
	certs := tlstest.GenerateTLSCerts(t)
	cfg := config.ServerConfig{
		Addr: "127.0.0.1:0",
		TLS:  security.TLSConfig{CertFile: certs.CertFile, KeyFile: certs.KeyFile},
	}
	s := server.New(cfg, downEngine{}, server.WithLogger(logger.NewNop()))
	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer s.Stop(ctx)

	client := &http.Client{Transport: &http.Transport{TLSClientConfig: &tls.Config{RootCAs: certs.CertPool}}}
	resp, err := client.Get("https://" + s.Addr() + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503 from down engine, got %d", resp.StatusCode)
	}
}

func TestStart_BadCertificate(t *testing.T) {
	cfg := config.ServerConfig{
		Addr: "127.0.0.1:0",
		TLS:  security.TLSConfig{CertFile: "/nonexistent/cert.pem", KeyFile: "/nonexistent/key.pem"},
	}
	s := server.New(cfg, downEngine{}, server.WithLogger(logger.NewNop()))
	if err := s.Start(context.Background()); err == nil {
		t.Error("expected a certificate error")
	}
}
