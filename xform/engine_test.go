package xform_test

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/xform/config"
	"github.com/kbukum/xform/data"
	"github.com/kbukum/xform/errors"
	"github.com/kbukum/xform/logger"
	"github.com/kbukum/xform/observability"
	"github.com/kbukum/xform/streams"
	"github.com/kbukum/xform/tables"
	"github.com/kbukum/xform/xform"
	"github.com/kbukum/xform/xformtest"
)

func newEngine(t *testing.T, cfg config.EngineConfig, opts ...xform.Option) (*xform.Engine, *streams.FileSystem) {
	t.Helper()
	fs := streams.NewMemory()
	opts = append([]xform.Option{
		xform.WithStreams(fs),
		xform.WithLogger(logger.NewNop()),
		xform.WithTable(xformtest.WebRequestTable, xformtest.WebRequest()),
	}, opts...)
	e, err := xform.New(cfg, opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { e.Close() })
	return e, fs
}

func TestExecute(t *testing.T) {
	e, _ := newEngine(t, config.EngineConfig{BatchSize: 100})
	ctx := context.Background()

	tests := []struct {
		name      string
		script    string
		maxRows   int
		rows      int
		truncated bool
		columns   []string
	}{
		{"count", "read WebRequest\nwhere ServerPort = 80\ncount", 0, 1, false, []string{"Count"}},
		{"truncated", "read WebRequest\ncolumns ID", 5, 5, true, []string{"ID"}},
		{"exact limit", "read WebRequest\nlimit 5\ncolumns ID", 5, 5, false, []string{"ID"}},
		{"unlimited", "read WebRequest\nlimit 250\ncolumns ID, ServerName", 0, 250, false, []string{"ID", "ServerName"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, err := e.Execute(ctx, tc.script, tc.maxRows)
			if err != nil {
				t.Fatal(err)
			}
			if r.RowCount != tc.rows || len(r.Rows) != tc.rows || r.Truncated != tc.truncated {
				t.Errorf("got %d rows truncated=%v", r.RowCount, r.Truncated)
			}
			if !reflect.DeepEqual(r.ColumnNames(), tc.columns) {
				t.Errorf("columns: got %v want %v", r.ColumnNames(), tc.columns)
			}
			if !reflect.DeepEqual(r.Dependencies, []string{xformtest.WebRequestTable}) {
				t.Errorf("unexpected dependencies %v", r.Dependencies)
			}
		})
	}

	r, _ := e.Execute(ctx, "read WebRequest\nwhere ServerPort = 80\ncount", 0)
	if r.Rows[0][0] != int32(xformtest.Port80Rows) || r.Columns[0].Type != "int32" {
		t.Errorf("unexpected count result %+v", r)
	}
}

func TestQuery_RunIDsAreUnique(t *testing.T) {
	e, _ := newEngine(t, config.EngineConfig{})
	a, err := e.Query(context.Background(), "read WebRequest")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	b, err := e.Query(context.Background(), "read WebRequest")
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	if a.RunID == b.RunID {
		t.Error("expected distinct run ids")
	}
}

func TestQuery_UsageError(t *testing.T) {
	e, _ := newEngine(t, config.EngineConfig{})
	_, err := e.Query(context.Background(), "read WebRequest\nwhere Nope = 1")
	u, ok := errors.AsUsageError(err)
	if !ok || u.Category != "columnName" || u.Line != 2 {
		t.Fatalf("expected a columnName usage error on line 2, got %v", err)
	}
}

func TestDefaultTable(t *testing.T) {
	e, _ := newEngine(t, config.EngineConfig{DefaultTable: xformtest.WebRequestTable})
	ctx := context.Background()

	r, err := e.Execute(ctx, "where ServerPort = 80\ncount", 0)
	if err != nil {
		t.Fatal(err)
	}
	if r.Rows[0][0] != int32(xformtest.Port80Rows) {
		t.Errorf("unexpected count %v", r.Rows[0][0])
	}

	// the default source does not shift line numbers
	_, err = e.Query(ctx, "limit 1\nbogus")
	if u, ok := errors.AsUsageError(err); !ok || u.Line != 2 {
		t.Errorf("expected usage error on line 2, got %v", err)
	}

	r, err = e.Execute(ctx, "", 3)
	if err != nil || r.RowCount != 3 {
		t.Errorf("empty script should read the default table, got %v %v", r, err)
	}
}

func TestRunScript_WritesOutput(t *testing.T) {
	e, fs := newEngine(t, config.EngineConfig{BatchSize: 64})
	n, err := e.RunScript(context.Background(), "read WebRequest\nwhere ServerPort = 80\ncolumns ID\nwrite Port80")
	if err != nil {
		t.Fatal(err)
	}
	if n != xformtest.Port80Rows {
		t.Errorf("expected %d rows, got %d", xformtest.Port80Rows, n)
	}
	if !fs.Exists("Table/Port80.csv") {
		t.Fatal("expected the output table")
	}
	if got := e.Tables(); !reflect.DeepEqual(got, []string{"Port80", "WebRequest"}) {
		t.Errorf("unexpected tables %v", got)
	}
}

func TestQueryTables(t *testing.T) {
	e, fs := newEngine(t, config.EngineConfig{})
	if err := streams.WriteString(fs, "Query/Secure.xql", "read WebRequest\nwhere ServerPort = 443"); err != nil {
		t.Fatal(err)
	}
	r, err := e.Execute(context.Background(), "read Secure\ncount", 0)
	if err != nil {
		t.Fatal(err)
	}
	if r.Rows[0][0] != int32(xformtest.WebRequestRows-xformtest.Port80Rows) {
		t.Errorf("unexpected count %v", r.Rows[0][0])
	}
	if !reflect.DeepEqual(r.Dependencies, []string{"Secure", "WebRequest"}) {
		t.Errorf("unexpected dependencies %v", r.Dependencies)
	}
}

func TestMaterialize(t *testing.T) {
	e, _ := newEngine(t, config.EngineConfig{})
	ctx := context.Background()
	table, err := e.Materialize(ctx, "Cached80", "read WebRequest\nwhere ServerPort = 80")
	if err != nil {
		t.Fatal(err)
	}
	if table.Rows() != xformtest.Port80Rows {
		t.Errorf("expected %d rows, got %d", xformtest.Port80Rows, table.Rows())
	}
	r, err := e.Execute(ctx, "read cached80\ncount", 0)
	if err != nil {
		t.Fatal(err)
	}
	if r.Rows[0][0] != int32(xformtest.Port80Rows) {
		t.Errorf("unexpected count %v", r.Rows[0][0])
	}
}

func TestSQLiteTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xform.db")
	db, err := tables.OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, stmt := range []string{
		"CREATE TABLE Hosts (Name TEXT, Port INTEGER)",
		"INSERT INTO Hosts VALUES ('a', 80), ('b', 443), ('c', 80)",
	} {
		if _, err := db.DB().Exec(stmt); err != nil {
			t.Fatal(err)
		}
	}
	db.Close()

	e, _ := newEngine(t, config.EngineConfig{SQLitePath: path})
	ctx := context.Background()

	health := e.CheckHealth(ctx)
	if len(health) != 2 || health[1].Name != "sqlite" || health[1].Status != observability.HealthStatusUp {
		t.Fatalf("unexpected health %+v", health)
	}

	r, err := e.Execute(ctx, "read hosts\nwhere Port = 80\ncolumns Name", 0)
	if err != nil {
		t.Fatal(err)
	}
	want := [][]any{{data.String8("a")}, {data.String8("c")}}
	if !reflect.DeepEqual(r.Rows, want) {
		t.Errorf("got %v", r.Rows)
	}
	if r.Columns[0].Type != "string8" {
		t.Errorf("unexpected column type %q", r.Columns[0].Type)
	}
}

func TestListings(t *testing.T) {
	e, _ := newEngine(t, config.EngineConfig{})
	verbs := e.Verbs()
	found := false
	for _, v := range verbs {
		if v.Name == "where" {
			found = v.Usage == "'where' [ColumnName] [Operator] [Value]"
		}
	}
	if !found {
		t.Errorf("expected where in %v", verbs)
	}
	types := e.Types()
	if len(types) == 0 || types[0] > types[len(types)-1] {
		t.Errorf("expected sorted type names, got %v", types)
	}
}

func TestTracingAndMetrics(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	reader := sdkmetric.NewManualReader()
	metrics, err := observability.NewEngineMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"))
	if err != nil {
		t.Fatal(err)
	}

	e, _ := newEngine(t, config.EngineConfig{}, xform.WithMetrics(metrics))
	ctx := context.Background()
	if _, err := e.Execute(ctx, "read WebRequest\nlimit 10", 0); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Query(ctx, "read WebRequest\nlimit ten"); err == nil {
		t.Fatal("expected a usage error")
	}

	spans := recorder.Ended()
	var names []string
	for _, s := range spans {
		names = append(names, s.Name())
	}
	want := []string{observability.SpanBuild, observability.SpanRun, observability.SpanBuild}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("spans: got %v want %v", names, want)
	}
	for _, kv := range spans[1].Attributes() {
		if string(kv.Key) == observability.AttrRows && kv.Value.AsInt64() != 10 {
			t.Errorf("expected 10 rows on the run span, got %d", kv.Value.AsInt64())
		}
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatal(err)
	}
	counts := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if s, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range s.DataPoints {
					counts[m.Name] += dp.Value
				}
			}
		}
	}
	if counts[observability.MetricPipelinesBuilt] != 2 || counts[observability.MetricUsageErrors] != 1 || counts[observability.MetricRowsProduced] != 10 {
		t.Errorf("unexpected metrics %v", counts)
	}
}

func TestRun_HonoursCancellation(t *testing.T) {
	e, _ := newEngine(t, config.EngineConfig{BatchSize: 10})
	p, err := e.Query(context.Background(), "read WebRequest")
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Run(ctx, p); err == nil {
		t.Error("expected a cancellation error")
	}
	if n, err := data.Run(context.Background(), p); err != nil || n != xformtest.WebRequestRows {
		t.Errorf("pipeline should still run afterwards, got %d %v", n, err)
	}
}

type recordingWriter struct {
	header  *xform.Result
	batches []int
	rows    int
	fail    error
}

func (w *recordingWriter) WriteHeader(h *xform.Result) error {
	w.header = h
	return nil
}

func (w *recordingWriter) WriteRows(rows [][]any) error {
	if w.fail != nil {
		return w.fail
	}
	w.batches = append(w.batches, len(rows))
	w.rows += len(rows)
	return nil
}

func TestStream(t *testing.T) {
	e, _ := newEngine(t, config.EngineConfig{BatchSize: 100})
	ctx := context.Background()

	tests := []struct {
		name      string
		script    string
		maxRows   int
		rows      int
		batches   int
		truncated bool
	}{
		{"all rows", "read WebRequest\ncolumns ID", 0, xformtest.WebRequestRows, 10, false},
		{"filtered", "read WebRequest\nwhere ServerPort = 80\ncolumns ID", 0, xformtest.Port80Rows, -1, false},
		{"truncated", "read WebRequest\ncolumns ID", 150, 150, 2, true},
		{"exact", "read WebRequest\nlimit 150\ncolumns ID", 150, 150, 2, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := &recordingWriter{}
			result, err := e.Stream(ctx, tc.script, tc.maxRows, w)
			if err != nil {
				t.Fatal(err)
			}
			if w.header == nil || !reflect.DeepEqual(w.header.ColumnNames(), []string{"ID"}) {
				t.Fatalf("expected header with ID, got %+v", w.header)
			}
			if result.RowCount != tc.rows || w.rows != tc.rows || result.Truncated != tc.truncated {
				t.Errorf("got %d/%d rows truncated=%v", result.RowCount, w.rows, result.Truncated)
			}
			if tc.batches >= 0 && len(w.batches) != tc.batches {
				t.Errorf("expected %d batches, got %v", tc.batches, w.batches)
			}
		})
	}
}

func TestStream_Errors(t *testing.T) {
	e, _ := newEngine(t, config.EngineConfig{})
	ctx := context.Background()

	w := &recordingWriter{}
	if _, err := e.Stream(ctx, "read WebRequest\nlimit ten", 0, w); !errors.IsUsageError(err) {
		t.Errorf("expected a usage error, got %v", err)
	}
	if w.header != nil {
		t.Error("no header should be written for a script that does not compile")
	}

	boom := errors.Internal(context.Canceled)
	if _, err := e.Stream(ctx, "read WebRequest", 0, &recordingWriter{fail: boom}); err == nil {
		t.Error("expected the writer error")
	}
}
