// Package xformtest provides a deterministic sample table and a ready
// workflow context for pipeline tests.
package xformtest

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/xform/data"
	"github.com/kbukum/xform/logger"
	"github.com/kbukum/xform/query"
	"github.com/kbukum/xform/streams"
	"github.com/kbukum/xform/tables"
	"github.com/kbukum/xform/types"
	"github.com/kbukum/xform/verbs"
)

// Sample table facts.
const (
	WebRequestTable = "WebRequest"
	WebRequestRows  = 1000
	// Port80Rows is the number of rows where ServerPort is 80.
	Port80Rows = 423
)

var (
	serverNames = []data.String8{"www.contoso.com", "api.contoso.com", "fabrikam.net"}
	methods     = []data.String8{"GET", "GET", "POST", "PUT", "DELETE"}
	statuses    = []int32{200, 200, 200, 304, 404, 500}
	clientOSes  = []data.String8{"Windows", "Linux", "macOS", "iOS"}
	baseTime    = time.Date(2017, 3, 1, 0, 0, 0, 0, time.UTC)
)

// WebRequest returns the 1000 row sample table. ServerPort is 80 on exactly
// 423 rows and 443 on the rest.
func WebRequest() *data.Table {
	n := WebRequestRows
	id := make([]int32, n)
	eventTime := make([]time.Time, n)
	serverName := make([]data.String8, n)
	serverPort := make([]int32, n)
	method := make([]data.String8, n)
	status := make([]int32, n)
	clientOS := make([]data.String8, n)
	cached := make([]bool, n)
	responseBytes := make([]int64, n)
	duration := make([]float64, n)

	for i := 0; i < n; i++ {
		id[i] = int32(i + 1)
		eventTime[i] = baseTime.Add(time.Duration(i) * time.Minute)
		serverName[i] = serverNames[i%len(serverNames)]
		// 7 is coprime with 1000, so (i*7)%1000 visits every value once.
		serverPort[i] = 443
		if (i*7)%n < Port80Rows {
			serverPort[i] = 80
		}
		method[i] = methods[i%len(methods)]
		status[i] = statuses[i%len(statuses)]
		clientOS[i] = clientOSes[i%len(clientOSes)]
		cached[i] = i%3 == 0
		responseBytes[i] = int64(512 + i*37)
		duration[i] = float64(i%250) + 0.5
	}

	t, err := data.NewTable([]data.ColumnDetails{
		data.NewColumn("ID", reflect.TypeOf(int32(0))),
		data.NewColumn("EventTime", reflect.TypeOf(time.Time{})),
		data.NewColumn("ServerName", data.TypeString8),
		data.NewColumn("ServerPort", reflect.TypeOf(int32(0))),
		data.NewColumn("HttpMethod", data.TypeString8),
		data.NewColumn("HttpStatus", reflect.TypeOf(int32(0))),
		data.NewColumn("ClientOs", data.TypeString8),
		data.NewColumn("WasCachedResponse", reflect.TypeOf(false)),
		data.NewColumn("ResponseBytes", reflect.TypeOf(int64(0))),
		data.NewColumn("DurationMs", reflect.TypeOf(float64(0))),
	}, []any{id, eventTime, serverName, serverPort, method, status, clientOS, cached, responseBytes, duration}, nil)
	if err != nil {
		panic(err)
	}
	return t
}

// Env is a test workflow over in-memory streams.
type Env struct {
	Streams *streams.FileSystem
	Runner  *tables.Runner
	Context *query.WorkflowContext
}

// NewEnv creates a workflow with the built-in verbs and types and the
// WebRequest table registered in memory.
func NewEnv() *Env {
	fs := streams.NewMemory()
	runner := tables.NewRunner(fs, tables.WithLogger(logger.NewNop()))
	runner.AddTable(WebRequestTable, WebRequest())
	return &Env{
		Streams: fs,
		Runner:  runner,
		Context: &query.WorkflowContext{
			Runner:   runner,
			Streams:  fs,
			Types:    types.NewBuiltinRegistry(),
			Builders: verbs.Default(),
			Logger:   logger.NewNop(),
			RunID:    uuid.New(),
		},
	}
}

// Build compiles script or fails the test.
func (e *Env) Build(t testing.TB, script string, source data.Enumerator) data.Enumerator {
	t.Helper()
	p, err := query.BuildPipeline(context.Background(), script, source, e.Context)
	if err != nil {
		t.Fatalf("build %q: %v", script, err)
	}
	return p
}

// Rows runs a pipeline and returns its rows, failing the test on error.
func Rows(t testing.TB, e data.Enumerator) [][]any {
	t.Helper()
	rows, err := data.Collect(context.Background(), e, 0)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	return rows
}
