package xform

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/xform/config"
	"github.com/kbukum/xform/data"
	xerrors "github.com/kbukum/xform/errors"
	"github.com/kbukum/xform/logger"
	"github.com/kbukum/xform/observability"
	"github.com/kbukum/xform/query"
	"github.com/kbukum/xform/streams"
	"github.com/kbukum/xform/tables"
	"github.com/kbukum/xform/types"
	"github.com/kbukum/xform/verbs"
	"github.com/kbukum/xform/xql"
)

// Engine compiles and runs pipeline scripts.
type Engine struct {
	cfg      config.EngineConfig
	streams  streams.Provider
	runner   *tables.Runner
	sqlite   *tables.SQLiteSource
	types    *types.Registry
	builders *query.Registry
	log      *logger.Logger
	metrics  *observability.EngineMetrics
	memory   map[string]*data.Table
}

// Option configures an Engine.
type Option func(*Engine)

// WithStreams replaces the stream provider rooted at DataDir.
func WithStreams(p streams.Provider) Option {
	return func(e *Engine) { e.streams = p }
}

// WithLogger sets the engine logger.
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithMetrics records builds and runs on m.
func WithMetrics(m *observability.EngineMetrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTypes replaces the built-in type registry.
func WithTypes(r *types.Registry) Option {
	return func(e *Engine) { e.types = r }
}

// WithBuilders replaces the built-in verb registry.
func WithBuilders(r *query.Registry) Option {
	return func(e *Engine) { e.builders = r }
}

// WithTable registers an in-memory table.
func WithTable(name string, t *data.Table) Option {
	return func(e *Engine) { e.memory[name] = t }
}

// New creates an engine. A SQLitePath in cfg is opened and attached as a
// table source.
func New(cfg config.EngineConfig, opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:    cfg,
		memory: make(map[string]*data.Table),
	}
	for _, opt := range opts {
		opt(e)
	}
	runnerLog := logger.Get(logger.ComponentTables)
	if e.log == nil {
		e.log = logger.Get(logger.ComponentEngine)
	} else {
		runnerLog = e.log.WithComponent(logger.ComponentTables)
	}
	if e.streams == nil {
		e.streams = streams.NewOS(cfg.DataDir)
	}
	if e.types == nil {
		e.types = types.Default()
	}
	if e.builders == nil {
		e.builders = verbs.Default()
	}

	runnerOpts := []tables.Option{tables.WithLogger(runnerLog)}
	if cfg.SQLitePath != "" {
		db, err := tables.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		e.sqlite = db
		runnerOpts = append(runnerOpts, tables.WithSQLite(db))
	}
	e.runner = tables.NewRunner(e.streams, runnerOpts...)
	for name, t := range e.memory {
		e.runner.AddTable(name, t)
	}
	return e, nil
}

// Close releases the attached database, if any.
func (e *Engine) Close() error {
	if e.sqlite != nil {
		return e.sqlite.Close()
	}
	return nil
}

// Pipeline is a compiled script ready to run.
type Pipeline struct {
	data.Enumerator
	RunID  uuid.UUID
	Script string
	// Dependencies are the tables the script reads, sorted.
	Dependencies []string
}

func (e *Engine) workflow(runID uuid.UUID) *query.WorkflowContext {
	return &query.WorkflowContext{
		Runner:   e.runner,
		Streams:  e.streams,
		Types:    e.types,
		Builders: e.builders,
		Logger:   e.log.WithFields(logger.Fields(logger.FieldRunID, runID.String())),
		RunID:    runID,
	}
}

// Query compiles script. When a default table is configured and the script
// does not begin with 'read', the script runs on top of that table.
func (e *Engine) Query(ctx context.Context, script string) (_ *Pipeline, err error) {
	runID := uuid.New()
	ctx, span := observability.StartSpan(ctx, observability.SpanBuild)
	span.SetAttributes(
		attribute.String(observability.AttrRunID, runID.String()),
		attribute.Int(observability.AttrStages, strings.Count(strings.TrimSpace(script), "\n")+1),
	)
	defer func() {
		category := ""
		if u, ok := xerrors.AsUsageError(err); ok {
			category = u.Category
			if category == "" {
				category = "unexpectedArgument"
			}
		}
		if err != nil {
			span.SetAttributes(attribute.String(observability.AttrErrorCode, string(xerrors.Wrap(err).Code)))
		}
		e.metrics.RecordBuild(ctx, err, category)
		observability.EndSpan(span, err)
	}()

	wc := e.workflow(runID)
	source, err := e.defaultSource(ctx, script, wc)
	if err != nil {
		return nil, err
	}
	p, err := query.BuildPipeline(ctx, script, source, wc)
	if err != nil {
		if source != nil {
			source.Close()
		}
		wc.Log().Debug("build failed", logger.ErrorFields("build", err))
		return nil, err
	}

	span.SetAttributes(attribute.StringSlice(observability.AttrTables, wc.Dependencies))
	wc.Log().Debug("pipeline built", logger.Fields(
		logger.FieldColumns, len(p.Columns()),
		"dependencies", wc.Dependencies,
	))
	return &Pipeline{Enumerator: p, RunID: runID, Script: script, Dependencies: wc.Dependencies}, nil
}

func (e *Engine) defaultSource(ctx context.Context, script string, wc *query.WorkflowContext) (data.Enumerator, error) {
	name := e.cfg.DefaultTable
	if name == "" {
		return nil, nil
	}
	if tok := xql.NewScanner(script).Current(); tok.Type == xql.Verb && strings.EqualFold(tok.Value, "read") {
		return nil, nil
	}
	inner := wc.ForTable(name)
	source, err := e.runner.Build(ctx, name, inner)
	wc.Pop(inner)
	if err != nil {
		return nil, err
	}
	wc.AddDependency(name)
	return source, nil
}

// Run pulls every row through p and returns the row count.
func (e *Engine) Run(ctx context.Context, p *Pipeline) (rows int, err error) {
	ctx, done := e.startRun(ctx, p)
	defer func() { done(rows, err) }()
	return data.RunBatchSize(ctx, p, e.cfg.BatchSize)
}

// startRun opens the run span. The returned func records the outcome.
func (e *Engine) startRun(ctx context.Context, p *Pipeline) (context.Context, func(rows int, err error)) {
	ctx, span := observability.StartSpan(ctx, observability.SpanRun)
	span.SetAttributes(attribute.String(observability.AttrRunID, p.RunID.String()))
	start := time.Now()
	return ctx, func(rows int, err error) {
		elapsed := time.Since(start)
		span.SetAttributes(attribute.Int(observability.AttrRows, rows))
		e.metrics.RecordRun(ctx, rows, elapsed, err)
		observability.EndSpan(span, err)
		e.logRun(p, rows, elapsed, err)
	}
}

func (e *Engine) logRun(p *Pipeline, rows int, elapsed time.Duration, err error) {
	fields := logger.DurationFields("run", elapsed)
	fields[logger.FieldRunID] = p.RunID.String()
	fields[logger.FieldRows] = rows
	if err != nil {
		e.log.WithError(err).Warn("run failed", fields)
		return
	}
	e.log.Info("run complete", fields)
}

// Rows runs p and returns up to maxRows rows; 0 means all of them.
func (e *Engine) Rows(ctx context.Context, p *Pipeline, maxRows int) (result *Result, err error) {
	ctx, done := e.startRun(ctx, p)
	defer func() {
		n := 0
		if result != nil {
			n = result.RowCount
		}
		done(n, err)
	}()

	var rows [][]any
	_, err = data.Each(ctx, p, e.cfg.BatchSize, probeLimit(maxRows), func(batch [][]any) error {
		rows = append(rows, batch...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return newResult(p, e.types, rows, maxRows), nil
}

// probeLimit asks for one row past maxRows so truncation can be detected.
func probeLimit(maxRows int) int {
	if maxRows <= 0 {
		return 0
	}
	return maxRows + 1
}

// RowWriter receives the output of Stream.
type RowWriter interface {
	// WriteHeader is called once, before any rows.
	WriteHeader(header *Result) error
	WriteRows(rows [][]any) error
}

// Stream compiles script and hands its rows to w one batch at a time,
// stopping after maxRows rows when maxRows is positive. The returned Result
// carries the row count and truncation flag but no rows.
func (e *Engine) Stream(ctx context.Context, script string, maxRows int, w RowWriter) (result *Result, err error) {
	p, err := e.Query(ctx, script)
	if err != nil {
		return nil, err
	}
	defer func() { err = errors.Join(err, p.Close()) }()

	result = newResult(p, e.types, nil, maxRows)
	if err := w.WriteHeader(result); err != nil {
		return nil, err
	}

	ctx, done := e.startRun(ctx, p)
	sent := 0
	_, err = data.Each(ctx, p, e.cfg.BatchSize, probeLimit(maxRows), func(batch [][]any) error {
		if maxRows > 0 && sent+len(batch) > maxRows {
			batch = batch[:maxRows-sent]
			result.Truncated = true
		}
		sent += len(batch)
		if len(batch) == 0 {
			return nil
		}
		return w.WriteRows(batch)
	})
	done(sent, err)
	if err != nil {
		return nil, err
	}
	result.RowCount = sent
	return result, nil
}

// Execute compiles script, reads up to maxRows rows and closes the pipeline.
func (e *Engine) Execute(ctx context.Context, script string, maxRows int) (*Result, error) {
	p, err := e.Query(ctx, script)
	if err != nil {
		return nil, err
	}
	result, err := e.Rows(ctx, p, maxRows)
	return result, errors.Join(err, p.Close())
}

// RunScript compiles script, runs it to completion and closes it. It is
// the entry point for scripts whose output goes through 'write'.
func (e *Engine) RunScript(ctx context.Context, script string) (int, error) {
	p, err := e.Query(ctx, script)
	if err != nil {
		return 0, err
	}
	n, err := e.Run(ctx, p)
	return n, errors.Join(err, p.Close())
}

// Materialize runs script and registers its output as an in-memory table
// under name, so later scripts can read it.
func (e *Engine) Materialize(ctx context.Context, name, script string) (*data.Table, error) {
	p, err := e.Query(ctx, script)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	t, err := data.Load(ctx, p)
	if err != nil {
		return nil, err
	}
	e.runner.AddTable(name, t)
	e.log.Info("table materialized", logger.Fields(
		logger.FieldTable, name,
		logger.FieldRows, t.Rows(),
		logger.FieldRunID, p.RunID.String(),
	))
	return t, nil
}

// VerbInfo describes a registered verb.
type VerbInfo struct {
	Name  string `json:"name"`
	Usage string `json:"usage"`
}

// Verbs lists the registered verbs, sorted.
func (e *Engine) Verbs() []VerbInfo {
	names := e.builders.Verbs()
	out := make([]VerbInfo, 0, len(names))
	for _, name := range names {
		b, _ := e.builders.Get(name)
		out = append(out, VerbInfo{Name: name, Usage: b.Usage()})
	}
	return out
}

// Types lists the registered type names and aliases, sorted.
func (e *Engine) Types() []string { return e.types.Names() }

// Tables lists the readable table names, sorted.
func (e *Engine) Tables() []string { return e.runner.SourceNames() }

// AddTable registers an in-memory table.
func (e *Engine) AddTable(name string, t *data.Table) { e.runner.AddTable(name, t) }

// CheckHealth reports the table sources.
func (e *Engine) CheckHealth(ctx context.Context) []observability.Health {
	health := []observability.Health{e.checkStreams()}
	if e.sqlite != nil {
		h := observability.Health{Name: "sqlite", Status: observability.HealthStatusUp}
		if err := e.sqlite.DB().PingContext(ctx); err != nil {
			h.Status = observability.HealthStatusDown
			h.Message = err.Error()
		}
		health = append(health, h)
	}
	return health
}

func (e *Engine) checkStreams() observability.Health {
	h := observability.Health{Name: "streams", Status: observability.HealthStatusUp}
	for _, folder := range []string{streams.TableFolder, streams.QueryFolder} {
		if _, err := e.streams.List(folder, ""); err != nil {
			h.Status = observability.HealthStatusDegraded
			h.Message = err.Error()
		}
	}
	return h
}
