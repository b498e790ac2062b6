package server

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/xform/data"
	apperrors "github.com/kbukum/xform/errors"
	"github.com/kbukum/xform/observability"
	"github.com/kbukum/xform/resilience"
	"github.com/kbukum/xform/validation"
	"github.com/kbukum/xform/version"
	"github.com/kbukum/xform/xform"
)

// Engine is the part of xform.Engine served over HTTP.
type Engine interface {
	Execute(ctx context.Context, script string, maxRows int) (*xform.Result, error)
	Stream(ctx context.Context, script string, maxRows int, w xform.RowWriter) (*xform.Result, error)
	Materialize(ctx context.Context, name, script string) (*data.Table, error)
	Verbs() []xform.VerbInfo
	Types() []string
	Tables() []string
	CheckHealth(ctx context.Context) []observability.Health
}

const (
	maxScriptBytes  = 1 << 20
	defaultRowLimit = 1000
)

// QueryRequest is the body of the query, stream and table routes.
type QueryRequest struct {
	Query string `json:"query"`
	// Limit caps the returned rows; 0 uses the server default.
	Limit int `json:"limit"`
}

// TableResponse describes a stored table.
type TableResponse struct {
	Name    string   `json:"name"`
	Rows    int      `json:"rows"`
	Columns []string `json:"columns"`
}

type handlers struct {
	engine   Engine
	runs     *resilience.Bulkhead
	service  string
	rowLimit int
}

func (h *handlers) bind(c *gin.Context) (QueryRequest, bool) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, apperrors.InvalidInput("body", err.Error()))
		return req, false
	}
	v := validation.New().
		Required("query", req.Query).
		MaxLength("query", req.Query, maxScriptBytes)
	if h.rowLimit > 0 {
		v.Range("limit", req.Limit, 0, h.rowLimit)
	} else {
		v.Custom(req.Limit >= 0, "limit", "must not be negative")
	}
	if appErr := v.Validate(); appErr != nil {
		RespondWithError(c, appErr)
		return req, false
	}
	return req, true
}

// limit resolves the row cap of a request. Buffered responses always have
// one; streams are only capped by the request or the server limit.
func (h *handlers) limit(req QueryRequest, buffered bool) int {
	if req.Limit > 0 {
		return req.Limit
	}
	if buffered {
		if h.rowLimit > 0 {
			return min(defaultRowLimit, h.rowLimit)
		}
		return defaultRowLimit
	}
	return h.rowLimit
}

// run executes fn in a run slot. A full bulkhead becomes a 503.
func (h *handlers) run(ctx context.Context, fn func() error) error {
	err := h.runs.Execute(ctx, fn)
	if errors.Is(err, resilience.ErrBulkheadFull) || errors.Is(err, resilience.ErrBulkheadTimeout) {
		return apperrors.Unavailable(h.runs.Name(), err)
	}
	return err
}

func (h *handlers) query(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	var result *xform.Result
	err := h.run(c.Request.Context(), func() (err error) {
		result, err = h.engine.Execute(c.Request.Context(), req.Query, h.limit(req, true))
		return err
	})
	if err != nil {
		_ = c.Error(err)
		RespondWithError(c, err)
		return
	}
	RespondOK(c, result)
}

func (h *handlers) storeTable(c *gin.Context) {
	name := c.Param("name")
	if appErr := validation.New().
		Custom(!strings.ContainsAny(name, `/\.`), "name", "must not contain path separators or dots").
		Validate(); appErr != nil {
		RespondWithError(c, appErr)
		return
	}
	req, ok := h.bind(c)
	if !ok {
		return
	}
	var t *data.Table
	err := h.run(c.Request.Context(), func() (err error) {
		t, err = h.engine.Materialize(c.Request.Context(), name, req.Query)
		return err
	})
	if err != nil {
		_ = c.Error(err)
		RespondWithError(c, err)
		return
	}
	RespondCreated(c, TableResponse{Name: name, Rows: t.Rows(), Columns: data.ColumnNames(t.Columns())})
}

func (h *handlers) verbs(c *gin.Context)  { RespondList(c, h.engine.Verbs()) }
func (h *handlers) types(c *gin.Context)  { RespondList(c, h.engine.Types()) }
func (h *handlers) tables(c *gin.Context) { RespondList(c, h.engine.Tables()) }

func (h *handlers) health(c *gin.Context) {
	sh := observability.NewServiceHealth(h.service, version.Get().String())
	for _, component := range h.engine.CheckHealth(c.Request.Context()) {
		sh.AddComponent(component)
	}
	status := 200
	if sh.Status == observability.HealthStatusDown {
		status = 503
	}
	c.JSON(status, sh)
}
