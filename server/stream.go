package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/xform/errors"
	"github.com/kbukum/xform/xform"
)

// Stream events, in order: one columns event, zero or more rows events,
// then done or error.
const (
	EventColumns = "columns"
	EventRows    = "rows"
	EventDone    = "done"
	EventError   = "error"
)

// ColumnsEvent opens a stream.
type ColumnsEvent struct {
	RunID   string         `json:"run_id"`
	Columns []xform.Column `json:"columns"`
}

// DoneEvent closes a successful stream.
type DoneEvent struct {
	RowCount  int  `json:"row_count"`
	Truncated bool `json:"truncated"`
}

// sseWriter sends pipeline output as server-sent events.
type sseWriter struct {
	c *gin.Context
}

func (w sseWriter) WriteHeader(header *xform.Result) error {
	w.c.Header("Cache-Control", "no-cache")
	w.c.Header("Connection", "keep-alive")
	w.c.Header("X-Accel-Buffering", "no")
	return w.send(EventColumns, ColumnsEvent{RunID: header.RunID.String(), Columns: header.Columns})
}

func (w sseWriter) WriteRows(rows [][]any) error {
	return w.send(EventRows, rows)
}

func (w sseWriter) send(event string, payload any) error {
	w.c.SSEvent(event, payload)
	w.c.Writer.Flush()
	// a gone client cancels the request context
	return w.c.Request.Context().Err()
}

func (h *handlers) stream(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}

	// long streams must outlive the server write timeout
	rc := http.NewResponseController(c.Writer)
	_ = rc.SetWriteDeadline(time.Time{})

	w := sseWriter{c: c}
	var result *xform.Result
	err := h.run(c.Request.Context(), func() (err error) {
		result, err = h.engine.Stream(c.Request.Context(), req.Query, h.limit(req, false), w)
		return err
	})
	if err != nil {
		_ = c.Error(err)
		if !c.Writer.Written() {
			RespondWithError(c, err)
			return
		}
		c.SSEvent(EventError, apperrors.Wrap(err).ToResponse().Error)
		return
	}
	_ = w.send(EventDone, DoneEvent{RowCount: result.RowCount, Truncated: result.Truncated})
}
