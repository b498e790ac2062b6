package query

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/kbukum/xform/data"
	"github.com/kbukum/xform/logger"
	"github.com/kbukum/xform/streams"
	"github.com/kbukum/xform/types"
)

// TableResolver builds enumerators for named tables.
type TableResolver interface {
	// SourceNames lists every table that can be read, sorted.
	SourceNames() []string
	// Build returns an enumerator for the table. It returns a NOT_FOUND
	// error for unknown names and may compile a nested script through wc.
	Build(ctx context.Context, name string, wc *WorkflowContext) (data.Enumerator, error)
}

// WorkflowContext carries the collaborators of one pipeline build.
type WorkflowContext struct {
	// Parser is the parser of the line being built.
	Parser *Parser
	// Runner resolves table names.
	Runner TableResolver
	// Streams opens table and output streams.
	Streams streams.Provider
	// Types converts values between column types.
	Types *types.Registry
	// Builders maps verbs to stage builders.
	Builders *Registry
	// Logger receives build diagnostics; nil means the global logger.
	Logger *logger.Logger
	// RunID identifies the run in logs and responses.
	RunID uuid.UUID

	// CurrentTable is the table being built, if any.
	CurrentTable string
	// CurrentQuery is the script being parsed.
	CurrentQuery string
	// Dependencies are the tables read while building, sorted and unique.
	Dependencies []string

	tableStack []string
}

// Push returns a copy for a nested build. The copy starts with no
// dependencies of its own.
func (wc *WorkflowContext) Push() *WorkflowContext {
	inner := *wc
	inner.Dependencies = nil
	inner.tableStack = slices.Clone(wc.tableStack)
	return &inner
}

// Pop merges the state produced by a nested build back into wc.
func (wc *WorkflowContext) Pop(inner *WorkflowContext) {
	wc.AddDependency(inner.Dependencies...)
}

// ForTable returns a nested context for building the named table.
func (wc *WorkflowContext) ForTable(name string) *WorkflowContext {
	inner := wc.Push()
	inner.CurrentTable = name
	inner.tableStack = append(inner.tableStack, strings.ToLower(name))
	return inner
}

// Building reports whether name is being built by an enclosing context.
func (wc *WorkflowContext) Building(name string) bool {
	return slices.Contains(wc.tableStack, strings.ToLower(name))
}

// AddDependency records tables read by the build.
func (wc *WorkflowContext) AddDependency(names ...string) {
	for _, n := range names {
		i, found := slices.BinarySearch(wc.Dependencies, n)
		if !found {
			wc.Dependencies = slices.Insert(wc.Dependencies, i, n)
		}
	}
}

// Log returns the context logger.
func (wc *WorkflowContext) Log() *logger.Logger {
	if wc.Logger != nil {
		return wc.Logger
	}
	return logger.Get(logger.ComponentWorkflow)
}
