package verbs

import (
	"context"

	"github.com/kbukum/xform/data"
	"github.com/kbukum/xform/query"
)

type readBuilder struct{}

func (readBuilder) Verbs() []string { return []string{"read"} }
func (readBuilder) Usage() string   { return "'read' [TableName]" }

// Build starts a new chain from a named table. An existing upstream is
// replaced and closed.
func (readBuilder) Build(ctx context.Context, source data.Enumerator, wc *query.WorkflowContext) (data.Enumerator, error) {
	table, err := wc.Parser.NextTableSource(ctx)
	if err != nil {
		return nil, err
	}
	if source != nil {
		if err := source.Close(); err != nil {
			wc.Log().WithError(err).Warn("closing replaced upstream")
		}
	}
	return table, nil
}
