package verbs

import (
	"context"

	"github.com/kbukum/xform/data"
	"github.com/kbukum/xform/query"
)

type limit struct {
	data.Wrapper
	limit   int
	emitted int
}

func (l *limit) Next(ctx context.Context, desired int) (int, error) {
	remaining := l.limit - l.emitted
	if remaining <= 0 {
		return 0, nil
	}
	n, err := l.Source.Next(ctx, min(desired, remaining))
	l.emitted += n
	return n, err
}

func (l *limit) Reset() {
	l.emitted = 0
	l.Source.Reset()
}

type limitBuilder struct{}

func (limitBuilder) Verbs() []string { return []string{"limit"} }
func (limitBuilder) Usage() string   { return "'limit' [RowCount]" }

func (limitBuilder) Build(_ context.Context, source data.Enumerator, wc *query.WorkflowContext) (data.Enumerator, error) {
	if err := requireSource("limit", source); err != nil {
		return nil, err
	}
	tok := wc.Parser.Current()
	n, err := wc.Parser.NextInteger()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, wc.Parser.UsageError(tok.Value, query.CategoryInteger, nil)
	}
	return &limit{Wrapper: data.Wrapper{Source: source}, limit: n}, nil
}
