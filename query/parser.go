package query

import (
	"context"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/kbukum/xform/data"
	"github.com/kbukum/xform/errors"
	"github.com/kbukum/xform/logger"
	"github.com/kbukum/xform/types"
	"github.com/kbukum/xform/xql"
)

// Argument categories reported in usage errors.
const (
	CategoryVerb            = "verb"
	CategoryColumnName      = "columnName"
	CategoryTableName       = "tableName"
	CategoryType            = "type"
	CategoryBoolean         = "boolean"
	CategoryInteger         = "integer"
	CategoryTimeSpan        = "timeSpan"
	CategoryString          = "string"
	CategoryLiteralValue    = "literalValue"
	CategoryCompareOperator = "compareOperator"
	CategoryValueKinds      = "valueKinds"
)

// endVerb closes a nested pipeline.
const endVerb = "end"

// Parser reads one script and builds its stages.
type Parser struct {
	scanner *xql.Scanner
	wc      *WorkflowContext
	current Builder
}

// NewParser creates a parser for script bound to wc.
func NewParser(script string, wc *WorkflowContext) *Parser {
	return &Parser{scanner: xql.NewScanner(script), wc: wc}
}

// BuildPipeline compiles a whole script on top of source, which may be nil.
// It works on a copy of wc and merges the result back when done. When source
// is nil the returned chain is owned by the caller; on error any stages built
// so far are closed.
func BuildPipeline(ctx context.Context, script string, source data.Enumerator, wc *WorkflowContext) (data.Enumerator, error) {
	inner := wc.Push()
	inner.CurrentQuery = script
	p := NewParser(script, inner)
	inner.Parser = p
	defer wc.Pop(inner)

	result, err := p.NextPipeline(ctx, source)
	if err != nil {
		return nil, err
	}
	if p.scanner.Current().Type != xql.End {
		// only a stray "end" stops a top-level pipeline early
		if source == nil && result != nil {
			result.Close()
		}
		return nil, p.UsageError(endVerb, "", nil)
	}
	if result == nil {
		return nil, p.UsageError("", CategoryVerb, inner.Builders.Verbs())
	}
	return result, nil
}

// BuildStage compiles a single stage line on top of source.
func BuildStage(ctx context.Context, line string, source data.Enumerator, wc *WorkflowContext) (data.Enumerator, error) {
	inner := wc.Push()
	inner.CurrentQuery = line
	p := NewParser(line, inner)
	inner.Parser = p
	defer wc.Pop(inner)

	if p.scanner.Current().Type == xql.End {
		return nil, p.UsageError("", CategoryVerb, inner.Builders.Verbs())
	}
	stage, err := p.NextStage(ctx, source)
	if err != nil {
		if source == nil && stage != nil {
			stage.Close()
		}
		return nil, err
	}
	p.scanner.Next()
	if tok := p.scanner.Current(); tok.Type != xql.End {
		if source == nil {
			stage.Close()
		}
		return nil, p.UsageError(tok.Value, "", nil)
	}
	return stage, nil
}

// NextPipeline builds stages until the end of the script or an "end" line,
// which it consumes. It returns source unchanged when there are no stages.
func (p *Parser) NextPipeline(ctx context.Context, source data.Enumerator) (data.Enumerator, error) {
	owned := source == nil
	current := source

	if p.scanner.Current().Type == xql.Newline {
		p.scanner.Next()
	}
	for p.scanner.Current().Type != xql.End {
		if err := ctx.Err(); err != nil {
			return nil, p.abandon(owned, current, err)
		}
		if tok := p.scanner.Current(); tok.Type == xql.Verb && strings.EqualFold(tok.Value, endVerb) {
			p.scanner.Next()
			break
		}

		stage, err := p.NextStage(ctx, current)
		if err != nil {
			return nil, p.abandon(owned, stage, err)
		}
		current = stage
		p.scanner.Next()
	}
	return current, nil
}

func (p *Parser) abandon(owned bool, chain data.Enumerator, err error) error {
	if owned && chain != nil {
		if closeErr := chain.Close(); closeErr != nil {
			p.wc.Log().WithError(closeErr).Warn("closing abandoned pipeline")
		}
	}
	return err
}

// NextStage builds the stage on the current line. On error it returns the
// enumerator that owns the chain at that point (the new stage, or source
// when the build itself failed) so the caller can release it.
func (p *Parser) NextStage(ctx context.Context, source data.Enumerator) (data.Enumerator, error) {
	tok := p.scanner.Current()
	p.current = nil
	builder, ok := p.wc.Builders.Get(tok.Value)
	if tok.Type != xql.Verb || !ok {
		return source, p.UsageError(tok.Value, CategoryVerb, p.wc.Builders.Verbs())
	}
	p.current = builder
	p.scanner.Next()

	stage, err := builder.Build(ctx, source, p.wc)
	if err != nil {
		return source, err
	}
	if p.HasAnotherPart() {
		return stage, p.UsageError(p.scanner.Current().Value, "", nil)
	}

	p.wc.Log().Debug("stage built", logger.Fields(
		logger.FieldVerb, strings.ToLower(tok.Value),
		logger.FieldLine, tok.LineNumber,
		logger.FieldTable, p.wc.CurrentTable,
	))
	return stage, nil
}

// HasAnotherPart reports whether the current line has an unread argument.
func (p *Parser) HasAnotherPart() bool {
	t := p.scanner.Current().Type
	return t != xql.Newline && t != xql.End
}

// CurrentLineNumber is the 1-based line of the current token.
func (p *Parser) CurrentLineNumber() int {
	return p.scanner.Current().LineNumber
}

// Current returns the current token.
func (p *Parser) Current() xql.Token {
	return p.scanner.Current()
}

func (p *Parser) usage() string {
	if p.current == nil {
		return ""
	}
	return p.current.Usage()
}

// UsageError creates a usage error positioned at the current token of the
// stage being built. Valid options are escaped the way they must be typed.
func (p *Parser) UsageError(invalid, category string, valid []string) *errors.UsageError {
	kind := xql.Value
	if category == CategoryColumnName {
		kind = xql.ColumnName
	}
	return errors.NewPositionedUsageError(p.wc.CurrentTable, p.CurrentLineNumber(), p.usage(), invalid, category, xql.Escape(valid, kind))
}

// parseNext consumes the current argument when parse accepts it.
func (p *Parser) parseNext(category string, valid []string, parse func(tok xql.Token) bool) error {
	if !p.HasAnotherPart() {
		return p.UsageError("", category, valid)
	}
	if !parse(p.scanner.Current()) {
		return p.UsageError(p.scanner.Current().Value, category, valid)
	}
	p.scanner.Next()
	return nil
}

// NextType reads a registered type name.
func (p *Parser) NextType() (reflect.Type, error) {
	var t reflect.Type
	err := p.parseNext(CategoryType, p.wc.Types.Names(), func(tok xql.Token) bool {
		provider, ok := p.wc.Types.Get(tok.Value)
		if ok {
			t = provider.Type()
		}
		return ok
	})
	return t, err
}

// NextColumnName reads the name of a column of source and returns it as
// declared in the source schema.
func (p *Parser) NextColumnName(source data.Enumerator) (string, error) {
	var columns []data.ColumnDetails
	if source != nil {
		columns = source.Columns()
	}
	var name string
	err := p.parseNext(CategoryColumnName, data.ColumnNames(columns), func(tok xql.Token) bool {
		i, ok := data.IndexOfColumn(columns, tok.Value)
		if ok {
			name = columns[i].Name
		}
		return ok
	})
	return name, err
}

// NextOutputTableName reads the name of a table or stream to write.
func (p *Parser) NextOutputTableName() (string, error) {
	var name string
	err := p.parseNext(CategoryTableName, nil, func(tok xql.Token) bool {
		name = tok.Value
		return name != ""
	})
	return name, err
}

// NextTableSource reads a table name and builds its enumerator through the
// workflow runner. Tables already being built by an enclosing context are
// rejected.
func (p *Parser) NextTableSource(ctx context.Context) (data.Enumerator, error) {
	valid := p.wc.Runner.SourceNames()
	if !p.HasAnotherPart() {
		return nil, p.UsageError("", CategoryTableName, valid)
	}
	name := p.scanner.Current().Value
	if p.wc.Building(name) {
		return nil, p.UsageError(name, CategoryTableName, valid)
	}

	inner := p.wc.ForTable(name)
	source, err := p.wc.Runner.Build(ctx, name, inner)
	p.wc.Pop(inner)
	if err != nil {
		if appErr, ok := errors.AsAppError(err); ok && appErr.Code == errors.ErrCodeNotFound {
			return nil, p.UsageError(name, CategoryTableName, valid)
		}
		return nil, err
	}
	p.wc.AddDependency(name)
	p.scanner.Next()
	return source, nil
}

// NextBoolean reads true or false.
func (p *Parser) NextBoolean() (bool, error) {
	var v bool
	err := p.parseNext(CategoryBoolean, []string{"false", "true"}, func(tok xql.Token) bool {
		var e error
		v, e = strconv.ParseBool(tok.Value)
		return e == nil
	})
	return v, err
}

// NextInteger reads a base 10 integer.
func (p *Parser) NextInteger() (int, error) {
	var v int
	err := p.parseNext(CategoryInteger, nil, func(tok xql.Token) bool {
		var e error
		v, e = strconv.Atoi(tok.Value)
		return e == nil
	})
	return v, err
}

// NextTimeSpan reads a duration such as "15m", "7d" or "01:30:00".
func (p *Parser) NextTimeSpan() (time.Duration, error) {
	var v time.Duration
	err := p.parseNext(CategoryTimeSpan, nil, func(tok xql.Token) bool {
		var ok bool
		v, ok = types.ParseTimeSpan(tok.Value)
		return ok
	})
	return v, err
}

// NextString reads any argument as text.
func (p *Parser) NextString() (string, error) {
	var v string
	err := p.parseNext(CategoryString, nil, func(tok xql.Token) bool {
		v = tok.Value
		return true
	})
	return v, err
}

// NextLiteralValue reads a literal. A bare "null" reads as nil; anything
// else is returned as text for the caller to convert.
func (p *Parser) NextLiteralValue() (any, error) {
	var v any
	err := p.parseNext(CategoryLiteralValue, nil, func(tok xql.Token) bool {
		if tok.Type == xql.Value && strings.EqualFold(tok.Value, "null") {
			v = nil
		} else {
			v = tok.Value
		}
		return true
	})
	return v, err
}

// NextCompareOperator reads a comparison operator.
func (p *Parser) NextCompareOperator() (types.CompareOperator, error) {
	var op types.CompareOperator
	err := p.parseNext(CategoryCompareOperator, types.CompareOperatorNames(), func(tok xql.Token) bool {
		var ok bool
		op, ok = types.ParseCompareOperator(tok.Value)
		return ok
	})
	return op, err
}

// NextValueKinds reads None, Invalid or InvalidOrNull.
func (p *Parser) NextValueKinds() (types.ValueKinds, error) {
	var k types.ValueKinds
	err := p.parseNext(CategoryValueKinds, types.ValueKindNames(), func(tok xql.Token) bool {
		var ok bool
		k, ok = types.ParseValueKinds(tok.Value)
		return ok
	})
	return k, err
}

// NextEnum reads one of the keys of values, case-insensitively.
func NextEnum[T any](p *Parser, category string, values map[string]T) (T, error) {
	valid := make([]string, 0, len(values))
	for k := range values {
		valid = append(valid, k)
	}
	var v T
	err := p.parseNext(category, valid, func(tok xql.Token) bool {
		for k, candidate := range values {
			if strings.EqualFold(k, tok.Value) {
				v = candidate
				return true
			}
		}
		return false
	})
	return v, err
}
