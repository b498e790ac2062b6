package bootstrap

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

// SummaryItem is one line of the startup summary.
type SummaryItem struct {
	Kind   string
	Name   string
	Detail string
}

// Summary collects what the app started and renders it as a table.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	items           []SummaryItem
}

// NewSummary creates an empty summary.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{serviceName: serviceName, version: version}
}

// Add records a line, for example ("route", "POST /v1/query", "").
func (s *Summary) Add(kind, name, detail string) {
	s.items = append(s.items, SummaryItem{Kind: kind, Name: name, Detail: detail})
}

// Items returns the recorded lines in insertion order.
func (s *Summary) Items() []SummaryItem { return s.items }

// SetStartupDuration records how long startup took.
func (s *Summary) SetStartupDuration(d time.Duration) { s.startupDuration = d }

// Render writes the summary table to w.
func (s *Summary) Render(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Kind", "Name", "Detail"})
	t.AppendRow(table.Row{"service", s.serviceName, fmt.Sprintf("%s, started in %s", s.version, s.startupDuration.Round(time.Millisecond))})
	t.AppendSeparator()
	for _, item := range s.items {
		t.AppendRow(table.Row{item.Kind, item.Name, item.Detail})
	}
	t.Render()
}
