// Package report renders correlated rows in a fixed column order per
// report kind, as CSV, an aligned table, or YAML.
package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/yairfalse/inventa/internal/config"
	"github.com/yairfalse/inventa/internal/errsink"
	"github.com/yairfalse/inventa/pkg/resource"
)

// Emitter writes rows to an output.
type Emitter interface {
	Emit(rows []resource.Row) error
}

// New creates an emitter for format.
func New(format string, w io.Writer, layout Layout, header bool) (Emitter, error) {
	switch format {
	case config.FormatCSV, "":
		return &csvEmitter{w: w, layout: layout, header: header}, nil
	case config.FormatTable:
		return &tableEmitter{w: w, layout: layout, header: header}, nil
	case config.FormatYAML:
		return &yamlEmitter{w: w, layout: layout}, nil
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}

type csvEmitter struct {
	w      io.Writer
	layout Layout
	header bool
}

func (e *csvEmitter) Emit(rows []resource.Row) error {
	cw := csv.NewWriter(e.w)
	if e.header {
		if err := cw.Write(e.layout.Headers()); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
	}
	for _, r := range rows {
		if err := cw.Write(e.layout.Values(r)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

type tableEmitter struct {
	w      io.Writer
	layout Layout
	header bool
}

func (e *tableEmitter) Emit(rows []resource.Row) error {
	table := tablewriter.NewWriter(e.w)
	if e.header {
		table.SetHeader(e.layout.Headers())
	}
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetColumnSeparator(" ")
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, r := range rows {
		table.Append(e.layout.Values(r))
	}
	table.Render()
	return nil
}

type yamlEmitter struct {
	w      io.Writer
	layout Layout
}

// Emit writes a sequence of mappings keyed by column header, keeping the
// column order.
func (e *yamlEmitter) Emit(rows []resource.Row) error {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	headers := e.layout.Headers()
	for _, r := range rows {
		m := &yaml.Node{Kind: yaml.MappingNode}
		for i, v := range e.layout.Values(r) {
			m.Content = append(m.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: headers[i]},
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v},
			)
		}
		seq.Content = append(seq.Content, m)
	}

	enc := yaml.NewEncoder(e.w)
	enc.SetIndent(2)
	if err := enc.Encode(seq); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

// WriteErrors writes the error block shown after a run. Nothing is
// written when there are no records.
func WriteErrors(w io.Writer, records []errsink.Record) error {
	if len(records) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(w, "\n%d error(s) during run:\n", len(records)); err != nil {
		return err
	}
	for _, r := range records {
		if _, err := fmt.Fprintln(w, r.String()); err != nil {
			return err
		}
	}
	return nil
}
