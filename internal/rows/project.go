// Package rows projects evaluated report mappings onto fixed-width report
// rows according to the loaded column map.
package rows

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/call-auditor/internal/colmap"
)

// Projector maps report fields onto spreadsheet row cells.
type Projector struct {
	columns *colmap.ColumnMap
	log     *logrus.Entry
}

// NewProjector returns a Projector for the given column map. The logger may
// be nil.
func NewProjector(columns *colmap.ColumnMap, log *logrus.Entry) *Projector {
	return &Projector{columns: columns, log: log}
}

// Project builds one row from a report mapping. The row is sized to the
// rightmost mapped column; unmapped intermediate columns stay empty. A field
// missing from the source becomes an empty cell, never an error.
//
// Callers must replace the raw transcript with its formatted string before
// projecting; joining dialogue lines through the generic list rule would
// lose speaker attribution.
func (p *Projector) Project(source map[string]any) ([]string, error) {
	if p.columns == nil || p.columns.Len() == 0 {
		return nil, &colmap.ConfigurationError{Message: "column map is empty; load the mapping before writing"}
	}

	row := make([]string, p.columns.Width())

	for _, field := range p.columns.Fields() {
		letter, _ := p.columns.Column(field)
		value, ok := source[field]
		if !ok {
			value = nil
		}
		row[colmap.ColumnIndex(letter)-1] = CellValue(value)
	}

	if p.log != nil {
		for field := range source {
			if _, mapped := p.columns.Column(field); !mapped {
				p.log.WithField("field", field).Debug("report field has no mapped column, dropped from row")
			}
		}
	}

	return row, nil
}

// ProjectAll projects a batch of reports in order.
func (p *Projector) ProjectAll(sources []map[string]any) ([][]string, error) {
	out := make([][]string, 0, len(sources))
	for _, source := range sources {
		row, err := p.Project(source)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

// CellValue converts a report value to its cell representation: booleans to
// "1"/"0", sequences to comma-and-space joined strings, nil to the empty
// string, anything else to its string form.
func CellValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case bool:
		if v {
			return "1"
		}
		return "0"
	case string:
		return v
	case []string:
		return strings.Join(v, ", ")
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(v)
	}
}
