package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/docmapper/internal/entity"
	"github.com/joseph-ayodele/docmapper/internal/template"
)

var reCellSplit = regexp.MustCompile(`\t|\s{2,}`)

func (e *Engine) extractTable(ctx context.Context, tm template.TableMapping, doc *entity.Document, lang string) entity.TableData {
	td := entity.TableData{Name: tm.Name}

	w, h, err := e.geom.PageSize(ctx, doc, tm.Region.Page)
	if err != nil {
		td.Error = "table region out of page bounds: " + err.Error()
		return td
	}

	raw, err := e.regionText(ctx, doc, tm.Region.Page, tm.Region.Denormalize(w, h), lang)
	if err != nil {
		td.Error = err.Error()
		return td
	}

	grid := splitGrid(raw)
	if len(grid) == 0 {
		td.Error = "table region is empty"
		return td
	}

	td.Warnings = ValidateTable(tm, grid)

	headerIdx := headerRowIndex(tm, grid)
	for i, row := range grid {
		if i == headerIdx {
			continue
		}
		td.Rows = append(td.Rows, mapRow(tm.Columns, row))
	}
	return td
}

// splitGrid cuts region text into rows of cells. Cells are separated by tabs
// or runs of two or more spaces, which is how pdftotext -layout and
// tesseract both render column gaps.
func splitGrid(raw string) [][]string {
	var grid [][]string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			continue
		}
		cells := reCellSplit.Split(strings.TrimLeft(line, " \t"), -1)
		grid = append(grid, cells)
	}
	return grid
}

// headerRowIndex resolves which grid row is the header, or -1 when the
// table has none. An explicit index wins when it is in range; otherwise the
// header is detected by scoring.
func headerRowIndex(tm template.TableMapping, grid [][]string) int {
	if !tm.HasHeader {
		return -1
	}
	if tm.HeaderRow != nil {
		if idx := *tm.HeaderRow; idx >= 0 && idx < len(grid) {
			return idx
		}
		return -1
	}
	return DetectHeaderRow(grid)
}

// mapRow assigns a row's cells to column names positionally. Columns beyond
// the row's cell count get an error marker instead of a value.
func mapRow(cols []template.Column, row []string) map[string]entity.Cell {
	out := make(map[string]entity.Cell, len(cols))
	for i, col := range cols {
		if i < len(row) {
			out[col.Name] = entity.Cell{Value: strings.TrimSpace(row[i])}
		} else {
			out[col.Name] = entity.Cell{Error: "no cell at column position"}
		}
	}
	return out
}
