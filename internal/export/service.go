// Package export renders extraction results as XLSX, CSV or JSON for the
// surrounding bookkeeping workflow.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docmapper/internal/entity"
	"github.com/joseph-ayodele/docmapper/internal/template"
)

// Service turns a batch of extraction results into export payloads. Column
// order always follows the template, row order the document id, so repeated
// exports of the same data are byte-identical.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// sortedResults orders a result map by document id.
func sortedResults(results map[uuid.UUID]*entity.ExtractionResult) []*entity.ExtractionResult {
	out := make([]*entity.ExtractionResult, 0, len(results))
	for _, r := range results {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DocumentID.String() < out[j].DocumentID.String()
	})
	return out
}

func cellValue(fv entity.FieldValue) string {
	if fv.Error != "" {
		return "#ERROR: " + fv.Error
	}
	return fv.Value
}

// ResultsXLSX writes one workbook: a Fields sheet with one row per document,
// plus one sheet per table mapping.
func (s *Service) ResultsXLSX(tpl *template.Template, results map[uuid.UUID]*entity.ExtractionResult) ([]byte, error) {
	start := time.Now()
	ordered := sortedResults(results)

	f := excelize.NewFile()
	const fieldSheet = "Fields"
	// excelize seeds a default sheet; reuse it as the field sheet
	if err := f.SetSheetName(f.GetSheetName(0), fieldSheet); err != nil {
		return nil, err
	}

	write := func(sheet string, col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}

	write(fieldSheet, 1, 1, "Document")
	write(fieldSheet, 2, 1, "Status")
	for i, fm := range tpl.Fields {
		write(fieldSheet, i+3, 1, fm.Name)
	}

	for rowIdx, res := range ordered {
		row := rowIdx + 2
		write(fieldSheet, 1, row, res.DocumentID.String())
		write(fieldSheet, 2, row, statusLabel(res))
		for i, fv := range res.Fields {
			write(fieldSheet, i+3, row, cellValue(fv))
		}
	}
	_ = f.SetColWidth(fieldSheet, "A", "A", 38)
	_ = f.SetColWidth(fieldSheet, "B", "B", 10)

	for _, tm := range tpl.Tables {
		sheet := sheetName(tm.Name)
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
		write(sheet, 1, 1, "Document")
		for i, col := range tm.Columns {
			write(sheet, i+2, 1, col.Name)
		}

		row := 2
		for _, res := range ordered {
			for _, td := range res.Tables {
				if td.Name != tm.Name {
					continue
				}
				for _, dataRow := range td.Rows {
					write(sheet, 1, row, res.DocumentID.String())
					for i, col := range tm.Columns {
						cell := dataRow[col.Name]
						if cell.Error != "" {
							write(sheet, i+2, row, "#ERROR: "+cell.Error)
						} else {
							write(sheet, i+2, row, cell.Value)
						}
					}
					row++
				}
			}
		}
		_ = f.SetColWidth(sheet, "A", "A", 38)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"cluster_id", tpl.ClusterID,
		"documents", len(ordered),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// ResultsCSV writes the field values only, one row per document. Tables do
// not fit a single CSV and are exported via XLSX or JSON instead.
func (s *Service) ResultsCSV(tpl *template.Template, results map[uuid.UUID]*entity.ExtractionResult) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := append([]string{"document", "status"}, fieldNames(tpl)...)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, res := range sortedResults(results) {
		row := []string{res.DocumentID.String(), statusLabel(res)}
		for _, fv := range res.Fields {
			row = append(row, cellValue(fv))
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	s.logger.Info("export.csv.ok", "cluster_id", tpl.ClusterID, "documents", len(results))
	return buf.Bytes(), nil
}

// ResultsJSON writes the full structured results, tables included.
func (s *Service) ResultsJSON(tpl *template.Template, results map[uuid.UUID]*entity.ExtractionResult) ([]byte, error) {
	payload := struct {
		ClusterID string                     `json:"cluster_id"`
		Results   []*entity.ExtractionResult `json:"results"`
	}{
		ClusterID: tpl.ClusterID,
		Results:   sortedResults(results),
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.json.ok", "cluster_id", tpl.ClusterID, "documents", len(results))
	return data, nil
}

func fieldNames(tpl *template.Template) []string {
	names := make([]string, len(tpl.Fields))
	for i, fm := range tpl.Fields {
		names[i] = fm.Name
	}
	return names
}

func statusLabel(res *entity.ExtractionResult) string {
	switch {
	case res.Failed:
		return "failed"
	case res.Partial():
		return "partial"
	default:
		return "ok"
	}
}

// sheetName fits a table name into excelize's 31-char sheet name limit.
func sheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '_'
		}
		return r
	}, name)
	if len(name) > 31 {
		name = name[:31]
	}
	if name == "" {
		name = "Table"
	}
	return name
}
