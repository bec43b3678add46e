package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/docmapper/internal/template"
)

// adjacentColumnGap is the scaled-offset gap below which two column
// boundaries suggest one visual column was split in two by mistake.
const adjacentColumnGap = 5

var (
	reNumericCell = regexp.MustCompile(`^[0-9\s.,:%/-]+$`)
	reAmountCell  = regexp.MustCompile(`^\d{1,3}(?:[ .]\d{3})*(?:[.,]\d{2})\s*(?:kr|SEK|EUR|USD|€|\$)?$`)
)

// ValidateTable checks a table mapping against an extracted grid and returns
// warnings. Warnings never block extraction; callers also run this before
// accepting a mapping into a stored template.
func ValidateTable(tm template.TableMapping, grid [][]string) []string {
	var warnings []string

	maxCells := 0
	for _, row := range grid {
		if len(row) > maxCells {
			maxCells = len(row)
		}
	}
	if len(tm.Columns) > maxCells {
		warnings = append(warnings, fmt.Sprintf(
			"table %q maps %d columns but no row has more than %d cells", tm.Name, len(tm.Columns), maxCells))
	}

	for i := 1; i < len(tm.Columns); i++ {
		prev, cur := tm.Columns[i-1], tm.Columns[i]
		if cur.Start-prev.End < adjacentColumnGap {
			warnings = append(warnings, fmt.Sprintf(
				"table %q: columns %q and %q are nearly adjacent, one column may have been split", tm.Name, prev.Name, cur.Name))
		}
	}

	if len(grid) > 1 {
		counts := make(map[int][]int)
		for i, row := range grid {
			counts[len(row)] = append(counts[len(row)], i)
		}
		if len(counts) > 1 {
			warnings = append(warnings, fmt.Sprintf(
				"table %q has inconsistent structure: row cell counts vary across %d shapes", tm.Name, len(counts)))
		}
	}

	if tm.HeaderRow != nil && (*tm.HeaderRow < 0 || *tm.HeaderRow >= len(grid)) {
		warnings = append(warnings, fmt.Sprintf(
			"table %q: header row %d is outside the %d extracted rows", tm.Name, *tm.HeaderRow, len(grid)))
	}

	empty := true
	for _, row := range grid {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				empty = false
			}
		}
	}
	if empty {
		warnings = append(warnings, fmt.Sprintf("table %q extracted an empty preview", tm.Name))
	}

	return warnings
}

// DetectHeaderRow scores each row on how header-like it looks and returns
// the best index, or -1 for an empty grid. Text-only rows score high,
// amount-shaped cells score against, early rows get a positional bonus.
// Ties go to the earliest row.
func DetectHeaderRow(grid [][]string) int {
	best, bestScore := -1, 0
	for i, row := range grid {
		score := scoreHeaderRow(i, row)
		if best == -1 || score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

func scoreHeaderRow(idx int, row []string) int {
	if len(row) == 0 {
		return -10
	}

	score := 0
	allText := true
	totalLen := 0
	for _, cell := range row {
		cell = strings.TrimSpace(cell)
		totalLen += len(cell)
		if reNumericCell.MatchString(cell) {
			allText = false
		}
		if reAmountCell.MatchString(cell) {
			score -= 2
		}
	}
	if allText {
		score += 3
	}
	if idx == 0 {
		score += 2
	}
	if totalLen/len(row) < 15 {
		score++
	}
	return score
}
