package reader

import (
	"regexp"
	"strings"

	"github.com/regdesk/circular-cli/internal/model"
)

var columnGapRE = regexp.MustCompile(`\s{2,}`)

// layoutTables recovers tables from pdftotext -layout output. A columnar
// line splits into two or more cells on runs of whitespace; consecutive
// columnar lines with the same cell count form one table. Single columnar
// lines are treated as prose and dropped.
func layoutTables(text string) []model.Table {
	var tables []model.Table
	var current model.Table

	flush := func() {
		if len(current) >= 2 {
			tables = append(tables, current)
		}
		current = nil
	}

	for _, line := range strings.Split(text, "\n") {
		cells := splitColumns(line)
		if len(cells) < 2 {
			flush()
			continue
		}
		if len(current) > 0 && len(cells) != len(current[0]) {
			flush()
		}
		current = append(current, cells)
	}
	flush()

	return tables
}

func splitColumns(line string) []string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil
	}
	return columnGapRE.Split(trimmed, -1)
}

var markdownSeparatorRE = regexp.MustCompile(`^[\s|:\-]+$`)

// markdownTables recovers pipe tables from OCR markdown. Alignment
// separator rows are skipped; consecutive pipe rows form one table.
func markdownTables(text string) []model.Table {
	var tables []model.Table
	var current model.Table

	flush := func() {
		if len(current) >= 2 {
			tables = append(tables, current)
		}
		current = nil
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "|") || !strings.HasSuffix(trimmed, "|") {
			flush()
			continue
		}
		if markdownSeparatorRE.MatchString(trimmed) {
			continue
		}
		current = append(current, splitPipeRow(trimmed))
	}
	flush()

	return tables
}

func splitPipeRow(row string) []string {
	row = strings.Trim(row, "|")
	parts := strings.Split(row, "|")
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
	}
	return cells
}
