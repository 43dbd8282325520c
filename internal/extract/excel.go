package extract

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractExcel renders the first sheet of a workbook as CSV. The first non-empty
// row is the header; blank header cells become "Unnamed: <col>" and repeated
// header names get a ".N" suffix. Fully empty rows are skipped and short rows are
// padded to the widest row. Legacy BIFF workbooks are detected by their compound
// document signature, so the extension alone does not pick the reader.
func extractExcel(content []byte) (string, error) {
	var (
		rows [][]string
		err  error
	)
	if isLegacyWorkbook(content) {
		rows, err = readLegacySheet(content)
	} else {
		rows, err = readWorkbookSheet(content)
	}
	if err != nil {
		return "", err
	}
	return writeTable(rows)
}

// readWorkbookSheet returns the cell text of the first sheet of an Office Open
// XML workbook.
func readWorkbookSheet(content []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("open Excel: workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func writeTable(rows [][]string) (string, error) {
	table := make([][]string, 0, len(rows))
	width := 0
	for _, row := range rows {
		if isBlankRow(row) {
			continue
		}
		if len(row) > width {
			width = len(row)
		}
		table = append(table, row)
	}
	if len(table) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(headerRow(pad(table[0], width))); err != nil {
		return "", fmt.Errorf("write CSV header: %w", err)
	}
	for i, row := range table[1:] {
		if err := w.Write(pad(row, width)); err != nil {
			return "", fmt.Errorf("write CSV row %d: %w", i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("write CSV: %w", err)
	}
	return buf.String(), nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func pad(row []string, width int) []string {
	if len(row) >= width {
		return row
	}
	out := make([]string, width)
	copy(out, row)
	return out
}

// headerRow names blank header cells and disambiguates duplicates.
func headerRow(cells []string) []string {
	out := make([]string, len(cells))
	seen := make(map[string]int, len(cells))
	for i, cell := range cells {
		name := cell
		if strings.TrimSpace(name) == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		if n, ok := seen[name]; ok {
			seen[name] = n + 1
			candidate := name + "." + strconv.Itoa(n+1)
			for {
				if _, taken := seen[candidate]; !taken {
					break
				}
				seen[name]++
				candidate = name + "." + strconv.Itoa(seen[name])
			}
			seen[candidate] = 0
			name = candidate
		} else {
			seen[name] = 0
		}
		out[i] = name
	}
	return out
}
