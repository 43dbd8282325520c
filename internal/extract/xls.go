package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/shakinm/xlsReader/xls"
)

// cfbSignature opens every OLE compound document, the container of BIFF8 .xls files.
var cfbSignature = []byte{0xD0, 0xCF, 0x11, 0xE0}

func isLegacyWorkbook(content []byte) bool {
	return bytes.HasPrefix(content, cfbSignature)
}

// readLegacySheet returns the cell text of the first sheet of a BIFF workbook.
// The reader indexes record offsets straight from the input, so a truncated or
// corrupt file surfaces as a panic that is turned into an error here.
func readLegacySheet(content []byte) (rows [][]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("open Excel: malformed workbook: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	if wb.GetNumberSheets() == 0 {
		return nil, fmt.Errorf("open Excel: workbook has no sheets")
	}
	sheet, err := wb.GetSheet(0)
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}

	for _, row := range sheet.GetRows() {
		cols := row.GetCols()
		cells := make([]string, len(cols))
		for i, col := range cols {
			cells[i] = col.GetString()
		}
		rows = append(rows, trimTrailingEmpty(cells))
	}
	return rows, nil
}

// trimTrailingEmpty drops formatted-but-empty cells at the end of a row so they
// do not widen the table.
func trimTrailingEmpty(cells []string) []string {
	n := len(cells)
	for n > 0 && strings.TrimSpace(cells[n-1]) == "" {
		n--
	}
	return cells[:n]
}
