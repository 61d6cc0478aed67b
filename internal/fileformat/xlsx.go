package fileformat

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// cilHeaderHints are substrings that identify the CIL column in an
// uploaded spreadsheet, matched case-insensitively against headers.
var cilHeaderHints = []string{"cil", "código", "codigo", "numero", "número"}

// cilStrayValues are header-like cell values filtered out of the
// extracted list, compared lower-cased.
var cilStrayValues = map[string]bool{
	"cil": true, "cils": true, "código": true, "codigo": true,
	"nome": true, "numero": true, "número": true, "": true,
}

// ExtractCILs pulls the deduplicated list of non-empty CIL identifiers
// from an XLSX upload. The first column whose header contains one of the
// known hints is used; without a match, the first column is. First-seen
// order is preserved.
func ExtractCILs(raw []byte) ([]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("spreadsheet has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	col := findCILColumn(rows[0])

	seen := make(map[string]bool)
	var cils []string
	for _, row := range rows[1:] {
		if col >= len(row) {
			continue
		}
		cil := strings.TrimSpace(row[col])
		if cilStrayValues[strings.ToLower(cil)] {
			continue
		}
		if seen[cil] {
			continue
		}
		seen[cil] = true
		cils = append(cils, cil)
	}
	return cils, nil
}

func findCILColumn(header []string) int {
	for i, h := range header {
		clean := strings.ToLower(strings.TrimSpace(h))
		for _, hint := range cilHeaderHints {
			if strings.Contains(clean, hint) {
				return i
			}
		}
	}
	return 0
}
