package fileformat

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/field-worksheet-api/internal/models"
)

// utf8BOM is prepended to each exported CSV so spreadsheet tools opened
// by field technicians render accented characters correctly.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteSheetArchive serializes generated work-sheet rows into a ZIP
// archive with one semicolon-separated CSV per sheet, restricted to the
// fixed 10-column export subset. File names follow
// {tipo}_{value}_Folha_{i}.csv.
func WriteSheetArchive(rows []models.SheetRow, tipo, value string) ([]byte, error) {
	maxFolha := 0
	bySheet := make(map[int][]models.SheetRow)
	for _, row := range rows {
		bySheet[row.Folha] = append(bySheet[row.Folha], row)
		if row.Folha > maxFolha {
			maxFolha = row.Folha
		}
	}

	safeValue := SanitizeFilename(value)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for i := 1; i <= maxFolha; i++ {
		sheet := bySheet[i]
		if len(sheet) == 0 {
			continue
		}
		name := fmt.Sprintf("%s_%s_Folha_%d.csv", tipo, safeValue, i)
		w, err := zw.Create(name)
		if err != nil {
			return nil, fmt.Errorf("failed to create archive entry %s: %w", name, err)
		}
		if _, err := w.Write(utf8BOM); err != nil {
			return nil, err
		}
		cw := csv.NewWriter(w)
		cw.Comma = ';'
		if err := cw.Write(models.SheetExportColumns); err != nil {
			return nil, err
		}
		for _, row := range sheet {
			if err := cw.Write(exportFields(&row.Record)); err != nil {
				return nil, err
			}
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return nil, fmt.Errorf("failed to write sheet %d: %w", i, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}

func exportFields(r *models.Record) []string {
	return []string{
		r.CIL,
		r.Prod,
		r.Contador,
		r.Leitura,
		r.MatContador,
		r.MedFat,
		strconv.FormatFloat(r.Qtd, 'f', -1, 64),
		strconv.FormatFloat(r.Valor, 'f', -1, 64),
		r.Situacao,
		r.Acordo,
	}
}
