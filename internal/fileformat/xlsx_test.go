package fileformat

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, rows [][]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		for j, cell := range row {
			name, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetCellValue("Sheet1", name, cell); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func TestExtractCILs_HeaderHint(t *testing.T) {
	raw := buildWorkbook(t, [][]string{
		{"Nome", "Código CIL"},
		{"Cliente A", "1001"},
		{"Cliente B", "1002"},
		{"Cliente C", "1001"}, // duplicate
		{"Cliente D", ""},
	})

	cils, err := ExtractCILs(raw)
	if err != nil {
		t.Fatalf("ExtractCILs failed: %v", err)
	}
	want := []string{"1001", "1002"}
	if len(cils) != len(want) {
		t.Fatalf("Expected %v, got %v", want, cils)
	}
	for i := range want {
		if cils[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, cils)
		}
	}
}

func TestExtractCILs_DefaultsToFirstColumn(t *testing.T) {
	raw := buildWorkbook(t, [][]string{
		{"Identificador", "Outro"},
		{"2001", "x"},
		{"2002", "y"},
	})

	cils, err := ExtractCILs(raw)
	if err != nil {
		t.Fatalf("ExtractCILs failed: %v", err)
	}
	if len(cils) != 2 || cils[0] != "2001" {
		t.Errorf("Expected first column values, got %v", cils)
	}
}

func TestExtractCILs_FiltersStrayHeaders(t *testing.T) {
	raw := buildWorkbook(t, [][]string{
		{"CIL"},
		{"3001"},
		{"cil"}, // repeated header mid-file
		{"3002"},
	})

	cils, err := ExtractCILs(raw)
	if err != nil {
		t.Fatalf("ExtractCILs failed: %v", err)
	}
	if len(cils) != 2 {
		t.Errorf("Stray header rows should be dropped, got %v", cils)
	}
}

func TestExtractCILs_RejectsGarbage(t *testing.T) {
	if _, err := ExtractCILs([]byte("not a workbook")); err == nil {
		t.Error("Expected error for non-XLSX input")
	}
}
