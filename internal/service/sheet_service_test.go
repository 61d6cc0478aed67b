package service_test

import (
	"archive/zip"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/field-worksheet-api/internal/models"
)

var operator = models.AuthUser{ID: 2, Username: "AssAdm", Role: models.RoleAssistant}

func rec(cil, nib, seq, pt string) *models.Record {
	return &models.Record{
		CIL:        cil,
		NIB:        nib,
		Seq:        seq,
		PT:         pt,
		Localidade: "VILA",
		Criterio:   "NORMAL",
		Qtd:        1,
		Valor:      10,
	}
}

func ptRequest(value string, maxSheets, nibsPerSheet int) *models.GenerationRequest {
	return &models.GenerationRequest{
		Mode:         models.ModePT,
		Value:        value,
		MaxSheets:    maxSheets,
		NIBsPerSheet: nibsPerSheet,
	}
}

func TestGenerate_KeepsNIBGroupsWhole(t *testing.T) {
	env := newTestEnv()
	env.records.Records = []*models.Record{
		rec("1", "001", "1", "PT1"), rec("2", "001", "2", "PT1"), rec("3", "001", "3", "PT1"),
		rec("4", "002", "4", "PT1"), rec("5", "002", "5", "PT1"),
	}

	result, err := env.svc.Sheet.Generate(context.Background(), operator, ptRequest("PT1", 10, 2))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.SheetCount != 1 {
		t.Errorf("Two NIBs at 2 per sheet should give 1 sheet, got %d", result.SheetCount)
	}
	if len(result.Rows) != 5 {
		t.Errorf("Expected all 5 rows on the sheet, got %d", len(result.Rows))
	}
	for _, row := range result.Rows {
		if row.Folha != 1 {
			t.Errorf("Row %s should be on sheet 1, got %d", row.CIL, row.Folha)
		}
	}
	if result.UpdatedRows != 5 {
		t.Errorf("Expected 5 rows marked, got %d", result.UpdatedRows)
	}
}

func TestGenerate_OneNIBPerSheet(t *testing.T) {
	env := newTestEnv()
	env.records.Records = []*models.Record{
		rec("1", "001", "1", "PT1"), rec("2", "001", "2", "PT1"), rec("3", "001", "3", "PT1"),
		rec("4", "002", "4", "PT1"), rec("5", "002", "5", "PT1"),
	}

	result, err := env.svc.Sheet.Generate(context.Background(), operator, ptRequest("PT1", 10, 1))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.SheetCount != 2 {
		t.Fatalf("Expected 2 sheets, got %d", result.SheetCount)
	}
	for _, row := range result.Rows {
		want := 1
		if row.NIB == "002" {
			want = 2
		}
		if row.Folha != want {
			t.Errorf("NIB %s row should be on sheet %d, got %d", row.NIB, want, row.Folha)
		}
	}
}

func TestGenerate_RespectsMaxSheets(t *testing.T) {
	env := newTestEnv()
	env.records.Records = []*models.Record{
		rec("1", "001", "1", "PT1"), rec("2", "002", "2", "PT1"),
		rec("3", "003", "3", "PT1"), rec("4", "004", "4", "PT1"),
	}

	result, err := env.svc.Sheet.Generate(context.Background(), operator, ptRequest("PT1", 2, 1))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.SheetCount != 2 || len(result.Rows) != 2 {
		t.Fatalf("Expected 2 sheets / 2 rows, got %d / %d", result.SheetCount, len(result.Rows))
	}

	// the two remaining NIBs are still available for a second run
	second, err := env.svc.Sheet.Generate(context.Background(), operator, ptRequest("PT1", 10, 1))
	if err != nil {
		t.Fatalf("Second generate failed: %v", err)
	}
	if second.SheetCount != 2 {
		t.Errorf("Expected the remaining 2 NIBs in the second run, got %d sheets", second.SheetCount)
	}
}

func TestGenerate_ExcludesInProgress(t *testing.T) {
	env := newTestEnv()
	env.records.Records = []*models.Record{
		rec("1", "001", "1", "PT1"), rec("2", "002", "2", "PT1"),
	}

	if _, err := env.svc.Sheet.Generate(context.Background(), operator, ptRequest("PT1", 10, 1)); err != nil {
		t.Fatalf("First generate failed: %v", err)
	}

	// the partition is consumed: a second run finds nothing and succeeds
	// with an empty result
	result, err := env.svc.Sheet.Generate(context.Background(), operator, ptRequest("PT1", 10, 1))
	if err != nil {
		t.Fatalf("Second run over a consumed partition failed: %v", err)
	}
	if result.SheetCount != 0 || len(result.Rows) != 0 || result.UpdatedRows != 0 {
		t.Errorf("Expected empty result, got %+v", result)
	}
}

func TestGenerate_OrdersBySeqThenNIB(t *testing.T) {
	env := newTestEnv()
	env.records.Records = []*models.Record{
		rec("1", "003", "", "PT1"), // blank seq sorts last
		rec("2", "002", "2", "PT1"),
		rec("3", "001", "1", "PT1"),
	}

	result, err := env.svc.Sheet.Generate(context.Background(), operator, ptRequest("PT1", 10, 3))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	var order []string
	for _, row := range result.Rows {
		order = append(order, row.NIB)
	}
	want := []string{"001", "002", "003"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("Expected NIB order %v, got %v", want, order)
		}
	}
}

func TestGenerate_CriterionFilter(t *testing.T) {
	env := newTestEnv()
	fraude := rec("1", "001", "1", "PT1")
	fraude.Criterio = "FRAUDE"
	env.records.Records = []*models.Record{fraude, rec("2", "002", "2", "PT1")}

	req := ptRequest("PT1", 10, 1)
	req.Criterion = &models.CriterionFilter{Column: models.CriterionCriterio, Value: "fraude"}

	result, err := env.svc.Sheet.Generate(context.Background(), operator, req)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(result.Rows) != 1 || result.Rows[0].CIL != "1" {
		t.Errorf("Criterion filter should keep only the FRAUDE record, got %+v", result.Rows)
	}
	if env.records.Records[1].InProgress() {
		t.Error("Non-matching record must not be marked")
	}
}

func TestGenerate_AvulsoDoesNotMutate(t *testing.T) {
	env := newTestEnv()
	inProg := rec("2", "002", "2", "PT1")
	inProg.Estado = "prog"
	env.records.Records = []*models.Record{rec("1", "001", "1", "PT1"), inProg}

	req := &models.GenerationRequest{
		Mode:         models.ModeAvulso,
		CILs:         []string{"1", "2", "999"},
		MaxSheets:    10,
		NIBsPerSheet: 5,
	}
	result, err := env.svc.Sheet.Generate(context.Background(), operator, req)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	// AVULSO ignores the in-progress guard and matches both records
	if len(result.Rows) != 2 {
		t.Errorf("Expected 2 rows, got %d", len(result.Rows))
	}
	if len(result.UnmatchedCILs) != 1 || result.UnmatchedCILs[0] != "999" {
		t.Errorf("Expected unmatched cil 999, got %v", result.UnmatchedCILs)
	}
	if result.UpdatedRows != 0 || env.records.MarkCalls != 0 {
		t.Error("Ad-hoc generation must never mark records")
	}
	if env.records.Records[0].InProgress() {
		t.Error("Record 1 should still be available")
	}
}

func TestPreview_DoesNotMutate(t *testing.T) {
	env := newTestEnv()
	env.records.Records = []*models.Record{
		rec("1", "001", "1", "PT1"), rec("2", "002", "2", "PT1"), rec("3", "003", "3", "PT1"),
	}

	preview, err := env.svc.Sheet.Preview(context.Background(), ptRequest("PT1", 2, 1))
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if preview.TotalRecords != 3 || preview.DistinctNIBs != 3 {
		t.Errorf("Expected 3 records / 3 NIBs, got %+v", preview)
	}
	if preview.PossibleSheets != 3 || preview.SheetsToCreate != 2 {
		t.Errorf("Expected 3 possible / 2 to create, got %+v", preview)
	}
	if env.records.MarkCalls != 0 {
		t.Error("Preview must not mark records")
	}
	if len(env.genLog.Entries) != 0 {
		t.Error("Preview must not write audit entries")
	}
}

func TestReset_UndoesGeneration(t *testing.T) {
	env := newTestEnv()
	env.records.Records = []*models.Record{
		rec("1", "001", "1", "PT1"), rec("2", "002", "2", "PT2"),
	}

	if _, err := env.svc.Sheet.Generate(context.Background(), operator, ptRequest("PT1", 10, 1)); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	affected, err := env.svc.Sheet.Reset(context.Background(), operator, models.ModePT, "PT1")
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if affected != 1 {
		t.Errorf("Expected 1 row reset, got %d", affected)
	}
	if _, err := env.svc.Sheet.Generate(context.Background(), operator, ptRequest("PT1", 10, 1)); err != nil {
		t.Errorf("Partition should be generatable again after reset: %v", err)
	}
}

func TestReset_RequiresValueForPartitionModes(t *testing.T) {
	env := newTestEnv()
	if _, err := env.svc.Sheet.Reset(context.Background(), operator, models.ModePT, " "); models.KindOf(err) != models.KindValidation {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestGenerate_WritesAuditEntry(t *testing.T) {
	env := newTestEnv()
	env.records.Records = []*models.Record{rec("1", "001", "1", "PT1")}

	if _, err := env.svc.Sheet.Generate(context.Background(), operator, ptRequest("PT1", 10, 1)); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	entries, err := env.svc.Sheet.History(context.Background(), 20)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 audit entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Usuario != operator.Username || e.Tipo != "PT" || e.Valor != "PT1" || e.SheetCount != 1 {
		t.Errorf("Unexpected audit entry: %+v", e)
	}
}

func TestExportArchive(t *testing.T) {
	env := newTestEnv()
	env.records.Records = []*models.Record{
		rec("1", "001", "1", "PT1"), rec("2", "002", "2", "PT1"),
	}

	result, err := env.svc.Sheet.Generate(context.Background(), operator, ptRequest("PT1", 10, 1))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	archive, name, err := env.svc.Sheet.ExportArchive(result, ptRequest("PT1", 10, 1))
	if err != nil {
		t.Fatalf("ExportArchive failed: %v", err)
	}
	if name != "Folhas_PT_PT1.zip" {
		t.Errorf("Unexpected archive name %q", name)
	}

	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		t.Fatalf("Archive is not a valid zip: %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("Expected 2 CSVs, got %d", len(zr.File))
	}
	if zr.File[0].Name != "PT_PT1_Folha_1.csv" {
		t.Errorf("Unexpected entry name %q", zr.File[0].Name)
	}
	f, _ := zr.File[0].Open()
	var buf bytes.Buffer
	buf.ReadFrom(f)
	f.Close()
	if !strings.Contains(buf.String(), "cil;prod;contador") {
		t.Errorf("Sheet CSV missing header: %q", buf.String())
	}
}

func TestGenerate_ValidatesRequest(t *testing.T) {
	env := newTestEnv()
	env.records.Records = []*models.Record{rec("1", "001", "1", "PT1")}

	bad := []*models.GenerationRequest{
		{Mode: "REGIAO", Value: "X", MaxSheets: 1, NIBsPerSheet: 1},
		{Mode: models.ModePT, MaxSheets: 1, NIBsPerSheet: 1},
		{Mode: models.ModePT, Value: "PT1", MaxSheets: 1},
		{Mode: models.ModeAvulso, MaxSheets: 1, NIBsPerSheet: 1},
	}
	for _, req := range bad {
		if _, err := env.svc.Sheet.Generate(context.Background(), operator, req); models.KindOf(err) != models.KindValidation {
			t.Errorf("Expected validation error for %+v, got %v", req, err)
		}
	}
}
