package service_test

import (
	"context"
	"testing"

	"github.com/field-worksheet-api/internal/models"
)

func TestDistinctValues_Cached(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.records.Records = []*models.Record{rec("1", "001", "1", "PT1")}

	values, err := env.svc.Report.DistinctValues(ctx, "pt")
	if err != nil {
		t.Fatalf("DistinctValues failed: %v", err)
	}
	if len(values) != 1 || values[0] != "PT1" {
		t.Fatalf("Expected [PT1], got %v", values)
	}

	// a dataset change inside the TTL window is not visible
	env.records.Records = append(env.records.Records, rec("2", "002", "2", "PT2"))
	values, err = env.svc.Report.DistinctValues(ctx, "pt")
	if err != nil {
		t.Fatalf("DistinctValues failed: %v", err)
	}
	if len(values) != 1 {
		t.Errorf("Expected cached [PT1], got %v", values)
	}
}

func TestDistinctValueCounts_ExcludesInProgress(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	inProg := rec("2", "002", "2", "PT1")
	inProg.Estado = "prog"
	env.records.Records = []*models.Record{rec("1", "001", "1", "PT1"), inProg}

	counts, err := env.svc.Report.DistinctValueCounts(ctx, "pt")
	if err != nil {
		t.Fatalf("DistinctValueCounts failed: %v", err)
	}
	if counts["PT1"] != 1 {
		t.Errorf("Expected 1 available record for PT1, got %d", counts["PT1"])
	}
}

func TestStats(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	inProg := rec("2", "002", "2", "PT2")
	inProg.Estado = "prog"
	env.records.Records = []*models.Record{rec("1", "001", "1", "PT1"), inProg}

	stats, err := env.svc.Report.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalRecords != 2 || stats.InProgress != 1 || stats.DistinctPTs != 2 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
	if stats.TotalValor != 20 || stats.AvgValor != 10 {
		t.Errorf("Unexpected value totals: %+v", stats)
	}
}

func TestDashboard_RejectsUnknownColumn(t *testing.T) {
	env := newTestEnv()
	if _, err := env.svc.Report.Dashboard(context.Background(), "bogus", ""); models.KindOf(err) != models.KindValidation {
		t.Errorf("Expected validation error, got %v", err)
	}
}
