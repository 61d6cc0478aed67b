package validation

import (
	"testing"

	"github.com/field-worksheet-api/internal/models"
)

func TestUserData(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		nome     string
		role     string
		wantErrs int
	}{
		{"valid", "joao", "secret1", "João Silva", models.RoleTechnician, 0},
		{"short username", "ab", "secret1", "João Silva", models.RoleTechnician, 1},
		{"short password", "joao", "12345", "João Silva", models.RoleTechnician, 1},
		{"empty password skipped", "joao", "", "João Silva", models.RoleTechnician, 0},
		{"missing name", "joao", "secret1", " ", models.RoleTechnician, 1},
		{"bad role", "joao", "secret1", "João Silva", "SuperUser", 1},
		{"everything wrong", "a", "1", "", "nope", 4},
		{"whitespace username", "  ab  ", "secret1", "João", models.RoleAdministrator, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := UserData(tt.username, tt.password, tt.nome, tt.role)
			if len(errs) != tt.wantErrs {
				t.Errorf("expected %d errors, got %d: %v", tt.wantErrs, len(errs), errs)
			}
		})
	}
}

func TestProfileData(t *testing.T) {
	if errs := ProfileData("João", models.RoleTechnician); len(errs) != 0 {
		t.Errorf("Expected valid profile, got %v", errs)
	}
	if errs := ProfileData("", "nope"); len(errs) != 2 {
		t.Errorf("Expected 2 errors, got %v", errs)
	}
}

func TestPassword(t *testing.T) {
	if errs := Password("12345"); len(errs) != 1 {
		t.Errorf("expected 1 error for short password, got %v", errs)
	}
	if errs := Password("123456"); len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
}

func TestGenerationRequest(t *testing.T) {
	valid := &models.GenerationRequest{
		Mode:         models.ModePT,
		Value:        "CENTRO",
		MaxSheets:    10,
		NIBsPerSheet: 50,
	}
	if errs := GenerationRequest(valid); len(errs) != 0 {
		t.Fatalf("expected valid request, got %v", errs)
	}

	tests := []struct {
		name string
		req  models.GenerationRequest
	}{
		{"unknown mode", models.GenerationRequest{Mode: "REGIAO", Value: "X", MaxSheets: 1, NIBsPerSheet: 1}},
		{"zero group size", models.GenerationRequest{Mode: models.ModePT, Value: "X", MaxSheets: 1}},
		{"zero max sheets", models.GenerationRequest{Mode: models.ModePT, Value: "X", NIBsPerSheet: 1}},
		{"avulso without cils", models.GenerationRequest{Mode: models.ModeAvulso, MaxSheets: 1, NIBsPerSheet: 1}},
		{"pt without value", models.GenerationRequest{Mode: models.ModePT, MaxSheets: 1, NIBsPerSheet: 1}},
		{
			"bad criterion column",
			models.GenerationRequest{
				Mode: models.ModePT, Value: "X", MaxSheets: 1, NIBsPerSheet: 1,
				Criterion: &models.CriterionFilter{Column: "bogus", Value: "Y"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if errs := GenerationRequest(&tt.req); len(errs) == 0 {
				t.Error("expected validation errors, got none")
			}
		})
	}
}
