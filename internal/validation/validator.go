package validation

import (
	"fmt"
	"strings"

	"github.com/field-worksheet-api/internal/models"
)

// Store-level validation limits for accounts.
const (
	MinUsernameLen = 3
	MinPasswordLen = 6
	MinNomeLen     = 2
)

// UserData validates account fields before hashing and storage. A nil
// return means the data is acceptable. The length check only applies to
// non-empty passwords; Create enforces presence separately.
func UserData(username, password, nome, role string) []string {
	var errs []string
	if len(strings.TrimSpace(username)) < MinUsernameLen {
		errs = append(errs, fmt.Sprintf("username must have at least %d characters", MinUsernameLen))
	}
	if password != "" && len(password) < MinPasswordLen {
		errs = append(errs, fmt.Sprintf("password must have at least %d characters", MinPasswordLen))
	}
	if len(strings.TrimSpace(nome)) < MinNomeLen {
		errs = append(errs, "display name is required")
	}
	if !models.ValidRoles[role] {
		errs = append(errs, "invalid role")
	}
	return errs
}

// ProfileData validates a profile edit.
func ProfileData(nome, role string) []string {
	var errs []string
	if len(strings.TrimSpace(nome)) < MinNomeLen {
		errs = append(errs, "display name is required")
	}
	if !models.ValidRoles[role] {
		errs = append(errs, "invalid role")
	}
	return errs
}

// Password validates a standalone password change.
func Password(password string) []string {
	if len(password) < MinPasswordLen {
		return []string{fmt.Sprintf("password must have at least %d characters", MinPasswordLen)}
	}
	return nil
}

// GenerationRequest validates a sheet generation or preview request.
func GenerationRequest(req *models.GenerationRequest) []string {
	var errs []string
	if !req.Mode.Valid() {
		errs = append(errs, fmt.Sprintf("unknown generation mode %q", req.Mode))
	}
	if req.NIBsPerSheet < 1 {
		errs = append(errs, "nibs_per_sheet must be at least 1")
	}
	if req.MaxSheets < 1 {
		errs = append(errs, "max_sheets must be at least 1")
	}
	switch req.Mode {
	case models.ModeAvulso:
		if len(req.CILs) == 0 {
			errs = append(errs, "ad-hoc generation requires a cil list")
		}
	case models.ModePT, models.ModeLocalidade:
		if strings.TrimSpace(req.Value) == "" {
			errs = append(errs, "a partition value is required")
		}
		if req.Criterion != nil && req.Criterion.Value != "" {
			if _, ok := req.Criterion.Column.SQLName(); !ok {
				errs = append(errs, fmt.Sprintf("unknown criterion column %q", req.Criterion.Column))
			}
		}
	}
	return errs
}
