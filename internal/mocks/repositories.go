package mocks

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/field-worksheet-api/internal/models"
)

func norm(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

// MockRecordRepository is an in-memory implementation of
// RecordRepository mirroring the SQL filter semantics, so service tests
// exercise the real eligibility rules.
type MockRecordRepository struct {
	Records      []*models.Record
	ReplaceErr   error
	SelectErr    error
	MarkErr      error
	ResetErr     error
	MarkCalls    int
	ReplaceCalls int
}

func NewMockRecordRepository() *MockRecordRepository {
	return &MockRecordRepository{}
}

func (m *MockRecordRepository) ReplaceAll(ctx context.Context, records []*models.Record) (int, error) {
	m.ReplaceCalls++
	if m.ReplaceErr != nil {
		return 0, m.ReplaceErr
	}
	inProgress := make(map[string]bool)
	for _, old := range m.Records {
		if old.InProgress() {
			inProgress[old.CIL] = true
		}
	}
	preserved := 0
	for _, rec := range records {
		if inProgress[rec.CIL] {
			rec.Estado = models.StateInProgress
			preserved++
		}
	}
	m.Records = records
	return preserved, nil
}

func (m *MockRecordRepository) matches(rec *models.Record, filter models.EligibilityFilter) bool {
	if filter.Mode == models.ModeAvulso {
		for _, cil := range filter.CILs {
			if rec.CIL == cil {
				return true
			}
		}
		return false
	}
	if rec.InProgress() {
		return false
	}
	if filter.Criterion != nil && filter.Criterion.Value != "" {
		col, ok := filter.Criterion.Column.SQLName()
		if !ok {
			return false
		}
		if norm(m.columnValue(rec, col)) != norm(filter.Criterion.Value) {
			return false
		}
	}
	if filter.Value != "" {
		col := filter.Mode.PartitionColumn()
		if norm(m.columnValue(rec, col)) != norm(filter.Value) {
			return false
		}
	}
	return true
}

func (m *MockRecordRepository) columnValue(rec *models.Record, col string) string {
	switch col {
	case "pt":
		return rec.PT
	case "localidade":
		return rec.Localidade
	case "criterio":
		return rec.Criterio
	case "anomalia":
		return rec.Anomalia
	case "desc_tp_cli":
		return rec.DescTpCli
	case "est_contr":
		return rec.EstContr
	case "sit_div":
		return rec.SitDiv
	case "desv":
		return rec.Desv
	case "est_inspec":
		return rec.EstInspec
	}
	return ""
}

func (m *MockRecordRepository) SelectEligible(ctx context.Context, filter models.EligibilityFilter) ([]*models.Record, error) {
	if m.SelectErr != nil {
		return nil, m.SelectErr
	}
	var out []*models.Record
	for _, rec := range m.Records {
		if m.matches(rec, filter) {
			copy := *rec
			out = append(out, &copy)
		}
	}
	// seq first with blanks last, then nib with blanks last
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := strings.TrimSpace(out[i].Seq), strings.TrimSpace(out[j].Seq)
		if (si == "") != (sj == "") {
			return sj == ""
		}
		if si != sj {
			return si < sj
		}
		ni, nj := strings.TrimSpace(out[i].NIB), strings.TrimSpace(out[j].NIB)
		if (ni == "") != (nj == "") {
			return nj == ""
		}
		return ni < nj
	})
	return out, nil
}

func (m *MockRecordRepository) MarkInProgress(ctx context.Context, nibs []string, filter models.EligibilityFilter) (int, error) {
	m.MarkCalls++
	if m.MarkErr != nil {
		return 0, m.MarkErr
	}
	nibSet := make(map[string]bool, len(nibs))
	for _, n := range nibs {
		nibSet[n] = true
	}
	affected := 0
	for _, rec := range m.Records {
		if nibSet[rec.NIB] && m.matches(rec, filter) {
			rec.Estado = models.StateInProgress
			affected++
		}
	}
	return affected, nil
}

func (m *MockRecordRepository) ResetState(ctx context.Context, mode models.PartitionMode, value string) (int, error) {
	if m.ResetErr != nil {
		return 0, m.ResetErr
	}
	affected := 0
	for _, rec := range m.Records {
		if !rec.InProgress() {
			continue
		}
		switch mode {
		case models.ModePT:
			if norm(rec.PT) != norm(value) {
				continue
			}
		case models.ModeLocalidade:
			if norm(rec.Localidade) != norm(value) {
				continue
			}
		case models.ModeAvulso:
			// global reset
		default:
			continue
		}
		rec.Estado = ""
		affected++
	}
	return affected, nil
}

func (m *MockRecordRepository) DistinctValues(ctx context.Context, column models.FilterColumn) ([]string, error) {
	col, ok := column.SQLName()
	if !ok {
		return nil, models.NewValidationError("unknown column")
	}
	seen := make(map[string]bool)
	var values []string
	for _, rec := range m.Records {
		v := norm(m.columnValue(rec, col))
		if v == "" || v == "NONE" || v == "NULL" || seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, v)
	}
	sort.Strings(values)
	return values, nil
}

func (m *MockRecordRepository) DistinctValueCounts(ctx context.Context, column models.FilterColumn) (map[string]int, error) {
	col, ok := column.SQLName()
	if !ok {
		return nil, models.NewValidationError("unknown column")
	}
	counts := make(map[string]int)
	for _, rec := range m.Records {
		if rec.InProgress() {
			continue
		}
		v := norm(m.columnValue(rec, col))
		if v == "" {
			continue
		}
		counts[v]++
	}
	return counts, nil
}

func (m *MockRecordRepository) Count(ctx context.Context) (int, error) {
	return len(m.Records), nil
}

func (m *MockRecordRepository) Stats(ctx context.Context) (*models.RecordStats, error) {
	s := &models.RecordStats{TotalRecords: len(m.Records)}
	cils, pts, locs, nibs := map[string]bool{}, map[string]bool{}, map[string]bool{}, map[string]bool{}
	for _, rec := range m.Records {
		cils[rec.CIL] = true
		pts[rec.PT] = true
		locs[rec.Localidade] = true
		nibs[rec.NIB] = true
		if rec.InProgress() {
			s.InProgress++
		}
		s.TotalQtd += rec.Qtd
		s.TotalValor += rec.Valor
	}
	s.DistinctCILs = len(cils)
	s.DistinctPTs = len(pts)
	s.DistinctLocations = len(locs)
	s.DistinctNIBs = len(nibs)
	if s.TotalRecords > 0 {
		s.AvgQtd = s.TotalQtd / float64(s.TotalRecords)
		s.AvgValor = s.TotalValor / float64(s.TotalRecords)
	}
	return s, nil
}

func (m *MockRecordRepository) PTProgress(ctx context.Context) ([]models.PTProgress, error) {
	return nil, nil
}

func (m *MockRecordRepository) TopLocalities(ctx context.Context) ([]models.LocalityValue, error) {
	return nil, nil
}

func (m *MockRecordRepository) GeoDensity(ctx context.Context) ([]models.GeoPoint, error) {
	return nil, nil
}

func (m *MockRecordRepository) CriterionBreakdown(ctx context.Context, column models.FilterColumn, value string) ([]models.CriterionSlice, error) {
	return nil, nil
}

// MockUserRepository is an in-memory implementation of UserRepository
type MockUserRepository struct {
	Users     map[int]*models.User
	NextID    int
	CreateErr error
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{Users: make(map[int]*models.User), NextID: 1}
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range m.Users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	return m.Users[id], nil
}

func (m *MockUserRepository) List(ctx context.Context) ([]*models.User, error) {
	users := make([]*models.User, 0, len(m.Users))
	for _, u := range m.Users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	for _, u := range m.Users {
		if u.Username == user.Username {
			return models.NewDuplicateUsername(user.Username)
		}
	}
	user.ID = m.NextID
	user.CreatedAt = time.Now()
	m.NextID++
	m.Users[user.ID] = user
	return nil
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, id int, nome, role string) (bool, error) {
	u, ok := m.Users[id]
	if !ok {
		return false, nil
	}
	u.Nome = nome
	u.Role = role
	return true, nil
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id int, passwordHash string) (bool, error) {
	u, ok := m.Users[id]
	if !ok {
		return false, nil
	}
	u.PasswordHash = passwordHash
	return true, nil
}

func (m *MockUserRepository) Delete(ctx context.Context, id int) (bool, error) {
	if _, ok := m.Users[id]; !ok {
		return false, nil
	}
	delete(m.Users, id)
	return true, nil
}

func (m *MockUserRepository) Count(ctx context.Context) (int, error) {
	return len(m.Users), nil
}

// MockGenerationLogRepository is an in-memory GenerationLogRepository
type MockGenerationLogRepository struct {
	Entries   []*models.GenerationLog
	InsertErr error
}

func NewMockGenerationLogRepository() *MockGenerationLogRepository {
	return &MockGenerationLogRepository{}
}

func (m *MockGenerationLogRepository) Insert(ctx context.Context, entry *models.GenerationLog) error {
	if m.InsertErr != nil {
		return m.InsertErr
	}
	entry.ID = len(m.Entries) + 1
	entry.CreatedAt = time.Now()
	m.Entries = append(m.Entries, entry)
	return nil
}

func (m *MockGenerationLogRepository) Recent(ctx context.Context, limit int) ([]*models.GenerationLog, error) {
	out := make([]*models.GenerationLog, 0, limit)
	for i := len(m.Entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.Entries[i])
	}
	return out, nil
}
