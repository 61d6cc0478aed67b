package repository

import (
	"context"

	"github.com/field-worksheet-api/internal/database"
	"github.com/field-worksheet-api/internal/models"
)

// RecordRepository defines the interface for meter-record data operations
type RecordRepository interface {
	// ReplaceAll atomically swaps the whole records table for the given
	// dataset, preserving estado='prog' on rows whose cil was already in
	// progress. Returns the number of preserved rows.
	ReplaceAll(ctx context.Context, records []*models.Record) (int, error)
	// SelectEligible returns records matching the filter, ordered by seq
	// (blanks last) then nib (blanks last).
	SelectEligible(ctx context.Context, filter models.EligibilityFilter) ([]*models.Record, error)
	// MarkInProgress sets estado='prog' on records whose nib is in nibs,
	// re-applying the filter's criterion/partition conditions and the
	// not-in-progress guard, all in one transaction.
	MarkInProgress(ctx context.Context, nibs []string, filter models.EligibilityFilter) (int, error)
	// ResetState clears estado on in-progress rows scoped by mode/value;
	// AVULSO clears every in-progress row.
	ResetState(ctx context.Context, mode models.PartitionMode, value string) (int, error)
	DistinctValues(ctx context.Context, column models.FilterColumn) ([]string, error)
	DistinctValueCounts(ctx context.Context, column models.FilterColumn) (map[string]int, error)
	Count(ctx context.Context) (int, error)
	Stats(ctx context.Context) (*models.RecordStats, error)
	PTProgress(ctx context.Context) ([]models.PTProgress, error)
	TopLocalities(ctx context.Context) ([]models.LocalityValue, error)
	GeoDensity(ctx context.Context) ([]models.GeoPoint, error)
	CriterionBreakdown(ctx context.Context, column models.FilterColumn, value string) ([]models.CriterionSlice, error)
}

// UserRepository defines the interface for account data operations
type UserRepository interface {
	// GetByUsername returns nil, nil when the username is unknown.
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id int) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	// Create inserts a new account and fills in the generated id. A
	// username conflict surfaces as a DuplicateUsername domain error.
	Create(ctx context.Context, user *models.User) error
	UpdateProfile(ctx context.Context, id int, nome, role string) (bool, error)
	UpdatePassword(ctx context.Context, id int, passwordHash string) (bool, error)
	Delete(ctx context.Context, id int) (bool, error)
	Count(ctx context.Context) (int, error)
}

// GenerationLogRepository defines the interface for the generation audit log
type GenerationLogRepository interface {
	Insert(ctx context.Context, entry *models.GenerationLog) error
	Recent(ctx context.Context, limit int) ([]*models.GenerationLog, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	Record        RecordRepository
	User          UserRepository
	GenerationLog GenerationLogRepository
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	return &Repositories{
		Record:        NewRecordRepo(db),
		User:          NewUserRepo(db),
		GenerationLog: NewGenerationLogRepo(db),
	}
}
