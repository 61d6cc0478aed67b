package service

import (
	"context"
	"io"

	"github.com/field-worksheet-api/internal/config"
	"github.com/field-worksheet-api/internal/models"
	"github.com/field-worksheet-api/internal/repository"
	"github.com/rs/zerolog"
)

// ImportService defines the interface for dataset import operations
type ImportService interface {
	Import(ctx context.Context, r io.Reader) (*models.ImportResult, error)
}

// SheetService defines the interface for work-sheet generation
type SheetService interface {
	Preview(ctx context.Context, req *models.GenerationRequest) (*models.GenerationPreview, error)
	Generate(ctx context.Context, user models.AuthUser, req *models.GenerationRequest) (*models.GenerationResult, error)
	Reset(ctx context.Context, user models.AuthUser, mode models.PartitionMode, value string) (int, error)
	ExportArchive(result *models.GenerationResult, req *models.GenerationRequest) ([]byte, string, error)
	ExtractCILs(r io.Reader) ([]string, error)
	History(ctx context.Context, limit int) ([]*models.GenerationLog, error)
}

// UserService defines the interface for account management
type UserService interface {
	// Authenticate returns nil, nil on unknown username or wrong password.
	Authenticate(ctx context.Context, username, password string) (*models.AuthUser, error)
	List(ctx context.Context) ([]*models.User, error)
	Create(ctx context.Context, username, password, nome, role string) (*models.User, error)
	Update(ctx context.Context, id int, nome, role string) (*models.User, error)
	ChangePassword(ctx context.Context, id int, password string) error
	Delete(ctx context.Context, id int) error
	Bootstrap(ctx context.Context) error
}

// ReportService defines the interface for dashboard and filter reads
type ReportService interface {
	Stats(ctx context.Context) (*models.RecordStats, error)
	Operational(ctx context.Context) (*OperationalReport, error)
	Dashboard(ctx context.Context, column models.FilterColumn, value string) ([]models.CriterionSlice, error)
	DistinctValues(ctx context.Context, column models.FilterColumn) ([]string, error)
	DistinctValueCounts(ctx context.Context, column models.FilterColumn) (map[string]int, error)
}

// OperationalReport aggregates the progress views shown on the
// operations screen.
type OperationalReport struct {
	PTs        []models.PTProgress    `json:"pts"`
	Localities []models.LocalityValue `json:"localidades"`
	Geo        []models.GeoPoint      `json:"geo"`
}

// Services holds all service interfaces
type Services struct {
	Import ImportService
	Sheet  SheetService
	User   UserService
	Report ReportService
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, cfg *config.Config, log zerolog.Logger) *Services {
	return &Services{
		Import: newImportService(repos, cfg, log),
		Sheet:  newSheetService(repos, cfg, log),
		User:   newUserService(repos, log),
		Report: newReportService(repos, cfg, log),
	}
}
