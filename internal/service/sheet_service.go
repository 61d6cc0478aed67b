package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/field-worksheet-api/internal/config"
	"github.com/field-worksheet-api/internal/fileformat"
	"github.com/field-worksheet-api/internal/models"
	"github.com/field-worksheet-api/internal/repository"
	"github.com/field-worksheet-api/internal/validation"
	"github.com/rs/zerolog"
)

// previewSampleSize caps the rows echoed back by a dry run.
const previewSampleSize = 5

// sheetService is the concrete implementation of SheetService
type sheetService struct {
	repos *repository.Repositories
	cfg   *config.Config
	log   zerolog.Logger
}

// newSheetService creates a new SheetService
func newSheetService(repos *repository.Repositories, cfg *config.Config, log zerolog.Logger) *sheetService {
	return &sheetService{
		repos: repos,
		cfg:   cfg,
		log:   log.With().Str("service", "sheet").Logger(),
	}
}

// selection is the shared outcome of the eligibility pass used by both
// Preview and Generate.
type selection struct {
	records   []*models.Record
	nibs      []string // distinct, first-seen order
	unmatched []string // AVULSO only
}

func (s *sheetService) selectRecords(ctx context.Context, req *models.GenerationRequest) (*selection, error) {
	if errs := validation.GenerationRequest(req); len(errs) > 0 {
		return nil, models.NewValidationError(strings.Join(errs, "; "))
	}

	filter := buildFilter(req)
	records, err := s.repos.Record.SelectEligible(ctx, filter)
	if err != nil {
		return nil, err
	}

	sel := &selection{records: records}
	seen := make(map[string]bool)
	for _, rec := range records {
		nib := strings.TrimSpace(rec.NIB)
		if nib == "" || seen[nib] {
			continue
		}
		seen[nib] = true
		sel.nibs = append(sel.nibs, nib)
	}

	if req.Mode == models.ModeAvulso {
		matched := make(map[string]bool, len(records))
		for _, rec := range records {
			matched[rec.CIL] = true
		}
		for _, cil := range filter.CILs {
			if !matched[cil] {
				sel.unmatched = append(sel.unmatched, cil)
			}
		}
	}
	return sel, nil
}

// buildFilter maps the request onto an eligibility filter. AVULSO keeps
// only the CIL list; criterion and partition value are meaningless there.
func buildFilter(req *models.GenerationRequest) models.EligibilityFilter {
	if req.Mode == models.ModeAvulso {
		cils := make([]string, 0, len(req.CILs))
		for _, cil := range req.CILs {
			if c := strings.TrimSpace(cil); c != "" {
				cils = append(cils, c)
			}
		}
		return models.EligibilityFilter{Mode: req.Mode, CILs: cils}
	}
	return models.EligibilityFilter{
		Mode:      req.Mode,
		Value:     strings.TrimSpace(req.Value),
		Criterion: req.Criterion,
	}
}

// sheetCount caps the run: never more sheets than distinct NIBs can
// fill, never more than the caller asked for.
func sheetCount(distinctNIBs, nibsPerSheet, maxSheets int) (possible, create int) {
	possible = (distinctNIBs + nibsPerSheet - 1) / nibsPerSheet
	create = possible
	if maxSheets < create {
		create = maxSheets
	}
	return possible, create
}

// assignSheets chunks the distinct NIBs into sheets of nibsPerSheet and
// tags every record of a chosen NIB with its 1-based sheet index.
// Records keep their selection order within each sheet.
func assignSheets(records []*models.Record, nibs []string, nibsPerSheet, sheets int) ([]models.SheetRow, []string) {
	limit := sheets * nibsPerSheet
	if limit > len(nibs) {
		limit = len(nibs)
	}
	chosen := nibs[:limit]

	folhaByNIB := make(map[string]int, len(chosen))
	for i, nib := range chosen {
		folhaByNIB[nib] = i/nibsPerSheet + 1
	}

	var rows []models.SheetRow
	for _, rec := range records {
		folha, ok := folhaByNIB[strings.TrimSpace(rec.NIB)]
		if !ok {
			continue
		}
		rows = append(rows, models.SheetRow{Record: *rec, Folha: folha})
	}
	return rows, chosen
}

// Preview runs the same selection and chunking as Generate without
// touching any estado. Counts are exact, computed over the full
// eligible set.
func (s *sheetService) Preview(ctx context.Context, req *models.GenerationRequest) (*models.GenerationPreview, error) {
	sel, err := s.selectRecords(ctx, req)
	if err != nil {
		return nil, err
	}

	possible, create := sheetCount(len(sel.nibs), req.NIBsPerSheet, req.MaxSheets)
	rows, _ := assignSheets(sel.records, sel.nibs, req.NIBsPerSheet, create)
	if len(rows) > previewSampleSize {
		rows = rows[:previewSampleSize]
	}

	return &models.GenerationPreview{
		TotalRecords:   len(sel.records),
		DistinctNIBs:   len(sel.nibs),
		PossibleSheets: possible,
		SheetsToCreate: create,
		Sample:         rows,
		UnmatchedCILs:  sel.unmatched,
	}, nil
}

// Generate selects eligible records, chunks their distinct NIBs into
// sheets and, for PT/LOCALIDADE runs, marks every included record as in
// progress in a single transaction. AVULSO runs never mutate state.
func (s *sheetService) Generate(ctx context.Context, user models.AuthUser, req *models.GenerationRequest) (*models.GenerationResult, error) {
	startTime := time.Now()

	sel, err := s.selectRecords(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(sel.nibs) == 0 {
		// nothing eligible is an empty success, not a failure
		return &models.GenerationResult{UnmatchedCILs: sel.unmatched}, nil
	}

	_, create := sheetCount(len(sel.nibs), req.NIBsPerSheet, req.MaxSheets)
	rows, chosen := assignSheets(sel.records, sel.nibs, req.NIBsPerSheet, create)

	result := &models.GenerationResult{
		SheetCount:    create,
		DistinctNIBs:  len(chosen),
		Rows:          rows,
		UnmatchedCILs: sel.unmatched,
	}

	if req.Mode != models.ModeAvulso {
		updated, err := s.repos.Record.MarkInProgress(ctx, chosen, buildFilter(req))
		if err != nil {
			return nil, err
		}
		result.UpdatedRows = updated
	}

	s.logGeneration(ctx, user, req, result)

	s.log.Info().
		Str("mode", string(req.Mode)).
		Str("value", req.Value).
		Int("sheets", result.SheetCount).
		Int("nibs", result.DistinctNIBs).
		Int("updated", result.UpdatedRows).
		Dur("duration", time.Since(startTime)).
		Msg("Sheets generated")

	return result, nil
}

// logGeneration records the run in the audit log. A failed audit write
// does not undo a committed generation; it is logged and dropped.
func (s *sheetService) logGeneration(ctx context.Context, user models.AuthUser, req *models.GenerationRequest, result *models.GenerationResult) {
	valor := strings.TrimSpace(req.Value)
	if req.Mode == models.ModeAvulso {
		valor = "Avulso"
	}
	criterio := "Nenhum"
	if req.Criterion != nil && req.Criterion.Value != "" {
		criterio = fmt.Sprintf("%s=%s", req.Criterion.Column, req.Criterion.Value)
	}
	entry := &models.GenerationLog{
		Usuario:     user.Username,
		Tipo:        string(req.Mode),
		Valor:       valor,
		Criterio:    criterio,
		SheetCount:  result.SheetCount,
		RecordCount: len(result.Rows),
	}
	if err := s.repos.GenerationLog.Insert(ctx, entry); err != nil {
		s.log.Warn().Err(err).Msg("Failed to write generation audit entry")
	}
}

// Reset clears the in-progress state for one partition, or globally when
// mode is AVULSO.
func (s *sheetService) Reset(ctx context.Context, user models.AuthUser, mode models.PartitionMode, value string) (int, error) {
	if !mode.Valid() {
		return 0, models.NewValidationError(fmt.Sprintf("unknown reset mode %q", mode))
	}
	value = strings.TrimSpace(value)
	if mode != models.ModeAvulso && value == "" {
		return 0, models.NewValidationError("a partition value is required")
	}

	affected, err := s.repos.Record.ResetState(ctx, mode, value)
	if err != nil {
		return 0, err
	}

	s.log.Info().
		Str("user", user.Username).
		Str("mode", string(mode)).
		Str("value", value).
		Int("affected", affected).
		Msg("State reset")

	return affected, nil
}

// ExportArchive packages a generation result as a ZIP of per-sheet CSVs
// and returns the archive plus a download file name.
func (s *sheetService) ExportArchive(result *models.GenerationResult, req *models.GenerationRequest) ([]byte, string, error) {
	value := strings.TrimSpace(req.Value)
	if req.Mode == models.ModeAvulso {
		value = "Avulso"
	}
	archive, err := fileformat.WriteSheetArchive(result.Rows, string(req.Mode), value)
	if err != nil {
		return nil, "", models.NewStorageError("archive export", err)
	}
	name := fmt.Sprintf("Folhas_%s_%s.zip", req.Mode, fileformat.SanitizeFilename(value))
	return archive, name, nil
}

// ExtractCILs pulls the CIL list out of an uploaded spreadsheet for an
// AVULSO run.
func (s *sheetService) ExtractCILs(r io.Reader) ([]string, error) {
	raw, err := fileformat.ReadAll(r, s.cfg.Import.MaxUploadSize)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	cils, err := fileformat.ExtractCILs(raw)
	if err != nil {
		return nil, models.NewValidationError("could not read spreadsheet: " + err.Error())
	}
	return cils, nil
}

// History returns the most recent generation audit entries.
func (s *sheetService) History(ctx context.Context, limit int) ([]*models.GenerationLog, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.repos.GenerationLog.Recent(ctx, limit)
}
