package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/field-worksheet-api/internal/config"
	"github.com/field-worksheet-api/internal/fileformat"
	"github.com/field-worksheet-api/internal/models"
	"github.com/field-worksheet-api/internal/repository"
	"github.com/rs/zerolog"
)

// importService is the concrete implementation of ImportService
type importService struct {
	repos *repository.Repositories
	cfg   *config.Config
	log   zerolog.Logger
}

// newImportService creates a new ImportService
func newImportService(repos *repository.Repositories, cfg *config.Config, log zerolog.Logger) *importService {
	return &importService{
		repos: repos,
		cfg:   cfg,
		log:   log.With().Str("service", "import").Logger(),
	}
}

// Import parses an uploaded CSV and atomically replaces the records
// table with its contents. Rows whose cil was already in progress keep
// the prog estado. The whole operation is synchronous: the caller gets
// counts or an error, never a half-applied dataset.
func (s *importService) Import(ctx context.Context, r io.Reader) (*models.ImportResult, error) {
	startTime := time.Now()

	raw, err := fileformat.ReadAll(r, s.cfg.Import.MaxUploadSize)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	charset := fileformat.DetectEncoding(raw)
	decoded := fileformat.Decode(raw, charset)
	delimiter := fileformat.DetectDelimiter(decoded)

	s.log.Info().
		Str("charset", charset).
		Str("delimiter", string(delimiter)).
		Int("bytes", len(raw)).
		Msg("Import file sniffed")

	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	result := &models.ImportResult{}
	var records []*models.Record
	first := true
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.TotalRows++
			result.SkippedRows++
			continue
		}
		// the file has no header: the first row is data and carries the
		// schema-width check
		if first {
			if len(row) < models.RecordColumnCount {
				return nil, models.NewSchemaMismatch(models.RecordColumnCount, len(row))
			}
			first = false
		}
		result.TotalRows++
		rec, ok := parseRecord(row)
		if !ok {
			result.SkippedRows++
			continue
		}
		records = append(records, rec)
	}

	if first {
		return nil, models.NewValidationError("file is empty or unreadable")
	}
	if len(records) == 0 {
		return nil, models.NewValidationError("file contains no importable rows")
	}

	preserved, err := s.repos.Record.ReplaceAll(ctx, records)
	if err != nil {
		return nil, err
	}
	result.PreservedRows = preserved

	s.log.Info().
		Int("total", result.TotalRows).
		Int("skipped", result.SkippedRows).
		Int("preserved", result.PreservedRows).
		Dur("duration", time.Since(startTime)).
		Msg("Import completed")

	return result, nil
}

// parseRecord maps one positional CSV row onto a Record. Rows that are
// too short or have no cil are not importable.
func parseRecord(row []string) (*models.Record, bool) {
	if len(row) < models.RecordColumnCount {
		return nil, false
	}
	cil := strings.TrimSpace(row[0])
	if cil == "" {
		return nil, false
	}
	rec := &models.Record{
		CIL:         cil,
		Prod:        strings.TrimSpace(row[1]),
		Contador:    strings.TrimSpace(row[2]),
		Leitura:     strings.TrimSpace(row[3]),
		MatContador: strings.TrimSpace(row[4]),
		MedFat:      strings.TrimSpace(row[5]),
		Qtd:         parseAmount(row[6]),
		Valor:       parseAmount(row[7]),
		Situacao:    strings.TrimSpace(row[8]),
		Acordo:      strings.TrimSpace(row[9]),
		NIB:         strings.TrimSpace(row[10]),
		Seq:         strings.TrimSpace(row[11]),
		Localidade:  normalizeKey(row[12]),
		PT:          normalizeKey(row[13]),
		Desv:        strings.TrimSpace(row[14]),
		MatLeitura:  strings.TrimSpace(row[15]),
		DescUni:     strings.TrimSpace(row[16]),
		EstContr:    strings.TrimSpace(row[17]),
		Anomalia:    strings.TrimSpace(row[18]),
		ExternalID:  strings.TrimSpace(row[19]),
		Produto:     strings.TrimSpace(row[20]),
		Nome:        strings.TrimSpace(row[21]),
		Criterio:    normalizeKey(row[22]),
		DescTpCli:   strings.TrimSpace(row[23]),
		Tip:         strings.TrimSpace(row[24]),
		SitDiv:      strings.TrimSpace(row[25]),
		Modelo:      strings.TrimSpace(row[26]),
		Lat:         parseCoord(row[27]),
		Long:        parseCoord(row[28]),
		EstInspec:   strings.TrimSpace(row[29]),
		Estado:      strings.ToLower(strings.TrimSpace(row[30])),
	}
	return rec, true
}

// normalizeKey uppercases partition and criterion values so filters
// match regardless of source-system casing.
func normalizeKey(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// parseAmount reads a money or quantity field, accepting the decimal
// comma used by pt-PT exports. Unparseable values become zero.
func parseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// parseCoord reads an optional coordinate. Blank or unparseable values
// stay NULL rather than becoming 0, which is a real coordinate.
func parseCoord(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}
