package models

import (
	"time"
)

// SheetExportColumns is the fixed 10-column subset written to each
// exported work-sheet CSV, in order.
var SheetExportColumns = []string{
	"cil", "prod", "contador", "leitura", "mat_contador",
	"med_fat", "qtd", "valor", "situacao", "acordo",
}

// SheetRow is one record assigned to a work sheet. Folha is the 1-based
// sheet index.
type SheetRow struct {
	Record
	Folha int `json:"folha"`
}

// GenerationRequest describes one work-sheet generation run.
type GenerationRequest struct {
	Mode         PartitionMode    `json:"mode"`
	Value        string           `json:"value,omitempty"`
	CILs         []string         `json:"cils,omitempty"`
	Criterion    *CriterionFilter `json:"criterion,omitempty"`
	MaxSheets    int              `json:"max_sheets"`
	NIBsPerSheet int              `json:"nibs_per_sheet"`
}

// GenerationResult is the outcome of a committed generation run. Rows
// carries every sheet concatenated; sheets exist only in memory.
type GenerationResult struct {
	SheetCount    int        `json:"sheet_count"`
	DistinctNIBs  int        `json:"distinct_nibs"`
	UpdatedRows   int        `json:"updated_rows"`
	Rows          []SheetRow `json:"rows"`
	UnmatchedCILs []string   `json:"unmatched_cils,omitempty"`
}

// GenerationPreview is the dry-run variant: same selection, no mutation.
type GenerationPreview struct {
	TotalRecords   int        `json:"total_records"`
	DistinctNIBs   int        `json:"distinct_nibs"`
	PossibleSheets int        `json:"possible_sheets"`
	SheetsToCreate int        `json:"sheets_to_create"`
	Sample         []SheetRow `json:"sample,omitempty"`
	UnmatchedCILs  []string   `json:"unmatched_cils,omitempty"`
}

// GenerationLog is one audit row written after a committed run.
type GenerationLog struct {
	ID          int       `json:"id" db:"id"`
	Usuario     string    `json:"usuario" db:"usuario"`
	Tipo        string    `json:"tipo" db:"tipo"`
	Valor       string    `json:"valor" db:"valor"`
	Criterio    string    `json:"criterio" db:"criterio"`
	SheetCount  int       `json:"quantidade_folhas" db:"quantidade_folhas"`
	RecordCount int       `json:"quantidade_registros" db:"quantidade_registros"`
	CreatedAt   time.Time `json:"data_geracao" db:"data_geracao"`
}
