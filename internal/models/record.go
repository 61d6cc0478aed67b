package models

import (
	"strings"
)

// RecordColumnCount is the number of positional columns an import file
// must carry. Files with fewer columns are rejected.
const RecordColumnCount = 31

// StateInProgress is the only estado value with behavioral meaning: a
// record already assigned to a work sheet. Empty means "available".
const StateInProgress = "prog"

// Record is one billable meter/account entry. Most columns are opaque
// payload; the generator only inspects cil, nib, seq, pt, localidade,
// estado and the criterion columns.
type Record struct {
	CIL         string   `json:"cil" db:"cil"`
	Prod        string   `json:"prod" db:"prod"`
	Contador    string   `json:"contador" db:"contador"`
	Leitura     string   `json:"leitura" db:"leitura"`
	MatContador string   `json:"mat_contador" db:"mat_contador"`
	MedFat      string   `json:"med_fat" db:"med_fat"`
	Qtd         float64  `json:"qtd" db:"qtd"`
	Valor       float64  `json:"valor" db:"valor"`
	Situacao    string   `json:"situacao" db:"situacao"`
	Acordo      string   `json:"acordo" db:"acordo"`
	NIB         string   `json:"nib" db:"nib"`
	Seq         string   `json:"seq" db:"seq"`
	Localidade  string   `json:"localidade" db:"localidade"`
	PT          string   `json:"pt" db:"pt"`
	Desv        string   `json:"desv" db:"desv"`
	MatLeitura  string   `json:"mat_leitura" db:"mat_leitura"`
	DescUni     string   `json:"desc_uni" db:"desc_uni"`
	EstContr    string   `json:"est_contr" db:"est_contr"`
	Anomalia    string   `json:"anomalia" db:"anomalia"`
	ExternalID  string   `json:"id" db:"id"`
	Produto     string   `json:"produto" db:"produto"`
	Nome        string   `json:"nome" db:"nome"`
	Criterio    string   `json:"criterio" db:"criterio"`
	DescTpCli   string   `json:"desc_tp_cli" db:"desc_tp_cli"`
	Tip         string   `json:"tip" db:"tip"`
	SitDiv      string   `json:"sit_div" db:"sit_div"`
	Modelo      string   `json:"modelo" db:"modelo"`
	Lat         *float64 `json:"lat,omitempty" db:"lat"`
	Long        *float64 `json:"long,omitempty" db:"long"`
	EstInspec   string   `json:"est_inspec" db:"est_inspec"`
	Estado      string   `json:"estado" db:"estado"`
}

// InProgress reports whether the record is already assigned to a sheet.
func (r *Record) InProgress() bool {
	return strings.ToLower(strings.TrimSpace(r.Estado)) == StateInProgress
}

// PartitionMode selects how eligible records are scoped for generation
// and reset.
type PartitionMode string

const (
	ModePT         PartitionMode = "PT"
	ModeLocalidade PartitionMode = "LOCALIDADE"
	ModeAvulso     PartitionMode = "AVULSO"
)

// Valid reports whether the mode is one of the three known modes.
func (m PartitionMode) Valid() bool {
	switch m {
	case ModePT, ModeLocalidade, ModeAvulso:
		return true
	}
	return false
}

// PartitionColumn returns the records column the mode filters on.
// AVULSO has no partition column.
func (m PartitionMode) PartitionColumn() string {
	switch m {
	case ModePT:
		return "pt"
	case ModeLocalidade:
		return "localidade"
	}
	return ""
}

// CriterionColumn is a closed enumeration of the classifier columns a
// caller may filter on. Mapping caller input through this enum keeps
// column names out of reach of query interpolation.
type CriterionColumn string

const (
	CriterionCriterio  CriterionColumn = "Criterio"
	CriterionAnomalia  CriterionColumn = "Anomalia"
	CriterionDescTpCli CriterionColumn = "DESC_TP_CLI"
	CriterionEstContr  CriterionColumn = "EST_CTR"
	CriterionSitDiv    CriterionColumn = "sit_div"
	CriterionDesv      CriterionColumn = "desv"
	CriterionEstInspec CriterionColumn = "est_inspec"
)

var criterionColumns = map[CriterionColumn]string{
	CriterionCriterio:  "criterio",
	CriterionAnomalia:  "anomalia",
	CriterionDescTpCli: "desc_tp_cli",
	CriterionEstContr:  "est_contr",
	CriterionSitDiv:    "sit_div",
	CriterionDesv:      "desv",
	CriterionEstInspec: "est_inspec",
}

// SQLName returns the records column identifier for the criterion, or
// false when the criterion is not part of the enumeration.
func (c CriterionColumn) SQLName() (string, bool) {
	name, ok := criterionColumns[c]
	return name, ok
}

// ParseCriterionColumn resolves caller input to a known criterion column.
func ParseCriterionColumn(s string) (CriterionColumn, bool) {
	c := CriterionColumn(s)
	if _, ok := criterionColumns[c]; ok {
		return c, true
	}
	return "", false
}

// FilterColumn is the closed set of columns distinct-value reads may
// target: the two partition columns plus every criterion column.
type FilterColumn string

var filterColumns = map[FilterColumn]string{
	"pt":          "pt",
	"localidade":  "localidade",
	"criterio":    "criterio",
	"anomalia":    "anomalia",
	"desc_tp_cli": "desc_tp_cli",
	"est_ctr":     "est_contr",
	"sit_div":     "sit_div",
	"desv":        "desv",
	"est_inspec":  "est_inspec",
}

// ParseFilterColumn resolves caller input (case-insensitive) to a known
// filter column.
func ParseFilterColumn(s string) (FilterColumn, bool) {
	c := FilterColumn(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := filterColumns[c]; ok {
		return c, true
	}
	return "", false
}

// SQLName returns the records column identifier for the filter column.
func (c FilterColumn) SQLName() (string, bool) {
	name, ok := filterColumns[c]
	return name, ok
}

// CriterionFilter is an eligibility filter on one classifier column.
type CriterionFilter struct {
	Column CriterionColumn `json:"column"`
	Value  string          `json:"value"`
}

// EligibilityFilter describes which records a generation or reset run
// touches. For PT/LOCALIDADE, Value names the partition; for AVULSO,
// CILs carries the explicit id list and Criterion is ignored.
type EligibilityFilter struct {
	Mode      PartitionMode
	Value     string
	CILs      []string
	Criterion *CriterionFilter
}

// ImportResult summarizes a completed import.
type ImportResult struct {
	TotalRows     int `json:"total_rows"`
	SkippedRows   int `json:"skipped_rows"`
	PreservedRows int `json:"preserved_rows"`
}

// RecordStats is the dashboard summary over the whole records table.
type RecordStats struct {
	TotalRecords      int     `json:"total_records"`
	DistinctCILs      int     `json:"distinct_cils"`
	DistinctPTs       int     `json:"distinct_pts"`
	DistinctLocations int     `json:"distinct_localidades"`
	DistinctNIBs      int     `json:"distinct_nibs"`
	InProgress        int     `json:"in_progress"`
	TotalQtd          float64 `json:"total_qtd"`
	TotalValor        float64 `json:"total_valor"`
	AvgQtd            float64 `json:"avg_qtd"`
	AvgValor          float64 `json:"avg_valor"`
}

// PTProgress is per-PT completion for the operational report.
type PTProgress struct {
	PT          string  `json:"pt"`
	Total       int     `json:"total_registros"`
	InProgress  int     `json:"em_progresso"`
	ProgressPct float64 `json:"percentual_progresso"`
	TotalValor  float64 `json:"valor_total"`
	AvgValor    float64 `json:"valor_medio"`
}

// LocalityValue ranks a locality by billed value.
type LocalityValue struct {
	Localidade string  `json:"localidade"`
	Total      int     `json:"total_registros"`
	TotalValor float64 `json:"valor_total"`
	AvgValor   float64 `json:"valor_medio"`
}

// GeoPoint is one coordinate cluster for the density map.
type GeoPoint struct {
	Lat        float64 `json:"lat"`
	Long       float64 `json:"long"`
	Density    int     `json:"densidade"`
	TotalValor float64 `json:"valor_total"`
}

// CriterionSlice is the per-value breakdown of one criterion column.
type CriterionSlice struct {
	Value      string  `json:"value"`
	Count      int     `json:"quantidade"`
	TotalValor float64 `json:"total_valor"`
	AvgValor   float64 `json:"valor_medio"`
}
