package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/field-worksheet-api/internal/database"
	"github.com/field-worksheet-api/internal/models"
	"github.com/lib/pq"
)

// recordColumns is the physical column order of the records table,
// matching the positional import schema.
var recordColumns = []string{
	"cil", "prod", "contador", "leitura", "mat_contador",
	"med_fat", "qtd", "valor", "situacao", "acordo",
	"nib", "seq", "localidade", "pt", "desv",
	"mat_leitura", "desc_uni", "est_contr", "anomalia", "id",
	"produto", "nome", "criterio", "desc_tp_cli", "tip",
	"sit_div", "modelo", "lat", "long", "est_inspec",
	"estado",
}

// notInProgress is the SQL guard excluding rows already assigned to a
// sheet. COALESCE keeps NULL estado rows eligible.
const notInProgress = "COALESCE(LOWER(BTRIM(estado)), '') != 'prog'"

// recordRepo is the concrete implementation of RecordRepository
type recordRepo struct {
	db *database.DB
}

// NewRecordRepo creates a new record repository
func NewRecordRepo(db *database.DB) RecordRepository {
	return &recordRepo{db: db}
}

// ReplaceAll loads the dataset into a staging table via COPY, copies the
// in-progress flag forward by cil, then swaps the staging table in for
// the live one. Postgres transactional DDL makes the whole sequence
// atomic: concurrent readers see either the old table or the new one.
func (r *recordRepo) ReplaceAll(ctx context.Context, records []*models.Record) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, models.NewStorageError("import", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS records_staging"); err != nil {
		return 0, models.NewStorageError("import", err)
	}
	if _, err := tx.ExecContext(ctx, "CREATE TABLE records_staging (LIKE records INCLUDING DEFAULTS)"); err != nil {
		return 0, models.NewStorageError("import", err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("records_staging", recordColumns...))
	if err != nil {
		return 0, models.NewStorageError("import", err)
	}
	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx,
			rec.CIL, rec.Prod, rec.Contador, rec.Leitura, rec.MatContador,
			rec.MedFat, rec.Qtd, rec.Valor, rec.Situacao, rec.Acordo,
			rec.NIB, rec.Seq, rec.Localidade, rec.PT, rec.Desv,
			rec.MatLeitura, rec.DescUni, rec.EstContr, rec.Anomalia, rec.ExternalID,
			rec.Produto, rec.Nome, rec.Criterio, rec.DescTpCli, rec.Tip,
			rec.SitDiv, rec.Modelo, rec.Lat, rec.Long, rec.EstInspec,
			rec.Estado,
		); err != nil {
			stmt.Close()
			return 0, models.NewStorageError("import", err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return 0, models.NewStorageError("import", err)
	}
	if err := stmt.Close(); err != nil {
		return 0, models.NewStorageError("import", err)
	}

	// A record already handed to a field technician keeps its assignment
	// across the refresh, whatever the new file says.
	res, err := tx.ExecContext(ctx, `
		UPDATE records_staging AS new
		SET estado = 'prog'
		FROM records AS old
		WHERE new.cil = old.cil AND LOWER(BTRIM(old.estado)) = 'prog'
	`)
	if err != nil {
		return 0, models.NewStorageError("import", err)
	}
	preserved, _ := res.RowsAffected()

	if _, err := tx.ExecContext(ctx, "DROP TABLE records"); err != nil {
		return 0, models.NewStorageError("import", err)
	}
	if _, err := tx.ExecContext(ctx, "ALTER TABLE records_staging RENAME TO records"); err != nil {
		return 0, models.NewStorageError("import", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, models.NewStorageError("import", err)
	}
	return int(preserved), nil
}

// eligibilityConditions builds the WHERE conditions for a filter. The
// criterion and partition columns come from closed enumerations, never
// from caller strings.
func eligibilityConditions(filter models.EligibilityFilter, args *[]interface{}) ([]string, error) {
	var conds []string

	if filter.Mode == models.ModeAvulso {
		// Ad-hoc mode deliberately ignores the criterion filter and the
		// in-progress guard: any record matching a requested cil is
		// eligible, as a reprocessing override.
		*args = append(*args, pq.Array(filter.CILs))
		conds = append(conds, fmt.Sprintf("cil = ANY($%d)", len(*args)))
		return conds, nil
	}

	conds = append(conds, notInProgress)

	if filter.Criterion != nil && filter.Criterion.Value != "" {
		col, ok := filter.Criterion.Column.SQLName()
		if !ok {
			return nil, models.NewValidationError(fmt.Sprintf("unknown criterion column %q", filter.Criterion.Column))
		}
		*args = append(*args, strings.ToUpper(strings.TrimSpace(filter.Criterion.Value)))
		conds = append(conds, fmt.Sprintf("UPPER(BTRIM(%s)) = $%d", col, len(*args)))
	}

	if filter.Value != "" {
		col := filter.Mode.PartitionColumn()
		if col == "" {
			return nil, models.NewValidationError(fmt.Sprintf("unknown partition mode %q", filter.Mode))
		}
		*args = append(*args, strings.ToUpper(strings.TrimSpace(filter.Value)))
		conds = append(conds, fmt.Sprintf("UPPER(BTRIM(%s)) = $%d", col, len(*args)))
	}

	return conds, nil
}

// SelectEligible returns the records matching the filter in the
// deterministic field-operation order: seq first with blanks last, then
// nib with blanks last.
func (r *recordRepo) SelectEligible(ctx context.Context, filter models.EligibilityFilter) ([]*models.Record, error) {
	var args []interface{}
	conds, err := eligibilityConditions(filter, &args)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT %s FROM records
		WHERE %s
		ORDER BY
			CASE WHEN seq IS NULL OR BTRIM(seq) = '' THEN 1 ELSE 0 END, seq,
			CASE WHEN nib IS NULL OR BTRIM(nib) = '' THEN 1 ELSE 0 END, nib
	`, selectList(), strings.Join(conds, " AND "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, models.NewStorageError("record query", err)
	}
	defer rows.Close()

	var records []*models.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, models.NewStorageError("record scan", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, models.NewStorageError("record query", err)
	}
	return records, nil
}

// MarkInProgress flags every eligible record with a nib in nibs as
// in progress. The filter conditions are re-applied so rows mutated by a
// concurrent run are neither double-counted nor overwritten. One
// transaction covers the whole batch: no half-marked state is visible.
func (r *recordRepo) MarkInProgress(ctx context.Context, nibs []string, filter models.EligibilityFilter) (int, error) {
	if len(nibs) == 0 {
		return 0, nil
	}

	args := []interface{}{pq.Array(nibs)}
	conds := []string{"nib = ANY($1)"}
	more, err := eligibilityConditions(filter, &args)
	if err != nil {
		return 0, err
	}
	conds = append(conds, more...)

	query := fmt.Sprintf("UPDATE records SET estado = 'prog' WHERE %s", strings.Join(conds, " AND "))

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, models.NewStorageError("sheet update", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, models.NewStorageError("sheet update", err)
	}
	affected, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, models.NewStorageError("sheet update", err)
	}
	return int(affected), nil
}

// ResetState clears the in-progress flag. PT/LOCALIDADE scope the reset
// to one partition; AVULSO is the global escape hatch.
func (r *recordRepo) ResetState(ctx context.Context, mode models.PartitionMode, value string) (int, error) {
	var (
		query string
		args  []interface{}
	)
	switch mode {
	case models.ModePT, models.ModeLocalidade:
		query = fmt.Sprintf(
			"UPDATE records SET estado = '' WHERE LOWER(BTRIM(estado)) = 'prog' AND UPPER(BTRIM(%s)) = $1",
			mode.PartitionColumn(),
		)
		args = append(args, strings.ToUpper(strings.TrimSpace(value)))
	case models.ModeAvulso:
		query = "UPDATE records SET estado = '' WHERE LOWER(BTRIM(estado)) = 'prog'"
	default:
		return 0, models.NewValidationError(fmt.Sprintf("unknown reset mode %q", mode))
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, models.NewStorageError("state reset", err)
	}
	affected, _ := res.RowsAffected()
	return int(affected), nil
}

// DistinctValues returns the distinct normalized values of a filter
// column, excluding blanks and textual NULL markers.
func (r *recordRepo) DistinctValues(ctx context.Context, column models.FilterColumn) ([]string, error) {
	col, ok := column.SQLName()
	if !ok {
		return nil, models.NewValidationError(fmt.Sprintf("unknown column %q", column))
	}

	query := fmt.Sprintf(`
		SELECT DISTINCT UPPER(BTRIM(%[1]s)) AS valor
		FROM records
		WHERE %[1]s IS NOT NULL
		AND BTRIM(%[1]s) != ''
		AND BTRIM(UPPER(%[1]s)) NOT IN ('NONE', 'NULL')
		ORDER BY valor
	`, col)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, models.NewStorageError("distinct values", err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, models.NewStorageError("distinct values", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// DistinctValueCounts maps each distinct value of a filter column to the
// number of still-available records carrying it.
func (r *recordRepo) DistinctValueCounts(ctx context.Context, column models.FilterColumn) (map[string]int, error) {
	col, ok := column.SQLName()
	if !ok {
		return nil, models.NewValidationError(fmt.Sprintf("unknown column %q", column))
	}

	query := fmt.Sprintf(`
		SELECT UPPER(BTRIM(%[1]s)) AS valor, COUNT(*) AS qtd
		FROM records
		WHERE %[1]s IS NOT NULL
		AND BTRIM(%[1]s) != ''
		AND %[2]s
		GROUP BY UPPER(BTRIM(%[1]s))
		ORDER BY valor
	`, col, notInProgress)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, models.NewStorageError("distinct counts", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			v string
			n int
		)
		if err := rows.Scan(&v, &n); err != nil {
			return nil, models.NewStorageError("distinct counts", err)
		}
		counts[v] = n
	}
	return counts, rows.Err()
}

// Count returns the total number of records
func (r *recordRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records").Scan(&count)
	return count, err
}

// Stats computes the dashboard summary in a single pass.
func (r *recordRepo) Stats(ctx context.Context) (*models.RecordStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(DISTINCT cil),
			COUNT(DISTINCT pt),
			COUNT(DISTINCT localidade),
			COUNT(DISTINCT nib),
			COALESCE(SUM(CASE WHEN LOWER(BTRIM(estado)) = 'prog' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(qtd), 0),
			COALESCE(SUM(valor), 0),
			COALESCE(AVG(qtd), 0),
			COALESCE(AVG(valor), 0)
		FROM records
	`
	var s models.RecordStats
	err := r.db.QueryRowContext(ctx, query).Scan(
		&s.TotalRecords, &s.DistinctCILs, &s.DistinctPTs, &s.DistinctLocations,
		&s.DistinctNIBs, &s.InProgress, &s.TotalQtd, &s.TotalValor,
		&s.AvgQtd, &s.AvgValor,
	)
	if err != nil {
		return nil, models.NewStorageError("stats", err)
	}
	return &s, nil
}

// PTProgress reports per-PT completion for partitions with more than 10
// records, largest first.
func (r *recordRepo) PTProgress(ctx context.Context) ([]models.PTProgress, error) {
	query := `
		SELECT
			UPPER(BTRIM(pt)),
			COUNT(*),
			SUM(CASE WHEN LOWER(BTRIM(estado)) = 'prog' THEN 1 ELSE 0 END),
			ROUND(SUM(CASE WHEN LOWER(BTRIM(estado)) = 'prog' THEN 1 ELSE 0 END) * 100.0 / COUNT(*), 2),
			COALESCE(SUM(valor), 0),
			COALESCE(AVG(valor), 0)
		FROM records
		WHERE pt IS NOT NULL AND BTRIM(pt) != ''
		GROUP BY UPPER(BTRIM(pt))
		HAVING COUNT(*) > 10
		ORDER BY COUNT(*) DESC
		LIMIT 15
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, models.NewStorageError("pt progress", err)
	}
	defer rows.Close()

	var out []models.PTProgress
	for rows.Next() {
		var p models.PTProgress
		if err := rows.Scan(&p.PT, &p.Total, &p.InProgress, &p.ProgressPct, &p.TotalValor, &p.AvgValor); err != nil {
			return nil, models.NewStorageError("pt progress", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// TopLocalities ranks localities by total billed value.
func (r *recordRepo) TopLocalities(ctx context.Context) ([]models.LocalityValue, error) {
	query := `
		SELECT
			UPPER(BTRIM(localidade)),
			COUNT(*),
			COALESCE(SUM(valor), 0),
			COALESCE(AVG(valor), 0)
		FROM records
		WHERE localidade IS NOT NULL AND BTRIM(localidade) != ''
		GROUP BY UPPER(BTRIM(localidade))
		ORDER BY SUM(valor) DESC
		LIMIT 15
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, models.NewStorageError("top localities", err)
	}
	defer rows.Close()

	var out []models.LocalityValue
	for rows.Next() {
		var l models.LocalityValue
		if err := rows.Scan(&l.Localidade, &l.Total, &l.TotalValor, &l.AvgValor); err != nil {
			return nil, models.NewStorageError("top localities", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// GeoDensity clusters records by exact coordinates for the density map.
func (r *recordRepo) GeoDensity(ctx context.Context) ([]models.GeoPoint, error) {
	query := `
		SELECT lat, long, COUNT(*), COALESCE(SUM(valor), 0)
		FROM records
		WHERE lat IS NOT NULL AND long IS NOT NULL
		AND lat != 0 AND long != 0
		GROUP BY lat, long
		HAVING COUNT(*) > 1
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, models.NewStorageError("geo density", err)
	}
	defer rows.Close()

	var out []models.GeoPoint
	for rows.Next() {
		var g models.GeoPoint
		if err := rows.Scan(&g.Lat, &g.Long, &g.Density, &g.TotalValor); err != nil {
			return nil, models.NewStorageError("geo density", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// CriterionBreakdown returns the per-value distribution of one filter
// column, optionally narrowed to a single value.
func (r *recordRepo) CriterionBreakdown(ctx context.Context, column models.FilterColumn, value string) ([]models.CriterionSlice, error) {
	col, ok := column.SQLName()
	if !ok {
		return nil, models.NewValidationError(fmt.Sprintf("unknown column %q", column))
	}

	query := fmt.Sprintf(`
		SELECT UPPER(BTRIM(%[1]s)), COUNT(*), COALESCE(SUM(valor), 0), COALESCE(AVG(valor), 0)
		FROM records
		WHERE %[1]s IS NOT NULL AND BTRIM(%[1]s) != ''
	`, col)

	var args []interface{}
	if value != "" {
		args = append(args, strings.ToUpper(strings.TrimSpace(value)))
		query += fmt.Sprintf(" AND UPPER(BTRIM(%s)) = $1", col)
	}
	query += fmt.Sprintf(" GROUP BY UPPER(BTRIM(%s)) ORDER BY COUNT(*) DESC, SUM(valor) DESC", col)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, models.NewStorageError("criterion breakdown", err)
	}
	defer rows.Close()

	var out []models.CriterionSlice
	for rows.Next() {
		var s models.CriterionSlice
		if err := rows.Scan(&s.Value, &s.Count, &s.TotalValor, &s.AvgValor); err != nil {
			return nil, models.NewStorageError("criterion breakdown", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// selectList builds the SELECT column list with text columns coalesced
// to empty strings so scans never hit NULL.
func selectList() string {
	cols := make([]string, len(recordColumns))
	for i, c := range recordColumns {
		switch c {
		case "qtd", "valor":
			cols[i] = fmt.Sprintf("COALESCE(%s, 0)", c)
		case "lat", "long":
			cols[i] = c
		default:
			cols[i] = fmt.Sprintf("COALESCE(%s, '')", c)
		}
	}
	return strings.Join(cols, ", ")
}

func scanRecord(rows *sql.Rows) (*models.Record, error) {
	var (
		rec       models.Record
		lat, long sql.NullFloat64
	)
	err := rows.Scan(
		&rec.CIL, &rec.Prod, &rec.Contador, &rec.Leitura, &rec.MatContador,
		&rec.MedFat, &rec.Qtd, &rec.Valor, &rec.Situacao, &rec.Acordo,
		&rec.NIB, &rec.Seq, &rec.Localidade, &rec.PT, &rec.Desv,
		&rec.MatLeitura, &rec.DescUni, &rec.EstContr, &rec.Anomalia, &rec.ExternalID,
		&rec.Produto, &rec.Nome, &rec.Criterio, &rec.DescTpCli, &rec.Tip,
		&rec.SitDiv, &rec.Modelo, &lat, &long, &rec.EstInspec,
		&rec.Estado,
	)
	if err != nil {
		return nil, err
	}
	if lat.Valid {
		rec.Lat = &lat.Float64
	}
	if long.Valid {
		rec.Long = &long.Float64
	}
	return &rec, nil
}
