package repository

import (
	"context"

	"github.com/field-worksheet-api/internal/database"
	"github.com/field-worksheet-api/internal/models"
)

// genLogRepo is the concrete implementation of GenerationLogRepository
type genLogRepo struct {
	db *database.DB
}

// NewGenerationLogRepo creates a new generation-log repository
func NewGenerationLogRepo(db *database.DB) GenerationLogRepository {
	return &genLogRepo{db: db}
}

// Insert appends one audit entry
func (r *genLogRepo) Insert(ctx context.Context, entry *models.GenerationLog) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO generation_log (usuario, tipo, valor, criterio, quantidade_folhas, quantidade_registros)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, data_geracao
	`, entry.Usuario, entry.Tipo, entry.Valor, entry.Criterio, entry.SheetCount, entry.RecordCount).
		Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return models.NewStorageError("generation log insert", err)
	}
	return nil
}

// Recent returns the newest entries, most recent first
func (r *genLogRepo) Recent(ctx context.Context, limit int) ([]*models.GenerationLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, usuario, tipo, valor, criterio, quantidade_folhas, quantidade_registros, data_geracao
		FROM generation_log
		ORDER BY data_geracao DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, models.NewStorageError("generation log query", err)
	}
	defer rows.Close()

	var entries []*models.GenerationLog
	for rows.Next() {
		var e models.GenerationLog
		if err := rows.Scan(&e.ID, &e.Usuario, &e.Tipo, &e.Valor, &e.Criterio,
			&e.SheetCount, &e.RecordCount, &e.CreatedAt); err != nil {
			return nil, models.NewStorageError("generation log scan", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
