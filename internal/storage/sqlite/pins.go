package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Oxyrus/virtualtourist/internal/storage"
)

type pinRepository struct {
	db *sql.DB
}

func (r *pinRepository) Create(ctx context.Context, input storage.PinCreate) (storage.Pin, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO pins (latitude, longitude, current_page, created_at, updated_at)
		VALUES (?, ?, 1, ?, ?)`,
		input.Latitude,
		input.Longitude,
		now,
		now,
	)
	if err != nil {
		return storage.Pin{}, fmt.Errorf("sqlite: create pin: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return storage.Pin{}, fmt.Errorf("sqlite: create pin: %w", err)
	}

	return r.GetByID(ctx, id)
}

func (r *pinRepository) GetByID(ctx context.Context, id int64) (storage.Pin, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, latitude, longitude, current_page, created_at, updated_at
		FROM pins
		WHERE id = ?`,
		id,
	)
	return scanPin(row)
}

func (r *pinRepository) List(ctx context.Context) ([]storage.Pin, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, latitude, longitude, current_page, created_at, updated_at
		FROM pins
		ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list pins: %w", err)
	}
	defer rows.Close()

	var result []storage.Pin
	for rows.Next() {
		pin, err := scanPin(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, pin)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list pins: %w", err)
	}

	return result, nil
}

func (r *pinRepository) AdvancePage(ctx context.Context, id int64) (storage.Pin, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE pins
		SET current_page = current_page + 1, updated_at = ?
		WHERE id = ?`,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return storage.Pin{}, fmt.Errorf("sqlite: advance pin page: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return storage.Pin{}, fmt.Errorf("sqlite: advance pin page: %w", err)
	}

	if rowsAffected == 0 {
		return storage.Pin{}, storage.ErrNotFound
	}

	return r.GetByID(ctx, id)
}

func (r *pinRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM pins WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete pin: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: delete pin: %w", err)
	}

	if rowsAffected == 0 {
		return storage.ErrNotFound
	}

	return nil
}

type pinScanner interface {
	Scan(dest ...any) error
}

func scanPin(s pinScanner) (storage.Pin, error) {
	var (
		pin          storage.Pin
		createdAtRaw time.Time
		updatedAtRaw time.Time
	)

	err := s.Scan(
		&pin.ID,
		&pin.Latitude,
		&pin.Longitude,
		&pin.CurrentPage,
		&createdAtRaw,
		&updatedAtRaw,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return storage.Pin{}, storage.ErrNotFound
		}
		return storage.Pin{}, fmt.Errorf("sqlite: scan pin: %w", err)
	}

	pin.CreatedAt = createdAtRaw.UTC()
	pin.UpdatedAt = updatedAtRaw.UTC()

	return pin, nil
}
