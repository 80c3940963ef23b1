package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Oxyrus/virtualtourist/internal/storage"
)

type photoRepository struct {
	db *sql.DB
}

func (r *photoRepository) Create(ctx context.Context, input storage.PhotoCreate) (storage.Photo, error) {
	if len(input.Image) == 0 {
		return storage.Photo{}, fmt.Errorf("sqlite: create photo: image must not be empty")
	}

	now := time.Now().UTC()

	var takenAt sql.NullTime
	if input.TakenAt != nil {
		utc := input.TakenAt.UTC()
		takenAt = sql.NullTime{Time: utc, Valid: true}
	}

	var thumbnail any
	if len(input.Thumbnail) > 0 {
		thumbnail = input.Thumbnail
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO photos (pin_id, position, source_id, image, thumbnail, taken_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		input.PinID,
		input.Position,
		input.SourceID,
		input.Image,
		thumbnail,
		takenAt,
		now,
	)
	if err != nil {
		return storage.Photo{}, fmt.Errorf("sqlite: create photo: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return storage.Photo{}, fmt.Errorf("sqlite: create photo: %w", err)
	}

	return r.GetByID(ctx, id)
}

func (r *photoRepository) GetByID(ctx context.Context, id int64) (storage.Photo, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, pin_id, position, source_id, image, thumbnail, taken_at, created_at
		FROM photos
		WHERE id = ?`,
		id,
	)
	return scanPhoto(row)
}

func (r *photoRepository) ListByPin(ctx context.Context, pinID int64) ([]storage.Photo, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, pin_id, position, source_id, image, thumbnail, taken_at, created_at
		FROM photos
		WHERE pin_id = ?
		ORDER BY position, created_at, id`,
		pinID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list photos: %w", err)
	}
	defer rows.Close()

	var result []storage.Photo
	for rows.Next() {
		photo, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, photo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list photos: %w", err)
	}

	return result, nil
}

func (r *photoRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM photos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete photo: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: delete photo: %w", err)
	}

	if rowsAffected == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (r *photoRepository) DeleteByPin(ctx context.Context, pinID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM photos WHERE pin_id = ?`, pinID)
	if err != nil {
		return 0, fmt.Errorf("sqlite: delete pin photos: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: delete pin photos: %w", err)
	}

	return rowsAffected, nil
}

type photoScanner interface {
	Scan(dest ...any) error
}

func scanPhoto(s photoScanner) (storage.Photo, error) {
	var (
		photo        storage.Photo
		takenAtRaw   sql.NullTime
		createdAtRaw time.Time
	)

	err := s.Scan(
		&photo.ID,
		&photo.PinID,
		&photo.Position,
		&photo.SourceID,
		&photo.Image,
		&photo.Thumbnail,
		&takenAtRaw,
		&createdAtRaw,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return storage.Photo{}, storage.ErrNotFound
		}
		return storage.Photo{}, fmt.Errorf("sqlite: scan photo: %w", err)
	}

	if takenAtRaw.Valid {
		t := takenAtRaw.Time.UTC()
		photo.TakenAt = &t
	}

	photo.CreatedAt = createdAtRaw.UTC()

	return photo, nil
}
