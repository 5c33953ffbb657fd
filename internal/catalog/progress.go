package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// UpsertProgress records the reader's position in a series, replacing any
// earlier position. The series must exist; the chapter and page are stored
// as given since a rescan may renumber chapters under the reader.
func (s *Store) UpsertProgress(ctx context.Context, seriesID, chapterID int64, page int) error {
	if _, err := s.GetSeries(ctx, seriesID); err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO progress (series_id, chapter_id, page, updated_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(series_id) DO UPDATE SET
            chapter_id = excluded.chapter_id,
            page = excluded.page,
            updated_at = excluded.updated_at`,
		seriesID, chapterID, page, now)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

// GetProgress returns the saved position for a series, or ErrNotFound when
// none has been recorded.
func (s *Store) GetProgress(ctx context.Context, seriesID int64) (Progress, error) {
	var p Progress
	var updatedAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT series_id, chapter_id, page, updated_at FROM progress WHERE series_id = ?",
		seriesID).Scan(&p.SeriesID, &p.ChapterID, &p.Page, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Progress{}, fmt.Errorf("%w: no progress for series %d", ErrNotFound, seriesID)
	}
	if err != nil {
		return Progress{}, fmt.Errorf("get progress: %w", err)
	}
	if ts, parseErr := time.Parse(time.RFC3339Nano, updatedAt); parseErr == nil {
		p.UpdatedAt = ts
	}
	return p, nil
}

// ListProgress returns all saved positions, most recently updated first.
func (s *Store) ListProgress(ctx context.Context) ([]Progress, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT series_id, chapter_id, page, updated_at FROM progress ORDER BY updated_at DESC")
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	var out []Progress
	for rows.Next() {
		var p Progress
		var updatedAt string
		if err := rows.Scan(&p.SeriesID, &p.ChapterID, &p.Page, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan progress row: %w", err)
		}
		if ts, parseErr := time.Parse(time.RFC3339Nano, updatedAt); parseErr == nil {
			p.UpdatedAt = ts
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteProgress clears the saved position for a series.
func (s *Store) DeleteProgress(ctx context.Context, seriesID int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM progress WHERE series_id = ?", seriesID)
	if err != nil {
		return fmt.Errorf("delete progress: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete progress rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: no progress for series %d", ErrNotFound, seriesID)
	}
	return nil
}
