package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"tosho/internal/assets"
)

// ReplaceSeries upserts a scanned series and rebuilds its chapters and
// pages in one transaction. The series row is keyed by slug so its ID, and
// any reading progress attached to it, survives rescans.
func (s *Store) ReplaceSeries(ctx context.Context, record SeriesRecord) (int64, error) {
	if strings.TrimSpace(record.Slug) == "" {
		return 0, errors.New("catalog: series record missing slug")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin replace tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var seriesID int64
	err = tx.QueryRowContext(ctx, "SELECT id FROM series WHERE slug = ?", record.Slug).Scan(&seriesID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, insertErr := tx.ExecContext(ctx,
			"INSERT INTO series (slug, title, path, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
			record.Slug, record.Title, record.Path, now, now)
		if insertErr != nil {
			return 0, fmt.Errorf("insert series: %w", insertErr)
		}
		seriesID, err = res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("series insert id: %w", err)
		}
	case err != nil:
		return 0, fmt.Errorf("lookup series: %w", err)
	default:
		if _, err := tx.ExecContext(ctx,
			"UPDATE series SET title = ?, path = ?, updated_at = ? WHERE id = ?",
			record.Title, record.Path, now, seriesID); err != nil {
			return 0, fmt.Errorf("update series: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM chapters WHERE series_id = ?", seriesID); err != nil {
		return 0, fmt.Errorf("clear chapters: %w", err)
	}

	for sortIndex, chapter := range record.Chapters {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO chapters (series_id, title, number, sort_index, page_count) VALUES (?, ?, ?, ?, ?)",
			seriesID, chapter.Title, chapter.Number, sortIndex, len(chapter.Pages))
		if err != nil {
			return 0, fmt.Errorf("insert chapter %q: %w", chapter.Title, err)
		}
		chapterID, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("chapter insert id: %w", err)
		}
		for _, page := range chapter.Pages {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO pages (chapter_id, page_index, source_kind, source_path, source_member) VALUES (?, ?, ?, ?, ?)",
				chapterID, page.Index, string(page.Ref.Kind), page.Ref.Path, page.Ref.Member); err != nil {
				return 0, fmt.Errorf("insert page %d of %q: %w", page.Index, chapter.Title, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit replace: %w", err)
	}
	return seriesID, nil
}

// PruneSeries deletes every series whose slug is not in keep. The scanner
// calls this after a full walk so removed directories leave the catalog.
func (s *Store) PruneSeries(ctx context.Context, keep []string) (int64, error) {
	keepSet := make(map[string]struct{}, len(keep))
	for _, slug := range keep {
		keepSet[slug] = struct{}{}
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id, slug FROM series")
	if err != nil {
		return 0, fmt.Errorf("list series for prune: %w", err)
	}
	defer rows.Close()

	var victims []int64
	for rows.Next() {
		var id int64
		var slug string
		if err := rows.Scan(&id, &slug); err != nil {
			return 0, fmt.Errorf("scan series row: %w", err)
		}
		if _, kept := keepSet[slug]; !kept {
			victims = append(victims, id)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate series: %w", err)
	}

	var pruned int64
	for _, id := range victims {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM series WHERE id = ?", id); err != nil {
			return pruned, fmt.Errorf("delete series %d: %w", id, err)
		}
		pruned++
	}
	return pruned, nil
}

// ListSeries returns all series ordered by title.
func (s *Store) ListSeries(ctx context.Context) ([]Series, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT s.id, s.slug, s.title, s.path, s.updated_at,
               (SELECT COUNT(1) FROM chapters c WHERE c.series_id = s.id)
        FROM series s ORDER BY s.title`)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	defer rows.Close()

	var out []Series
	for rows.Next() {
		series, err := scanSeries(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, series)
	}
	return out, rows.Err()
}

// GetSeries returns one series by ID.
func (s *Store) GetSeries(ctx context.Context, id int64) (Series, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT s.id, s.slug, s.title, s.path, s.updated_at,
               (SELECT COUNT(1) FROM chapters c WHERE c.series_id = s.id)
        FROM series s WHERE s.id = ?`, id)
	series, err := scanSeries(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Series{}, fmt.Errorf("%w: series %d", ErrNotFound, id)
	}
	return series, err
}

// ListChapters returns a series' chapters in reading order. A missing
// series is ErrNotFound.
func (s *Store) ListChapters(ctx context.Context, seriesID int64) ([]Chapter, error) {
	if _, err := s.GetSeries(ctx, seriesID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, series_id, title, number, sort_index, page_count
        FROM chapters WHERE series_id = ? ORDER BY sort_index`, seriesID)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	defer rows.Close()

	var out []Chapter
	for rows.Next() {
		var chapter Chapter
		if err := rows.Scan(&chapter.ID, &chapter.SeriesID, &chapter.Title, &chapter.Number,
			&chapter.SortIndex, &chapter.PageCount); err != nil {
			return nil, fmt.Errorf("scan chapter row: %w", err)
		}
		out = append(out, chapter)
	}
	return out, rows.Err()
}

// Locate maps a page coordinate to its source reference. Pages are 1-based
// within a chapter. Any missing link in series -> chapter -> page is
// ErrNotFound.
func (s *Store) Locate(ctx context.Context, seriesID, chapterID int64, page int) (assets.SourceRef, error) {
	var kind, path, member string
	err := s.db.QueryRowContext(ctx, `
        SELECT p.source_kind, p.source_path, p.source_member
        FROM pages p
        JOIN chapters c ON c.id = p.chapter_id
        WHERE c.series_id = ? AND p.chapter_id = ? AND p.page_index = ?`,
		seriesID, chapterID, page).Scan(&kind, &path, &member)
	if errors.Is(err, sql.ErrNoRows) {
		return assets.SourceRef{}, fmt.Errorf("%w: series %d chapter %d page %d", ErrNotFound, seriesID, chapterID, page)
	}
	if err != nil {
		return assets.SourceRef{}, fmt.Errorf("locate page: %w", err)
	}
	return assets.SourceRef{Kind: assets.SourceKind(kind), Path: path, Member: member}, nil
}

// CoverRef returns the first page of a series' first chapter, used as the
// series cover.
func (s *Store) CoverRef(ctx context.Context, seriesID int64) (assets.SourceRef, error) {
	var kind, path, member string
	err := s.db.QueryRowContext(ctx, `
        SELECT p.source_kind, p.source_path, p.source_member
        FROM pages p
        JOIN chapters c ON c.id = p.chapter_id
        WHERE c.series_id = ?
        ORDER BY c.sort_index, p.page_index LIMIT 1`, seriesID).Scan(&kind, &path, &member)
	if errors.Is(err, sql.ErrNoRows) {
		return assets.SourceRef{}, fmt.Errorf("%w: series %d has no pages", ErrNotFound, seriesID)
	}
	if err != nil {
		return assets.SourceRef{}, fmt.Errorf("locate cover: %w", err)
	}
	return assets.SourceRef{Kind: assets.SourceKind(kind), Path: path, Member: member}, nil
}

// Counts reports library totals for status output.
func (s *Store) Counts(ctx context.Context) (seriesCount, chapterCount, pageCount int64, err error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT (SELECT COUNT(1) FROM series),
               (SELECT COUNT(1) FROM chapters),
               (SELECT COUNT(1) FROM pages)`)
	if err := row.Scan(&seriesCount, &chapterCount, &pageCount); err != nil {
		return 0, 0, 0, fmt.Errorf("count catalog: %w", err)
	}
	return seriesCount, chapterCount, pageCount, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSeries(row rowScanner) (Series, error) {
	var series Series
	var updatedAt string
	if err := row.Scan(&series.ID, &series.Slug, &series.Title, &series.Path, &updatedAt, &series.ChapterCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Series{}, err
		}
		return Series{}, fmt.Errorf("scan series row: %w", err)
	}
	if ts, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		series.UpdatedAt = ts
	}
	return series, nil
}
