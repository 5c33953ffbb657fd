package api

import (
	"context"

	"tosho/internal/catalog"
)

// LibraryService adapts the catalog store to the wire types the HTTP
// handlers and the CLI share.
type LibraryService struct {
	store *catalog.Store
}

// NewLibraryService wraps a catalog store.
func NewLibraryService(store *catalog.Store) *LibraryService {
	return &LibraryService{store: store}
}

// ListSeries returns all series as views.
func (s *LibraryService) ListSeries(ctx context.Context) ([]SeriesView, error) {
	series, err := s.store.ListSeries(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]SeriesView, 0, len(series))
	for _, item := range series {
		views = append(views, seriesView(item))
	}
	return views, nil
}

// DescribeSeries returns one series with its chapters.
func (s *LibraryService) DescribeSeries(ctx context.Context, id int64) (SeriesDetail, error) {
	series, err := s.store.GetSeries(ctx, id)
	if err != nil {
		return SeriesDetail{}, err
	}
	chapters, err := s.store.ListChapters(ctx, id)
	if err != nil {
		return SeriesDetail{}, err
	}
	views := make([]ChapterView, 0, len(chapters))
	for _, chapter := range chapters {
		views = append(views, ChapterView{
			ID:        chapter.ID,
			Title:     chapter.Title,
			Number:    chapter.Number,
			PageCount: chapter.PageCount,
		})
	}
	return SeriesDetail{Series: seriesView(series), Chapters: views}, nil
}

// GetProgress returns the saved position for a series.
func (s *LibraryService) GetProgress(ctx context.Context, seriesID int64) (ProgressView, error) {
	progress, err := s.store.GetProgress(ctx, seriesID)
	if err != nil {
		return ProgressView{}, err
	}
	return progressView(progress), nil
}

// ListProgress returns every saved position, newest first.
func (s *LibraryService) ListProgress(ctx context.Context) ([]ProgressView, error) {
	progress, err := s.store.ListProgress(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]ProgressView, 0, len(progress))
	for _, item := range progress {
		views = append(views, progressView(item))
	}
	return views, nil
}

// SaveProgress records a reading position for a series.
func (s *LibraryService) SaveProgress(ctx context.Context, seriesID int64, update ProgressUpdate) error {
	return s.store.UpsertProgress(ctx, seriesID, update.ChapterID, update.Page)
}

// ClearProgress removes the saved position for a series.
func (s *LibraryService) ClearProgress(ctx context.Context, seriesID int64) error {
	return s.store.DeleteProgress(ctx, seriesID)
}

func seriesView(series catalog.Series) SeriesView {
	return SeriesView{
		ID:           series.ID,
		Slug:         series.Slug,
		Title:        series.Title,
		ChapterCount: series.ChapterCount,
		UpdatedAt:    series.UpdatedAt,
	}
}

func progressView(progress catalog.Progress) ProgressView {
	return ProgressView{
		SeriesID:  progress.SeriesID,
		ChapterID: progress.ChapterID,
		Page:      progress.Page,
		UpdatedAt: progress.UpdatedAt,
	}
}
