package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"tosho/internal/assets"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenPath(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleSeries() SeriesRecord {
	return SeriesRecord{
		Slug:  "one-punch",
		Title: "One Punch",
		Path:  "/library/One Punch",
		Chapters: []ChapterRecord{
			{
				Title:  "Chapter 1",
				Number: 1,
				Pages: []PageRecord{
					{Index: 1, Ref: assets.ArchivedRef("/library/One Punch/ch1.cbz", "001.jpg")},
					{Index: 2, Ref: assets.ArchivedRef("/library/One Punch/ch1.cbz", "002.jpg")},
				},
			},
			{
				Title:  "Chapter 2",
				Number: 2,
				Pages: []PageRecord{
					{Index: 1, Ref: assets.PlainRef("/library/One Punch/ch2/001.png")},
				},
			},
		},
	}
}

func TestReplaceSeriesAndLocate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seriesID, err := store.ReplaceSeries(ctx, sampleSeries())
	if err != nil {
		t.Fatalf("ReplaceSeries: %v", err)
	}

	chapters, err := store.ListChapters(ctx, seriesID)
	if err != nil {
		t.Fatalf("ListChapters: %v", err)
	}
	if len(chapters) != 2 {
		t.Fatalf("chapters = %d, want 2", len(chapters))
	}
	if chapters[0].Title != "Chapter 1" || chapters[0].PageCount != 2 {
		t.Fatalf("first chapter = %+v", chapters[0])
	}

	ref, err := store.Locate(ctx, seriesID, chapters[0].ID, 2)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if ref.Kind != assets.KindArchived || ref.Member != "002.jpg" {
		t.Fatalf("ref = %+v", ref)
	}

	if _, err := store.Locate(ctx, seriesID, chapters[0].ID, 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing page err = %v, want ErrNotFound", err)
	}
	if _, err := store.Locate(ctx, seriesID, 9999, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing chapter err = %v, want ErrNotFound", err)
	}
	// A chapter of another series must not be reachable through this one.
	otherID, err := store.ReplaceSeries(ctx, SeriesRecord{
		Slug: "other", Title: "Other", Path: "/library/Other",
		Chapters: []ChapterRecord{{Title: "c1", Pages: []PageRecord{{Index: 1, Ref: assets.PlainRef("/library/Other/1.png")}}}},
	})
	if err != nil {
		t.Fatalf("ReplaceSeries other: %v", err)
	}
	otherChapters, err := store.ListChapters(ctx, otherID)
	if err != nil {
		t.Fatalf("ListChapters other: %v", err)
	}
	if _, err := store.Locate(ctx, seriesID, otherChapters[0].ID, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-series locate err = %v, want ErrNotFound", err)
	}
}

func TestReplaceSeriesKeepsIDAcrossRescan(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.ReplaceSeries(ctx, sampleSeries())
	if err != nil {
		t.Fatalf("ReplaceSeries: %v", err)
	}
	if err := store.UpsertProgress(ctx, first, 1, 2); err != nil {
		t.Fatalf("UpsertProgress: %v", err)
	}

	record := sampleSeries()
	record.Title = "One Punch (retitled)"
	second, err := store.ReplaceSeries(ctx, record)
	if err != nil {
		t.Fatalf("rescan ReplaceSeries: %v", err)
	}
	if first != second {
		t.Fatalf("series ID changed across rescan: %d -> %d", first, second)
	}

	series, err := store.GetSeries(ctx, first)
	if err != nil {
		t.Fatalf("GetSeries: %v", err)
	}
	if series.Title != "One Punch (retitled)" {
		t.Fatalf("title = %q", series.Title)
	}

	progress, err := store.GetProgress(ctx, first)
	if err != nil {
		t.Fatalf("GetProgress after rescan: %v", err)
	}
	if progress.Page != 2 {
		t.Fatalf("progress page = %d, want 2", progress.Page)
	}
}

func TestPruneSeries(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.ReplaceSeries(ctx, sampleSeries()); err != nil {
		t.Fatalf("ReplaceSeries: %v", err)
	}
	gone := sampleSeries()
	gone.Slug = "removed-series"
	gone.Title = "Removed"
	if _, err := store.ReplaceSeries(ctx, gone); err != nil {
		t.Fatalf("ReplaceSeries: %v", err)
	}

	pruned, err := store.PruneSeries(ctx, []string{"one-punch"})
	if err != nil {
		t.Fatalf("PruneSeries: %v", err)
	}
	if pruned != 1 {
		t.Fatalf("pruned = %d, want 1", pruned)
	}

	all, err := store.ListSeries(ctx)
	if err != nil {
		t.Fatalf("ListSeries: %v", err)
	}
	if len(all) != 1 || all[0].Slug != "one-punch" {
		t.Fatalf("remaining series = %+v", all)
	}
}

func TestCoverRef(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seriesID, err := store.ReplaceSeries(ctx, sampleSeries())
	if err != nil {
		t.Fatalf("ReplaceSeries: %v", err)
	}

	ref, err := store.CoverRef(ctx, seriesID)
	if err != nil {
		t.Fatalf("CoverRef: %v", err)
	}
	if ref.Member != "001.jpg" {
		t.Fatalf("cover = %+v, want first page of first chapter", ref)
	}

	if _, err := store.CoverRef(ctx, 4242); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestProgressLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seriesID, err := store.ReplaceSeries(ctx, sampleSeries())
	if err != nil {
		t.Fatalf("ReplaceSeries: %v", err)
	}

	if _, err := store.GetProgress(ctx, seriesID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("fresh progress err = %v, want ErrNotFound", err)
	}
	if err := store.UpsertProgress(ctx, 999, 1, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("progress on unknown series err = %v, want ErrNotFound", err)
	}

	if err := store.UpsertProgress(ctx, seriesID, 1, 5); err != nil {
		t.Fatalf("UpsertProgress: %v", err)
	}
	if err := store.UpsertProgress(ctx, seriesID, 2, 1); err != nil {
		t.Fatalf("second UpsertProgress: %v", err)
	}

	progress, err := store.GetProgress(ctx, seriesID)
	if err != nil {
		t.Fatalf("GetProgress: %v", err)
	}
	if progress.ChapterID != 2 || progress.Page != 1 {
		t.Fatalf("progress = %+v, want latest position", progress)
	}

	all, err := store.ListProgress(ctx)
	if err != nil {
		t.Fatalf("ListProgress: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("progress rows = %d, want 1", len(all))
	}

	if err := store.DeleteProgress(ctx, seriesID); err != nil {
		t.Fatalf("DeleteProgress: %v", err)
	}
	if err := store.DeleteProgress(ctx, seriesID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double delete err = %v, want ErrNotFound", err)
	}
}

func TestCounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.ReplaceSeries(ctx, sampleSeries()); err != nil {
		t.Fatalf("ReplaceSeries: %v", err)
	}
	series, chapters, pages, err := store.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if series != 1 || chapters != 2 || pages != 3 {
		t.Fatalf("counts = %d/%d/%d, want 1/2/3", series, chapters, pages)
	}
}
