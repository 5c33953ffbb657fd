package library

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"tosho/internal/assets"
	"tosho/internal/catalog"
	"tosho/internal/logging"
)

func writeZip(t *testing.T, path string, members map[string][]byte) {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, data := range members {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := f.Write(data); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func newTestCatalog(t *testing.T) *catalog.Store {
	t.Helper()
	store, err := catalog.OpenPath(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("catalog.OpenPath: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestScanFolderSeries(t *testing.T) {
	root := t.TempDir()
	series := filepath.Join(root, "solo_leveling")
	// Folder chapter with pages named to exercise natural order.
	writeFile(t, filepath.Join(series, "Chapter 2", "page10.png"), []byte("p10"))
	writeFile(t, filepath.Join(series, "Chapter 2", "page2.png"), []byte("p2"))
	// Archive chapter.
	writeZip(t, filepath.Join(series, "chapter_10.cbz"), map[string][]byte{
		"001.jpg": []byte("a"),
		"002.jpg": []byte("b"),
	})
	// Noise that must be ignored.
	writeFile(t, filepath.Join(series, "notes.txt"), []byte("not a page"))
	writeFile(t, filepath.Join(root, ".hidden", "x.png"), []byte("x"))

	store := newTestCatalog(t)
	scanner := NewScanner(root, store, logging.NewNop())

	summary, err := scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if summary.Series != 1 || summary.Chapters != 2 || summary.Pages != 4 {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.ScanID == "" {
		t.Fatal("scan ID missing")
	}

	ctx := context.Background()
	all, err := store.ListSeries(ctx)
	if err != nil {
		t.Fatalf("ListSeries: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("series = %+v", all)
	}
	if all[0].Title != "Solo Leveling" || all[0].Slug != "solo-leveling" {
		t.Fatalf("series = %+v", all[0])
	}

	chapters, err := store.ListChapters(ctx, all[0].ID)
	if err != nil {
		t.Fatalf("ListChapters: %v", err)
	}
	// Natural order: "Chapter 2" before "chapter_10.cbz".
	if chapters[0].Title != "Chapter 2" || chapters[0].Number != 2 {
		t.Fatalf("first chapter = %+v", chapters[0])
	}
	if chapters[1].Title != "Chapter 10" || chapters[1].Number != 10 {
		t.Fatalf("second chapter = %+v", chapters[1])
	}

	// page2 sorts before page10 despite lexicographic order.
	ref, err := store.Locate(ctx, all[0].ID, chapters[0].ID, 1)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if filepath.Base(ref.Path) != "page2.png" {
		t.Fatalf("first page = %s", ref.Path)
	}

	ref, err = store.Locate(ctx, all[0].ID, chapters[1].ID, 2)
	if err != nil {
		t.Fatalf("Locate archived: %v", err)
	}
	if ref.Kind != assets.KindArchived || ref.Member != "002.jpg" {
		t.Fatalf("archived page = %+v", ref)
	}
}

func TestScanLooseImagesFormImplicitChapter(t *testing.T) {
	root := t.TempDir()
	series := filepath.Join(root, "one shot")
	writeFile(t, filepath.Join(series, "01.png"), []byte("1"))
	writeFile(t, filepath.Join(series, "02.png"), []byte("2"))

	store := newTestCatalog(t)
	summary, err := NewScanner(root, store, logging.NewNop()).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if summary.Chapters != 1 || summary.Pages != 2 {
		t.Fatalf("summary = %+v", summary)
	}

	all, _ := store.ListSeries(context.Background())
	chapters, err := store.ListChapters(context.Background(), all[0].ID)
	if err != nil {
		t.Fatalf("ListChapters: %v", err)
	}
	if chapters[0].Title != "One Shot" {
		t.Fatalf("implicit chapter title = %q", chapters[0].Title)
	}
}

func TestScanArchiveAsSeries(t *testing.T) {
	root := t.TempDir()
	// Grouped members: top-level dirs become chapters.
	writeZip(t, filepath.Join(root, "Berserk.cbz"), map[string][]byte{
		"ch1/001.jpg": []byte("a"),
		"ch1/002.jpg": []byte("b"),
		"ch2/001.jpg": []byte("c"),
		"cover.jpg":   []byte("flat"),
	})

	store := newTestCatalog(t)
	summary, err := NewScanner(root, store, logging.NewNop()).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if summary.Series != 1 || summary.Chapters != 3 || summary.Pages != 4 {
		t.Fatalf("summary = %+v", summary)
	}

	ctx := context.Background()
	all, _ := store.ListSeries(ctx)
	if all[0].Title != "Berserk" {
		t.Fatalf("series = %+v", all[0])
	}
	chapters, err := store.ListChapters(ctx, all[0].ID)
	if err != nil {
		t.Fatalf("ListChapters: %v", err)
	}
	// Flat members sort first (empty group), then ch1, ch2.
	if chapters[0].Title != "Berserk" || chapters[0].PageCount != 1 {
		t.Fatalf("flat chapter = %+v", chapters[0])
	}
	if chapters[1].Title != "Ch1" || chapters[1].Number != 1 {
		t.Fatalf("chapter = %+v", chapters[1])
	}
	if chapters[2].Number != 2 {
		t.Fatalf("chapter = %+v", chapters[2])
	}
}

func TestScanPrunesRemovedSeries(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "keeper", "ch1", "001.png"), []byte("k"))
	writeFile(t, filepath.Join(root, "goner", "ch1", "001.png"), []byte("g"))

	store := newTestCatalog(t)
	scanner := NewScanner(root, store, logging.NewNop())
	ctx := context.Background()

	if _, err := scanner.Scan(ctx); err != nil {
		t.Fatalf("first Scan: %v", err)
	}
	if err := os.RemoveAll(filepath.Join(root, "goner")); err != nil {
		t.Fatalf("remove series: %v", err)
	}

	summary, err := scanner.Scan(ctx)
	if err != nil {
		t.Fatalf("second Scan: %v", err)
	}
	if summary.Pruned != 1 {
		t.Fatalf("pruned = %d, want 1", summary.Pruned)
	}
	all, _ := store.ListSeries(ctx)
	if len(all) != 1 || all[0].Slug != "keeper" {
		t.Fatalf("series = %+v", all)
	}
}

func TestScanSkipsCorruptArchive(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "good", "ch1", "001.png"), []byte("ok"))
	// Valid ZIP signature, garbage body: the series is skipped, not fatal.
	writeFile(t, filepath.Join(root, "broken.cbz"), []byte{0x50, 0x4B, 0x03, 0x04, 0xFF})

	store := newTestCatalog(t)
	summary, err := NewScanner(root, store, logging.NewNop()).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if summary.Series != 1 {
		t.Fatalf("summary = %+v", summary)
	}
}
