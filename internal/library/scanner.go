package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"tosho/internal/assets"
	"tosho/internal/catalog"
	"tosho/internal/container"
	"tosho/internal/logging"
	"tosho/internal/textutil"
)

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
	".bmp":  {},
}

// Scanner walks the library directory and rebuilds the catalog from what it
// finds. Layouts it understands:
//
//   - a top-level directory is a series; inside it, each subdirectory of
//     images or each archive file is a chapter
//   - loose images directly inside a series directory form one chapter
//     named after the series
//   - a top-level archive file is a whole series; its top-level member
//     directories become chapters, flat image members a single chapter
type Scanner struct {
	root   string
	store  *catalog.Store
	logger *slog.Logger
}

// Summary describes one completed scan.
type Summary struct {
	ScanID   string        `json:"scan_id"`
	Series   int           `json:"series"`
	Chapters int           `json:"chapters"`
	Pages    int           `json:"pages"`
	Pruned   int64         `json:"pruned"`
	Duration time.Duration `json:"duration"`
}

// NewScanner builds a scanner over the library root.
func NewScanner(root string, store *catalog.Store, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Scanner{
		root:   root,
		store:  store,
		logger: logging.NewComponentLogger(logger, "scanner"),
	}
}

// Scan walks the library once, replacing every discovered series in the
// catalog and pruning series whose sources are gone. Unreadable entries are
// logged and skipped; they never abort the scan.
func (s *Scanner) Scan(ctx context.Context) (Summary, error) {
	scanID := uuid.NewString()
	started := time.Now()
	logger := s.logger.With(logging.String("scan_id", scanID))
	logger.InfoContext(ctx, "library scan started", logging.String("library_dir", s.root))

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return Summary{}, fmt.Errorf("read library dir: %w", err)
	}

	summary := Summary{ScanID: scanID}
	var keep []string
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(s.root, name)

		var record catalog.SeriesRecord
		var scanErr error
		if entry.IsDir() {
			record, scanErr = s.scanSeriesDir(path, name)
		} else {
			record, scanErr = s.scanSeriesArchive(path, name)
			if errors.Is(scanErr, container.ErrUnsupportedFormat) {
				// Not an archive; stray file in the library root.
				continue
			}
		}
		if scanErr != nil {
			logger.Warn("skipping unreadable series entry",
				logging.String("source_file", path),
				logging.Error(scanErr),
				logging.String(logging.FieldEventType, "scan_entry_skipped"),
				logging.String(logging.FieldErrorHint, "check file permissions or remove the corrupted entry"))
			continue
		}
		if len(record.Chapters) == 0 {
			continue
		}

		if _, err := s.store.ReplaceSeries(ctx, record); err != nil {
			return summary, fmt.Errorf("store series %q: %w", record.Slug, err)
		}
		keep = append(keep, record.Slug)
		summary.Series++
		summary.Chapters += len(record.Chapters)
		for _, chapter := range record.Chapters {
			summary.Pages += len(chapter.Pages)
		}
	}

	pruned, err := s.store.PruneSeries(ctx, keep)
	if err != nil {
		return summary, fmt.Errorf("prune series: %w", err)
	}
	summary.Pruned = pruned
	summary.Duration = time.Since(started)

	logger.InfoContext(ctx, "library scan finished",
		logging.Int("series", summary.Series),
		logging.Int("chapters", summary.Chapters),
		logging.Int("pages", summary.Pages),
		logging.Int64("pruned", summary.Pruned),
		logging.Duration("duration", summary.Duration))
	return summary, nil
}

// scanSeriesDir builds a series from a directory: subdirectories and
// archives become chapters, loose images one implicit chapter.
func (s *Scanner) scanSeriesDir(path, name string) (catalog.SeriesRecord, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return catalog.SeriesRecord{}, fmt.Errorf("read series dir: %w", err)
	}

	title := textutil.PrettyTitle(name)
	record := catalog.SeriesRecord{
		Slug:  textutil.Slug(name),
		Title: title,
		Path:  path,
	}

	type pending struct {
		sortKey string
		chapter catalog.ChapterRecord
	}
	var chapters []pending
	var looseImages []string

	for _, entry := range entries {
		entryName := entry.Name()
		if strings.HasPrefix(entryName, ".") {
			continue
		}
		entryPath := filepath.Join(path, entryName)

		if entry.IsDir() {
			pages, err := imagePagesFromDir(entryPath)
			if err != nil {
				return catalog.SeriesRecord{}, err
			}
			if len(pages) == 0 {
				continue
			}
			chapters = append(chapters, pending{
				sortKey: entryName,
				chapter: catalog.ChapterRecord{
					Title:  textutil.PrettyTitle(entryName),
					Number: textutil.ExtractChapterNumber(entryName),
					Pages:  pages,
				},
			})
			continue
		}

		if isImageName(entryName) {
			looseImages = append(looseImages, entryName)
			continue
		}

		pages, err := imagePagesFromArchive(entryPath)
		if errors.Is(err, container.ErrUnsupportedFormat) {
			continue
		}
		if err != nil {
			return catalog.SeriesRecord{}, err
		}
		if len(pages) == 0 {
			continue
		}
		base := baseName(entryName)
		chapters = append(chapters, pending{
			sortKey: entryName,
			chapter: catalog.ChapterRecord{
				Title:  textutil.PrettyTitle(base),
				Number: textutil.ExtractChapterNumber(base),
				Pages:  pages,
			},
		})
	}

	if len(looseImages) > 0 {
		textutil.SortNatural(looseImages)
		pages := make([]catalog.PageRecord, 0, len(looseImages))
		for i, image := range looseImages {
			pages = append(pages, catalog.PageRecord{Index: i + 1, Ref: assets.PlainRef(filepath.Join(path, image))})
		}
		chapters = append(chapters, pending{
			sortKey: "",
			chapter: catalog.ChapterRecord{Title: title, Pages: pages},
		})
	}

	keys := make([]string, len(chapters))
	byKey := make(map[string]catalog.ChapterRecord, len(chapters))
	for i, p := range chapters {
		keys[i] = p.sortKey
		byKey[p.sortKey] = p.chapter
	}
	textutil.SortNatural(keys)
	for _, key := range keys {
		record.Chapters = append(record.Chapters, byKey[key])
	}
	return record, nil
}

// scanSeriesArchive builds a series from a standalone archive at the
// library root.
func (s *Scanner) scanSeriesArchive(path, name string) (catalog.SeriesRecord, error) {
	reader, err := container.Open(path)
	if err != nil {
		return catalog.SeriesRecord{}, err
	}
	defer reader.Close()

	members, err := reader.List()
	if err != nil {
		return catalog.SeriesRecord{}, err
	}

	base := baseName(name)
	title := textutil.PrettyTitle(base)
	record := catalog.SeriesRecord{
		Slug:  textutil.Slug(base),
		Title: title,
		Path:  path,
	}

	// Group image members by their top-level directory; flat members form
	// one chapter named after the archive.
	groups := make(map[string][]string)
	var groupNames []string
	for _, member := range members {
		if !isImageName(member) {
			continue
		}
		group := ""
		if idx := strings.IndexByte(member, '/'); idx > 0 {
			group = member[:idx]
		}
		if _, seen := groups[group]; !seen {
			groupNames = append(groupNames, group)
		}
		groups[group] = append(groups[group], member)
	}
	textutil.SortNatural(groupNames)

	for _, group := range groupNames {
		members := groups[group]
		textutil.SortNatural(members)
		pages := make([]catalog.PageRecord, 0, len(members))
		for i, member := range members {
			pages = append(pages, catalog.PageRecord{Index: i + 1, Ref: assets.ArchivedRef(path, member)})
		}
		chapterTitle := title
		number := 0.0
		if group != "" {
			chapterTitle = textutil.PrettyTitle(group)
			number = textutil.ExtractChapterNumber(group)
		}
		record.Chapters = append(record.Chapters, catalog.ChapterRecord{
			Title:  chapterTitle,
			Number: number,
			Pages:  pages,
		})
	}
	return record, nil
}

func imagePagesFromDir(dir string) ([]catalog.PageRecord, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read chapter dir: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !isImageName(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	textutil.SortNatural(names)
	pages := make([]catalog.PageRecord, 0, len(names))
	for i, name := range names {
		pages = append(pages, catalog.PageRecord{Index: i + 1, Ref: assets.PlainRef(filepath.Join(dir, name))})
	}
	return pages, nil
}

func imagePagesFromArchive(path string) ([]catalog.PageRecord, error) {
	reader, err := container.Open(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	members, err := reader.List()
	if err != nil {
		return nil, err
	}
	var names []string
	for _, member := range members {
		if isImageName(member) {
			names = append(names, member)
		}
	}
	textutil.SortNatural(names)
	pages := make([]catalog.PageRecord, 0, len(names))
	for i, member := range names {
		pages = append(pages, catalog.PageRecord{Index: i + 1, Ref: assets.ArchivedRef(path, member)})
	}
	return pages, nil
}

func isImageName(name string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

func baseName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
