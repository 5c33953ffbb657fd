package catalog

import (
	"time"

	"tosho/internal/assets"
)

// Series is one comic or manga title in the library.
type Series struct {
	ID           int64     `json:"id"`
	Slug         string    `json:"slug"`
	Title        string    `json:"title"`
	Path         string    `json:"path"`
	ChapterCount int       `json:"chapter_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Chapter is one readable unit of a series.
type Chapter struct {
	ID       int64  `json:"id"`
	SeriesID int64  `json:"series_id"`
	Title    string `json:"title"`
	// Number is the chapter number extracted from the name; 0 when none was
	// recognizable.
	Number    float64 `json:"number"`
	SortIndex int     `json:"sort_index"`
	PageCount int     `json:"page_count"`
}

// Progress records the reader's position within a series. One row per
// series; the server is single-user.
type Progress struct {
	SeriesID  int64     `json:"series_id"`
	ChapterID int64     `json:"chapter_id"`
	Page      int       `json:"page"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PageRecord is a scanner-produced page: its 1-based index within the
// chapter and where its bytes live.
type PageRecord struct {
	Index int
	Ref   assets.SourceRef
}

// ChapterRecord is a scanner-produced chapter with its pages in reading
// order.
type ChapterRecord struct {
	Title  string
	Number float64
	Pages  []PageRecord
}

// SeriesRecord is a scanner-produced series snapshot. ReplaceSeries swaps
// it into the catalog wholesale.
type SeriesRecord struct {
	Slug     string
	Title    string
	Path     string
	Chapters []ChapterRecord
}
