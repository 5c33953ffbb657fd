package api

import "time"

// SeriesView is the wire representation of a series.
type SeriesView struct {
	ID           int64     `json:"id"`
	Slug         string    `json:"slug"`
	Title        string    `json:"title"`
	ChapterCount int       `json:"chapter_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ChapterView is the wire representation of a chapter.
type ChapterView struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	Number    float64 `json:"number,omitempty"`
	PageCount int     `json:"page_count"`
}

// SeriesDetail is a series with its chapters in reading order.
type SeriesDetail struct {
	Series   SeriesView    `json:"series"`
	Chapters []ChapterView `json:"chapters"`
}

// ProgressView is the wire representation of a saved reading position.
type ProgressView struct {
	SeriesID  int64     `json:"series_id"`
	ChapterID int64     `json:"chapter_id"`
	Page      int       `json:"page"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProgressUpdate is the body of a progress write.
type ProgressUpdate struct {
	ChapterID int64 `json:"chapter_id"`
	Page      int   `json:"page"`
}

// SeriesListResponse wraps the series listing.
type SeriesListResponse struct {
	Series []SeriesView `json:"series"`
}

// ProgressListResponse wraps the progress listing.
type ProgressListResponse struct {
	Progress []ProgressView `json:"progress"`
}

// StatusResponse reports daemon health and library totals.
type StatusResponse struct {
	Running      bool       `json:"running"`
	PID          int        `json:"pid"`
	DatabasePath string     `json:"database_path"`
	LockFilePath string     `json:"lock_file_path"`
	LibraryDir   string     `json:"library_dir"`
	Series       int64      `json:"series"`
	Chapters     int64      `json:"chapters"`
	Pages        int64      `json:"pages"`
	Cache        CacheStats `json:"cache"`
}

// CacheStats reports asset cache usage.
type CacheStats struct {
	Entries    int     `json:"entries"`
	TotalBytes int64   `json:"total_bytes"`
	MaxBytes   int64   `json:"max_bytes"`
	FreeRatio  float64 `json:"free_ratio"`
}

// ScanResponse reports a completed library scan.
type ScanResponse struct {
	ScanID     string `json:"scan_id"`
	Series     int    `json:"series"`
	Chapters   int    `json:"chapters"`
	Pages      int    `json:"pages"`
	Pruned     int64  `json:"pruned"`
	DurationMS int64  `json:"duration_ms"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
