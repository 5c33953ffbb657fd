package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tosho/internal/api"
	"tosho/internal/catalog"
	"tosho/internal/config"
	"tosho/internal/logging"
	"tosho/internal/resolver"
	"tosho/internal/transform"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", srv.handleStatus)
	mux.HandleFunc("POST /api/scan", srv.handleScan)
	mux.HandleFunc("GET /api/series", srv.handleSeriesList)
	mux.HandleFunc("GET /api/series/{id}", srv.handleSeriesDetail)
	mux.HandleFunc("GET /api/series/{id}/cover", srv.handleCover)
	mux.HandleFunc("GET /api/series/{id}/chapters/{cid}/pages/{n}", srv.handlePage)
	mux.HandleFunc("GET /api/progress", srv.handleProgressList)
	mux.HandleFunc("GET /api/progress/{id}", srv.handleProgressGet)
	mux.HandleFunc("PUT /api/progress/{id}", srv.handleProgressPut)
	mux.HandleFunc("DELETE /api/progress/{id}", srv.handleProgressDelete)
	mux.HandleFunc("GET /api/cache/stats", srv.handleCacheStats)
	mux.HandleFunc("POST /api/cache/prune", srv.handleCachePrune)
	mux.HandleFunc("POST /api/cache/clear", srv.handleCacheClear)

	srv.server = &http.Server{
		Handler:           authMiddleware(cfg.Paths.APIToken, mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// handler exposes the routed handler for in-process tests.
func (s *apiServer) handler() http.Handler {
	return s.server.Handler
}

// addr reports the bound listen address, empty until start succeeds.
func (s *apiServer) addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		return errors.New("api bind address is not configured")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

func (s *apiServer) handleScan(w http.ResponseWriter, r *http.Request) {
	summary, err := s.daemon.RunScan(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.ScanResponse{
		ScanID:     summary.ScanID,
		Series:     summary.Series,
		Chapters:   summary.Chapters,
		Pages:      summary.Pages,
		Pruned:     summary.Pruned,
		DurationMS: summary.Duration.Milliseconds(),
	})
}

func (s *apiServer) handleSeriesList(w http.ResponseWriter, r *http.Request) {
	series, err := s.daemon.library.ListSeries(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.SeriesListResponse{Series: series})
}

func (s *apiServer) handleSeriesDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	detail, err := s.daemon.library.DescribeSeries(r.Context(), id)
	if err != nil {
		s.writeCatalogError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, detail)
}

func (s *apiServer) handleCover(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	ref, err := s.daemon.store.CoverRef(r.Context(), id)
	if err != nil {
		s.writeCatalogError(w, err)
		return
	}
	spec := transform.Spec{Thumbnail: true}
	result, err := s.daemon.resolver.ResolveRef(r.Context(), ref, spec)
	if err != nil {
		s.writeResolveError(w, err)
		return
	}
	s.writeImage(w, result)
}

func (s *apiServer) handlePage(w http.ResponseWriter, r *http.Request) {
	seriesID, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	chapterID, ok := s.pathID(w, r, "cid")
	if !ok {
		return
	}
	page, err := strconv.Atoi(r.PathValue("n"))
	if err != nil || page < 1 {
		s.writeError(w, http.StatusBadRequest, "invalid page number")
		return
	}
	spec, err := specFromQuery(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.daemon.resolver.Resolve(r.Context(), seriesID, chapterID, page, spec)
	if err != nil {
		s.writeResolveError(w, err)
		return
	}
	s.writeImage(w, result)
}

func (s *apiServer) handleProgressList(w http.ResponseWriter, r *http.Request) {
	progress, err := s.daemon.library.ListProgress(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.ProgressListResponse{Progress: progress})
}

func (s *apiServer) handleProgressGet(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	progress, err := s.daemon.library.GetProgress(r.Context(), id)
	if err != nil {
		s.writeCatalogError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, progress)
}

func (s *apiServer) handleProgressPut(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	var update api.ProgressUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid progress body")
		return
	}
	if update.ChapterID <= 0 || update.Page < 1 {
		s.writeError(w, http.StatusBadRequest, "progress requires a chapter id and a page >= 1")
		return
	}
	if err := s.daemon.library.SaveProgress(r.Context(), id, update); err != nil {
		s.writeCatalogError(w, err)
		return
	}
	progress, err := s.daemon.library.GetProgress(r.Context(), id)
	if err != nil {
		s.writeCatalogError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, progress)
}

func (s *apiServer) handleProgressDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.daemon.library.ClearProgress(r.Context(), id); err != nil {
		s.writeCatalogError(w, err)
		return
	}
	s.writeJSON(w, http.StatusNoContent, nil)
}

func (s *apiServer) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.CacheStats())
}

func (s *apiServer) handleCachePrune(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.cache.EvictIfOverBudget(r.Context()); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.CacheStats())
}

func (s *apiServer) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.cache.Clear(r.Context()); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.CacheStats())
}

// specFromQuery maps width/height/quality/thumbnail/encoding query
// parameters onto a transform spec. Absent parameters mean passthrough.
func specFromQuery(r *http.Request) (transform.Spec, error) {
	query := r.URL.Query()
	var spec transform.Spec
	var err error

	if spec.MaxWidth, err = queryInt(query.Get("width"), 0); err != nil {
		return spec, fmt.Errorf("invalid width: %w", err)
	}
	if spec.MaxHeight, err = queryInt(query.Get("height"), 0); err != nil {
		return spec, fmt.Errorf("invalid height: %w", err)
	}
	if spec.Quality, err = queryInt(query.Get("quality"), 0); err != nil {
		return spec, fmt.Errorf("invalid quality: %w", err)
	}
	if spec.Quality < 0 || spec.Quality > 100 {
		return spec, errors.New("quality must be between 1 and 100")
	}
	thumb := query.Get("thumbnail")
	spec.Thumbnail = thumb == "1" || strings.EqualFold(thumb, "true")
	if value := query.Get("encoding"); value != "" {
		if spec.Encoding, err = transform.ParseEncoding(value); err != nil {
			return spec, err
		}
	}
	return spec, nil
}

func queryInt(value string, fallback int) (int, error) {
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	if parsed < 0 {
		return 0, errors.New("must not be negative")
	}
	return parsed, nil
}

func (s *apiServer) pathID(w http.ResponseWriter, r *http.Request, key string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(key), 10, 64)
	if err != nil || id < 1 {
		s.writeError(w, http.StatusBadRequest, "invalid "+key)
		return 0, false
	}
	return id, true
}

func (s *apiServer) writeImage(w http.ResponseWriter, result resolver.Result) {
	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	// Fingerprinted content: a source edit changes the URL's bytes only
	// after the source mtime changes, so a day of caching is safe.
	w.Header().Set("Cache-Control", "private, max-age=86400")
	if result.CacheHit {
		w.Header().Set("X-Cache", "hit")
	} else {
		w.Header().Set("X-Cache", "miss")
	}
	_, _ = w.Write(result.Data)
}

// writeResolveError maps resolver failures onto the HTTP surface: pages the
// catalog does not know (or whose sources vanished) are 404, sources that
// exist but cannot be decoded are 502.
func (s *apiServer) writeResolveError(w http.ResponseWriter, err error) {
	switch {
	case resolver.IsNotFound(err):
		s.writeError(w, http.StatusNotFound, err.Error())
	case resolver.IsUnreadable(err):
		s.writeError(w, http.StatusBadGateway, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *apiServer) writeCatalogError(w http.ResponseWriter, err error) {
	if errors.Is(err, catalog.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeError(w, http.StatusInternalServerError, err.Error())
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}
