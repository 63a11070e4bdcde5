package handlers

import (
	"context"
	"errors"
	"net/http"

	"manga-library/internal/archive"
	"manga-library/internal/indexer"
	"manga-library/internal/library"
	"manga-library/internal/logging"

	"github.com/gorilla/mux"
)

// Library is the part of library.Service the handlers use.
type Library interface {
	GetEntries(ctx context.Context) ([]indexer.Entry, error)
	GetEntry(ctx context.Context, path string) (indexer.Entry, error)
	GetChapters(ctx context.Context, path string) ([]indexer.Chapter, error)
	GetChapterImages(ctx context.Context, chapterURL string) ([]indexer.ChapterImage, error)
	OpenImage(ctx context.Context, imageURL string) (*library.Page, error)
	Reindex(ctx context.Context) ([]indexer.Entry, error)
	IsReady() bool
	IsIndexing() bool
	GetHealthStatus() library.HealthStatus
}

type Handlers struct {
	library Library
}

func New(lib Library) *Handlers {
	return &Handlers{library: lib}
}

// Register adds every route to router.
func (h *Handlers) Register(router *mux.Router) {
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/entries", h.ListEntries).Methods(http.MethodGet).Name("entries")
	api.HandleFunc("/entry", h.GetEntry).Methods(http.MethodGet).Name("entry")
	api.HandleFunc("/chapters", h.ListChapters).Methods(http.MethodGet).Name("chapters")
	api.HandleFunc("/pages", h.ListPages).Methods(http.MethodGet).Name("pages")
	api.HandleFunc("/page", h.GetPage).Methods(http.MethodGet, http.MethodHead).Name("page")
	api.HandleFunc("/reindex", h.TriggerReindex).Methods(http.MethodPost).Name("reindex")
	api.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet).Name("version")

	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet).Name("health")
	router.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead).Name("livez")
	router.HandleFunc("/readyz", h.ReadinessCheck).Methods(http.MethodGet).Name("readyz")
	router.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)
	router.Handle("/metrics", h.MetricsHandler()).Methods(http.MethodGet).Name("metrics")
}

// writeLibraryError maps library errors onto HTTP statuses.
func writeLibraryError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, library.ErrEntryNotFound), errors.Is(err, archive.ErrEntryNotFound):
		writeJSONError(w, "Not found", http.StatusNotFound)
	case errors.Is(err, library.ErrNoRoot):
		writeJSONError(w, "No library root configured", http.StatusServiceUnavailable)
	case errors.Is(err, archive.ErrEntryTooLarge):
		writeJSONError(w, "Page too large", http.StatusRequestEntityTooLarge)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		logging.Debug("request %s cancelled: %v", r.URL.Path, err)
		writeJSONError(w, "Request cancelled", http.StatusServiceUnavailable)
	default:
		logging.Error("request %s failed: %v", r.URL.Path, err)
		writeJSONError(w, "Internal error", http.StatusInternalServerError)
	}
}
