package handlers

import (
	"context"
	"net/http"
	"time"

	"manga-library/internal/logging"
)

// reindexTimeout bounds a reindex started over HTTP.
const reindexTimeout = 30 * time.Minute

// ListEntries returns every entry, natural-sorted by title.
func (h *Handlers) ListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.library.GetEntries(r.Context())
	if err != nil {
		writeLibraryError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, entries)
}

// GetEntry returns the entry at ?path=.
func (h *Handlers) GetEntry(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSONError(w, "Path is required", http.StatusBadRequest)
		return
	}
	entry, err := h.library.GetEntry(r.Context(), path)
	if err != nil {
		writeLibraryError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, entry)
}

// ListChapters returns the chapters of the entry at ?path=.
func (h *Handlers) ListChapters(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSONError(w, "Path is required", http.StatusBadRequest)
		return
	}
	chapters, err := h.library.GetChapters(r.Context(), path)
	if err != nil {
		writeLibraryError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, chapters)
}

// ListPages returns the page image URLs of ?chapter=.
func (h *Handlers) ListPages(w http.ResponseWriter, r *http.Request) {
	chapter := r.URL.Query().Get("chapter")
	if chapter == "" {
		writeJSONError(w, "Chapter is required", http.StatusBadRequest)
		return
	}
	images, err := h.library.GetChapterImages(r.Context(), chapter)
	if err != nil {
		writeLibraryError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, images)
}

// GetPage streams the page image ?id=, which is an image URL as returned by
// ListPages. Range and conditional requests are honored.
func (h *Handlers) GetPage(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeJSONError(w, "Id is required", http.StatusBadRequest)
		return
	}
	page, err := h.library.OpenImage(r.Context(), id)
	if err != nil {
		writeLibraryError(w, r, err)
		return
	}
	defer page.Close()

	w.Header().Set("Content-Type", page.MimeType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	http.ServeContent(w, r, page.Name, page.ModTime, page)
}

// TriggerReindex starts a full reindex in the background.
func (h *Handlers) TriggerReindex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if h.library.IsIndexing() {
		writeJSON(w, map[string]string{
			"status":  "already_running",
			"message": "Indexing is already in progress",
		})
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), reindexTimeout)
		defer cancel()
		if _, err := h.library.Reindex(ctx); err != nil {
			logging.Warn("Reindex requested over HTTP failed: %v", err)
		}
	}()

	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, map[string]string{
		"status":  "started",
		"message": "Re-indexing started",
	})
}
