// Package handlers provides the HTTP API over the local manga library.
//
// It includes handlers for:
//   - Entry, chapter and page listings
//   - Streaming page images, loose or from inside archives
//   - Triggering a reindex
//   - Health, readiness, version and metrics endpoints
//
// Paths and image URLs travel as query parameters, since library paths are
// absolute and archive pages use the "archive::entry" form.
package handlers
