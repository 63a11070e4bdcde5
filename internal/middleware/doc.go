// Package middleware provides HTTP middleware for the library server.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics labelled by route template
//   - gzip compression of JSON listings
package middleware
