// Package server exposes the HTTP API: the Google OAuth2 authorization
// flow, stored credential management, and IMAP settings and operations.
// Prometheus metrics are served on a separate listener.
package server
