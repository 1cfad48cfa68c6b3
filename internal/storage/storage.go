// Package storage defines the errors and aggregate types shared by store
// implementations.
package storage

import "errors"

var (
	// ErrURLNotFound is returned when an attempt is made to retrieve
	// a URL using a short code that doesn't exist.
	ErrURLNotFound = errors.New("url not found")
	// ErrURLExpired is returned when a click is recorded against a URL
	// whose validity window has passed.
	ErrURLExpired = errors.New("url expired")
)

// Summary holds aggregate counts over all stored records, computed at call
// time.
type Summary struct {
	TotalURLs   int   `json:"totalUrls"`
	ActiveURLs  int   `json:"activeUrls"`
	ExpiredURLs int   `json:"expiredUrls"`
	TotalClicks int64 `json:"totalClicks"`
}
