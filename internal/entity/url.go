// Package entity defines the entities and errors used in the application.
// It includes the URL struct, which maps a short code to a long URL, along with
// its expiry and hit statistics, and the errors shared across layers.
package entity

import (
	"errors"
	"time"
)

var (
	// ErrCodeExists is returned when attempting to save a URL with a code that already exists.
	ErrCodeExists = errors.New("code exists")
	// ErrURLNotFound is returned when no URL matches the lookup.
	ErrURLNotFound = errors.New("url not found")
	// ErrURLExpired is returned when resolving a code whose URL has expired.
	ErrURLExpired = errors.New("url expired")
)

// URL represents a shortened URL.
type URL struct {
	ID        int64      // ID is assigned by the database on creation.
	Code      string     // Code is the generated short code, unique across all URLs.
	LongURL   string     // LongURL is the full URL that the code resolves to.
	CreatedAt time.Time  // CreatedAt is the timestamp when the URL was created.
	ExpiresAt *time.Time // ExpiresAt is nil when the URL never expires.
	HitCount  int64      // HitCount is the number of successful resolutions.
}

// IsExpired reports whether the URL has an expiry that is not after now.
// A URL whose expiry equals now is already expired.
func (u *URL) IsExpired(now time.Time) bool {
	return u.ExpiresAt != nil && !now.Before(*u.ExpiresAt)
}

// IsActive is the negation of IsExpired.
func (u *URL) IsActive(now time.Time) bool {
	return !u.IsExpired(now)
}
