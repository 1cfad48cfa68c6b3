package models

import (
	"strconv"
	"strings"
	"time"
)

// DefaultValidityMinutes is the validity window applied when a request omits one.
const DefaultValidityMinutes = 30

// Click carries the request context captured when a short link is visited.
type Click struct {
	Referrer  string
	UserAgent string
	IPAddress string
}

// ClickEvent is one recorded visit to a short link. Events are append-only
// and never mutated after creation.
type ClickEvent struct {
	Timestamp   time.Time `json:"timestamp"`
	Referrer    string    `json:"referrer"`
	UserAgent   string    `json:"userAgent"`
	IPAddress   string    `json:"ipAddress"`
	GeoLocation string    `json:"geoLocation"`
}

// URL represents a shortened URL, its validity window and its click ledger.
// The JSON tags define the snapshot format persisted by the store.
type URL struct {
	// ShortCode is the unique key associated with the original URL.
	ShortCode string `json:"shortcode"`
	// OriginalURL is the normalized, full-length URL the short code points to.
	OriginalURL string `json:"originalUrl"`
	// CustomShortCode reports whether the caller supplied the short code
	// instead of the generator.
	CustomShortCode bool `json:"customShortcode"`
	// CreatedAt is the timestamp indicating when the record was created.
	CreatedAt time.Time `json:"createdAt"`
	// ExpiresAt is CreatedAt plus the validity window. It is never recomputed.
	ExpiresAt time.Time `json:"expiresAt"`
	// ValidityMinutes is the validity window in minutes.
	ValidityMinutes int `json:"validityMinutes"`
	// ClickCount tracks the number of recorded visits. It always equals len(Clicks).
	ClickCount int64 `json:"clickCount"`
	// Clicks is the append-only click ledger in chronological order.
	Clicks []ClickEvent `json:"clicks"`
	// IsActive can be cleared independently of expiry (soft deactivation).
	IsActive bool `json:"isActive"`
}

// NewURL creates a URL record whose expiry is now plus the validity window.
func NewURL(shortCode, originalURL string, validityMinutes int, custom bool, now time.Time) *URL {
	return &URL{
		ShortCode:       shortCode,
		OriginalURL:     originalURL,
		CustomShortCode: custom,
		CreatedAt:       now,
		ExpiresAt:       now.Add(time.Duration(validityMinutes) * time.Minute),
		ValidityMinutes: validityMinutes,
		Clicks:          []ClickEvent{},
		IsActive:        true,
	}
}

// IsExpired reports whether the record has passed its expiry at the given time.
func (u *URL) IsExpired(now time.Time) bool {
	return now.After(u.ExpiresAt)
}

// AddClick appends a click event built from the given context, applying
// defaults for missing fields, and increments the click counter.
func (u *URL) AddClick(c Click, now time.Time) ClickEvent {
	ev := ClickEvent{
		Timestamp:   now,
		Referrer:    orDefault(c.Referrer, "Direct"),
		UserAgent:   orDefault(c.UserAgent, "Unknown"),
		IPAddress:   orDefault(c.IPAddress, "Unknown"),
		GeoLocation: geoLocation(c.IPAddress),
	}

	u.Clicks = append(u.Clicks, ev)
	u.ClickCount++

	return ev
}

// Deactivate clears the active flag. Expiry is unaffected.
func (u *URL) Deactivate() {
	u.IsActive = false
}

// Clone returns a deep copy of the record, including the click ledger.
func (u *URL) Clone() *URL {
	cp := *u
	cp.Clicks = make([]ClickEvent, len(u.Clicks))
	copy(cp.Clicks, u.Clicks)
	return &cp
}

// StatsView is the computed statistics view of a URL record. Activity and
// expiry are time-dependent, so views are rebuilt on every call.
type StatsView struct {
	ShortCode       string       `json:"shortcode"`
	OriginalURL     string       `json:"originalUrl"`
	ShortLink       string       `json:"shortLink"`
	CreatedAt       time.Time    `json:"createdAt"`
	ExpiresAt       time.Time    `json:"expiresAt"`
	ValidityMinutes int          `json:"validityMinutes"`
	ClickCount      int64        `json:"clickCount"`
	IsActive        bool         `json:"isActive"`
	IsExpired       bool         `json:"isExpired"`
	CustomShortCode bool         `json:"customShortcode"`
	Clicks          []ClickEvent `json:"clicks"`
}

// Stats builds the statistics view for the given time. ShortLink is left
// empty; the caller fills it in since the base URL is configuration.
func (u *URL) Stats(now time.Time) StatsView {
	expired := u.IsExpired(now)

	return StatsView{
		ShortCode:       u.ShortCode,
		OriginalURL:     u.OriginalURL,
		CreatedAt:       u.CreatedAt,
		ExpiresAt:       u.ExpiresAt,
		ValidityMinutes: u.ValidityMinutes,
		ClickCount:      u.ClickCount,
		IsActive:        u.IsActive && !expired,
		IsExpired:       expired,
		CustomShortCode: u.CustomShortCode,
		Clicks:          u.Clicks,
	}
}

// geoLocations is a fixed placeholder list; a click's location is picked by
// summing the decimal octets of its IP modulo the list length.
var geoLocations = [...]string{
	"New York, US",
	"London, UK",
	"Tokyo, JP",
	"Sydney, AU",
	"Berlin, DE",
	"Toronto, CA",
	"Mumbai, IN",
	"São Paulo, BR",
}

// geoLocation derives a deterministic placeholder location from an IP
// address. It is not real geolocation and must stay stable across releases.
func geoLocation(ip string) string {
	if ip == "" || ip == "Unknown" || strings.HasPrefix(ip, "127.") || strings.HasPrefix(ip, "::1") {
		return "Local/Localhost"
	}

	var sum int
	for _, octet := range strings.Split(ip, ".") {
		sum += leadingInt(octet)
	}

	return geoLocations[sum%len(geoLocations)]
}

// leadingInt parses the decimal digits an octet starts with, so addresses
// that are not dotted quads (IPv6, host strings) still hash by their leading
// digits instead of being skipped.
func leadingInt(s string) int {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0
	}

	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0
	}
	return n
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
