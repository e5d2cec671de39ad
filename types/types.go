// Package types defines the data structures used in the link redirector service.
package types

import "time"

// Link maps a short code to the URL it redirects to. Links are never mutated
// after creation.
type Link struct {
	ShortCode   string
	OriginalURL string
	Owner       string // empty when the creator supplied no user id
	CreatedAt   time.Time
}

// ClickEvent is one served redirect.
type ClickEvent struct {
	ShortCode string
	Address   string
	Timestamp time.Time
}

// Stats aggregates the click log of a single link.
type Stats struct {
	ShortCode string
	Clicks    int
	UniqueIPs []string // sorted ascending
}

// Requester carries the request metadata used to derive rate-limit identities
// and link ownership.
type Requester struct {
	Address          string
	IdentityOverride string
}

// ShortenRequest represents the request body for creating a short link.
type ShortenRequest struct {
	URL    string `json:"url" validate:"required,weburl"`
	UserID string `json:"user_id"`
}

// ShortenResponse represents the response body of a successful creation.
type ShortenResponse struct {
	ShortCode string `json:"short_code"`
}

// StatsResponse represents the response body of the stats endpoint.
type StatsResponse struct {
	ShortCode string   `json:"short_code"`
	Clicks    int      `json:"clicks"`
	UniqueIPs []string `json:"unique_ips"`
}
