// internal/models/venue.go
package models

import "time"

// SearchRequest is the inbound contract from the requirements-extraction layer.
// RequestID is the caller's correlation key and is opaque to the engine.
type SearchRequest struct {
	PlaceQuery   string `json:"placeQuery"`
	CapacityHint int    `json:"capacityHint"`
	RequestID    string `json:"requestId"`
}

// VenueCandidate is a normalized point of interest returned by the area query.
// Candidates are produced fresh per query and never mutated after construction.
type VenueCandidate struct {
	ExternalID    string            `json:"externalId"`
	Name          string            `json:"name"`
	Address       *string           `json:"address,omitempty"`
	Phone         *string           `json:"phone,omitempty"`
	Website       *string           `json:"website,omitempty"`
	Location      GeoPoint          `json:"location"`
	RawAttributes map[string]string `json:"rawAttributes,omitempty"`
}

// HasPhone reports whether the candidate carries a phone contact.
func (v VenueCandidate) HasPhone() bool {
	return v.Phone != nil && *v.Phone != ""
}

// HasWebsite reports whether the candidate carries a website contact.
func (v VenueCandidate) HasWebsite() bool {
	return v.Website != nil && *v.Website != ""
}

// ScoredVenue is a candidate with its distance from the request center and
// the 0..1 match score.
type ScoredVenue struct {
	VenueCandidate
	DistanceKm float64 `json:"distanceKm"`
	MatchScore float64 `json:"matchScore"`
}

// Suggestion is a persisted ScoredVenue, one row per venue per discovery run.
type Suggestion struct {
	ScoredVenue
	RequestID  string                 `json:"requestId"`
	BatchID    string                 `json:"batchId"`
	Rank       int                    `json:"rank"`
	CreatedAt  time.Time              `json:"createdAt"`
	Provenance map[string]interface{} `json:"provenance,omitempty"`
}

// DiscoveryResult is the outbound contract of a FindVenues run. Degraded is
// set when the area query silently returned empty due to upstream failure.
type DiscoveryResult struct {
	RequestID string        `json:"requestId"`
	Center    GeoPoint      `json:"center"`
	Venues    []ScoredVenue `json:"venues"`
	Degraded  bool          `json:"degraded"`
	// PersistWarning carries a repository failure that did not discard the
	// computed result set.
	PersistWarning string `json:"persistWarning,omitempty"`
}
