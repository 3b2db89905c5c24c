// internal/workers/venue/find-venues/models.go
package findvenues

import "venuescout/internal/models"

// Input is the job variable contract for the find-venues task.
type Input struct {
	PlaceQuery   string `json:"placeQuery"`
	CapacityHint int    `json:"capacityHint"`
	RequestID    string `json:"requestId"`
}

// Output is published back to the process instance on completion.
type Output struct {
	RequestID      string               `json:"requestId"`
	Center         models.GeoPoint      `json:"center"`
	Venues         []models.ScoredVenue `json:"venues"`
	VenueCount     int                  `json:"venueCount"`
	Degraded       bool                 `json:"degraded"`
	PersistWarning string               `json:"persistWarning,omitempty"`
}
