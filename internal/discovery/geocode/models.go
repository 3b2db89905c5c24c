// internal/discovery/geocode/models.go
package geocode

// geocodeResult mirrors the relevant parts of the OSM forward-search payload.
// Coordinates arrive as strings; boundingbox is [south, north, west, east].
type geocodeResult struct {
	PlaceID     int64    `json:"place_id"`
	DisplayName string   `json:"display_name"`
	Lat         string   `json:"lat"`
	Lon         string   `json:"lon"`
	BoundingBox []string `json:"boundingbox"`
}
