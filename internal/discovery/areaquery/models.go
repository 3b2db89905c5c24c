// internal/discovery/areaquery/models.go
package areaquery

import (
	"strings"

	"venuescout/internal/models"
)

// areaResponse mirrors the POI index payload: a flat list of heterogeneous
// elements, each carrying a free-form tag map.
type areaResponse struct {
	Elements []areaElement `json:"elements"`
}

// areaElement is the raw union of the upstream shapes. Nodes carry their own
// coordinates; ways and relations carry a precomputed centroid when the index
// provides one. The union is resolved into models.VenueCandidate at this
// boundary so downstream code never sees partial shapes.
type areaElement struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    *float64          `json:"lat,omitempty"`
	Lon    *float64          `json:"lon,omitempty"`
	Center *elementCenter    `json:"center,omitempty"`
	Tags   map[string]string `json:"tags,omitempty"`
}

type elementCenter struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// location resolves the element's coordinate, if it has one.
func (e areaElement) location() (models.GeoPoint, bool) {
	switch e.Type {
	case "node":
		if e.Lat != nil && e.Lon != nil {
			return models.GeoPoint{Lat: *e.Lat, Lon: *e.Lon}, true
		}
	case "way", "relation":
		if e.Center != nil {
			return models.GeoPoint{Lat: e.Center.Lat, Lon: e.Center.Lon}, true
		}
	}
	return models.GeoPoint{}, false
}

// synthesizeAddress joins the structured address tags when present.
func synthesizeAddress(tags map[string]string) *string {
	var parts []string

	street := tags["addr:street"]
	if num := tags["addr:housenumber"]; num != "" && street != "" {
		parts = append(parts, num+" "+street)
	} else if street != "" {
		parts = append(parts, street)
	}
	for _, key := range []string{"addr:city", "addr:state", "addr:postcode"} {
		if v := tags[key]; v != "" {
			parts = append(parts, v)
		}
	}

	if len(parts) == 0 {
		return nil
	}
	addr := strings.Join(parts, ", ")
	return &addr
}

func firstTag(tags map[string]string, keys ...string) *string {
	for _, key := range keys {
		if v := tags[key]; v != "" {
			value := v
			return &value
		}
	}
	return nil
}
