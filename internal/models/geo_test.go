// internal/models/geo_test.go
package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// ==========================
// Validation Tests
// ==========================

func TestGeoPoint_Validate(t *testing.T) {
	tests := []struct {
		name    string
		point   GeoPoint
		wantErr bool
	}{
		{"valid", GeoPoint{Lat: 32.84, Lon: -104.40}, false},
		{"equator origin", GeoPoint{Lat: 0, Lon: 0}, false},
		{"poles", GeoPoint{Lat: 90, Lon: 180}, false},
		{"latitude too high", GeoPoint{Lat: 90.1, Lon: 0}, true},
		{"latitude too low", GeoPoint{Lat: -91, Lon: 0}, true},
		{"longitude too high", GeoPoint{Lat: 0, Lon: 180.5}, true},
		{"longitude too low", GeoPoint{Lat: 0, Lon: -181}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.point.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBoundingBox_Validate(t *testing.T) {
	tests := []struct {
		name    string
		box     BoundingBox
		wantErr bool
	}{
		{"valid", BoundingBox{South: 32.7, West: -104.5, North: 32.9, East: -104.3}, false},
		{"degenerate latitude", BoundingBox{South: 33, West: -104.5, North: 33, East: -104.3}, true},
		{"inverted latitude", BoundingBox{South: 33, West: -104.5, North: 32, East: -104.3}, true},
		{"degenerate longitude", BoundingBox{South: 32, West: -104, North: 33, East: -104}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.box.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// ==========================
// Distance Tests
// ==========================

func TestHaversine(t *testing.T) {
	tests := []struct {
		name       string
		a, b       GeoPoint
		expectedKm float64
		toleranceKm float64
	}{
		{
			name:        "same point",
			a:           GeoPoint{Lat: 32.84, Lon: -104.40},
			b:           GeoPoint{Lat: 32.84, Lon: -104.40},
			expectedKm:  0,
			toleranceKm: 0.001,
		},
		{
			name:        "one degree of latitude",
			a:           GeoPoint{Lat: 0, Lon: 0},
			b:           GeoPoint{Lat: 1, Lon: 0},
			expectedKm:  111.19,
			toleranceKm: 0.1,
		},
		{
			name:        "antipodal points",
			a:           GeoPoint{Lat: 0, Lon: 0},
			b:           GeoPoint{Lat: 0, Lon: 180},
			expectedKm:  20015.1,
			toleranceKm: 1.0,
		},
		{
			name:        "across a small town",
			a:           GeoPoint{Lat: 32.8423, Lon: -104.4036},
			b:           GeoPoint{Lat: 32.8500, Lon: -104.3900},
			expectedKm:  1.53,
			toleranceKm: 0.05,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Haversine(tt.a, tt.b)
			assert.InDelta(t, tt.expectedKm, got, tt.toleranceKm)
		})
	}
}

func TestHaversine_Symmetric(t *testing.T) {
	a := GeoPoint{Lat: 32.84, Lon: -104.40}
	b := GeoPoint{Lat: 35.08, Lon: -106.65}

	assert.InDelta(t, Haversine(a, b), Haversine(b, a), 1e-9)
}

func TestVenueCandidate_ContactFlags(t *testing.T) {
	phone := "+1 575 555 0100"
	empty := ""

	assert.False(t, VenueCandidate{}.HasPhone())
	assert.False(t, VenueCandidate{Phone: &empty}.HasPhone())
	assert.True(t, VenueCandidate{Phone: &phone}.HasPhone())

	site := "https://example.com"
	assert.False(t, VenueCandidate{}.HasWebsite())
	assert.True(t, VenueCandidate{Website: &site}.HasWebsite())
}
