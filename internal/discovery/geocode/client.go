// internal/discovery/geocode/client.go
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	commonerrors "venuescout/internal/common/errors"
	"venuescout/internal/common/httpclient"
	"venuescout/internal/common/logger"
	"venuescout/internal/models"
)

// Client resolves a free-text place query to a center point and a search
// bounding box using a forward-geocoding endpoint. No caching here: geocoding
// is cheap and infrequent relative to area queries.
type Client struct {
	http    *httpclient.Client
	baseURL string
	padding float64
	logger  logger.Logger
}

func New(http *httpclient.Client, baseURL string, padding float64, log logger.Logger) *Client {
	return &Client{
		http:    http,
		baseURL: baseURL,
		padding: padding,
		logger:  log.WithFields(map[string]interface{}{"component": "geocoder"}),
	}
}

// Resolve requests the single best match for placeQuery. Returns
// ErrPlaceNotFound when the upstream has no match.
func (c *Client) Resolve(ctx context.Context, placeQuery string) (models.GeoPoint, models.BoundingBox, error) {
	var zeroPoint models.GeoPoint
	var zeroBox models.BoundingBox

	q := url.Values{}
	q.Set("q", placeQuery)
	q.Set("format", "json")
	q.Set("limit", "1")

	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return zeroPoint, zeroBox, fmt.Errorf("build geocode request: %w", err)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return zeroPoint, zeroBox, err
	}
	defer resp.Body.Close()

	var results []geocodeResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return zeroPoint, zeroBox, fmt.Errorf("decode geocode response: %w", err)
	}

	if len(results) == 0 {
		return zeroPoint, zeroBox, commonerrors.NewPlaceNotFoundError(placeQuery)
	}

	best := results[0]
	lat, err := strconv.ParseFloat(best.Lat, 64)
	if err != nil {
		return zeroPoint, zeroBox, fmt.Errorf("parse geocode latitude %q: %w", best.Lat, err)
	}
	lon, err := strconv.ParseFloat(best.Lon, 64)
	if err != nil {
		return zeroPoint, zeroBox, fmt.Errorf("parse geocode longitude %q: %w", best.Lon, err)
	}

	center := models.GeoPoint{Lat: lat, Lon: lon}
	if err := center.Validate(); err != nil {
		return zeroPoint, zeroBox, fmt.Errorf("geocode center: %w", err)
	}

	bbox := c.deriveBBox(center, best.BoundingBox)

	c.logger.Debug("place resolved", map[string]interface{}{
		"placeQuery":  placeQuery,
		"displayName": best.DisplayName,
		"lat":         lat,
		"lon":         lon,
	})

	return center, bbox, nil
}

// deriveBBox keeps the upstream south/north bounds but widens west/east to
// lon ± padding. Upstream boxes are often too tight around a town center for
// a useful area query, so the widening is deliberate.
func (c *Client) deriveBBox(center models.GeoPoint, raw []string) models.BoundingBox {
	south := center.Lat - c.padding
	north := center.Lat + c.padding

	if len(raw) >= 2 {
		if s, err := strconv.ParseFloat(raw[0], 64); err == nil {
			south = s
		}
		if n, err := strconv.ParseFloat(raw[1], 64); err == nil {
			north = n
		}
	}
	if south >= north {
		south = center.Lat - c.padding
		north = center.Lat + c.padding
	}

	return models.BoundingBox{
		South: south,
		West:  center.Lon - c.padding,
		North: north,
		East:  center.Lon + c.padding,
	}
}
