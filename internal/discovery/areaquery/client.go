// internal/discovery/areaquery/client.go
package areaquery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	commonerrors "venuescout/internal/common/errors"
	"venuescout/internal/common/httpclient"
	"venuescout/internal/common/logger"
	"venuescout/internal/discovery/spatialcache"
	"venuescout/internal/models"
)

// Client queries an external POI index for venues inside a bounding box,
// normalizing the heterogeneous response into VenueCandidates. Lookups are
// read-through against the spatial cache; a cache hit makes no network call.
type Client struct {
	http     *httpclient.Client
	cache    *spatialcache.Cache
	baseURL  string
	category string
	limit    int
	logger   logger.Logger
}

func New(http *httpclient.Client, cache *spatialcache.Cache, baseURL, category string, limit int, log logger.Logger) *Client {
	return &Client{
		http:     http,
		cache:    cache,
		baseURL:  baseURL,
		category: category,
		limit:    limit,
		logger:   log.WithFields(map[string]interface{}{"component": "areaquery"}),
	}
}

// FindInArea returns the venue candidates inside bbox. degraded is true when
// the upstream exhausted its retries: the search then proceeds on an empty
// candidate set instead of failing, and the caller surfaces a warning.
func (c *Client) FindInArea(ctx context.Context, bbox models.BoundingBox) (candidates []models.VenueCandidate, degraded bool, err error) {
	if payload, found := c.cache.Get(ctx, bbox); found {
		c.logger.Debug("area query served from cache", map[string]interface{}{
			"candidates": len(payload),
		})
		return payload, false, nil
	}

	raw, err := c.fetch(ctx, bbox)
	if err != nil {
		if errors.Is(err, commonerrors.ErrUpstreamUnavailable) {
			c.logger.Warn("area query upstream unavailable, degrading to empty result", map[string]interface{}{
				"error": err.Error(),
			})
			return []models.VenueCandidate{}, true, nil
		}
		return nil, false, err
	}

	candidates = normalize(raw)
	c.cache.Put(ctx, bbox, candidates)

	c.logger.Info("area query completed", map[string]interface{}{
		"elements":   len(raw.Elements),
		"candidates": len(candidates),
	})
	return candidates, false, nil
}

func (c *Client) fetch(ctx context.Context, bbox models.BoundingBox) (*areaResponse, error) {
	form := url.Values{}
	form.Set("data", c.buildQuery(bbox))

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/interpreter", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build area query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload areaResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode area query response: %w", err)
	}
	return &payload, nil
}

// buildQuery renders the structured bbox query. Nodes, ways and relations are
// all requested; "out center" asks the index to attach centroids to polygon
// elements.
func (c *Client) buildQuery(bbox models.BoundingBox) string {
	box := fmt.Sprintf("(%f,%f,%f,%f)", bbox.South, bbox.West, bbox.North, bbox.East)
	return fmt.Sprintf(
		`[out:json][timeout:60];(node["amenity"=%q]%s;way["amenity"=%q]%s;relation["amenity"=%q]%s;);out center %d;`,
		c.category, box, c.category, box, c.category, box, c.limit,
	)
}

// normalize resolves raw elements into VenueCandidates. Elements without a
// usable name or coordinate are dropped here, before scoring sees them.
func normalize(payload *areaResponse) []models.VenueCandidate {
	candidates := make([]models.VenueCandidate, 0, len(payload.Elements))

	for _, el := range payload.Elements {
		name := el.Tags["name"]
		if name == "" {
			continue
		}
		location, ok := el.location()
		if !ok {
			continue
		}
		if location.Validate() != nil {
			continue
		}

		candidates = append(candidates, models.VenueCandidate{
			ExternalID:    fmt.Sprintf("%s/%d", el.Type, el.ID),
			Name:          name,
			Address:       synthesizeAddress(el.Tags),
			Phone:         firstTag(el.Tags, "phone", "contact:phone"),
			Website:       firstTag(el.Tags, "website", "contact:website"),
			Location:      location,
			RawAttributes: el.Tags,
		})
	}

	return candidates
}
