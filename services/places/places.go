// Package places looks up nearby amenities through OpenStreetMap's Overpass API.
package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"migrantconnect/services"
)

const ServiceName = "places"

const (
	DefaultAmenity = "hospital"
	DefaultRadius  = 2000
	MaxRadius      = 10000
	DefaultLimit   = 25
)

var amenityPattern = regexp.MustCompile(`^[a-z_]{1,32}$`)

// Query is a validated nearby-amenity request. Radius is in metres.
type Query struct {
	Lat     float64
	Lng     float64
	Amenity string
	Radius  int
	Limit   int
}

type Place struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Amenity string  `json:"amenity"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

type Finder interface {
	Nearby(ctx context.Context, q Query) ([]Place, error)
}

// ErrInvalidQuery reports a malformed query; the message is user-facing.
var ErrInvalidQuery = errors.New("invalid query")

// Normalize fills defaults and validates q.
func (q Query) Normalize() (Query, error) {
	q.Amenity = strings.ToLower(strings.TrimSpace(q.Amenity))
	if q.Amenity == "" {
		q.Amenity = DefaultAmenity
	}
	if q.Radius == 0 {
		q.Radius = DefaultRadius
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	switch {
	case !finite(q.Lat) || !finite(q.Lng):
		return Query{}, fmt.Errorf("%w: lat/lng must be finite numbers", ErrInvalidQuery)
	case q.Lat < -90 || q.Lat > 90 || q.Lng < -180 || q.Lng > 180:
		return Query{}, fmt.Errorf("%w: lat/lng out of range", ErrInvalidQuery)
	case q.Radius < 1 || q.Radius > MaxRadius:
		return Query{}, fmt.Errorf("%w: radius must be between 1 and %d", ErrInvalidQuery, MaxRadius)
	case !amenityPattern.MatchString(q.Amenity):
		return Query{}, fmt.Errorf("%w: invalid amenity", ErrInvalidQuery)
	}
	return q, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Overpass queries an Overpass interpreter endpoint.
type Overpass struct {
	endpoint string
	client   *http.Client
}

func NewOverpass(endpoint string, client *http.Client) *Overpass {
	return &Overpass{endpoint: endpoint, client: client}
}

type overpassResponse struct {
	Elements []struct {
		Type string            `json:"type"`
		ID   int64             `json:"id"`
		Lat  float64           `json:"lat"`
		Lon  float64           `json:"lon"`
		Tags map[string]string `json:"tags"`
	} `json:"elements"`
}

// BuildQuery renders the Overpass QL for q.
func BuildQuery(q Query) string {
	return fmt.Sprintf(`[out:json][timeout:25];node(around:%d,%s,%s)["amenity"="%s"];out body %d;`,
		q.Radius,
		strconv.FormatFloat(q.Lat, 'f', -1, 64),
		strconv.FormatFloat(q.Lng, 'f', -1, 64),
		q.Amenity,
		q.Limit,
	)
}

func (o *Overpass) Nearby(ctx context.Context, q Query) ([]Place, error) {
	q, err := q.Normalize()
	if err != nil {
		return nil, err
	}

	form := url.Values{"data": {BuildQuery(q)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", ServiceName, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	body, _, err := services.Do(o.client, ServiceName, req)
	if err != nil {
		return nil, err
	}
	var resp overpassResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %s: decode response: %v", services.ErrUnavailable, ServiceName, err)
	}

	out := make([]Place, 0, len(resp.Elements))
	for _, el := range resp.Elements {
		if el.Type != "node" {
			continue
		}
		name := el.Tags["name"]
		if name == "" {
			name = el.Tags["name:en"]
		}
		out = append(out, Place{
			ID:      el.ID,
			Name:    name,
			Amenity: el.Tags["amenity"],
			Lat:     el.Lat,
			Lng:     el.Lon,
			Address: address(el.Tags),
		})
	}
	return out, nil
}

func address(tags map[string]string) string {
	var parts []string
	if s := strings.TrimSpace(tags["addr:housenumber"] + " " + tags["addr:street"]); s != "" {
		parts = append(parts, s)
	}
	if c := tags["addr:city"]; c != "" {
		parts = append(parts, c)
	}
	return strings.Join(parts, ", ")
}

// Empty finds nothing. Used when no endpoint is configured.
type Empty struct{}

func (Empty) Nearby(_ context.Context, q Query) ([]Place, error) {
	if _, err := q.Normalize(); err != nil {
		return nil, err
	}
	return []Place{}, nil
}

func New(endpoint string, client *http.Client) Finder {
	if strings.TrimSpace(endpoint) == "" {
		return Empty{}
	}
	return NewOverpass(endpoint, client)
}
