// Package geo holds the point, bounding-box and great-circle helpers used by
// the tree map queries.
package geo

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// EarthRadiusMeters is the mean Earth radius used by Haversine.
const EarthRadiusMeters = 6371000.0

// Errors returned while reading a stored or submitted location.
var (
	ErrInvalidJSON       = errors.New("location is not valid JSON")
	ErrNotPoint          = errors.New("location is not a GeoJSON Point")
	ErrInvalidCoordinate = errors.New("Invalid coordinate format")
	ErrInvalidLocation   = errors.New("Location must be valid GeoJSON or coordinate string")
)

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// BoundingBox is an inclusive latitude/longitude rectangle.
type BoundingBox struct {
	MinLat float64 `json:"minLat"`
	MaxLat float64 `json:"maxLat"`
	MinLng float64 `json:"minLng"`
	MaxLng float64 `json:"maxLng"`
}

// Contains reports whether p lies inside the box, edges included.
func (b BoundingBox) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}

// GeoJSONPoint is the stored form: coordinates are [longitude, latitude].
type GeoJSONPoint struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// Point converts the GeoJSON coordinate order into a Point.
func (g GeoJSONPoint) Point() Point {
	return Point{Lat: g.Coordinates[1], Lng: g.Coordinates[0]}
}

// NewGeoJSONPoint builds a GeoJSON Point for p.
func NewGeoJSONPoint(p Point) GeoJSONPoint {
	return GeoJSONPoint{Type: "Point", Coordinates: []float64{p.Lng, p.Lat}}
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Haversine returns the great-circle distance between a and b in meters.
func Haversine(a, b Point) float64 {
	phi1 := toRadians(a.Lat)
	phi2 := toRadians(b.Lat)
	dPhi := toRadians(b.Lat - a.Lat)
	dLambda := toRadians(b.Lng - a.Lng)

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

// ParsePoint decodes a stored location. Anything other than a GeoJSON Point
// with at least two coordinates is rejected.
func ParsePoint(location string) (Point, error) {
	var g GeoJSONPoint
	if err := json.Unmarshal([]byte(location), &g); err != nil {
		return Point{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if g.Type != "Point" || len(g.Coordinates) < 2 {
		return Point{}, ErrNotPoint
	}
	return g.Point(), nil
}

// NormalizeLocation accepts a GeoJSON object or a "lat,lng" string and
// returns the serialized GeoJSON to store.
func NormalizeLocation(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidLocation
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &obj); err == nil {
		var g GeoJSONPoint
		if err := json.Unmarshal([]byte(raw), &g); err != nil || g.Type != "Point" || len(g.Coordinates) < 2 {
			return "", ErrInvalidLocation
		}
		if !validLatLng(g.Coordinates[1], g.Coordinates[0]) {
			return "", ErrInvalidCoordinate
		}
		return encode(g)
	}

	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return "", ErrInvalidLocation
	}
	lat, latErr := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, lngErr := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if latErr != nil || lngErr != nil || !validLatLng(lat, lng) {
		return "", ErrInvalidCoordinate
	}
	return encode(NewGeoJSONPoint(Point{Lat: lat, Lng: lng}))
}

func validLatLng(lat, lng float64) bool {
	return !math.IsNaN(lat) && !math.IsNaN(lng) &&
		lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

func encode(g GeoJSONPoint) (string, error) {
	b, err := json.Marshal(g)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
