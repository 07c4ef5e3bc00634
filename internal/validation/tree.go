package validation

import (
	"bytes"
	"encoding/json"
	"strings"

	"fruitmap/internal/geo"
	"fruitmap/internal/models"
)

const (
	msgSpeciesID     = "Species ID must be a positive integer"
	msgTitle         = "Title must be between 1 and 200 characters"
	msgDescription   = "Description cannot exceed 1000 characters"
	msgAccessibility = "Accessibility must be one of: public, community, private-permission, restricted"
	msgStatus        = "Status must be one of: active, inactive, seasonal, removed"
)

// Location accepts either a JSON string ("lat,lng" or serialized GeoJSON) or
// an inline GeoJSON object, keeping the raw text for normalization.
type Location string

func (l *Location) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*l = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = Location(s)
	default:
		*l = Location(data)
	}
	return nil
}

type CreateTreeRequest struct {
	SpeciesID     *int     `json:"speciesId"`
	Location      Location `json:"location"`
	Title         string   `json:"title"`
	Description   *string  `json:"description"`
	Accessibility string   `json:"accessibility"`
}

// UpdateTreeRequest is a partial update; absent fields stay nil.
type UpdateTreeRequest struct {
	SpeciesID     *int      `json:"speciesId"`
	Location      *Location `json:"location"`
	Title         *string   `json:"title"`
	Description   *string   `json:"description"`
	Accessibility *string   `json:"accessibility"`
	Status        *string   `json:"status"`
}

func (r *CreateTreeRequest) Validate() error {
	var errs fieldErrors

	if r.SpeciesID == nil || *r.SpeciesID < 1 {
		errs.add("speciesId", msgSpeciesID)
	}
	if strings.TrimSpace(string(r.Location)) == "" {
		errs.add("location", "Location is required")
	}
	r.Title = strings.TrimSpace(r.Title)
	if n := runeLen(r.Title); n < 1 || n > 200 {
		errs.add("title", msgTitle)
	}
	if r.Description != nil && runeLen(*r.Description) > 1000 {
		errs.add("description", msgDescription)
	}
	if r.Accessibility == "" {
		r.Accessibility = models.AccessPublic
	} else if !oneOf(r.Accessibility, models.Accessibilities) {
		errs.add("accessibility", msgAccessibility)
	}

	return errs.err()
}

func (r *UpdateTreeRequest) Validate() error {
	var errs fieldErrors

	if r.SpeciesID != nil && *r.SpeciesID < 1 {
		errs.add("speciesId", msgSpeciesID)
	}
	if r.Location != nil && strings.TrimSpace(string(*r.Location)) == "" {
		errs.add("location", "Location cannot be empty")
	}
	if r.Title != nil {
		title := strings.TrimSpace(*r.Title)
		r.Title = &title
		if n := runeLen(title); n < 1 || n > 200 {
			errs.add("title", msgTitle)
		}
	}
	if r.Description != nil && runeLen(*r.Description) > 1000 {
		errs.add("description", msgDescription)
	}
	if r.Accessibility != nil && !oneOf(*r.Accessibility, models.Accessibilities) {
		errs.add("accessibility", msgAccessibility)
	}
	if r.Status != nil && !oneOf(*r.Status, models.TreeStatuses) {
		errs.add("status", msgStatus)
	}

	return errs.err()
}

// SearchParams are the raw query-string values of a tree search.
type SearchParams struct {
	Query   string
	Species string
	Lat     string
	Lng     string
	Radius  string
}

// SearchQuery is a validated tree search. Near is set only when lat, lng and
// radius are all present.
type SearchQuery struct {
	Query     string
	SpeciesID *int
	Center    *geo.Point
	RadiusKm  float64
}

// ParseSearch validates and converts search parameters.
func ParseSearch(p SearchParams) (*SearchQuery, error) {
	var errs fieldErrors
	q := &SearchQuery{Query: strings.TrimSpace(p.Query)}

	if runeLen(q.Query) > 100 {
		errs.add("query", "Search query cannot exceed 100 characters")
	}
	if species, ok := parseOptionalInt(p.Species); !ok || (species != nil && *species < 1) {
		errs.add("species", msgSpeciesID)
	} else {
		q.SpeciesID = species
	}

	lat, latOK := parseOptionalFloat(p.Lat)
	if !latOK || (lat != nil && (*lat < -90 || *lat > 90)) {
		errs.add("lat", "Latitude must be between -90 and 90")
	}
	lng, lngOK := parseOptionalFloat(p.Lng)
	if !lngOK || (lng != nil && (*lng < -180 || *lng > 180)) {
		errs.add("lng", "Longitude must be between -180 and 180")
	}
	radius, radiusOK := parseOptionalFloat(p.Radius)
	if !radiusOK || (radius != nil && (*radius < 0.1 || *radius > 50)) {
		errs.add("radius", "Search radius must be between 0.1 and 50 kilometers")
	}

	if err := errs.err(); err != nil {
		return nil, err
	}
	if lat != nil && lng != nil && radius != nil {
		q.Center = &geo.Point{Lat: *lat, Lng: *lng}
		q.RadiusKm = *radius
	}
	return q, nil
}

// ListParams are the raw query-string values of a tree listing.
type ListParams struct {
	SpeciesID     string
	Accessibility string
	Status        string
	Limit         string
	Offset        string
	MinLat        string
	MaxLat        string
	MinLng        string
	MaxLng        string
	Lat           string
	Lng           string
	Radius        string
}

// ListQuery is a validated tree listing. BBox is set only when all four
// bounds are present; Center only when lat, lng and radius are.
type ListQuery struct {
	SpeciesID     *int
	Accessibility string
	Status        string
	Limit         int
	Offset        int
	BBox          *geo.BoundingBox
	Center        *geo.Point
	RadiusKm      float64
}

// ParseList validates and converts listing parameters.
func ParseList(p ListParams) (*ListQuery, error) {
	var errs fieldErrors
	q := &ListQuery{
		Accessibility: strings.TrimSpace(p.Accessibility),
		Status:        strings.TrimSpace(p.Status),
	}

	if species, ok := parseOptionalInt(p.SpeciesID); !ok || (species != nil && *species < 1) {
		errs.add("speciesId", msgSpeciesID)
	} else {
		q.SpeciesID = species
	}
	if q.Accessibility != "" && !oneOf(q.Accessibility, models.Accessibilities) {
		errs.add("accessibility", msgAccessibility)
	}
	if q.Status != "" && !oneOf(q.Status, models.TreeStatuses) {
		errs.add("status", msgStatus)
	}
	if limit, ok := parseOptionalInt(p.Limit); !ok || (limit != nil && (*limit < 1 || *limit > 500)) {
		errs.add("limit", "Limit must be between 1 and 500")
	} else if limit != nil {
		q.Limit = *limit
	}
	if offset, ok := parseOptionalInt(p.Offset); !ok || (offset != nil && *offset < 0) {
		errs.add("offset", "Offset must be a non-negative integer")
	} else if offset != nil {
		q.Offset = *offset
	}

	bounds := make([]*float64, 4)
	for i, raw := range []string{p.MinLat, p.MaxLat, p.MinLng, p.MaxLng} {
		v, ok := parseOptionalFloat(raw)
		if !ok {
			errs.add("bounds", "Bounding box values must be numbers")
		}
		bounds[i] = v
	}
	lat, latOK := parseOptionalFloat(p.Lat)
	if !latOK || (lat != nil && (*lat < -90 || *lat > 90)) {
		errs.add("lat", "Latitude must be between -90 and 90")
	}
	lng, lngOK := parseOptionalFloat(p.Lng)
	if !lngOK || (lng != nil && (*lng < -180 || *lng > 180)) {
		errs.add("lng", "Longitude must be between -180 and 180")
	}
	radius, radiusOK := parseOptionalFloat(p.Radius)
	if !radiusOK || (radius != nil && *radius <= 0) {
		errs.add("radius", "Radius must be a positive number of kilometers")
	}

	if err := errs.err(); err != nil {
		return nil, err
	}

	if bounds[0] != nil && bounds[1] != nil && bounds[2] != nil && bounds[3] != nil {
		q.BBox = &geo.BoundingBox{MinLat: *bounds[0], MaxLat: *bounds[1], MinLng: *bounds[2], MaxLng: *bounds[3]}
	}
	if lat != nil && lng != nil && radius != nil {
		q.Center = &geo.Point{Lat: *lat, Lng: *lng}
		q.RadiusKm = *radius
	}
	return q, nil
}
