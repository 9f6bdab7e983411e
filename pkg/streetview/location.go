package streetview

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (c LatLng) String() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lng, 'f', -1, 64)
}

// ParseLatLng parses a "lat,lng" string into a coordinate pair.
func ParseLatLng(s string) (LatLng, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return LatLng{}, fmt.Errorf("%w: lat_lng must be two comma-separated numbers, got %q (use e.g. \"40.714728,-73.998672\")", ErrInvalidInput, s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return LatLng{}, fmt.Errorf("%w: bad latitude in %q", ErrInvalidInput, s)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return LatLng{}, fmt.Errorf("%w: bad longitude in %q", ErrInvalidInput, s)
	}
	return LatLng{Lat: lat, Lng: lng}, nil
}

// Location selects the panorama to fetch. Exactly one of Address, LatLng or
// PanoID must be set.
type Location struct {
	Address string
	LatLng  *LatLng
	PanoID  string
}

// Validate enforces the one-specifier rule.
func (l Location) Validate() error {
	n := 0
	if l.Address != "" {
		n++
	}
	if l.LatLng != nil {
		n++
	}
	if l.PanoID != "" {
		n++
	}
	switch {
	case n == 0:
		return fmt.Errorf("%w: must provide one of: location, lat_lng, or pano_id", ErrInvalidInput)
	case n > 1:
		return fmt.Errorf("%w: provide only one of: location, lat_lng, or pano_id", ErrInvalidInput)
	}
	return nil
}

// apply sets the location query parameters. The pano branch drops radius:
// the API does not use a search radius for direct panorama lookups.
func (l Location) apply(q url.Values) {
	switch {
	case l.Address != "":
		q.Set("location", l.Address)
	case l.LatLng != nil:
		q.Set("location", l.LatLng.String())
	case l.PanoID != "":
		q.Set("pano", l.PanoID)
		q.Del("radius")
	}
}
