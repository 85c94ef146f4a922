// README: Address geocoding backed by the Google Maps API.
package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"epsilon/internal/types"
)

// GeocodeService resolves address names to coordinates. Orders created
// without coordinates get them filled in here so the geofence checks can
// evaluate against the addresses.
type GeocodeService struct {
	client *maps.Client
}

func NewGeocodeService(apiKey string) (*GeocodeService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GeocodeService{client: client}, nil
}

// Geocode returns the coordinate of the first match for the address name.
func (s *GeocodeService) Geocode(ctx context.Context, name string) (types.Coordinate, error) {
	r := &maps.GeocodingRequest{
		Address:  name,
		Region:   "DK",
		Language: "da",
	}
	results, err := s.client.Geocode(ctx, r)
	if err != nil {
		return types.Coordinate{}, fmt.Errorf("maps api error: %w", err)
	}
	if len(results) == 0 {
		return types.Coordinate{}, fmt.Errorf("no geocoding result for %q", name)
	}

	loc := results[0].Geometry.Location
	return types.Coordinate{Latitude: loc.Lat, Longitude: loc.Lng}, nil
}
