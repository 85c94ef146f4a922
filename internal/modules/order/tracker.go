// README: Courier position cache backed by Redis GEO.
package order

import (
	"context"

	"github.com/redis/go-redis/v9"

	"epsilon/internal/types"
)

const courierGeoKey = "couriers:positions"

// RedisTracker keeps the latest reported position per courier so dispatch
// tooling can query who is near a pickup.
type RedisTracker struct {
	redis *redis.Client
}

func NewRedisTracker(client *redis.Client) *RedisTracker {
	return &RedisTracker{redis: client}
}

func (t *RedisTracker) Track(ctx context.Context, userID types.ID, c types.Coordinate) error {
	return t.redis.GeoAdd(ctx, courierGeoKey, &redis.GeoLocation{
		Name:      userID,
		Latitude:  c.Latitude,
		Longitude: c.Longitude,
	}).Err()
}

// Nearby returns couriers within radiusMeters of the position, closest
// first.
func (t *RedisTracker) Nearby(ctx context.Context, c types.Coordinate, radiusMeters float64) ([]types.ID, error) {
	results, err := t.redis.GeoSearch(ctx, courierGeoKey, &redis.GeoSearchQuery{
		Latitude:   c.Latitude,
		Longitude:  c.Longitude,
		Radius:     radiusMeters,
		RadiusUnit: "m",
		Sort:       "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]types.ID, len(results))
	for i, r := range results {
		ids[i] = r
	}
	return ids, nil
}
