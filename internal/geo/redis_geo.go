package geo

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanoney1-alt/UpTend-sub012/internal/models"
)

// RedisGeo implements Locations using Redis GEO commands so the HTTP
// server and the kafka consumer can share one live position index.
type RedisGeo struct {
	client *redis.Client
	key    string
}

func NewRedisGeo(addr, password, key string) *RedisGeo {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisGeo{client: c, key: key}
}

// NewRedisGeoWithClient wires an existing client; used by tests and the consumer.
func NewRedisGeoWithClient(c *redis.Client, key string) *RedisGeo {
	return &RedisGeo{client: c, key: key}
}

func (r *RedisGeo) Upsert(loc ProLocation) {
	ctx := context.Background()
	_, _ = r.client.GeoAdd(ctx, r.key, &redis.GeoLocation{
		Longitude: loc.Coord.Lon,
		Latitude:  loc.Coord.Lat,
		Name:      loc.ProID,
	}).Result()
	_ = r.client.HSet(ctx, metaKey(loc.ProID), map[string]interface{}{
		"updated": time.Now().Format(time.RFC3339),
	}).Err()
}

func (r *RedisGeo) Nearby(lat, lon float64, radiusMiles float64, limit int) []ProLocation {
	ctx := context.Background()
	res, err := r.client.GeoRadius(ctx, r.key, lon, lat, &redis.GeoRadiusQuery{
		Radius:    radiusMiles,
		Unit:      "mi",
		WithCoord: true,
		WithDist:  true,
		Count:     limit,
		Sort:      "ASC",
	}).Result()
	if err != nil {
		return nil
	}
	out := make([]ProLocation, 0, len(res))
	for _, g := range res {
		out = append(out, ProLocation{
			ProID: g.Name,
			Coord: models.Coord{Lat: g.Latitude, Lon: g.Longitude},
		})
	}
	return out
}

func metaKey(id string) string { return "pro:meta:" + id }
