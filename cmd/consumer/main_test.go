package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/alanoney1-alt/UpTend-sub012/internal/geo"
	"github.com/alanoney1-alt/UpTend-sub012/internal/models"
)

type fakeRedis struct {
	geoErrs  int
	hsetErrs int
	geoAdds  []*redis.GeoLocation
	hsets    []string
}

func (f *fakeRedis) GeoAdd(ctx context.Context, key string, loc *redis.GeoLocation) error {
	if f.geoErrs > 0 {
		f.geoErrs--
		return errors.New("geoadd failed")
	}
	f.geoAdds = append(f.geoAdds, loc)
	return nil
}

func (f *fakeRedis) HSet(ctx context.Context, key string, values map[string]interface{}) error {
	if f.hsetErrs > 0 {
		f.hsetErrs--
		return errors.New("hset failed")
	}
	f.hsets = append(f.hsets, key)
	return nil
}

func testLocation() geo.ProLocation {
	return geo.ProLocation{ProID: "pro-1", Coord: models.Coord{Lat: 51.5, Lon: -0.1}}
}

func TestUpdateRedisWithRetrySucceedsFirstTry(t *testing.T) {
	f := &fakeRedis{}
	err := updateRedisWithRetry(context.Background(), f, "pros_geo", testLocation(), 3, time.Millisecond)
	assert.NoError(t, err)
	assert.Len(t, f.geoAdds, 1)
	assert.Equal(t, "pro-1", f.geoAdds[0].Name)
	assert.Equal(t, []string{"pro:meta:pro-1"}, f.hsets)
}

func TestUpdateRedisWithRetryRecoversFromTransientError(t *testing.T) {
	f := &fakeRedis{geoErrs: 2}
	err := updateRedisWithRetry(context.Background(), f, "pros_geo", testLocation(), 3, time.Millisecond)
	assert.NoError(t, err)
	assert.Len(t, f.geoAdds, 1)
}

func TestUpdateRedisWithRetryExhaustsAttempts(t *testing.T) {
	f := &fakeRedis{geoErrs: 5}
	err := updateRedisWithRetry(context.Background(), f, "pros_geo", testLocation(), 3, time.Millisecond)
	assert.Error(t, err)
	assert.Empty(t, f.geoAdds)
}

func TestUpdateRedisWithRetryHSetFailure(t *testing.T) {
	f := &fakeRedis{hsetErrs: 5}
	err := updateRedisWithRetry(context.Background(), f, "pros_geo", testLocation(), 3, time.Millisecond)
	assert.Error(t, err)
}
