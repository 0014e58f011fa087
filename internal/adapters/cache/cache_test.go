package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/dakheliyah/vms/internal/domain/model"
)

type countingFetcher struct {
	calls atomic.Int32
	err   error
}

func (f *countingFetcher) FetchCapacity(_ context.Context, _ model.Credential, eventID int64) ([]model.Venue, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return []model.Venue{{ID: eventID * 10, Name: "Saifee Masjid", Capacity: 5, Availability: 5}}, nil
}

// deadRedis points at a port nothing listens on.
func deadRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
}

func TestCapacityCachePassthrough(t *testing.T) {
	Convey("Given a cache without Redis", t, func() {
		f := &countingFetcher{}
		c := NewCapacityCache(f, nil, WithTTL(time.Minute))
		ctx := context.Background()

		Convey("Then every fetch should reach the backend", func() {
			So(c.Enabled(), ShouldBeFalse)
			v1, err := c.FetchCapacity(ctx, model.NewCredential("t"), 1)
			So(err, ShouldBeNil)
			v2, err := c.Fetch(ctx, model.NewCredential("t"), 1, false)
			So(err, ShouldBeNil)
			So(v1, ShouldResemble, v2)
			So(f.calls.Load(), ShouldEqual, 2)
			So(c.Invalidate(ctx, 1), ShouldBeNil)
		})
	})

	Convey("Given a cache with a zero TTL", t, func() {
		rdb := deadRedis()
		Reset(func() { _ = rdb.Close() })
		c := NewCapacityCache(&countingFetcher{}, rdb)

		So(c.Enabled(), ShouldBeFalse)
	})
}

func TestCapacityCacheDegrades(t *testing.T) {
	Convey("Given a cache whose Redis is unreachable", t, func() {
		rdb := deadRedis()
		Reset(func() { _ = rdb.Close() })
		f := &countingFetcher{}
		c := NewCapacityCache(f, rdb, WithTTL(time.Minute), WithKeyPrefix("test:capacity"))
		ctx := context.Background()

		Convey("When fetching", func() {
			venues, err := c.FetchCapacity(ctx, model.NewCredential("t"), 2)

			Convey("Then the backend result should still be returned", func() {
				So(err, ShouldBeNil)
				So(len(venues), ShouldEqual, 1)
				So(venues[0].ID, ShouldEqual, 20)
				So(f.calls.Load(), ShouldEqual, 1)
			})
		})

		Convey("When invalidating", func() {
			err := c.Invalidate(ctx, 2)

			Convey("Then the Redis error should be reported", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When the backend fails", func() {
			f.err = errors.New("boom")
			_, err := c.Fetch(ctx, model.NewCredential("t"), 2, true)

			Convey("Then the error should be returned unchanged", func() {
				So(err, ShouldEqual, f.err)
			})
		})

		Convey("Then keys should carry the prefix and event id", func() {
			So(c.key(42), ShouldEqual, "test:capacity:42")
		})
	})
}

func TestNewRedisClient(t *testing.T) {
	Convey("Given Redis settings", t, func() {
		Convey("When no address is configured", func() {
			rdb, err := NewRedisClient(context.Background(), RedisConfig{})

			Convey("Then no client and no error should be returned", func() {
				So(rdb, ShouldBeNil)
				So(err, ShouldBeNil)
			})
		})

		Convey("When the server is unreachable", func() {
			rdb, err := NewRedisClient(context.Background(), RedisConfig{Addr: "127.0.0.1:1"})

			Convey("Then the ping error should be returned", func() {
				So(rdb, ShouldBeNil)
				So(err, ShouldNotBeNil)
			})
		})
	})
}
