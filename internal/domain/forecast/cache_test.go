package forecast

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

type stubCache struct {
	gen       int64
	stored    map[int64]*Cached
	down      bool
	incrCalls int
}

func (s *stubCache) Generation(context.Context) (int64, error) { return s.gen, nil }

func (s *stubCache) Load(_ context.Context, gen int64) (*Cached, error) { return s.stored[gen], nil }

func (s *stubCache) Store(_ context.Context, gen int64, c *Cached) error {
	s.stored[gen] = c
	return nil
}

func (s *stubCache) Invalidate(context.Context) (int64, error) {
	s.incrCalls++
	if s.down {
		return 0, errors.New("connection refused")
	}
	s.gen++
	return s.gen, nil
}

func TestConsistentCache(t *testing.T) {
	Convey("Given a cache wrapped for consistency", t, func() {
		ctx := context.Background()
		inner := &stubCache{stored: map[int64]*Cached{}}
		now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
		c := NewConsistentCache(inner)
		c.now = func() time.Time { return now }

		Convey("It passes through while invalidations succeed", func() {
			gen, err := c.Invalidate(ctx)
			So(err, ShouldBeNil)
			So(gen, ShouldEqual, 1)
			So(c.Stale(), ShouldBeFalse)

			So(c.Store(ctx, 1, &Cached{Skipped: 2}), ShouldBeNil)
			got, err := c.Generation(ctx)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, 1)
		})

		Convey("A failed invalidation hides the cache until one succeeds", func() {
			inner.down = true
			_, err := c.Invalidate(ctx)
			So(err, ShouldNotBeNil)
			So(c.Stale(), ShouldBeTrue)

			_, err = c.Generation(ctx)
			So(errors.Is(err, ErrCacheStale), ShouldBeTrue)
			So(inner.incrCalls, ShouldEqual, 2)

			So(c.Store(ctx, 0, &Cached{}), ShouldBeNil)
			So(inner.stored, ShouldBeEmpty)

			Convey("Retries are throttled", func() {
				inner.down = false
				_, err := c.Generation(ctx)
				So(errors.Is(err, ErrCacheStale), ShouldBeTrue)
				So(inner.incrCalls, ShouldEqual, 2)

				Convey("And the next retry clears the stale mark", func() {
					now = now.Add(time.Second)
					gen, err := c.Generation(ctx)
					So(err, ShouldBeNil)
					So(gen, ShouldEqual, 1)
					So(c.Stale(), ShouldBeFalse)
				})
			})
		})
	})
}
