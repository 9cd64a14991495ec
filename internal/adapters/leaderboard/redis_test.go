package leaderboard_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/okian/buzz/internal/adapters/leaderboard"
	"github.com/okian/buzz/internal/domain/model"
	"github.com/okian/buzz/pkg/logger"
	"github.com/redis/go-redis/v9"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRedisStoreKeys(t *testing.T) {
	Convey("Given a redis store", t, func() {
		ctx := context.Background()
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client.Close()
		store := leaderboard.NewRedisStore(client, leaderboard.WithLogger(logger.Nop()))

		Convey("When scores are written and trimmed", func() {
			touched, err := store.UpdateScores(ctx, []model.ScoredItem{
				{TweetID: "t1", Score: 8, Categories: []model.CategoryShare{{CategoryID: "news", Percentage: 25}}},
			})
			So(err, ShouldBeNil)

			Convey("Then the sorted set lives under explore:category:<id>", func() {
				So(mr.Exists("explore:category:news"), ShouldBeTrue)
				score, err := mr.ZScore("explore:category:news", "t1")
				So(err, ShouldBeNil)
				So(score, ShouldEqual, 2.0)
			})

			Convey("Then a write alone sets no expiry", func() {
				So(mr.TTL("explore:category:news"), ShouldEqual, time.Duration(0))
			})

			Convey("Then trim sets the 48h expiry", func() {
				So(store.Trim(ctx, touched), ShouldBeNil)
				So(mr.TTL("explore:category:news"), ShouldEqual, 48*time.Hour)
			})
		})

		Convey("When the connection is down", func() {
			mr.Close()
			_, err := store.UpdateScores(ctx, []model.ScoredItem{
				{TweetID: "t1", Score: 8, Categories: []model.CategoryShare{{CategoryID: "news", Percentage: 100}}},
			})

			Convey("Then the write error surfaces", func() {
				So(err, ShouldNotBeNil)
				So(store.Ping(ctx), ShouldNotBeNil)
			})
		})
	})
}
