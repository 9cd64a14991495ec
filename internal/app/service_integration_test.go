package service_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/okian/buzz/internal/adapters/http/api"
	"github.com/okian/buzz/internal/adapters/leaderboard"
	"github.com/okian/buzz/internal/adapters/mq/jobs"
	service "github.com/okian/buzz/internal/app"
	"github.com/okian/buzz/internal/domain/types"
	"github.com/okian/buzz/pkg/logger"
	"github.com/redis/go-redis/v9"
	. "github.com/smartystreets/goconvey/convey"
)

func TestServiceOverHTTP(t *testing.T) {
	Convey("Given the API over a service backed by redis", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer func() { _ = client.Close() }()
		store := leaderboard.NewRedisStore(client, leaderboard.WithLogger(logger.Nop()))

		svc := service.New(seeded(), store, echoContent{}, service.WithLogger(logger.Nop()))
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(context.Background()) }()

		srv := httptest.NewServer(api.NewServer(svc, svc,
			api.WithChecker("redis", store),
			api.WithStats(svc),
			api.WithLogger(logger.Nop()),
		).Router())
		defer srv.Close()

		Convey("When a recalculation is triggered and settles", func() {
			resp, err := http.Post(srv.URL+"/explore/jobs/recalculate", "application/json", strings.NewReader(`{"force_all":true,"priority":"high"}`))
			So(err, ShouldBeNil)
			var trig jobs.TriggerResult
			So(json.NewDecoder(resp.Body).Decode(&trig), ShouldBeNil)
			_ = resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusAccepted)

			settled := eventually(func() bool {
				r, err := http.Get(srv.URL + "/explore/jobs/" + trig.JobID)
				if err != nil {
					return false
				}
				defer func() { _ = r.Body.Close() }()
				var job api.Job
				if json.NewDecoder(r.Body).Decode(&job) != nil {
					return false
				}
				return job.State == jobs.StateCompleted
			})
			So(settled, ShouldBeTrue)

			Convey("Then the category page reads back from redis", func() {
				r, err := http.Get(srv.URL + "/explore/categories/tech?limit=1")
				So(err, ShouldBeNil)
				defer func() { _ = r.Body.Close() }()
				var page types.CategoryPage
				So(json.NewDecoder(r.Body).Decode(&page), ShouldBeNil)
				So(page.HasMore, ShouldBeTrue)
				So(page.Tweets[0].Tweet.ID, ShouldEqual, "a")
				So(mr.TTL("explore:category:tech"), ShouldEqual, 48*time.Hour)
			})

			Convey("Then health reports redis as up", func() {
				r, err := http.Get(srv.URL + "/healthz")
				So(err, ShouldBeNil)
				_ = r.Body.Close()
				So(r.StatusCode, ShouldEqual, http.StatusOK)
			})
		})
	})
}
