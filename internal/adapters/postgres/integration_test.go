package postgres_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/buzz/internal/adapters/postgres"
	"github.com/okian/buzz/internal/domain/candidates"
	"github.com/okian/buzz/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// Set BUZZ_TEST_POSTGRES_DSN to a disposable database to run these.
const dsnEnv = "BUZZ_TEST_POSTGRES_DSN"

func TestRepositoriesIntegration(t *testing.T) {
	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		t.Skipf("%s not set", dsnEnv)
	}

	ctx := context.Background()
	pool, err := postgres.Connect(ctx, dsn, 2)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	schema, err := os.ReadFile(filepath.Join("..", "..", "..", "migrations", "0001_explore.sql"))
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	if _, err := pool.Exec(ctx, string(schema)); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := pool.Exec(ctx, "TRUNCATE tweets, tweet_categories, user_interests"); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	seed := []struct {
		id               string
		likes            int
		created, updated time.Duration
		deleted          bool
	}{
		{"t1", 10, time.Hour, 10 * time.Minute, false},
		{"t2", 5, 30 * time.Hour, 20 * time.Minute, false},
		{"t3", 1, 10 * time.Hour, 9 * time.Hour, false},
		{"t4", 9, 100 * time.Hour, time.Minute, false},
		{"t5", 3, time.Hour, time.Minute, true},
	}
	for _, s := range seed {
		var deletedAt *time.Time
		if s.deleted {
			deletedAt = &now
		}
		if _, err := pool.Exec(ctx,
			`INSERT INTO tweets (id, author_id, content, likes_count, created_at, updated_at, deleted_at) VALUES ($1, 'u1', $1, $2, $3, $4, $5)`,
			s.id, s.likes, now.Add(-s.created), now.Add(-s.updated), deletedAt); err != nil {
			t.Fatalf("seed %s: %v", s.id, err)
		}
	}
	for _, c := range [][3]any{{"t1", "news", 80.0}, {"t1", "tech", 20.0}, {"t2", "sports", 100.0}} {
		if _, err := pool.Exec(ctx, `INSERT INTO tweet_categories VALUES ($1, $2, $3)`, c[0], c[1], c[2]); err != nil {
			t.Fatalf("seed category: %v", err)
		}
	}
	for _, i := range [][3]any{{"u1", "tech", 0.9}, {"u1", "news", 0.4}, {"u1", "music", 0.1}} {
		if _, err := pool.Exec(ctx, `INSERT INTO user_interests VALUES ($1, $2, $3)`, i[0], i[1], i[2]); err != nil {
			t.Fatalf("seed interest: %v", err)
		}
	}

	Convey("Given seeded tables", t, func() {
		params := model.JobParameters{SinceHours: 2, MaxAgeHours: 72, BatchSize: 10}
		repo := postgres.NewCandidateRepository(pool)

		Convey("When counting the active window", func() {
			n, err := repo.Count(ctx, candidates.NewFilter(now, params))

			Convey("Then stale, expired and deleted tweets are excluded", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)
			})
		})

		Convey("When paging a force_all window", func() {
			params.ForceAll = true
			f := candidates.NewFilter(now, params)
			page, err := repo.FetchPage(ctx, f, 0, 2)
			rest, err2 := repo.FetchPage(ctx, f, 2, 2)

			Convey("Then rows come most recently updated first with categories", func() {
				So(err, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(len(page), ShouldEqual, 2)
				So(page[0].TweetID, ShouldEqual, "t1")
				So(page[0].Likes, ShouldEqual, uint64(10))
				So(len(page[0].Categories), ShouldEqual, 2)
				So(page[1].TweetID, ShouldEqual, "t2")
				So(len(rest), ShouldEqual, 1)
				So(rest[0].TweetID, ShouldEqual, "t3")
				So(rest[0].Categories, ShouldBeEmpty)
			})
		})

		Convey("When reading interests", func() {
			got, err := postgres.NewInterestRepository(pool).TopCategories(ctx, "u1", 2)

			Convey("Then the top k come highest first", func() {
				So(err, ShouldBeNil)
				So(got, ShouldResemble, []model.InterestCategory{{CategoryID: "tech", Score: 0.9}, {CategoryID: "news", Score: 0.4}})
			})
		})

		Convey("When hydrating content", func() {
			got, err := postgres.NewContentRepository(pool).FetchByIDs(ctx, []string{"t1", "t5", "missing"})

			Convey("Then only live tweets are returned", func() {
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 1)
				So(got[0].ID, ShouldEqual, "t1")
			})
		})
	})
}
