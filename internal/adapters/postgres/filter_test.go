package postgres

import (
	"testing"
	"time"

	"github.com/okian/buzz/internal/domain/candidates"
	"github.com/okian/buzz/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCandidateSQL(t *testing.T) {
	Convey("Given a point in time", t, func() {
		now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

		Convey("When the window is activity bounded", func() {
			f := candidates.NewFilter(now, model.JobParameters{SinceHours: 2, MaxAgeHours: 72, BatchSize: 10})
			query, args := countCandidatesSQL(f)

			Convey("Then both predicates share one active placeholder", func() {
				So(query, ShouldEqual, "SELECT COUNT(*) FROM tweets t WHERE t.deleted_at IS NULL AND t.created_at > $1 AND (t.updated_at > $2 OR t.created_at > $2)")
				So(args, ShouldResemble, []any{now.Add(-72 * time.Hour), now.Add(-2 * time.Hour)})
			})
		})

		Convey("When force_all is set", func() {
			f := candidates.NewFilter(now, model.JobParameters{SinceHours: 2, MaxAgeHours: 72, BatchSize: 10, ForceAll: true})
			where, args := candidateWhere(f)

			Convey("Then only the age floor remains", func() {
				So(where, ShouldEqual, "t.deleted_at IS NULL AND t.created_at > $1")
				So(len(args), ShouldEqual, 1)
			})
		})

		Convey("When building a page query", func() {
			f := candidates.NewFilter(now, model.JobParameters{SinceHours: 2, MaxAgeHours: 72, BatchSize: 10})
			query, args := pageCandidatesSQL(f, 40, 20)

			Convey("Then limit and offset follow the filter args", func() {
				So(query, ShouldContainSubstring, "ORDER BY t.updated_at DESC, t.id DESC")
				So(query, ShouldContainSubstring, "LIMIT $3 OFFSET $4")
				So(args[2], ShouldEqual, 20)
				So(args[3], ShouldEqual, 40)
			})
		})
	})
}

func TestNonNegative(t *testing.T) {
	Convey("Negative counters clamp to zero", t, func() {
		So(nonNegative(-4), ShouldEqual, uint64(0))
		So(nonNegative(7), ShouldEqual, uint64(7))
	})
}
