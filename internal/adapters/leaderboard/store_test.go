package leaderboard

import (
	"testing"

	"github.com/okian/buzz/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPlan(t *testing.T) {
	Convey("Given scored items spread over categories", t, func() {
		items := []model.ScoredItem{
			{TweetID: "a", Score: 10, Categories: []model.CategoryShare{
				{CategoryID: "news", Percentage: 50},
				{CategoryID: "tech", Percentage: 0.05},
			}},
			{TweetID: "b", Score: 0.02, Categories: []model.CategoryShare{{CategoryID: "sports", Percentage: 100}}},
			{TweetID: "c", Score: 1, Categories: []model.CategoryShare{{CategoryID: "news", Percentage: 100}}},
			{TweetID: "d", Score: 5},
		}

		Convey("When planning with the default threshold", func() {
			writes, touched, skipped := plan(items, DefaultMinScoreThreshold)

			Convey("Then member scores are scaled by percentage", func() {
				So(writes, ShouldResemble, []write{
					{category: "news", member: "a", score: 5},
					{category: "sports", member: "b", score: 0.02},
					{category: "news", member: "c", score: 1},
				})
			})

			Convey("Then pairs below the threshold are skipped", func() {
				So(skipped, ShouldEqual, 1)
				So(touched, ShouldResemble, []string{"news", "sports"})
			})
		})

		Convey("When nothing clears the threshold", func() {
			writes, touched, skipped := plan(items, 100)

			Convey("Then nothing is written and touched is empty, not nil", func() {
				So(writes, ShouldBeEmpty)
				So(touched, ShouldNotBeNil)
				So(touched, ShouldBeEmpty)
				So(skipped, ShouldEqual, 4)
			})
		})
	})
}

func TestSettingsKey(t *testing.T) {
	Convey("Keys follow the explore:category: scheme", t, func() {
		So(defaultSettings().Key("news"), ShouldEqual, "explore:category:news")
	})
}
