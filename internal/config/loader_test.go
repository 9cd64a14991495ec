package config_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/okian/buzz/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.Job.BatchSize, convey.ShouldEqual, 500)
				convey.So(cfg.Leaderboard.Backend, convey.ShouldEqual, "redis")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("BUZZ_ADDR", ":8080")
			_ = os.Setenv("BUZZ_JOB__BATCH_SIZE", "200")
			_ = os.Setenv("BUZZ_JOB__SCHEDULE_INTERVAL", "5m")
			_ = os.Setenv("BUZZ_SCORING__GRAVITY", "1.5")
			_ = os.Setenv("BUZZ_READER__DEFAULT_CATEGORIES", "news,sports")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then nested keys override defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.Job.BatchSize, convey.ShouldEqual, 200)
				convey.So(cfg.Job.ScheduleInterval, convey.ShouldEqual, 5*time.Minute)
				convey.So(cfg.Scoring.Gravity, convey.ShouldEqual, 1.5)
				convey.So(cfg.Reader.DefaultCategories, convey.ShouldResemble, []string{"news", "sports"})
				// untouched siblings keep their defaults
				convey.So(cfg.Job.Attempts, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When a list override carries blanks and empty items", func() {
			_ = os.Setenv("BUZZ_READER__DEFAULT_CATEGORIES", " news , sports,, tech ")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then items are trimmed and empties dropped", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Reader.DefaultCategories, convey.ShouldResemble, []string{"news", "sports", "tech"})
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
leaderboard:
  backend: memory
  max_category_size: 250
job:
  batch_size: 100
  force_all: true
reader:
  default_categories: ["tech", "music"]
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("BUZZ_CONFIG", tmpFile)
			_ = os.Setenv("BUZZ_JOB__BATCH_SIZE", "300")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.Leaderboard.Backend, convey.ShouldEqual, "memory")
				convey.So(cfg.Leaderboard.MaxCategorySize, convey.ShouldEqual, 250)
				convey.So(cfg.Job.BatchSize, convey.ShouldEqual, 300)
				convey.So(cfg.Job.ForceAll, convey.ShouldBeTrue)
				convey.So(cfg.Reader.DefaultCategories, convey.ShouldResemble, []string{"tech", "music"})
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("BUZZ_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("BUZZ_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("BUZZ_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func clearConfigEnvVars() {
	for _, key := range []string{
		"BUZZ_CONFIG",
		"BUZZ_ADDR",
		"BUZZ_JOB__BATCH_SIZE",
		"BUZZ_JOB__SCHEDULE_INTERVAL",
		"BUZZ_SCORING__GRAVITY",
		"BUZZ_READER__DEFAULT_CATEGORIES",
	} {
		_ = os.Unsetenv(key)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "buzz-config-*.yaml")
	if err != nil {
		panic(err)
	}
	defer func() { _ = tmpFile.Close() }()

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
