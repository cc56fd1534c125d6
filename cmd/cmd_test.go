package cmd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/padhai-cli/padhai/catalog"
	"github.com/padhai-cli/padhai/filesystem"
	"github.com/padhai-cli/padhai/key"
	"github.com/padhai-cli/padhai/live"
	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	filesystem.SetMemMapFs()
	viper.Set(key.IconsVariant, "plain")
}

func TestFindBatch(t *testing.T) {
	Convey("Given a catalog with two active batches", t, func() {
		db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		So(err, ShouldBeNil)
		sqlDB, err := db.DB()
		So(err, ShouldBeNil)
		sqlDB.SetMaxOpenConns(1)
		So(db.AutoMigrate(catalog.Models()...), ShouldBeNil)

		So(db.Create(&[]catalog.Batch{
			{ID: "b-jee", Name: "JEE Foundation", Price: 499900, IsActive: lo.ToPtr(true)},
			{ID: "b-neet", Name: "NEET Crash Course", Price: 129950, IsActive: lo.ToPtr(true)},
		}).Error, ShouldBeNil)

		store := catalog.NewStore(db)
		Reset(func() { _ = store.Close() })
		ctx := context.Background()

		Convey("When looked up by id", func() {
			batch, err := findBatch(ctx, store, "b-neet")

			Convey("Then that batch should be returned", func() {
				So(err, ShouldBeNil)
				So(batch.Name, ShouldEqual, "NEET Crash Course")
			})
		})

		Convey("When looked up by part of a name", func() {
			batch, err := findBatch(ctx, store, "jee")

			Convey("Then the closest name should win", func() {
				So(err, ShouldBeNil)
				So(batch.ID, ShouldEqual, "b-jee")
			})
		})

		Convey("When nothing matches", func() {
			_, err := findBatch(ctx, store, "upsc")

			Convey("Then it should not be found", func() {
				So(errors.Is(err, catalog.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestPrinters(t *testing.T) {
	Convey("Given a batch", t, func() {
		var buf bytes.Buffer
		weeks := 12
		printBatch(&buf, catalog.Batch{ID: "b-jee", Name: "JEE Foundation", Price: 499900, DurationWeeks: &weeks})

		So(buf.String(), ShouldContainSubstring, "JEE Foundation")
		So(buf.String(), ShouldContainSubstring, "₹4999.00")
		So(buf.String(), ShouldContainSubstring, "12 weeks")
	})

	Convey("Given a live schedule", t, func() {
		var buf bytes.Buffer
		now := time.Now()
		later := now.Add(2*time.Hour + 5*time.Minute)

		Convey("When it is empty", func() {
			printSchedule(&buf, nil, now)

			So(buf.String(), ShouldContainSubstring, "No live lectures scheduled")
		})

		Convey("When a lecture is upcoming", func() {
			printSchedule(&buf, []live.Lecture{{ID: "x", Title: "Doubt session", Instructor: "Rahul Sharma", ScheduledTime: &later}}, now)

			Convey("Then its start and instructor should be shown", func() {
				So(buf.String(), ShouldContainSubstring, "Starts in 2h 5m")
				So(buf.String(), ShouldContainSubstring, "[RS] Rahul Sharma")
			})
		})

		Convey("When a lecture has a long description", func() {
			description := strings.TrimSpace(strings.Repeat("revision ", 12))
			printSchedule(&buf, []live.Lecture{{ID: "x", Title: "Doubt session", Description: description}}, now)

			Convey("Then it should be wrapped onto indented lines", func() {
				lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
				So(lines, ShouldHaveLength, 4)
				So(lines[2], ShouldStartWith, "  ")
				So(lines[3], ShouldStartWith, "  ")
				So(strings.Count(buf.String(), "revision"), ShouldEqual, 12)
			})
		})
	})
}
