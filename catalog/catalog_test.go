package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testStore(t *testing.T) (*Store, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatal(err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err = db.AutoMigrate(Models()...); err != nil {
		t.Fatal(err)
	}

	return NewStore(db), db
}

func seed(db *gorm.DB) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	So(db.Create(&[]Batch{
		{ID: "b-old", Name: "JEE Foundation", Price: 499900, IsActive: lo.ToPtr(true), CreatedAt: now.Add(-48 * time.Hour)},
		{ID: "b-new", Name: "NEET Crash Course", Price: 129950, IsActive: lo.ToPtr(true), CreatedAt: now},
		{ID: "b-off", Name: "Archived Physics", Price: 0, IsActive: lo.ToPtr(false), CreatedAt: now},
	}).Error, ShouldBeNil)

	So(db.Create(&[]Subject{
		{ID: "s-chem", BatchID: "b-new", Name: "Chemistry", OrderIndex: lo.ToPtr(2)},
		{ID: "s-bio", BatchID: "b-new", Name: "Biology", OrderIndex: lo.ToPtr(1)},
	}).Error, ShouldBeNil)

	So(db.Create(&[]Lecture{
		{ID: "l-cells", SubjectID: "s-bio", Title: "Cells", OrderIndex: lo.ToPtr(1), IsFree: lo.ToPtr(true), VideoURL: lo.ToPtr("https://youtu.be/dQw4w9WgXcQ")},
		{ID: "l-tissue", SubjectID: "s-bio", Title: "Tissues", OrderIndex: lo.ToPtr(2), VideoURL: lo.ToPtr("https://cdn.example.com/t/master.m3u8")},
		{ID: "l-draft", SubjectID: "s-bio", Title: "Draft", OrderIndex: lo.ToPtr(3)},
		{ID: "l-atoms", SubjectID: "s-chem", Title: "Atoms", OrderIndex: lo.ToPtr(1), VideoURL: lo.ToPtr("https://vimeo.com/76979871")},
	}).Error, ShouldBeNil)

	So(db.Create(&[]Book{
		{ID: "k-2", BatchID: "b-new", Title: "Workbook", OrderIndex: lo.ToPtr(2)},
		{ID: "k-1", BatchID: "b-new", Title: "NCERT Notes", OrderIndex: lo.ToPtr(1), PDFURL: lo.ToPtr("https://cdn.example.com/notes.pdf")},
	}).Error, ShouldBeNil)
}

func TestStore(t *testing.T) {
	Convey("Given a seeded catalog", t, func() {
		store, db := testStore(t)
		seed(db)
		ctx := context.Background()

		Convey("When active batches are listed", func() {
			batches, err := store.ActiveBatches(ctx)

			Convey("Then only active ones should be returned, newest first", func() {
				So(err, ShouldBeNil)
				So(lo.Map(batches, func(b Batch, _ int) string { return b.ID }), ShouldResemble, []string{"b-new", "b-old"})
			})
		})

		Convey("When a batch is fetched", func() {
			batch, err := store.Batch(ctx, "b-new")

			Convey("Then its price should be shown in rupees", func() {
				So(err, ShouldBeNil)
				So(batch.PriceLabel(), ShouldEqual, "₹1299.50")
				So(batch.Active(), ShouldBeTrue)
			})
		})

		Convey("When a missing batch is fetched", func() {
			_, err := store.Batch(ctx, "nope")

			Convey("Then it should be not found", func() {
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When lectures are grouped by subject", func() {
			grouped, err := store.LecturesBySubject(ctx, "b-new")

			Convey("Then subjects and lectures should follow order_index", func() {
				So(err, ShouldBeNil)
				So(grouped, ShouldHaveLength, 2)
				So(grouped[0].Subject.Name, ShouldEqual, "Biology")
				So(grouped[0].Lectures, ShouldHaveLength, 3)
				So(grouped[0].Lectures[0].Title, ShouldEqual, "Cells")
				So(grouped[1].Lectures[0].URL(), ShouldEqual, "https://vimeo.com/76979871")
			})
		})

		Convey("When books are listed", func() {
			books, err := store.Books(ctx, "b-new")

			Convey("Then they should be ordered", func() {
				So(err, ShouldBeNil)
				So(books[0].Title, ShouldEqual, "NCERT Notes")
				So(lo.FromPtr(books[0].PDFURL), ShouldEqual, "https://cdn.example.com/notes.pdf")
			})
		})

		Convey("When a student enrolls", func() {
			enrollment, err := store.Enroll(ctx, "student-1", "b-new")
			So(err, ShouldBeNil)
			So(enrollment.ID, ShouldNotBeEmpty)

			Convey("Then they should be enrolled", func() {
				enrolled, err := store.Enrolled(ctx, "student-1", "b-new")
				So(err, ShouldBeNil)
				So(enrolled, ShouldBeTrue)

				enrolled, err = store.Enrolled(ctx, "student-2", "b-new")
				So(err, ShouldBeNil)
				So(enrolled, ShouldBeFalse)
			})

			Convey("Then enrolling again should fail", func() {
				_, err := store.Enroll(ctx, "student-1", "b-new")
				So(err, ShouldEqual, ErrAlreadyEnrolled)
			})

			Convey("Then the enrollment should be listed", func() {
				enrollments, err := store.Enrollments(ctx, "student-1")
				So(err, ShouldBeNil)
				So(enrollments, ShouldHaveLength, 1)
				So(enrollments[0].BatchID, ShouldEqual, "b-new")
			})
		})

		Convey("When enrolling in a missing batch", func() {
			_, err := store.Enroll(ctx, "student-1", "ghost")

			Convey("Then it should be not found", func() {
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When enrolling without a student id", func() {
			_, err := store.Enroll(ctx, "", "b-new")

			Convey("Then it should fail", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestCanWatch(t *testing.T) {
	Convey("Given lectures", t, func() {
		free := Lecture{IsFree: lo.ToPtr(true)}
		paid := Lecture{}

		Convey("Then free lectures should be open to everyone", func() {
			So(CanWatch(free, false), ShouldBeNil)
		})

		Convey("Then paid lectures should need enrollment", func() {
			So(CanWatch(paid, true), ShouldBeNil)
			err := CanWatch(paid, false)
			So(err, ShouldEqual, ErrNotEnrolled)
			So(err.Error(), ShouldEqual, "not enrolled in batch")
		})
	})
}

func TestSearch(t *testing.T) {
	Convey("Given batches", t, func() {
		batches := []Batch{{Name: "JEE Foundation"}, {Name: "NEET Crash Course"}, {Name: "JEE Advanced"}}

		Convey("Then an empty query should keep everything", func() {
			So(Search(batches, ""), ShouldHaveLength, 3)
		})

		Convey("Then a query should keep fuzzy matches only", func() {
			found := Search(batches, "jee")
			So(found, ShouldHaveLength, 2)
			for _, b := range found {
				So(b.Name, ShouldStartWith, "JEE")
			}
		})

		Convey("Then a query with no match should return nothing", func() {
			So(Search(batches, "zzz"), ShouldBeEmpty)
		})
	})
}

func TestPlaylist(t *testing.T) {
	Convey("Given grouped lectures", t, func() {
		grouped := []SubjectLectures{
			{Lectures: []Lecture{
				{ID: "a", VideoURL: lo.ToPtr("https://youtu.be/dQw4w9WgXcQ")},
				{ID: "draft"},
			}},
			{Lectures: []Lecture{
				{ID: "b", VideoURL: lo.ToPtr("https://vimeo.com/1")},
				{ID: "c", VideoURL: lo.ToPtr("https://cdn.example.com/c.mp4")},
			}},
		}

		Convey("When positioned on the middle lecture", func() {
			p := NewPlaylist(grouped, "b")

			Convey("Then lectures without video should be skipped", func() {
				So(p.Len(), ShouldEqual, 3)
			})

			Convey("Then both directions should be available", func() {
				So(p.HasNext(), ShouldBeTrue)
				So(p.HasPrevious(), ShouldBeTrue)

				next, ok := p.Next()
				So(ok, ShouldBeTrue)
				So(next.ID, ShouldEqual, "c")
				So(p.HasNext(), ShouldBeFalse)

				_, ok = p.Next()
				So(ok, ShouldBeFalse)

				prev, ok := p.Previous()
				So(ok, ShouldBeTrue)
				So(prev.ID, ShouldEqual, "b")
			})

			Convey("Then peeking should leave the cursor alone", func() {
				next, ok := p.Peek(1)
				So(ok, ShouldBeTrue)
				So(next.ID, ShouldEqual, "c")

				_, ok = p.Peek(2)
				So(ok, ShouldBeFalse)
				So(p.Advance(-2), ShouldBeFalse)

				current, _ := p.Current()
				So(current.ID, ShouldEqual, "b")

				So(p.Advance(-1), ShouldBeTrue)
				current, _ = p.Current()
				So(current.ID, ShouldEqual, "a")
			})
		})

		Convey("When the id is unknown", func() {
			p := NewPlaylist(grouped, "zzz")

			Convey("Then it should start at the beginning", func() {
				current, ok := p.Current()
				So(ok, ShouldBeTrue)
				So(current.ID, ShouldEqual, "a")
				So(p.HasPrevious(), ShouldBeFalse)
			})
		})

		Convey("When there is nothing to play", func() {
			p := NewPlaylist(nil, "")

			Convey("Then it should be empty", func() {
				_, ok := p.Current()
				So(ok, ShouldBeFalse)
				So(p.HasNext(), ShouldBeFalse)
				So(p.HasPrevious(), ShouldBeFalse)
			})
		})
	})
}

func TestDialector(t *testing.T) {
	Convey("Given catalog configs", t, func() {
		Convey("Then sqlite should use the mirror path", func() {
			_, err := dialector(Config{Driver: DriverSQLite, SQLitePath: "/tmp/catalog.db"})
			So(err, ShouldBeNil)
		})

		Convey("Then postgres without a DSN should fail", func() {
			_, err := dialector(Config{Driver: DriverPostgres})
			So(err, ShouldEqual, ErrNoDSN)
		})

		Convey("Then unknown drivers should fail", func() {
			_, err := dialector(Config{Driver: "mysql"})
			So(err, ShouldNotBeNil)
		})

		Convey("Then gorm log levels should map", func() {
			So(gormLogLevel("silent"), ShouldEqual, logger.Silent)
			So(gormLogLevel("info"), ShouldEqual, logger.Info)
			So(gormLogLevel(""), ShouldEqual, logger.Warn)
		})
	})
}
