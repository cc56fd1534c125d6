// Package catalog reads batches, subjects, lectures and books from the
// hosted database or a local SQLite mirror of it, and records enrollments.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/padhai-cli/padhai/key"
	"github.com/padhai-cli/padhai/secret"
	"github.com/padhai-cli/padhai/where"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyEnrolled = errors.New("already enrolled in this batch")
	ErrNotEnrolled     = errors.New("not enrolled in batch")
	ErrNoDSN           = errors.New("no catalog connection string configured")
)

// Config selects and locates the database.
type Config struct {
	Driver string
	DSN    string
	// SQLitePath is used by the sqlite driver when DSN is empty.
	SQLitePath string
	// LogLevel is the gorm log level: silent, error, warn or info.
	LogLevel string
}

// ConfigFromViper reads the catalog settings. A postgres DSN that is not
// set in the config is looked up in the keyring.
func ConfigFromViper() (Config, error) {
	cfg := Config{
		Driver:     viper.GetString(key.CatalogDriver),
		DSN:        viper.GetString(key.CatalogDSN),
		SQLitePath: viper.GetString(key.CatalogSQLitePath),
		LogLevel:   "warn",
	}

	if cfg.SQLitePath == "" {
		cfg.SQLitePath = where.Catalog()
	}

	if cfg.Driver == DriverPostgres && cfg.DSN == "" {
		dsn, err := secret.DSN()
		if errors.Is(err, secret.ErrNotFound) {
			return cfg, ErrNoDSN
		}
		if err != nil {
			return cfg, err
		}
		cfg.DSN = dsn
	}

	return cfg, nil
}

// Store runs catalog queries.
type Store struct {
	db *gorm.DB
}

// Open connects using cfg.
func Open(cfg Config) (*Store, error) {
	dialector, err := dialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 newGormLogger(cfg.LogLevel),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}

	return NewStore(db), nil
}

// NewStore wraps an open connection.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func dialector(cfg Config) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverSQLite:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = cfg.SQLitePath
		}
		if dsn == "" {
			return nil, ErrNoDSN
		}
		if strings.Contains(dsn, "?") {
			dsn += "&"
		} else {
			dsn += "?"
		}
		dsn += "_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)"
		return sqlite.Open(dsn), nil
	case DriverPostgres:
		if cfg.DSN == "" {
			return nil, ErrNoDSN
		}
		return postgres.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported catalog driver: %s", cfg.Driver)
	}
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ActiveBatches lists batches open for enrollment, newest first.
func (s *Store) ActiveBatches(ctx context.Context) ([]Batch, error) {
	var batches []Batch
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at DESC").
		Find(&batches).Error
	if err != nil {
		return nil, fmt.Errorf("listing batches: %w", err)
	}
	return batches, nil
}

// Batch returns one batch by id.
func (s *Store) Batch(ctx context.Context, id string) (Batch, error) {
	var batch Batch
	err := s.db.WithContext(ctx).First(&batch, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return batch, fmt.Errorf("batch %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return batch, fmt.Errorf("getting batch: %w", err)
	}
	return batch, nil
}

// Subjects lists the subjects of a batch in display order.
func (s *Store) Subjects(ctx context.Context, batchID string) ([]Subject, error) {
	var subjects []Subject
	err := s.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("order_index").
		Find(&subjects).Error
	if err != nil {
		return nil, fmt.Errorf("listing subjects: %w", err)
	}
	return subjects, nil
}

// Subject returns one subject by id.
func (s *Store) Subject(ctx context.Context, id string) (Subject, error) {
	var subject Subject
	err := s.db.WithContext(ctx).First(&subject, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return subject, fmt.Errorf("subject %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return subject, fmt.Errorf("getting subject: %w", err)
	}
	return subject, nil
}

// Lectures lists the lectures of a subject in display order.
func (s *Store) Lectures(ctx context.Context, subjectID string) ([]Lecture, error) {
	var lectures []Lecture
	err := s.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("order_index").
		Find(&lectures).Error
	if err != nil {
		return nil, fmt.Errorf("listing lectures: %w", err)
	}
	return lectures, nil
}

// SubjectLectures is a subject with its lectures.
type SubjectLectures struct {
	Subject  Subject
	Lectures []Lecture
}

// LecturesBySubject loads every subject of a batch with its lectures.
func (s *Store) LecturesBySubject(ctx context.Context, batchID string) ([]SubjectLectures, error) {
	subjects, err := s.Subjects(ctx, batchID)
	if err != nil {
		return nil, err
	}

	grouped := make([]SubjectLectures, 0, len(subjects))
	for _, subject := range subjects {
		lectures, err := s.Lectures(ctx, subject.ID)
		if err != nil {
			return nil, err
		}
		grouped = append(grouped, SubjectLectures{Subject: subject, Lectures: lectures})
	}
	return grouped, nil
}

// Books lists the PDFs of a batch in display order.
func (s *Store) Books(ctx context.Context, batchID string) ([]Book, error) {
	var books []Book
	err := s.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("order_index").
		Find(&books).Error
	if err != nil {
		return nil, fmt.Errorf("listing books: %w", err)
	}
	return books, nil
}

// Enrolled reports whether userID joined batchID.
func (s *Store) Enrolled(ctx context.Context, userID, batchID string) (bool, error) {
	if userID == "" {
		return false, nil
	}

	var count int64
	err := s.db.WithContext(ctx).
		Model(&Enrollment{}).
		Where("user_id = ? AND batch_id = ?", userID, batchID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("checking enrollment: %w", err)
	}
	return count > 0, nil
}

// Enroll adds userID to batchID.
func (s *Store) Enroll(ctx context.Context, userID, batchID string) (Enrollment, error) {
	if userID == "" {
		return Enrollment{}, errors.New("no student id configured")
	}

	enrolled, err := s.Enrolled(ctx, userID, batchID)
	if err != nil {
		return Enrollment{}, err
	}
	if enrolled {
		return Enrollment{}, ErrAlreadyEnrolled
	}

	if _, err = s.Batch(ctx, batchID); err != nil {
		return Enrollment{}, err
	}

	enrollment := Enrollment{UserID: userID, BatchID: batchID}
	if err = s.db.WithContext(ctx).Create(&enrollment).Error; err != nil {
		return Enrollment{}, fmt.Errorf("enrolling: %w", err)
	}
	return enrollment, nil
}

// Enrollments lists the batches userID joined, most recent first.
func (s *Store) Enrollments(ctx context.Context, userID string) ([]Enrollment, error) {
	var enrollments []Enrollment
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("enrolled_at DESC").
		Find(&enrollments).Error
	if err != nil {
		return nil, fmt.Errorf("listing enrollments: %w", err)
	}
	return enrollments, nil
}

// CanWatch allows free lectures to everyone and the rest to enrolled students.
func CanWatch(lecture Lecture, enrolled bool) error {
	if enrolled || lecture.Free() {
		return nil
	}
	return ErrNotEnrolled
}
