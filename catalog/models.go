package catalog

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

// Batch is a purchasable course.
type Batch struct {
	ID            string     `gorm:"primaryKey" json:"id"`
	Name          string     `gorm:"not null" json:"name"`
	Description   *string    `json:"description,omitempty"`
	BatchType     *string    `json:"batch_type,omitempty"`
	Price         int64      `gorm:"not null" json:"price"`
	DurationWeeks *int       `json:"duration_weeks,omitempty"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	IsActive      *bool      `gorm:"index" json:"is_active,omitempty"`
	ThumbnailURL  *string    `gorm:"column:thumbnail_url" json:"thumbnail_url,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (Batch) TableName() string { return "batches" }

// PriceLabel renders the price, which is stored in paise.
func (b Batch) PriceLabel() string {
	return fmt.Sprintf("₹%.2f", float64(b.Price)/100)
}

func (b Batch) Active() bool {
	return lo.FromPtr(b.IsActive)
}

// Subject groups the lectures of a batch.
type Subject struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	BatchID     string    `gorm:"not null;index" json:"batch_id"`
	Name        string    `gorm:"not null" json:"name"`
	Description *string   `json:"description,omitempty"`
	OrderIndex  *int      `json:"order_index,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Subject) TableName() string { return "subjects" }

// Lecture is one recorded video.
type Lecture struct {
	ID              string    `gorm:"primaryKey" json:"id"`
	SubjectID       string    `gorm:"not null;index" json:"subject_id"`
	Title           string    `gorm:"not null" json:"title"`
	Description     *string   `json:"description,omitempty"`
	VideoURL        *string   `gorm:"column:video_url" json:"video_url,omitempty"`
	DurationMinutes *int      `json:"duration_minutes,omitempty"`
	IsFree          *bool     `json:"is_free,omitempty"`
	OrderIndex      *int      `json:"order_index,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Lecture) TableName() string { return "lectures" }

func (l Lecture) Free() bool {
	return lo.FromPtr(l.IsFree)
}

// URL is the raw video link, empty when none was entered.
func (l Lecture) URL() string {
	return lo.FromPtr(l.VideoURL)
}

func (l Lecture) Duration() time.Duration {
	return time.Duration(lo.FromPtr(l.DurationMinutes)) * time.Minute
}

// Book is a PDF attached to a batch.
type Book struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	BatchID     string    `gorm:"not null;index" json:"batch_id"`
	Title       string    `gorm:"not null" json:"title"`
	Description *string   `json:"description,omitempty"`
	PDFURL      *string   `gorm:"column:pdf_url" json:"pdf_url,omitempty"`
	IsFree      *bool     `json:"is_free,omitempty"`
	OrderIndex  *int      `json:"order_index,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Book) TableName() string { return "books" }

// Enrollment records that a student joined a batch.
type Enrollment struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	UserID     string    `gorm:"not null;uniqueIndex:idx_user_batch" json:"user_id"`
	BatchID    string    `gorm:"not null;uniqueIndex:idx_user_batch" json:"batch_id"`
	EnrolledAt time.Time `gorm:"autoCreateTime" json:"enrolled_at"`
}

func (Enrollment) TableName() string { return "user_batches" }

// Models lists every table, in dependency order.
func Models() []any {
	return []any{&Batch{}, &Subject{}, &Lecture{}, &Book{}, &Enrollment{}}
}

func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func (b *Batch) BeforeCreate(*gorm.DB) error      { newID(&b.ID); return nil }
func (s *Subject) BeforeCreate(*gorm.DB) error    { newID(&s.ID); return nil }
func (l *Lecture) BeforeCreate(*gorm.DB) error    { newID(&l.ID); return nil }
func (b *Book) BeforeCreate(*gorm.DB) error       { newID(&b.ID); return nil }
func (e *Enrollment) BeforeCreate(*gorm.DB) error { newID(&e.ID); return nil }
