package emulator

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/jdziat/simple-lambda-runtime/pkg/runtimeapi"
)

// InvocationStatus represents the recorded state of an invocation.
type InvocationStatus string

const (
	StatusPending   InvocationStatus = "pending"
	StatusCompleted InvocationStatus = "completed"
	StatusFailed    InvocationStatus = "failed"
)

// InvocationRecord is one journaled invocation.
type InvocationRecord struct {
	ID           string           `gorm:"primaryKey;size:36"`
	Payload      []byte           `gorm:"type:bytes"`
	Status       InvocationStatus `gorm:"index;size:20;default:'pending'"`
	Response     []byte           `gorm:"type:bytes"`
	ErrorMessage string           `gorm:"type:text"`
	ErrorType    string           `gorm:"size:255"`
	CreatedAt    time.Time        `gorm:"autoCreateTime"`
	CompletedAt  *time.Time
}

// Journal records invocations and their outcomes in a GORM-backed store so
// local runs can be inspected after the fact.
type Journal struct {
	db *gorm.DB
}

// NewJournal creates a journal on the given database.
func NewJournal(db *gorm.DB) *Journal {
	return &Journal{db: db}
}

// Migrate creates the necessary tables.
func (j *Journal) Migrate(ctx context.Context) error {
	return j.db.WithContext(ctx).AutoMigrate(&InvocationRecord{})
}

// Record stores a freshly enqueued invocation.
func (j *Journal) Record(ctx context.Context, requestID string, payload []byte) error {
	rec := &InvocationRecord{
		ID:      requestID,
		Payload: payload,
		Status:  StatusPending,
	}
	return j.db.WithContext(ctx).Create(rec).Error
}

// Complete marks an invocation as successfully completed.
func (j *Journal) Complete(ctx context.Context, requestID string, response []byte) error {
	now := time.Now()
	result := j.db.WithContext(ctx).
		Model(&InvocationRecord{}).
		Where("id = ?", requestID).
		Updates(map[string]any{
			"status":       StatusCompleted,
			"response":     response,
			"completed_at": now,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUnknownInvocation
	}
	return nil
}

// Fail marks an invocation as failed with its reported diagnostic.
func (j *Journal) Fail(ctx context.Context, requestID string, diag runtimeapi.Diagnostic) error {
	now := time.Now()
	result := j.db.WithContext(ctx).
		Model(&InvocationRecord{}).
		Where("id = ?", requestID).
		Updates(map[string]any{
			"status":        StatusFailed,
			"error_message": diag.ErrorMessage,
			"error_type":    diag.ErrorType,
			"completed_at":  now,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUnknownInvocation
	}
	return nil
}

// Get retrieves a record by request id, or nil if it was never journaled.
func (j *Journal) Get(ctx context.Context, requestID string) (*InvocationRecord, error) {
	var rec InvocationRecord
	err := j.db.WithContext(ctx).First(&rec, "id = ?", requestID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Recent returns the most recently created records, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]*InvocationRecord, error) {
	var recs []*InvocationRecord
	err := j.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&recs).Error
	return recs, err
}
