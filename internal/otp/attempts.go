package otp

import (
	"context"
	"fmt"
	"time"

	"github.com/techhatch/techhatch-server/internal/models"
	"gorm.io/gorm"
)

// AttemptRecorder persists failed-verification counts on its own connection.
// The increment must survive even when the operation that triggered it rolls
// back, so it never joins an enclosing transaction.
type AttemptRecorder struct {
	db  *gorm.DB
	now func() time.Time
}

// NewAttemptRecorder constructs an AttemptRecorder. The db must be the root
// connection, not a transaction handle.
func NewAttemptRecorder(db *gorm.DB, now func() time.Time) *AttemptRecorder {
	if now == nil {
		now = time.Now
	}
	return &AttemptRecorder{db: db, now: now}
}

// RecordFailure increments the attempt counter for the given record and
// returns the new count.
func (r *AttemptRecorder) RecordFailure(ctx context.Context, id uint64) (int, error) {
	errUpdate := r.db.WithContext(ctx).
		Model(&models.OtpVerification{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"attempts":   gorm.Expr("attempts + 1"),
			"updated_at": r.now(),
		}).Error
	if errUpdate != nil {
		return 0, fmt.Errorf("otp attempts: increment: %w", errUpdate)
	}

	var rec models.OtpVerification
	if errFind := r.db.WithContext(ctx).Select("attempts").First(&rec, id).Error; errFind != nil {
		return 0, fmt.Errorf("otp attempts: reload: %w", errFind)
	}
	return rec.Attempts, nil
}
