package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/techhatch/techhatch-server/internal/models"
	"gorm.io/gorm"
)

// Store persists OtpVerification rows.
type Store struct {
	db *gorm.DB
}

// NewStore constructs a Store on the given connection or transaction.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Create inserts a fresh OTP record.
func (s *Store) Create(ctx context.Context, rec *models.OtpVerification) error {
	if errCreate := s.db.WithContext(ctx).Create(rec).Error; errCreate != nil {
		return fmt.Errorf("otp store: create: %w", errCreate)
	}
	return nil
}

// LatestUnverified returns the most recent unverified record for the
// (email, purpose) pair, or nil when none exists.
func (s *Store) LatestUnverified(ctx context.Context, email string, purpose models.Purpose) (*models.OtpVerification, error) {
	var rec models.OtpVerification
	errFind := s.db.WithContext(ctx).
		Where("email = ? AND purpose = ? AND verified = ?", email, purpose, false).
		Order("created_at DESC").
		First(&rec).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("otp store: latest unverified: %w", errFind)
	}
	return &rec, nil
}

// InvalidateActive marks every unverified record for the (email, purpose)
// pair as verified so none of them can ever match again. Idempotent.
func (s *Store) InvalidateActive(ctx context.Context, email string, purpose models.Purpose, now time.Time) error {
	errUpdate := s.db.WithContext(ctx).
		Model(&models.OtpVerification{}).
		Where("email = ? AND purpose = ? AND verified = ?", email, purpose, false).
		Updates(map[string]any{"verified": true, "updated_at": now}).Error
	if errUpdate != nil {
		return fmt.Errorf("otp store: invalidate active: %w", errUpdate)
	}
	return nil
}

// MarkVerified consumes a matched code, recording when it was verified.
func (s *Store) MarkVerified(ctx context.Context, id uint64, now time.Time) error {
	errUpdate := s.db.WithContext(ctx).
		Model(&models.OtpVerification{}).
		Where("id = ?", id).
		Updates(map[string]any{"verified": true, "verified_at": now, "updated_at": now}).Error
	if errUpdate != nil {
		return fmt.Errorf("otp store: mark verified: %w", errUpdate)
	}
	return nil
}
