package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/techhatch/techhatch-server/internal/errs"
	"github.com/techhatch/techhatch-server/internal/models"
	"gorm.io/gorm"
)

// PendingStore persists staged registrations awaiting OTP verification.
type PendingStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewPendingStore constructs a PendingStore. A nil now falls back to time.Now.
func NewPendingStore(db *gorm.DB, now func() time.Time) *PendingStore {
	if now == nil {
		now = time.Now
	}
	return &PendingStore{db: db, now: now}
}

// Find returns the pending registration for email, or nil when none exists.
func (s *PendingStore) Find(ctx context.Context, email string) (*models.PendingRegistration, error) {
	var rec models.PendingRegistration
	errFind := s.db.WithContext(ctx).Where("email = ?", email).First(&rec).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("pending store: find: %w", errFind)
	}
	return &rec, nil
}

// FindLive returns the pending registration for email, failing with a
// not-found error when absent. An expired record is deleted on detection and
// reported as a registration-expired failure: the caller must restart
// registration from scratch, never silently extend a stale one.
func (s *PendingStore) FindLive(ctx context.Context, email string) (*models.PendingRegistration, error) {
	rec, errFind := s.Find(ctx, email)
	if errFind != nil {
		return nil, errFind
	}
	if rec == nil {
		return nil, errs.New(errs.KindNotFound, "no pending registration found, please register again")
	}
	if rec.Expired(s.now()) {
		if errDelete := s.Delete(ctx, rec.ID); errDelete != nil {
			return nil, errDelete
		}
		return nil, errs.New(errs.KindRegistrationExpired, "registration expired, please register again")
	}
	return rec, nil
}

// Create stages a new registration with a fresh 24h deadline.
func (s *PendingStore) Create(ctx context.Context, email, passwordHash string, role models.Role) error {
	now := s.now()
	rec := models.PendingRegistration{
		Email:     email,
		Password:  passwordHash,
		Role:      role,
		ExpiresAt: now.Add(models.PendingRegistrationTTL),
		CreatedAt: now,
	}
	if errCreate := s.db.WithContext(ctx).Create(&rec).Error; errCreate != nil {
		return fmt.Errorf("pending store: create: %w", errCreate)
	}
	return nil
}

// Refresh replaces the staged credential and role and extends the deadline
// another 24h, so registration details can be resubmitted before
// verification completes.
func (s *PendingStore) Refresh(ctx context.Context, id uint64, passwordHash string, role models.Role) error {
	now := s.now()
	errUpdate := s.db.WithContext(ctx).
		Model(&models.PendingRegistration{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"password":   passwordHash,
			"role":       role,
			"expires_at": now.Add(models.PendingRegistrationTTL),
		}).Error
	if errUpdate != nil {
		return fmt.Errorf("pending store: refresh: %w", errUpdate)
	}
	return nil
}

// Delete removes a pending registration.
func (s *PendingStore) Delete(ctx context.Context, id uint64) error {
	if errDelete := s.db.WithContext(ctx).Delete(&models.PendingRegistration{}, id).Error; errDelete != nil {
		return fmt.Errorf("pending store: delete: %w", errDelete)
	}
	return nil
}
