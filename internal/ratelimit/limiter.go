package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/techhatch/techhatch-server/internal/errs"
	"github.com/techhatch/techhatch-server/internal/models"
	"gorm.io/gorm"
)

// Limiter enforces the per-email OTP issuance window: at most
// models.RateLimitMaxRequests issuances per models.RateLimitWindow, then a
// models.RateLimitBlock lockout. Check never consumes a slot; issuance is
// accounted separately through RecordUsage.
type Limiter struct {
	db  *gorm.DB
	now func() time.Time
}

// NewLimiter constructs a Limiter. A nil now falls back to time.Now.
func NewLimiter(db *gorm.DB, now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	return &Limiter{db: db, now: now}
}

// Check fails with a rate-limited error when the email is blocked or has
// exhausted the current window. First-time identities always pass.
func (l *Limiter) Check(ctx context.Context, email string) error {
	rec, errLoad := l.load(ctx, email)
	if errLoad != nil {
		return errLoad
	}
	if rec == nil {
		return nil
	}

	now := l.now()

	if rec.Blocked(now) {
		remaining := rec.BlockedUntil.Sub(now)
		return errs.RateLimited("too many OTP requests", remaining)
	}

	if rec.WindowExpired(now) {
		errUpdate := l.db.WithContext(ctx).
			Model(&models.OtpRateLimit{}).
			Where("id = ?", rec.ID).
			Updates(map[string]any{
				"request_count": 0,
				"window_start":  now,
				"blocked_until": nil,
				"updated_at":    now,
			}).Error
		if errUpdate != nil {
			return fmt.Errorf("ratelimit: reset window: %w", errUpdate)
		}
		return nil
	}

	if rec.RequestCount >= models.RateLimitMaxRequests {
		blockedUntil := now.Add(models.RateLimitBlock)
		errUpdate := l.db.WithContext(ctx).
			Model(&models.OtpRateLimit{}).
			Where("id = ?", rec.ID).
			Updates(map[string]any{"blocked_until": blockedUntil, "updated_at": now}).Error
		if errUpdate != nil {
			return fmt.Errorf("ratelimit: set block: %w", errUpdate)
		}
		return errs.RateLimited("maximum OTP requests exceeded", models.RateLimitBlock)
	}

	return nil
}

// RecordUsage counts one issuance against the email's current window,
// creating the window record when none exists.
func (l *Limiter) RecordUsage(ctx context.Context, email string) error {
	rec, errLoad := l.load(ctx, email)
	if errLoad != nil {
		return errLoad
	}

	now := l.now()

	if rec == nil {
		created := models.OtpRateLimit{
			Email:        email,
			RequestCount: 1,
			WindowStart:  now,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if errCreate := l.db.WithContext(ctx).Create(&created).Error; errCreate != nil {
			return fmt.Errorf("ratelimit: create window: %w", errCreate)
		}
		return nil
	}

	errUpdate := l.db.WithContext(ctx).
		Model(&models.OtpRateLimit{}).
		Where("id = ?", rec.ID).
		Updates(map[string]any{
			"request_count": gorm.Expr("request_count + 1"),
			"updated_at":    now,
		}).Error
	if errUpdate != nil {
		return fmt.Errorf("ratelimit: record usage: %w", errUpdate)
	}
	return nil
}

func (l *Limiter) load(ctx context.Context, email string) (*models.OtpRateLimit, error) {
	var rec models.OtpRateLimit
	errFind := l.db.WithContext(ctx).Where("email = ?", email).First(&rec).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("ratelimit: load: %w", errFind)
	}
	return &rec, nil
}
