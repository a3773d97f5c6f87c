package models

import "time"

const (
	// RateLimitWindow is the rolling accounting period for OTP issuance.
	RateLimitWindow = 15 * time.Minute
	// RateLimitMaxRequests is the issuance ceiling within one window.
	RateLimitMaxRequests = 3
	// RateLimitBlock is how long an identity stays blocked after exceeding the ceiling.
	RateLimitBlock = 15 * time.Minute
)

// OtpRateLimit tracks OTP issuance per email within a rolling window. The
// counter is not reset while a block is in force; only a fresh window after
// the block expires clears it.
type OtpRateLimit struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Email        string     `gorm:"type:text;not null;uniqueIndex"` // Identity being limited.
	RequestCount int        `gorm:"not null;default:0"`             // Issuances within the current window.
	WindowStart  time.Time  `gorm:"not null"`                       // Start of the current window.
	BlockedUntil *time.Time `gorm:""`                               // Block deadline, nil when not blocked.

	CreatedAt time.Time `gorm:"not null"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null"` // Last update timestamp.
}

// Blocked reports whether the identity is still inside a block.
func (r *OtpRateLimit) Blocked(now time.Time) bool {
	return r.BlockedUntil != nil && now.Before(*r.BlockedUntil)
}

// WindowExpired reports whether the current window has rolled over.
func (r *OtpRateLimit) WindowExpired(now time.Time) bool {
	return now.After(r.WindowStart.Add(RateLimitWindow))
}
