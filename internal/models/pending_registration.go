package models

import "time"

// PendingRegistrationTTL bounds how long a staged registration stays usable.
const PendingRegistrationTTL = 24 * time.Hour

// PendingRegistration stages a registration until OTP verification promotes
// it to a User. It is never trusted as proof of anything on its own.
type PendingRegistration struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Email    string `gorm:"type:text;not null;uniqueIndex"` // Identity being claimed.
	Password string `gorm:"type:text;not null"`             // Bcrypt hash staged for promotion.
	Role     Role   `gorm:"type:text;not null"`             // Requested role.

	ExpiresAt time.Time `gorm:"not null"` // Absolute deadline, creation + 24h.
	CreatedAt time.Time `gorm:"not null"` // Creation timestamp.
}

// Expired reports whether the staged registration is past its deadline.
func (p *PendingRegistration) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}
