package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuthEventKind names an auditable auth flow transition.
type AuthEventKind string

const (
	EventOtpSent        AuthEventKind = "otp_sent"
	EventOtpVerified    AuthEventKind = "otp_verified"
	EventOtpRejected    AuthEventKind = "otp_rejected"
	EventUserRegistered AuthEventKind = "user_registered"
	EventLoginSucceeded AuthEventKind = "login_succeeded"
	EventPasswordReset  AuthEventKind = "password_reset"
	EventRateLimited    AuthEventKind = "rate_limited"
)

// AuthEvent is an append-only audit row for the auth flows. Detail never
// carries OTP codes or credential material.
type AuthEvent struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Email  string         `gorm:"type:text;not null;index"` // Identity the event concerns.
	Kind   AuthEventKind  `gorm:"type:text;not null;index"` // Event name.
	Detail datatypes.JSON `gorm:""`                         // Free-form context, e.g. purpose or reject reason.

	CreatedAt time.Time `gorm:"not null;index"` // Event timestamp.
}
