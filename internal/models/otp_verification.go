package models

import "time"

// Purpose scopes an OTP to the flow that requested it.
type Purpose string

const (
	PurposeRegistration  Purpose = "REGISTRATION"   // Confirming a new account's email.
	PurposePasswordReset Purpose = "PASSWORD_RESET" // Authorizing a credential change.
	PurposeLogin         Purpose = "LOGIN"          // Second factor on sign-in.
)

// ParsePurpose maps a request string onto a known purpose.
func ParsePurpose(raw string) (Purpose, bool) {
	switch Purpose(raw) {
	case PurposeRegistration, PurposePasswordReset, PurposeLogin:
		return Purpose(raw), true
	}
	return "", false
}

const (
	// OTPTTL bounds how long an issued code stays verifiable.
	OTPTTL = 10 * time.Minute
	// OTPMaxAttempts bounds failed submissions against a single code.
	OTPMaxAttempts = 3
)

// OtpVerification is one issued code. At most one row per (email, purpose)
// may be active (unverified and unexpired) at a time; issuing a new code
// marks older unverified rows verified so they can never match again.
type OtpVerification struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Email   string  `gorm:"type:text;not null;index:idx_otp_email_purpose"` // Keyed by email, not user ID: registration OTPs predate the user row.
	Purpose Purpose `gorm:"type:text;not null;index:idx_otp_email_purpose"` // Flow that requested the code.
	Code    string  `gorm:"type:text;not null"`                             // 6-digit zero-padded code.

	Attempts    int `gorm:"not null;default:0"` // Failed submissions so far.
	MaxAttempts int `gorm:"not null;default:3"` // Ceiling before the code is dead.

	Verified   bool       `gorm:""`         // Terminal flag: consumed or invalidated.
	VerifiedAt *time.Time `gorm:""`         // When the code was consumed, nil if invalidated or active.
	ExpiresAt  time.Time  `gorm:"not null"` // Absolute deadline, creation + 10m.

	CreatedAt time.Time `gorm:"not null;index"` // Creation timestamp, ordering key for "latest".
	UpdatedAt time.Time `gorm:"not null"`       // Last update timestamp.
}

// Expired reports whether the code is past its deadline.
func (o *OtpVerification) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// AttemptsExceeded reports whether failed submissions reached the ceiling.
func (o *OtpVerification) AttemptsExceeded() bool {
	return o.Attempts >= o.MaxAttempts
}
