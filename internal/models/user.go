package models

import "time"

// Role identifies what a user account can do on the platform.
type Role string

const (
	RoleCandidate Role = "CANDIDATE" // Job seeker.
	RoleRecruiter Role = "RECRUITER" // Job poster.
	RoleAdmin     Role = "ADMIN"     // Platform operator.
)

// ParseRole maps a request string onto a known role.
func ParseRole(raw string) (Role, bool) {
	switch Role(raw) {
	case RoleCandidate, RoleRecruiter, RoleAdmin:
		return Role(raw), true
	}
	return "", false
}

// AccountStatus tracks the lifecycle of a user account.
type AccountStatus string

const (
	AccountUnverified AccountStatus = "UNVERIFIED" // Created but email not yet confirmed.
	AccountActive     AccountStatus = "ACTIVE"     // Verified and usable.
	AccountSuspended  AccountStatus = "SUSPENDED"  // Locked out by an operator.
)

// User is the authoritative account record. A row existing here is definitive
// proof that OTP verification completed; pending registrations never stand in
// for it.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Email    string `gorm:"type:text;not null;uniqueIndex"` // Login identity.
	Password string `gorm:"type:text;not null"`             // Bcrypt hash, never plaintext.

	Role          Role          `gorm:"type:text;not null"`               // CANDIDATE, RECRUITER or ADMIN.
	EmailVerified bool          `gorm:"not null;default:false"`           // Whether OTP verification completed.
	AccountStatus AccountStatus `gorm:"type:text;not null"`               // UNVERIFIED, ACTIVE or SUSPENDED.

	CreatedAt time.Time `gorm:"not null"` // Creation timestamp, set by the creator.
	UpdatedAt time.Time `gorm:"not null"` // Last update timestamp.
}
