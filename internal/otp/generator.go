package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/techhatch/techhatch-server/internal/models"
)

// codeSpace bounds generated codes to six decimal digits.
var codeSpace = big.NewInt(1000000)

// Generator produces OTP codes and expiry timestamps.
type Generator struct {
	now func() time.Time
}

// NewGenerator constructs a Generator. A nil now falls back to time.Now.
func NewGenerator(now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{now: now}
}

// Generate returns a uniformly random zero-padded 6-digit code drawn from
// a cryptographically secure source.
func (g *Generator) Generate() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("otp: generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// ExpiryFromNow returns the absolute deadline for a code issued now.
func (g *Generator) ExpiryFromNow() time.Time {
	return g.now().Add(models.OTPTTL)
}
