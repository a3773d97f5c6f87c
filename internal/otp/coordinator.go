package otp

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/techhatch/techhatch-server/internal/audit"
	"github.com/techhatch/techhatch-server/internal/errs"
	"github.com/techhatch/techhatch-server/internal/models"
	"github.com/techhatch/techhatch-server/internal/ratelimit"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Notifier delivers an issued code to its recipient. Delivery is not
// best-effort: a failed send fails the whole issuance.
type Notifier interface {
	Send(ctx context.Context, email string, purpose models.Purpose, code string) error
}

// lockStripes bounds the per-email serialization table.
const lockStripes = 64

// Coordinator orchestrates OTP issuance and verification. Requests for the
// same email are serialized through a striped lock so that concurrent
// issuance cannot leave two active codes for one (email, purpose) pair and
// concurrent verification cannot double-count attempts.
type Coordinator struct {
	db        *gorm.DB
	generator *Generator
	limiter   *ratelimit.Limiter
	attempts  *AttemptRecorder
	notifier  Notifier
	audit     *audit.Recorder
	now       func() time.Time

	locks [lockStripes]sync.Mutex
}

// NewCoordinator constructs a Coordinator. A nil now falls back to time.Now.
func NewCoordinator(db *gorm.DB, limiter *ratelimit.Limiter, notifier Notifier, recorder *audit.Recorder, now func() time.Time) *Coordinator {
	if now == nil {
		now = time.Now
	}
	return &Coordinator{
		db:        db,
		generator: NewGenerator(now),
		limiter:   limiter,
		attempts:  NewAttemptRecorder(db, now),
		notifier:  notifier,
		audit:     recorder,
		now:       now,
	}
}

func (c *Coordinator) lock(email string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(email))
	return &c.locks[h.Sum32()%lockStripes]
}

// GenerateAndSend invalidates any active code for the (email, purpose) pair,
// enforces the issuance rate limit, persists a fresh code, and dispatches it
// through the notifier. A failed dispatch fails the issuance even though the
// record exists: the recipient never saw the code.
func (c *Coordinator) GenerateAndSend(ctx context.Context, email string, purpose models.Purpose) error {
	mu := c.lock(email)
	mu.Lock()
	defer mu.Unlock()

	now := c.now()
	store := NewStore(c.db)

	if errInvalidate := store.InvalidateActive(ctx, email, purpose, now); errInvalidate != nil {
		return errInvalidate
	}

	if errCheck := c.limiter.Check(ctx, email); errCheck != nil {
		if errs.IsKind(errCheck, errs.KindRateLimited) {
			c.audit.Record(ctx, email, models.EventRateLimited, map[string]any{"purpose": purpose})
		}
		return errCheck
	}

	code, errGenerate := c.generator.Generate()
	if errGenerate != nil {
		return errGenerate
	}

	rec := models.OtpVerification{
		Email:       email,
		Purpose:     purpose,
		Code:        code,
		Attempts:    0,
		MaxAttempts: models.OTPMaxAttempts,
		ExpiresAt:   c.generator.ExpiryFromNow(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// Invalidate again inside the insert transaction: another request may
	// have slipped in between the first invalidation and the rate check.
	errTx := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txStore := NewStore(tx)
		if errInvalidate := txStore.InvalidateActive(ctx, email, purpose, now); errInvalidate != nil {
			return errInvalidate
		}
		return txStore.Create(ctx, &rec)
	})
	if errTx != nil {
		return fmt.Errorf("otp: issue code: %w", errTx)
	}

	if errUsage := c.limiter.RecordUsage(ctx, email); errUsage != nil {
		return errUsage
	}

	if errSend := c.notifier.Send(ctx, email, purpose, code); errSend != nil {
		return errs.Wrap(errs.KindNotificationFailed, "failed to send OTP email", errSend)
	}

	c.audit.Record(ctx, email, models.EventOtpSent, map[string]any{"purpose": purpose})
	log.WithField("email", email).WithField("purpose", purpose).Info("otp sent")
	return nil
}

// Verify checks a submitted code against the latest active record for the
// (email, purpose) pair. Failed submissions are counted through the attempt
// recorder, whose write survives independently of this call's outcome.
func (c *Coordinator) Verify(ctx context.Context, email string, purpose models.Purpose, submitted string) error {
	mu := c.lock(email)
	mu.Lock()
	defer mu.Unlock()

	store := NewStore(c.db)

	rec, errLoad := store.LatestUnverified(ctx, email, purpose)
	if errLoad != nil {
		return errLoad
	}
	if rec == nil {
		return errs.New(errs.KindOTPInvalid, "no OTP found for this email")
	}

	if rec.Verified {
		return errs.New(errs.KindOTPInvalid, "OTP already used")
	}

	now := c.now()

	if rec.Expired(now) {
		return errs.New(errs.KindOTPInvalid, "OTP expired, please request a new one")
	}

	if rec.AttemptsExceeded() {
		return errs.New(errs.KindOTPInvalid, "maximum attempts exceeded, please try again later")
	}

	if submitted != rec.Code {
		attempts, errRecord := c.attempts.RecordFailure(ctx, rec.ID)
		if errRecord != nil {
			return errRecord
		}
		remaining := rec.MaxAttempts - attempts
		if remaining < 0 {
			remaining = 0
		}
		c.audit.Record(ctx, email, models.EventOtpRejected, map[string]any{
			"purpose":   purpose,
			"remaining": remaining,
		})
		return errs.New(errs.KindOTPInvalid, fmt.Sprintf("invalid OTP, %d attempts remaining", remaining))
	}

	if errMark := store.MarkVerified(ctx, rec.ID, now); errMark != nil {
		return errMark
	}

	c.audit.Record(ctx, email, models.EventOtpVerified, map[string]any{"purpose": purpose})
	log.WithField("email", email).Info("otp verified")
	return nil
}
