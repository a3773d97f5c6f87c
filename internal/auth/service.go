package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/techhatch/techhatch-server/internal/audit"
	"github.com/techhatch/techhatch-server/internal/errs"
	"github.com/techhatch/techhatch-server/internal/models"
	"github.com/techhatch/techhatch-server/internal/otp"
	"github.com/techhatch/techhatch-server/internal/ratelimit"
	"github.com/techhatch/techhatch-server/internal/security"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Identity is an authenticated caller. Handlers extract it from the bearer
// token and pass it in explicitly; the service never reads ambient state.
type Identity struct {
	Email  string
	Role   string
	UserID uint64
}

// OtpSentResult acknowledges an OTP issuance. It never carries a token:
// neither registration nor login completes before verification.
type OtpSentResult struct {
	Success bool   `json:"success"`
	OtpSent bool   `json:"otp_sent"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Verification outcome labels for RegisterResult.
const (
	VerificationVerified        = "VERIFIED"
	VerificationAlreadyVerified = "ALREADY_VERIFIED"
)

// RegisterResult summarizes a completed (or replayed) registration verification.
type RegisterResult struct {
	Success            bool                 `json:"success"`
	UserID             uint64               `json:"user_id"`
	Email              string               `json:"email"`
	Role               models.Role          `json:"role"`
	AccountStatus      models.AccountStatus `json:"account_status"`
	VerificationStatus string               `json:"verification_status"`
	Message            string               `json:"message"`
}

// AuthResult carries a user summary and, after login verification, a session token.
type AuthResult struct {
	Token   string      `json:"token,omitempty"`
	UserID  uint64      `json:"user_id"`
	Email   string      `json:"email"`
	Role    models.Role `json:"role"`
	Message string      `json:"message"`
}

// Service is the top-level register/login/verify flow, composing the OTP
// coordinator, the pending registration store, and user persistence.
type Service struct {
	db      *gorm.DB
	pending *PendingStore
	otp     *otp.Coordinator
	limiter *ratelimit.Limiter
	tokens  *security.TokenIssuer
	audit   *audit.Recorder
	now     func() time.Time
}

// NewService constructs a Service. A nil now falls back to time.Now.
func NewService(db *gorm.DB, coordinator *otp.Coordinator, limiter *ratelimit.Limiter, tokens *security.TokenIssuer, recorder *audit.Recorder, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		db:      db,
		pending: NewPendingStore(db, now),
		otp:     coordinator,
		limiter: limiter,
		tokens:  tokens,
		audit:   recorder,
		now:     now,
	}
}

// Register stages a registration and issues a REGISTRATION OTP. The User row
// is only created later, by VerifyRegistration.
func (s *Service) Register(ctx context.Context, email, password, roleRaw string) (*OtpSentResult, error) {
	user, errFind := s.findUser(ctx, email)
	if errFind != nil {
		return nil, errFind
	}
	if user != nil {
		return nil, errs.New(errs.KindDuplicateResource, "email is already registered")
	}

	role, ok := models.ParseRole(roleRaw)
	if !ok {
		return nil, errs.New(errs.KindUnauthorized, "invalid role")
	}

	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		return nil, errHash
	}

	pending, errPending := s.pending.Find(ctx, email)
	if errPending != nil {
		return nil, errPending
	}

	switch {
	case pending != nil && pending.Expired(s.now()):
		if errDelete := s.pending.Delete(ctx, pending.ID); errDelete != nil {
			return nil, errDelete
		}
		return nil, errs.New(errs.KindRegistrationExpired, "registration expired, please register again")
	case pending != nil:
		// Repeated register calls must hit the limiter before they can
		// trigger another OTP.
		if errCheck := s.limiter.Check(ctx, email); errCheck != nil {
			return nil, errCheck
		}
		if errRefresh := s.pending.Refresh(ctx, pending.ID, hash, role); errRefresh != nil {
			return nil, errRefresh
		}
	default:
		if errCreate := s.pending.Create(ctx, email, hash, role); errCreate != nil {
			return nil, errCreate
		}
	}

	if errSend := s.otp.GenerateAndSend(ctx, email, models.PurposeRegistration); errSend != nil {
		return nil, errSend
	}

	log.WithField("email", email).WithField("purpose", models.PurposeRegistration).Info("otp sent")

	return &OtpSentResult{
		Success: true,
		OtpSent: true,
		Email:   email,
		Message: "registration initiated, please verify email with the otp sent to " + email,
	}, nil
}

// Login checks the credential and issues a LOGIN OTP. No token is issued
// until VerifyLogin. An already-authenticated caller short-circuits.
func (s *Service) Login(ctx context.Context, current *Identity, email, password string) (*OtpSentResult, error) {
	if current != nil {
		return &OtpSentResult{
			Success: false,
			OtpSent: false,
			Email:   email,
			Message: "user is already authenticated",
		}, nil
	}

	user, errFind := s.findUser(ctx, email)
	if errFind != nil {
		return nil, errFind
	}
	if user == nil || !security.CheckPassword(password, user.Password) {
		return nil, errs.New(errs.KindUnauthorized, "invalid email or password")
	}

	if !user.EmailVerified || user.AccountStatus == models.AccountUnverified {
		return nil, errs.New(errs.KindUnauthorized, "verify email before logging in")
	}

	// Suspended reads as not-found on purpose, so the response does not
	// reveal suspension status.
	if user.AccountStatus == models.AccountSuspended {
		return nil, errs.New(errs.KindNotFound, "user not found")
	}

	if errCheck := s.limiter.Check(ctx, email); errCheck != nil {
		return nil, errCheck
	}

	if errSend := s.otp.GenerateAndSend(ctx, email, models.PurposeLogin); errSend != nil {
		return nil, errSend
	}

	log.WithField("email", email).WithField("purpose", models.PurposeLogin).Info("otp sent")

	return &OtpSentResult{
		Success: true,
		OtpSent: true,
		Email:   email,
		Message: "login initiated, please check your email for the OTP",
	}, nil
}

// VerifyRegistration consumes a REGISTRATION OTP and promotes the pending
// registration into a User. Replays against an already-created user return
// the already-verified summary instead of failing.
func (s *Service) VerifyRegistration(ctx context.Context, email, code string, purpose models.Purpose) (*RegisterResult, error) {
	existing, errFind := s.findUser(ctx, email)
	if errFind != nil {
		return nil, errFind
	}
	if existing != nil {
		return &RegisterResult{
			Success:            true,
			UserID:             existing.ID,
			Email:              existing.Email,
			Role:               existing.Role,
			AccountStatus:      models.AccountActive,
			VerificationStatus: VerificationAlreadyVerified,
			Message:            "user verified already",
		}, nil
	}

	pending, errPending := s.pending.FindLive(ctx, email)
	if errPending != nil {
		return nil, errPending
	}

	if errVerify := s.otp.Verify(ctx, email, purpose, code); errVerify != nil {
		return nil, errVerify
	}

	now := s.now()
	user := models.User{
		Email:         pending.Email,
		Password:      pending.Password, // already hashed, copied verbatim
		Role:          pending.Role,
		EmailVerified: true,
		AccountStatus: models.AccountActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errCreate := tx.Create(&user).Error; errCreate != nil {
			return fmt.Errorf("create user: %w", errCreate)
		}
		return tx.Delete(&models.PendingRegistration{}, pending.ID).Error
	})
	if errTx != nil {
		return nil, fmt.Errorf("auth: promote registration: %w", errTx)
	}

	s.audit.Record(ctx, email, models.EventUserRegistered, map[string]any{"role": user.Role})
	log.WithField("email", email).WithField("role", user.Role).Info("user registered")

	return &RegisterResult{
		Success:            true,
		UserID:             user.ID,
		Email:              user.Email,
		Role:               user.Role,
		AccountStatus:      user.AccountStatus,
		VerificationStatus: VerificationVerified,
		Message:            "user verified and created successfully",
	}, nil
}

// VerifyLogin consumes a LOGIN OTP and issues a session token. It never
// creates a user: the account must already exist.
func (s *Service) VerifyLogin(ctx context.Context, current *Identity, email, code string, purpose models.Purpose) (*AuthResult, error) {
	if current != nil {
		return &AuthResult{
			Email:   current.Email,
			UserID:  current.UserID,
			Message: "user is already authenticated",
		}, nil
	}

	user, errFind := s.findUser(ctx, email)
	if errFind != nil {
		return nil, errFind
	}
	if user == nil {
		return nil, errs.New(errs.KindNotFound, "user not found, please register")
	}

	if errVerify := s.otp.Verify(ctx, user.Email, purpose, code); errVerify != nil {
		return nil, errVerify
	}

	token, errIssue := s.tokens.Issue(user.Email, string(user.Role), user.ID)
	if errIssue != nil {
		return nil, errIssue
	}

	s.audit.Record(ctx, email, models.EventLoginSucceeded, nil)
	log.WithField("email", email).Info("user logged in")

	return &AuthResult{
		Token:   token,
		UserID:  user.ID,
		Email:   user.Email,
		Role:    user.Role,
		Message: "user logged in successfully",
	}, nil
}

// ResendOTP re-issues a code for the given purpose. Every failure is
// reported as a bad request so resend cannot be used to probe account state.
func (s *Service) ResendOTP(ctx context.Context, email string, purpose models.Purpose) (*OtpSentResult, error) {
	if errSend := s.otp.GenerateAndSend(ctx, email, purpose); errSend != nil {
		var tagged *errs.Error
		if errors.As(errSend, &tagged) {
			return nil, errs.Wrap(errs.KindBadRequest, tagged.Reason, errSend)
		}
		return nil, errs.Wrap(errs.KindBadRequest, "could not resend OTP", errSend)
	}
	return &OtpSentResult{
		Success: true,
		OtpSent: true,
		Email:   email,
		Message: "a new OTP has been sent to the provided email",
	}, nil
}

// RequestPasswordReset issues a PASSWORD_RESET OTP for an existing active account.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (*OtpSentResult, error) {
	user, errFind := s.findUser(ctx, email)
	if errFind != nil {
		return nil, errFind
	}
	if user == nil {
		return nil, errs.New(errs.KindNotFound, "user not found")
	}
	if user.AccountStatus != models.AccountActive {
		return nil, errs.New(errs.KindUnauthorized, "verify email before resetting password")
	}

	if errSend := s.otp.GenerateAndSend(ctx, email, models.PurposePasswordReset); errSend != nil {
		return nil, errSend
	}

	return &OtpSentResult{
		Success: true,
		OtpSent: true,
		Email:   email,
		Message: "password reset initiated, please check your email for the OTP",
	}, nil
}

// ResetPassword consumes a PASSWORD_RESET OTP and replaces the stored credential.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	user, errFind := s.findUser(ctx, email)
	if errFind != nil {
		return errFind
	}
	if user == nil {
		return errs.New(errs.KindNotFound, "user not found")
	}

	if errVerify := s.otp.Verify(ctx, email, models.PurposePasswordReset, code); errVerify != nil {
		return errVerify
	}

	hash, errHash := security.HashPassword(newPassword)
	if errHash != nil {
		return errHash
	}

	errUpdate := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]any{"password": hash, "updated_at": s.now()}).Error
	if errUpdate != nil {
		return fmt.Errorf("auth: reset password: %w", errUpdate)
	}

	s.audit.Record(ctx, email, models.EventPasswordReset, nil)
	log.WithField("email", email).Info("password reset")
	return nil
}

// CurrentUser returns the account summary for an authenticated identity.
func (s *Service) CurrentUser(ctx context.Context, identity Identity) (*AuthResult, error) {
	user, errFind := s.findUser(ctx, identity.Email)
	if errFind != nil {
		return nil, errFind
	}
	if user == nil {
		return nil, errs.New(errs.KindNotFound, "user not found")
	}
	return &AuthResult{
		UserID:  user.ID,
		Email:   user.Email,
		Role:    user.Role,
		Message: "user fetched successfully",
	}, nil
}

func (s *Service) findUser(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	errFind := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("auth: find user: %w", errFind)
	}
	return &user, nil
}
