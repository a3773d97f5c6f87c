package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/techhatch/techhatch-server/internal/audit"
	"github.com/techhatch/techhatch-server/internal/errs"
	"github.com/techhatch/techhatch-server/internal/models"
	"github.com/techhatch/techhatch-server/internal/otp"
	"github.com/techhatch/techhatch-server/internal/ratelimit"
	"github.com/techhatch/techhatch-server/internal/security"
	"gorm.io/gorm"
)

// captureNotifier records the last code sent to each address.
type captureNotifier struct {
	codes map[string]string
}

func (n *captureNotifier) Send(_ context.Context, email string, _ models.Purpose, code string) error {
	n.codes[email] = code
	return nil
}

type svcEnv struct {
	db       *gorm.DB
	service  *Service
	notifier *captureNotifier
	now      time.Time
}

func newSvcEnv(t *testing.T) *svcEnv {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	errMigrate := conn.AutoMigrate(
		&models.User{},
		&models.PendingRegistration{},
		&models.OtpVerification{},
		&models.OtpRateLimit{},
		&models.AuthEvent{},
	)
	if errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	env := &svcEnv{
		db:       conn,
		notifier: &captureNotifier{codes: make(map[string]string)},
		now:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	nowFn := func() time.Time { return env.now }
	limiter := ratelimit.NewLimiter(conn, nowFn)
	recorder := audit.NewRecorder(conn, nowFn)
	coordinator := otp.NewCoordinator(conn, limiter, env.notifier, recorder, nowFn)
	tokens := security.NewTokenIssuer("test-secret", time.Hour, nowFn)
	env.service = NewService(conn, coordinator, limiter, tokens, recorder, nowFn)
	return env
}

// registerAndVerify walks an email through the full registration flow.
func (e *svcEnv) registerAndVerify(t *testing.T, email, password, role string) *RegisterResult {
	t.Helper()
	ctx := context.Background()
	if _, errRegister := e.service.Register(ctx, email, password, role); errRegister != nil {
		t.Fatalf("register: %v", errRegister)
	}
	result, errVerify := e.service.VerifyRegistration(ctx, email, e.notifier.codes[email], models.PurposeRegistration)
	if errVerify != nil {
		t.Fatalf("verify registration: %v", errVerify)
	}
	return result
}

func TestRegistrationFlow_CreatesActiveUser(t *testing.T) {
	env := newSvcEnv(t)
	ctx := context.Background()

	ack, errRegister := env.service.Register(ctx, "a@x.com", "secret123", "CANDIDATE")
	if errRegister != nil {
		t.Fatalf("register: %v", errRegister)
	}
	if !ack.OtpSent {
		t.Fatalf("expected otp-sent acknowledgment, got %+v", ack)
	}
	if env.notifier.codes["a@x.com"] == "" {
		t.Fatalf("expected a code delivered")
	}

	// No user exists before verification.
	var users int64
	env.db.Model(&models.User{}).Count(&users)
	if users != 0 {
		t.Fatalf("registration must not create a user before verification")
	}

	result, errVerify := env.service.VerifyRegistration(ctx, "a@x.com", env.notifier.codes["a@x.com"], models.PurposeRegistration)
	if errVerify != nil {
		t.Fatalf("verify registration: %v", errVerify)
	}
	if result.VerificationStatus != VerificationVerified {
		t.Fatalf("expected VERIFIED, got %q", result.VerificationStatus)
	}

	var user models.User
	if errFind := env.db.Where("email = ?", "a@x.com").First(&user).Error; errFind != nil {
		t.Fatalf("load user: %v", errFind)
	}
	if user.AccountStatus != models.AccountActive || user.Role != models.RoleCandidate || !user.EmailVerified {
		t.Fatalf("unexpected user state: %+v", user)
	}
	if user.Password == "secret123" {
		t.Fatalf("password must be stored hashed")
	}

	// The pending registration is gone.
	var pendings int64
	env.db.Model(&models.PendingRegistration{}).Count(&pendings)
	if pendings != 0 {
		t.Fatalf("expected pending registration deleted")
	}

	// Replays short-circuit instead of failing.
	replay, errReplay := env.service.VerifyRegistration(ctx, "a@x.com", "000000", models.PurposeRegistration)
	if errReplay != nil {
		t.Fatalf("replay: %v", errReplay)
	}
	if replay.VerificationStatus != VerificationAlreadyVerified {
		t.Fatalf("expected ALREADY_VERIFIED, got %q", replay.VerificationStatus)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := newSvcEnv(t)
	env.registerAndVerify(t, "a@x.com", "secret123", "CANDIDATE")

	env.now = env.now.Add(time.Hour)
	_, errDup := env.service.Register(context.Background(), "a@x.com", "another-pass", "RECRUITER")
	if !errs.IsKind(errDup, errs.KindDuplicateResource) {
		t.Fatalf("expected duplicate-resource, got %v", errDup)
	}
}

func TestRegister_InvalidRole(t *testing.T) {
	env := newSvcEnv(t)

	_, errRegister := env.service.Register(context.Background(), "a@x.com", "secret123", "WIZARD")
	if !errs.IsKind(errRegister, errs.KindUnauthorized) {
		t.Fatalf("expected unauthorized for unknown role, got %v", errRegister)
	}
}

func TestRegister_RefreshReplacesStagedDetails(t *testing.T) {
	env := newSvcEnv(t)
	ctx := context.Background()

	if _, err := env.service.Register(ctx, "a@x.com", "first-pass", "CANDIDATE"); err != nil {
		t.Fatalf("first register: %v", err)
	}

	env.now = env.now.Add(time.Minute)
	if _, err := env.service.Register(ctx, "a@x.com", "second-pass", "RECRUITER"); err != nil {
		t.Fatalf("second register: %v", err)
	}

	result, errVerify := env.service.VerifyRegistration(ctx, "a@x.com", env.notifier.codes["a@x.com"], models.PurposeRegistration)
	if errVerify != nil {
		t.Fatalf("verify: %v", errVerify)
	}
	if result.Role != models.RoleRecruiter {
		t.Fatalf("expected refreshed role, got %s", result.Role)
	}
}

func TestVerifyRegistration_ExpiredPending(t *testing.T) {
	env := newSvcEnv(t)
	ctx := context.Background()

	if _, err := env.service.Register(ctx, "a@x.com", "secret123", "CANDIDATE"); err != nil {
		t.Fatalf("register: %v", err)
	}
	code := env.notifier.codes["a@x.com"]

	env.now = env.now.Add(25 * time.Hour)
	_, errVerify := env.service.VerifyRegistration(ctx, "a@x.com", code, models.PurposeRegistration)
	if !errs.IsKind(errVerify, errs.KindRegistrationExpired) {
		t.Fatalf("expected registration-expired, got %v", errVerify)
	}

	var pendings int64
	env.db.Model(&models.PendingRegistration{}).Count(&pendings)
	if pendings != 0 {
		t.Fatalf("expected stale pending row removed")
	}
	var users int64
	env.db.Model(&models.User{}).Count(&users)
	if users != 0 {
		t.Fatalf("expired registration must not create a user")
	}
}

func TestLoginFlow_IssuesTokenAfterOtp(t *testing.T) {
	env := newSvcEnv(t)
	ctx := context.Background()
	env.registerAndVerify(t, "a@x.com", "secret123", "CANDIDATE")

	env.now = env.now.Add(time.Hour)
	ack, errLogin := env.service.Login(ctx, nil, "a@x.com", "secret123")
	if errLogin != nil {
		t.Fatalf("login: %v", errLogin)
	}
	if !ack.OtpSent {
		t.Fatalf("expected otp-sent acknowledgment, got %+v", ack)
	}

	result, errVerify := env.service.VerifyLogin(ctx, nil, "a@x.com", env.notifier.codes["a@x.com"], models.PurposeLogin)
	if errVerify != nil {
		t.Fatalf("verify login: %v", errVerify)
	}
	if result.Token == "" {
		t.Fatalf("expected a session token")
	}
	if result.Role != models.RoleCandidate {
		t.Fatalf("unexpected role: %s", result.Role)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newSvcEnv(t)
	env.registerAndVerify(t, "a@x.com", "secret123", "CANDIDATE")

	env.now = env.now.Add(time.Hour)
	_, errLogin := env.service.Login(context.Background(), nil, "a@x.com", "wrong-pass")
	if !errs.IsKind(errLogin, errs.KindUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", errLogin)
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	env := newSvcEnv(t)

	_, errLogin := env.service.Login(context.Background(), nil, "nobody@x.com", "whatever1")
	if !errs.IsKind(errLogin, errs.KindUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", errLogin)
	}
}

func TestLogin_SuspendedReadsAsNotFound(t *testing.T) {
	env := newSvcEnv(t)
	env.registerAndVerify(t, "a@x.com", "secret123", "CANDIDATE")

	errUpdate := env.db.Model(&models.User{}).
		Where("email = ?", "a@x.com").
		Update("account_status", models.AccountSuspended).Error
	if errUpdate != nil {
		t.Fatalf("suspend: %v", errUpdate)
	}

	env.now = env.now.Add(time.Hour)
	_, errLogin := env.service.Login(context.Background(), nil, "a@x.com", "secret123")
	if !errs.IsKind(errLogin, errs.KindNotFound) {
		t.Fatalf("expected not-found for suspended account, got %v", errLogin)
	}
}

func TestLogin_AlreadyAuthenticatedShortCircuits(t *testing.T) {
	env := newSvcEnv(t)
	env.registerAndVerify(t, "a@x.com", "secret123", "CANDIDATE")

	current := &Identity{Email: "a@x.com", Role: "CANDIDATE", UserID: 1}
	ack, errLogin := env.service.Login(context.Background(), current, "a@x.com", "secret123")
	if errLogin != nil {
		t.Fatalf("login: %v", errLogin)
	}
	if ack.OtpSent || ack.Success {
		t.Fatalf("expected no-op acknowledgment, got %+v", ack)
	}
	var loginOtps int64
	env.db.Model(&models.OtpVerification{}).Where("purpose = ?", models.PurposeLogin).Count(&loginOtps)
	if loginOtps != 0 {
		t.Fatalf("short-circuit must not issue a login OTP")
	}
}

func TestVerifyLogin_NeverCreatesUser(t *testing.T) {
	env := newSvcEnv(t)

	_, errVerify := env.service.VerifyLogin(context.Background(), nil, "nobody@x.com", "123456", models.PurposeLogin)
	if !errs.IsKind(errVerify, errs.KindNotFound) {
		t.Fatalf("expected not-found, got %v", errVerify)
	}

	var users int64
	env.db.Model(&models.User{}).Count(&users)
	if users != 0 {
		t.Fatalf("verify-login must never create a user")
	}
}

func TestResendOTP_FailureIsBadRequest(t *testing.T) {
	env := newSvcEnv(t)
	ctx := context.Background()

	// Exhaust the issuance window, then resend.
	if _, err := env.service.Register(ctx, "a@x.com", "secret123", "CANDIDATE"); err != nil {
		t.Fatalf("register: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := env.service.ResendOTP(ctx, "a@x.com", models.PurposeRegistration); err != nil {
			t.Fatalf("resend %d: %v", i+1, err)
		}
	}

	_, errResend := env.service.ResendOTP(ctx, "a@x.com", models.PurposeRegistration)
	if !errs.IsKind(errResend, errs.KindBadRequest) {
		t.Fatalf("expected bad-request from resend, got %v", errResend)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	env := newSvcEnv(t)
	ctx := context.Background()
	env.registerAndVerify(t, "a@x.com", "secret123", "CANDIDATE")

	env.now = env.now.Add(time.Hour)
	if _, err := env.service.RequestPasswordReset(ctx, "a@x.com"); err != nil {
		t.Fatalf("request reset: %v", err)
	}

	errReset := env.service.ResetPassword(ctx, "a@x.com", env.notifier.codes["a@x.com"], "brand-new-pass")
	if errReset != nil {
		t.Fatalf("reset: %v", errReset)
	}

	// The old credential no longer works, the new one does.
	env.now = env.now.Add(time.Hour)
	if _, errOld := env.service.Login(ctx, nil, "a@x.com", "secret123"); !errs.IsKind(errOld, errs.KindUnauthorized) {
		t.Fatalf("expected old password rejected, got %v", errOld)
	}
	if _, errNew := env.service.Login(ctx, nil, "a@x.com", "brand-new-pass"); errNew != nil {
		t.Fatalf("expected new password accepted, got %v", errNew)
	}
}

func TestCurrentUser(t *testing.T) {
	env := newSvcEnv(t)
	created := env.registerAndVerify(t, "a@x.com", "secret123", "RECRUITER")

	result, errCurrent := env.service.CurrentUser(context.Background(), Identity{Email: "a@x.com"})
	if errCurrent != nil {
		t.Fatalf("current user: %v", errCurrent)
	}
	if result.UserID != created.UserID || result.Role != models.RoleRecruiter {
		t.Fatalf("unexpected summary: %+v", result)
	}

	_, errUnknown := env.service.CurrentUser(context.Background(), Identity{Email: "ghost@x.com"})
	if !errs.IsKind(errUnknown, errs.KindNotFound) {
		t.Fatalf("expected not-found, got %v", errUnknown)
	}
}
