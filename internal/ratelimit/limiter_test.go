package ratelimit

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/techhatch/techhatch-server/internal/errs"
	"github.com/techhatch/techhatch-server/internal/models"
	"gorm.io/gorm"
)

func newTestLimiter(t *testing.T) (*Limiter, *gorm.DB, *time.Time) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := conn.AutoMigrate(&models.OtpRateLimit{}); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewLimiter(conn, func() time.Time { return now })
	return limiter, conn, &now
}

func TestCheck_FirstTimeIdentityPasses(t *testing.T) {
	limiter, _, _ := newTestLimiter(t)

	if err := limiter.Check(context.Background(), "a@x.com"); err != nil {
		t.Fatalf("expected pass for unknown identity, got %v", err)
	}
}

func TestCheck_DoesNotConsumeASlot(t *testing.T) {
	limiter, conn, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := limiter.Check(ctx, "a@x.com"); err != nil {
			t.Fatalf("check %d: %v", i+1, err)
		}
	}

	var count int64
	if errCount := conn.Model(&models.OtpRateLimit{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	if count != 0 {
		t.Fatalf("check alone must not create a window record, found %d", count)
	}
}

func TestBlockAfterThreeUsagesAndRecoveryAfterWindow(t *testing.T) {
	limiter, _, now := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := limiter.Check(ctx, "a@x.com"); err != nil {
			t.Fatalf("check %d: %v", i+1, err)
		}
		if err := limiter.RecordUsage(ctx, "a@x.com"); err != nil {
			t.Fatalf("usage %d: %v", i+1, err)
		}
	}

	errBlocked := limiter.Check(ctx, "a@x.com")
	if !errs.IsKind(errBlocked, errs.KindRateLimited) {
		t.Fatalf("expected rate-limited on 4th check, got %v", errBlocked)
	}

	// Still blocked shortly after: the counter is not reset by the block.
	*now = now.Add(5 * time.Minute)
	errStillBlocked := limiter.Check(ctx, "a@x.com")
	if !errs.IsKind(errStillBlocked, errs.KindRateLimited) {
		t.Fatalf("expected rate-limited inside block, got %v", errStillBlocked)
	}
	var tagged *errs.Error
	if !errors.As(errStillBlocked, &tagged) || tagged.RetryAfter <= 0 {
		t.Fatalf("expected positive retry-after, got %v", errStillBlocked)
	}

	// Past the block and the window, a fresh window begins.
	*now = now.Add(12 * time.Minute)
	if err := limiter.Check(ctx, "a@x.com"); err != nil {
		t.Fatalf("expected pass after window reset, got %v", err)
	}
	if err := limiter.RecordUsage(ctx, "a@x.com"); err != nil {
		t.Fatalf("usage after reset: %v", err)
	}
	if err := limiter.Check(ctx, "a@x.com"); err != nil {
		t.Fatalf("expected pass with fresh counter, got %v", err)
	}
}

func TestWindowExpiryResetsCounter(t *testing.T) {
	limiter, conn, now := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := limiter.RecordUsage(ctx, "a@x.com"); err != nil {
			t.Fatalf("usage %d: %v", i+1, err)
		}
	}

	*now = now.Add(16 * time.Minute)
	if err := limiter.Check(ctx, "a@x.com"); err != nil {
		t.Fatalf("expected pass after window rollover, got %v", err)
	}

	var rec models.OtpRateLimit
	if errFind := conn.Where("email = ?", "a@x.com").First(&rec).Error; errFind != nil {
		t.Fatalf("reload: %v", errFind)
	}
	if rec.RequestCount != 0 {
		t.Fatalf("expected counter reset, got %d", rec.RequestCount)
	}
	if !rec.WindowStart.Equal(*now) {
		t.Fatalf("expected window start moved to now")
	}
}
