package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/techhatch/techhatch-server/internal/models"
	"gorm.io/gorm"
)

func TestRecord_AppendsEvent(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := conn.AutoMigrate(&models.AuthEvent{}); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	recorder := NewRecorder(conn, func() time.Time { return now })

	recorder.Record(context.Background(), "a@x.com", models.EventOtpSent, map[string]any{"purpose": "LOGIN"})

	var event models.AuthEvent
	if errFind := conn.First(&event).Error; errFind != nil {
		t.Fatalf("load event: %v", errFind)
	}
	if event.Email != "a@x.com" || event.Kind != models.EventOtpSent {
		t.Fatalf("unexpected event: %+v", event)
	}
	if len(event.Detail) == 0 {
		t.Fatalf("expected detail payload")
	}
}

func TestRecord_NilRecorderIsNoOp(t *testing.T) {
	var recorder *Recorder
	recorder.Record(context.Background(), "a@x.com", models.EventOtpSent, nil)
}
