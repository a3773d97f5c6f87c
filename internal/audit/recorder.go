package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/techhatch/techhatch-server/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Recorder appends auth flow events to the audit log. Recording is advisory:
// a failed write is logged and never alters the outcome of the operation
// that produced the event.
type Recorder struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRecorder constructs a Recorder. A nil now falls back to time.Now.
func NewRecorder(db *gorm.DB, now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{db: db, now: now}
}

// Record appends one event. Detail values must not contain OTP codes or
// credential material. A nil Recorder is a no-op.
func (r *Recorder) Record(ctx context.Context, email string, kind models.AuthEventKind, detail map[string]any) {
	if r == nil || r.db == nil {
		return
	}

	event := models.AuthEvent{
		Email:     email,
		Kind:      kind,
		CreatedAt: r.now(),
	}
	if len(detail) > 0 {
		payload, errMarshal := json.Marshal(detail)
		if errMarshal != nil {
			log.WithError(errMarshal).WithField("kind", kind).Warn("audit: marshal detail failed")
		} else {
			event.Detail = datatypes.JSON(payload)
		}
	}

	if errCreate := r.db.WithContext(ctx).Create(&event).Error; errCreate != nil {
		log.WithError(errCreate).WithField("kind", kind).Warn("audit: record event failed")
	}
}
