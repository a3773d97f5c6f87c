package db

import (
	"fmt"

	"github.com/techhatch/techhatch-server/internal/models"
	"gorm.io/gorm"
)

// Migrate runs database migrations for the auth schema.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	if errAutoMigrate := conn.AutoMigrate(
		&models.User{},
		&models.PendingRegistration{},
		&models.OtpVerification{},
		&models.OtpRateLimit{},
		&models.AuthEvent{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: auto migrate: %w", errAutoMigrate)
	}
	return nil
}
