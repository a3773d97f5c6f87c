package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/techhatch/techhatch-server/internal/audit"
	"github.com/techhatch/techhatch-server/internal/auth"
	"github.com/techhatch/techhatch-server/internal/config"
	"github.com/techhatch/techhatch-server/internal/db"
	internalhttp "github.com/techhatch/techhatch-server/internal/http"
	"github.com/techhatch/techhatch-server/internal/mail"
	"github.com/techhatch/techhatch-server/internal/otp"
	"github.com/techhatch/techhatch-server/internal/ratelimit"
	"github.com/techhatch/techhatch-server/internal/security"

	log "github.com/sirupsen/logrus"
)

// shutdownTimeout bounds how long in-flight requests may run during shutdown.
const shutdownTimeout = 10 * time.Second

// Migrate opens the database and runs migrations.
func Migrate(_ context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	return db.Migrate(conn)
}

// RunServer boots the auth API server with database-backed components and
// blocks until ctx is cancelled or the listener fails.
func RunServer(ctx context.Context, cfg config.AppConfig, port int) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)

	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	jwtConfig, _ := config.LoadJWTConfig(configPath)
	if jwtConfig.Secret == "" {
		return fmt.Errorf("missing jwt secret (set `jwt.secret` in config file or env %s)", config.EnvJWTSecret)
	}
	smtpConfig, _ := config.LoadSMTPConfig(configPath)
	if smtpConfig.Host == "" {
		log.Warn("smtp host not configured, OTP delivery will fail")
	}

	tokens := security.NewTokenIssuer(jwtConfig.Secret, jwtConfig.Expiry, nil)
	recorder := audit.NewRecorder(conn, nil)
	limiter := ratelimit.NewLimiter(conn, nil)
	sender := mail.NewSender(smtpConfig)
	coordinator := otp.NewCoordinator(conn, limiter, sender, recorder, nil)
	service := auth.NewService(conn, coordinator, limiter, tokens, recorder, nil)

	router := internalhttp.NewRouter(service, tokens)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", server.Addr).Info("auth server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
			return errShutdown
		}
		return nil
	case errServe := <-errCh:
		if errors.Is(errServe, http.ErrServerClosed) {
			return nil
		}
		return errServe
	}
}
