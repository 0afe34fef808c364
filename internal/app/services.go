package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightslider/internal/config"
	"github.com/dokzlo13/lightslider/internal/db"
	"github.com/dokzlo13/lightslider/internal/ledger"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	DB     *db.DB
	Ledger *ledger.Ledger

	// High-level services
	Hue    *HueService
	Script *ScriptService
	HTTP   *HTTPService
}

// NewServices creates all services with proper dependency injection.
func NewServices(cfg *config.Config) (*Services, error) {
	s := &Services{cfg: cfg}

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	s.DB = database
	s.Ledger = ledger.New(database.DB)

	s.Hue = NewHueService(cfg, s.Ledger)
	s.Script = NewScriptService(cfg, s.Hue.Dispatcher)
	s.HTTP = NewHTTPService(cfg, s.Hue)

	return s, nil
}

// Start starts all services in the correct order.
// The onFatalError callback is called when a fatal error occurs (e.g., max reconnects exceeded).
func (s *Services) Start(ctx context.Context, onFatalError func(error)) error {
	// Connect to Hue bridge
	if err := s.Hue.Start(ctx); err != nil {
		return err
	}

	// Load the script before any command can be applied
	if err := s.Script.LoadScript(); err != nil {
		return err
	}
	s.Script.Start(ctx, s.Hue.Bus)

	s.Hue.StartBackground(ctx, onFatalError)

	if err := s.HTTP.Start(ctx); err != nil {
		return err
	}

	go s.runLedgerCleanup(ctx)
	return nil
}

// runLedgerCleanup periodically removes ledger entries past retention.
func (s *Services) runLedgerCleanup(ctx context.Context) {
	retention := time.Duration(s.cfg.Ledger.RetentionDays) * 24 * time.Hour
	interval := s.cfg.Ledger.CleanupInterval.Duration()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.Ledger.DeleteOlderThan(retention)
			if err != nil {
				log.Error().Err(err).Msg("Failed to cleanup old ledger entries")
			} else if deleted > 0 {
				log.Info().Int64("deleted", deleted).Dur("retention", retention).Msg("Cleaned up old ledger entries")
			}
		}
	}
}

// Stop gracefully stops all services.
func (s *Services) Stop() error {
	s.Close()
	return nil
}

// Close releases all resources. Sessions stop first so their final commits
// are not sent to a closed dispatcher.
func (s *Services) Close() {
	if s.HTTP != nil {
		s.HTTP.Close()
	}
	if s.Script != nil {
		s.Script.Close()
	}
	if s.Hue != nil {
		s.Hue.Close()
	}
	if s.DB != nil {
		s.DB.Close()
	}
}
