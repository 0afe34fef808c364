package main

import (
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightslider/internal/app"
	"github.com/dokzlo13/lightslider/internal/config"
)

func main() {
	var (
		configPath string
		opts       app.Options
	)
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.StringVar(&configPath, "c", "config.yaml", "Path to configuration file (shorthand)")
	flag.BoolVar(&opts.PurgeLedger, "purge-ledger", false, "Delete the command ledger on startup")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", configPath).Msg("Failed to load configuration")
	}
	configureLogger(cfg.Log)

	log.Info().
		Str("config", configPath).
		Str("listen", cfg.Server.Addr()).
		Int("cards", len(cfg.Cards)).
		Msg("Starting lightslider")

	application, err := app.New(cfg, opts)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create application")
	}

	if err := application.Start(app.SignalContext()); err != nil {
		_ = application.Stop()
		log.Fatal().Err(err).Msg("Failed to start application")
	}
	application.Wait()

	if err := application.Stop(); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}
}

// configureLogger sets the global logger from the log section. Unknown levels
// fall back to info.
func configureLogger(c config.LogConfig) {
	zerolog.TimeFieldFormat = time.RFC3339

	if c.JSON {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
			NoColor:    !c.Colors,
		})
	}

	level, err := zerolog.ParseLevel(c.Level)
	if err != nil || c.Level == "" {
		if err != nil {
			log.Warn().Str("level", c.Level).Msg("Unknown log level, using info")
		}
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
