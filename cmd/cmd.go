// Package cmd parse args to configure application.
package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"meetmedia/connector"
	"meetmedia/metric"
	"meetmedia/monitor"
	"meetmedia/session"
)

// Run joins the configured conference and receives its media until the
// process is interrupted.
func Run() {
	config, err := SetupConfig(os.Stderr, os.Args[1:])
	if err != nil {
		log.Error().Err(err).Msg("Invalid configuration")
		os.Exit(1)
	}
	SetupLogger(os.Stderr, config.Debug)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	metrics := metric.New(config.Metric)
	metrics.Start()
	go metrics.UpdateSystemMetrics(ctx)

	hub := monitor.New(config.Monitor, monitor.WithGauge(metrics))
	hub.Start()

	conn := connector.New(
		connector.NewHTTPTransport(config.Connector.Timeout),
		connector.WithRecorder(metrics),
		connector.WithCACertPath(config.Connector.CACertPath),
	)
	s, err := session.New(config.Session, conn,
		session.WithObserver(metrics),
		session.WithAudioHandler(hub.OnAudio),
		session.WithVideoHandler(hub.OnVideo),
	)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create session")
		os.Exit(1)
	}

	if err = s.Connect(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to join conference")
		shutdown(metrics, hub, s)
		os.Exit(1)
	}

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdown(metrics, hub, s)
}

func shutdown(metrics *metric.Metrics, hub *monitor.Hub, s *session.Session) {
	if err := s.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close session")
	}
	if err := hub.Stop(); err != nil {
		log.Warn().Err(err).Msg("Failed to stop monitor server")
	}
	if err := metrics.Stop(); err != nil {
		log.Warn().Err(err).Msg("Failed to stop metrics server")
	}
}

// SetupConfig sets up and returns the configuration.
func SetupConfig(w io.Writer, args []string) (Config, error) {
	config, err := Parse(w, args)
	if err != nil {
		return config, err
	}
	if err = config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

// SetupLogger configures the global logger. Debug mode writes human readable
// output down to debug level; otherwise JSON from info level.
func SetupLogger(w io.Writer, debug bool) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if debug {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}).With().Timestamp().Logger()
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}
