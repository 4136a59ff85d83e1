// Package app wires the NLU, the command handlers, the calendar client and a
// chat transport into a running assistant.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bdobrica/Koyomi/internal/koyomi/calendar"
	"github.com/bdobrica/Koyomi/internal/koyomi/config"
	"github.com/bdobrica/Koyomi/internal/koyomi/matrix"
	"github.com/bdobrica/Koyomi/internal/koyomi/nlu"
	"github.com/bdobrica/Koyomi/internal/koyomi/slack"
	"github.com/bdobrica/Koyomi/internal/koyomi/store"
)

// sweepInterval is how often idle rate-limiter entries are dropped.
const sweepInterval = 5 * time.Minute

// App is the assembled assistant.
type App struct {
	config       config.Config
	store        *store.Store
	transport    Transport
	limiter      *nlu.RateLimiter
	pipeline     *Pipeline
	healthServer *HealthServer
}

// New builds every component from cfg. Nothing connects until Run.
func New(cfg config.Config) (*App, error) {
	a := &App{config: cfg}

	var audit AuditWriter
	if cfg.DatabasePath != "" {
		s, err := store.New(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
		a.store = s
		audit = s
		slog.Info("store opened", "path", cfg.DatabasePath)
	}

	wit, err := nlu.NewWit(nlu.WitConfig{
		Token:   cfg.Wit.Token,
		BaseURL: cfg.Wit.APIURL,
		Version: cfg.Wit.APIVersion,
		Timeout: cfg.HTTPTimeout,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create NLU client: %w", err)
	}

	transport, err := a.newTransport()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.transport = transport

	cal := calendar.New(calendar.Config{
		BaseURL: cfg.Calendar.APIURL,
		Timeout: cfg.HTTPTimeout,
	})

	a.limiter = nlu.NewRateLimiter(cfg.NLURateLimit, time.Minute)
	a.pipeline = NewPipeline(PipelineConfig{
		Classifier: wit,
		Limiter:    a.limiter,
		Calendar:   withAudit(cal, audit, transport.Name()),
		Sender:     transport,
		VerifyURL:  cfg.Calendar.VerifyURL,
		Location:   cfg.Location(),
	})

	if cfg.HTTPAddr != "" {
		a.healthServer = NewHealthServer(cfg.HTTPAddr, transport.Name(), a.pipeline)
	}
	return a, nil
}

func (a *App) newTransport() (Transport, error) {
	switch a.config.Platform {
	case config.PlatformSlack:
		return slack.New(slack.Config{
			BotToken:   a.config.Slack.BotToken,
			AppToken:   a.config.Slack.AppToken,
			BaseURL:    a.config.Slack.APIURL,
			BotChannel: a.config.Slack.BotChannel,
			HTTPClient: &http.Client{Timeout: a.config.HTTPTimeout},
		}), nil
	case config.PlatformMatrix:
		mc := matrix.Config{
			Homeserver:  a.config.Matrix.Homeserver,
			UserID:      a.config.Matrix.UserID,
			AccessToken: a.config.Matrix.AccessToken,
			Rooms:       a.config.Matrix.Rooms,
			Prefix:      a.config.Matrix.Prefix,
		}
		if a.store != nil {
			mc.SyncState = a.store
		}
		client, err := matrix.New(mc)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown platform %q", a.config.Platform)
	}
}

// Run starts the health server and the transport, and blocks until ctx is
// cancelled or SIGINT/SIGTERM arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.healthServer != nil {
		if err := a.healthServer.Start(ctx); err != nil {
			slog.Warn("health server failed to start; continuing without it", "err", err)
		}
	}

	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.limiter.Sweep()
			}
		}
	}()

	slog.Info("Koyomi is running; press Ctrl+C to stop", "platform", a.transport.Name())
	err := a.transport.Run(ctx, a.pipeline)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s transport: %w", a.transport.Name(), err)
	}
	slog.Info("shutting down")
	return nil
}

// Close releases the store.
func (a *App) Close() {
	if a.healthServer != nil {
		a.healthServer.Stop()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			slog.Warn("failed to close store", "err", err)
		}
	}
}
