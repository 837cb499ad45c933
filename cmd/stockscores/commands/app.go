package commands

import (
	"fmt"

	"github.com/mkuhn/stockscores/backend/internal/fetch"
	"github.com/mkuhn/stockscores/backend/internal/forensics"
	"github.com/mkuhn/stockscores/backend/internal/notify"
	"github.com/mkuhn/stockscores/backend/internal/providers"
	"github.com/mkuhn/stockscores/backend/internal/store"
	"github.com/mkuhn/stockscores/backend/internal/update"
	"github.com/mkuhn/stockscores/backend/pkg/config"
	"github.com/mkuhn/stockscores/backend/pkg/database"
	"github.com/mkuhn/stockscores/backend/pkg/httputil"
	"github.com/mkuhn/stockscores/backend/pkg/logger"
	"github.com/mkuhn/stockscores/backend/pkg/redis"
)

// app bundles the dependency graph shared by all commands
type app struct {
	cfg          *config.Config
	logger       *logger.Logger
	db           *database.DB
	redis        *redis.Client
	store        *store.Repository
	hub          *notify.Hub
	notifier     *notify.Service
	updater      *update.Engine
	orchestrator *fetch.Orchestrator
}

// newApp wires the application together. withHub enables the websocket
// digest hub, wanted only by the long-running serve command.
func newApp(withHub bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	redisClient, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	repo := store.NewRepository(db.Pool)

	var hub *notify.Hub
	if withHub {
		hub = notify.NewHub(log)
		go hub.Run()
	}
	notifier := notify.NewService(cfg.Notify.WebhookURL, httputil.New(log), hub, log)

	updater := update.NewEngine(repo, notifier, log)
	sink := forensics.NewSink(redisClient, log)

	orchestrator := fetch.NewOrchestrator(repo, updater, notifier, sink, cfg.Notify.AlertRecipients, log)
	providers.RegisterAll(orchestrator, cfg, log)

	return &app{
		cfg:          cfg,
		logger:       log,
		db:           db,
		redis:        redisClient,
		store:        repo,
		hub:          hub,
		notifier:     notifier,
		updater:      updater,
		orchestrator: orchestrator,
	}, nil
}

// close releases held connections
func (a *app) close() {
	a.db.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.WithError(err).Warn("Failed to close redis connection")
	}
}
