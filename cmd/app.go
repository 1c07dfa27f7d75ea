package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/frahmantamala/expense-assistant/internal"
	"github.com/frahmantamala/expense-assistant/internal/backend"
	"github.com/frahmantamala/expense-assistant/internal/backend/local"
	"github.com/frahmantamala/expense-assistant/internal/backend/remote"
	"github.com/frahmantamala/expense-assistant/internal/category"
	"github.com/frahmantamala/expense-assistant/internal/chat"
	"github.com/frahmantamala/expense-assistant/internal/classifier"
	"github.com/frahmantamala/expense-assistant/internal/confirmation"
	attemptPostgres "github.com/frahmantamala/expense-assistant/internal/confirmation/postgres"
	"github.com/frahmantamala/expense-assistant/internal/core/events"
	"github.com/frahmantamala/expense-assistant/internal/expense"
	expensePostgres "github.com/frahmantamala/expense-assistant/internal/expense/postgres"
	"github.com/frahmantamala/expense-assistant/internal/feedback"
	feedbackPostgres "github.com/frahmantamala/expense-assistant/internal/feedback/postgres"
	"github.com/frahmantamala/expense-assistant/internal/intent"
	"github.com/frahmantamala/expense-assistant/internal/metrics"
	"github.com/frahmantamala/expense-assistant/internal/nlp"
	"github.com/frahmantamala/expense-assistant/internal/parsing"
	"github.com/frahmantamala/expense-assistant/internal/user"
	userPostgres "github.com/frahmantamala/expense-assistant/internal/user/postgres"
)

// bayesWarmStart bounds how many stored feedback rows seed the bayes
// strategy at startup.
const bayesWarmStart = 1000

// App is the assembled assistant shared by the server and CLI commands.
type App struct {
	Config     *internal.Config
	Logger     *slog.Logger
	Registry   *prometheus.Registry
	Metrics    *metrics.Metrics
	DB         *Databases
	Bus        *events.EventBus
	Backend    backend.Backend
	Dispatcher *feedback.Dispatcher
	Machine    *confirmation.Machine
	Chat       *chat.Service

	// set in local backend mode only
	Users    *user.Service
	Expenses *expense.Service
	Feedback *feedback.Service
}

func buildApp(ctx context.Context, cfg *internal.Config, lg *slog.Logger) (*App, error) {
	app := &App{Config: cfg, Logger: lg}

	app.Registry = prometheus.NewRegistry()
	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.Metrics = metrics.New(app.Registry)
	app.Bus = events.NewEventBus(lg)

	if cfg.NeedsDatabase() {
		db, err := initDB(cfg.Database)
		if err != nil {
			return nil, err
		}
		app.DB = db
	}

	be, err := app.buildBackend()
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Backend = be

	table, err := category.LoadTable(cfg.Categories.RulesFile)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to load category rules: %w", err)
	}
	processor := nlp.NewProcessor()

	predictor, err := app.buildClassifier(ctx, table, processor)
	if err != nil {
		app.Close()
		return nil, err
	}

	loc, err := cfg.Locale.Location()
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("invalid timezone: %w", err)
	}
	dates := parsing.NewDateResolver(loc, time.Now)

	var recorder backend.FeedbackRecorder = be
	if cfg.Feedback.Async {
		app.Dispatcher = feedback.NewDispatcher(be, feedback.DispatcherConfig{
			Workers:   cfg.Feedback.Workers,
			QueueSize: cfg.Feedback.QueueSize,
			Timeout:   cfg.Backend.Timeout,
		}, lg, app.Metrics)
		recorder = app.Dispatcher
	}

	var store confirmation.Store
	if cfg.Session.Store == internal.SessionStoreDatabase {
		store = attemptPostgres.NewAttemptStore(app.DB.Gorm, time.Now)
	} else {
		store = confirmation.NewMemoryStore(time.Now)
	}

	app.Machine = confirmation.NewMachine(confirmation.Config{
		Threshold:        cfg.Classifier.Threshold,
		DefaultCategory:  cfg.Categories.Default,
		CommonCategories: cfg.Categories.Common,
		MaxChoices:       confirmation.DefaultMaxChoices,
		TTL:              cfg.Session.TTL,
	}, confirmation.Deps{
		Store:     store,
		Expenses:  be,
		Feedback:  recorder,
		Publisher: app.Bus,
		Metrics:   app.Metrics,
		Logger:    lg,
		Now:       time.Now,
		NewKey:    confirmation.NewKey,
	})

	app.Chat = chat.NewService(chat.Deps{
		Parser:     parsing.NewPipeline(processor, predictor, dates, cfg.Categories.Default, lg, app.Metrics),
		Intent:     intent.NewClassifier(processor, lg),
		Machine:    app.Machine,
		Backend:    be,
		Categories: table,
		Dates:      dates,
		Metrics:    app.Metrics,
		Logger:     lg,
	})

	app.Bus.Subscribe(events.EventTypeExpenseLogged, func(ctx context.Context, event events.Event) error {
		lg.Info("expense logged", "event_id", event.EventID(), "payload", event.Payload())
		return nil
	})

	return app, nil
}

func (a *App) buildBackend() (backend.Backend, error) {
	cfg := a.Config
	switch cfg.Backend.Mode {
	case internal.BackendModeRemote:
		return remote.NewClient(remote.Config{
			URL:       cfg.Backend.URL,
			DeployKey: cfg.Backend.DeployKey,
			Timeout:   cfg.Backend.Timeout,
		}, &http.Client{Timeout: cfg.Backend.Timeout}, a.Logger), nil
	case internal.BackendModeLocal:
		a.Users = user.NewService(userPostgres.NewPostgresRepo(a.DB.SQLX), cfg.Security.BCryptCost, a.Logger)
		a.Expenses = expense.NewService(expensePostgres.NewExpenseRepository(a.DB.Gorm), a.Users, a.Logger)
		a.Feedback = feedback.NewService(feedbackPostgres.NewFeedbackRepository(a.DB.Gorm), a.Logger)
		return local.New(a.Expenses, a.Feedback, a.Users), nil
	}
	return nil, fmt.Errorf("unknown backend mode %q", cfg.Backend.Mode)
}

func (a *App) buildClassifier(ctx context.Context, table *category.Table, processor nlp.Processor) (category.Classifier, error) {
	cfg := a.Config
	switch cfg.Classifier.Strategy {
	case internal.StrategyRemote:
		client := classifier.NewClient(classifier.Config{
			BaseURL: cfg.Classifier.BaseURL,
			Timeout: cfg.Classifier.Timeout,
		}, &http.Client{}, a.Logger)
		return category.Instrument(internal.StrategyRemote, client, a.Metrics), nil

	case internal.StrategyKeyword:
		return category.Instrument(internal.StrategyKeyword, category.NewKeywordClassifier(table, processor), a.Metrics), nil

	case internal.StrategyBayes:
		bayes, err := category.NewBayesClassifier(table, processor, a.Logger)
		if err != nil {
			return nil, err
		}
		if a.Feedback != nil {
			rows, err := a.Feedback.Recent(ctx, bayesWarmStart)
			if err != nil {
				a.Logger.Warn("bayes warm start skipped", "error", err)
			}
			learned := 0
			for _, fb := range rows {
				if bayes.Learn(fb.Text, fb.FinalCategory) {
					learned++
				}
			}
			a.Logger.Info("bayes classifier seeded from feedback", "rows", len(rows), "learned", learned)
		}
		a.Bus.Subscribe(events.EventTypeCategoryFeedback, bayes.HandleFeedback)
		return category.Instrument(internal.StrategyBayes, bayes, a.Metrics), nil
	}
	return nil, fmt.Errorf("unknown classifier strategy %q", cfg.Classifier.Strategy)
}

// Shutdown flushes queued feedback and in-flight event handlers.
func (a *App) Shutdown(ctx context.Context) {
	if a.Dispatcher != nil {
		if err := a.Dispatcher.Shutdown(ctx); err != nil {
			a.Logger.Error("feedback dispatcher shutdown", "error", err)
		}
	}
	if err := a.Bus.Drain(ctx); err != nil {
		a.Logger.Error("event bus drain", "error", err)
	}
	a.Close()
}

func (a *App) Close() {
	if err := a.DB.Close(); err != nil {
		a.Logger.Error("database close error", "error", err)
	}
}
