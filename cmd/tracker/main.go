package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"trade-tracker-go/internal/config"
	"trade-tracker-go/internal/feed"
	"trade-tracker-go/internal/kvstore"
	"trade-tracker-go/internal/logger"
	"trade-tracker-go/internal/models"
	"trade-tracker-go/internal/persist"
	"trade-tracker-go/internal/prices"
	"trade-tracker-go/internal/tracker"

	"go.uber.org/zap"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Initialize the key-value configuration store
	store, err := kvstore.NewSQLiteStore(cfg.Store.DSN)
	if err != nil {
		log.Fatal("Failed to open config store", zap.Error(err))
	}
	log.Info("Config store opened", zap.String("dsn", cfg.Store.DSN))

	// Initialize the item price client
	priceClient := prices.NewClient(&cfg.Prices, log)

	// The tracker loop is the single-threaded domain the state machine,
	// history and persistence scheduler live in.
	loop := tracker.NewLoop(log)
	bus := tracker.NewBus()

	mgr := persist.NewManager(log, store, loop.Invoke)
	history := tracker.NewHistory(log, bus, loop.Invoke, mgr, tracker.Limits{
		MaxCount:       cfg.Tracking.MaxHistoryCount,
		PurgeUnit:      tracker.PurgeUnit(cfg.Tracking.PurgeUnit),
		PurgeMagnitude: cfg.Tracking.PurgeMagnitude,
	})

	var machine *tracker.Machine
	listener := feed.NewListener(cfg.Feed.URL, log, loop.Invoke, feed.Handlers{
		WindowOpened:     func(group int) { machine.WindowOpened(group) },
		WindowClosed:     func(group int) { machine.WindowClosed(group) },
		ContainerChanged: func(id int, items []*models.ItemStack) { machine.ContainerChanged(id, items) },
		ChatMessage: func(chatType tracker.ChatType, text string, timestamp int64) {
			machine.ChatMessage(chatType, text, timestamp)
		},
		Login:         func(profile models.ProfileIdentity) { mgr.SetActiveProfile(&profile) },
		ConfigChanged: configHandler(log, mgr, history),
	})

	machine = tracker.NewMachine(log, bus, loop.Invoke, history, priceClient, listener)
	machine.IgnoreEmptyTrades = cfg.Tracking.IgnoreEmptyTrades

	// Persistence callbacks run on the loop.
	mgr.Snapshot = history.Snapshot
	mgr.OnRestored = func(profileKey string, records []*models.TradeRecord) {
		log.Info("Restored trade history", zap.String("profile", profileKey), zap.Int("records", len(records)))
		history.ReplaceAll(records)
	}
	mgr.OnProfileChanged = func(oldProfile, newProfile *models.ProfileIdentity) {
		bus.Publish(tracker.ProfileChanged{Old: oldProfile, New: newProfile})
	}

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	api := tracker.NewAPIServer(cfg.Server.Port, log, loop.Invoke, machine, history, mgr.ActiveProfile)
	api.Use24HourTime = cfg.Tracking.Use24HourTime
	api.ExportHistory = mgr.ExportToFile
	api.ImportHistory = mgr.ImportFromFile
	api.Start()
	defer api.Stop(context.Background())

	go priceClient.Run(ctx)
	listener.Start(ctx)

	loop.Invoke(func() {
		mgr.LoadCommon()
		if cfg.Tracking.AutoLoadLastProfile && mgr.ActiveProfile() != nil {
			log.Info("Auto-loading last profile", zap.String("profile", mgr.ActiveProfile().Key()))
			mgr.RequestLoad()
		}
	})

	loop.Run(ctx)
	log.Info("Tracker has been shut down.")
}

// configHandler applies configuration values written to the key-value store
// by the configuration UI.
func configHandler(log *zap.Logger, mgr *persist.Manager, history *tracker.History) func(group, key string) {
	return func(group, key string) {
		if group != persist.SaveGroup {
			return
		}
		switch key {
		case persist.KeyMaxHistory:
			var count int
			if ok, err := mgr.RestoreValue(key, &count); err == nil && ok {
				limits := history.Limits()
				limits.MaxCount = count
				history.SetLimits(limits)
			}
		case persist.KeyPurgeUnit:
			var unit string
			if ok, err := mgr.RestoreValue(key, &unit); err == nil && ok {
				limits := history.Limits()
				limits.PurgeUnit = tracker.PurgeUnit(unit)
				history.SetLimits(limits)
			}
		case persist.KeyPurgeMagnitude:
			var magnitude int
			if ok, err := mgr.RestoreValue(key, &magnitude); err == nil && ok {
				limits := history.Limits()
				limits.PurgeMagnitude = magnitude
				history.SetLimits(limits)
			}
		case persist.KeyScheduledPurge:
			var enabled bool
			if ok, err := mgr.RestoreValue(key, &enabled); err == nil && ok {
				history.SetPurgeEnabled(enabled)
			}
		default:
			log.Debug("Ignoring config change", zap.String("key", key))
		}
	}
}
