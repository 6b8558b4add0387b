package server

import (
	"context"
	"fmt"

	"github.com/meditrack/coordination/internal/directory"
	"github.com/meditrack/coordination/internal/messaging"
	"github.com/meditrack/coordination/internal/notifications"
	"github.com/meditrack/coordination/internal/reminders"
	"github.com/meditrack/coordination/internal/tracking"
	"github.com/meditrack/coordination/internal/vitals"
	"github.com/meditrack/coordination/pkg/config"
	"github.com/meditrack/coordination/pkg/database"
	"github.com/meditrack/coordination/pkg/interfaces"
	"github.com/meditrack/coordination/pkg/logger"
)

// stores groups the persistence dependencies chosen by storage.driver
type stores struct {
	db            *database.DB
	locations     interfaces.LocationStore
	notifications interfaces.NotificationStore
	directory     interfaces.Directory
	schedules     interfaces.ScheduleRepository
	vitals        interfaces.VitalRepository
	messages      interfaces.MessageStore
}

func openStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (*stores, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		log.WithComponent("server").Warn("Using in-memory storage; data is lost on restart")
		return &stores{
			locations:     tracking.NewMemoryStore(),
			notifications: notifications.NewMemoryStore(),
			directory:     directory.NewMemoryDirectory(),
			schedules:     reminders.NewMemoryRepository(),
			vitals:        vitals.NewMemoryRepository(),
			messages:      messaging.NewMemoryStore(),
		}, nil

	case config.DriverPostgres:
		db, err := database.NewConnection(&cfg.Database, log)
		if err != nil {
			return nil, err
		}
		if err := db.CreateSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return &stores{
			db:            db,
			locations:     tracking.NewRepository(db, log),
			notifications: notifications.NewRepository(db, log),
			directory:     directory.NewRepository(db, log),
			schedules:     reminders.NewRepository(db, log),
			vitals:        vitals.NewRepository(db, log),
			messages:      messaging.NewRepository(db, log),
		}, nil
	}
	return nil, fmt.Errorf("unknown storage driver: %q", cfg.Storage.Driver)
}
