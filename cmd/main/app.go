package main

import (
	"context"

	"github.com/aptlist/users/internal/config"
	"github.com/aptlist/users/internal/database"
	"github.com/aptlist/users/internal/log"
	"github.com/aptlist/users/internal/models/user"
	"github.com/aptlist/users/internal/services"
)

// app holds the components shared by every command.
type app struct {
	cfg         *config.Config
	logger      *log.Logger
	db          *database.Database
	events      *services.AMQPService
	userService *services.UserService
}

// newApp loads the configuration and connects the store, and the broker when withEvents is set.
// defaultOutput is where logs go when LOG_OUTPUT is unset.
func newApp(ctx context.Context, withEvents bool, defaultOutput string) (*app, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}

	output := cfg.LogOutput
	if output == "" {
		output = defaultOutput
	}
	var outputs []string
	if output != "" {
		outputs = append(outputs, output)
	}
	logger, err := log.NewLogger(cfg.LogDevelopment, cfg.LogDebug, outputs...)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}

	var store user.Store
	if memory {
		logger.Warn("Using in-memory store, nothing will be persisted")
		store = user.NewMemoryStore()
	} else {
		a.db, err = database.Connect(ctx, database.Options{
			URI:      cfg.MongoURI,
			Database: cfg.MongoDatabase,
			Timeout:  cfg.MongoTimeout,
		}, logger.Named("database"))
		if err != nil {
			return nil, err
		}
		mongoStore := user.NewMongoStore(a.db.Collection(user.CollectionName), logger.Named("users"))
		if err := mongoStore.EnsureIndexes(ctx); err != nil {
			a.close(ctx)
			return nil, err
		}
		store = mongoStore
	}

	var publisher services.EventPublisher
	if withEvents && cfg.EventsEnabled() {
		a.events, err = services.NewAMQPService(cfg.RabbitMQURL, cfg.RabbitMQExchange, logger.Named("amqp"))
		if err != nil {
			a.close(ctx)
			return nil, err
		}
		publisher = a.events
	}

	userManager := user.NewUserManager(store, newHasher(cfg), logger.Named("users"))
	a.userService = services.NewUserService(userManager, publisher, logger)
	return a, nil
}

func newHasher(cfg *config.Config) user.Hasher {
	if cfg.PasswordHasher == config.HasherBcrypt {
		return user.NewBcryptHasher(cfg.BcryptCost)
	}
	return user.NewPBKDF2Hasher(cfg.PasswordPepper, cfg.PasswordIterations)
}

// close waits for pending operations and releases every connection.
func (a *app) close(ctx context.Context) {
	if a.userService != nil {
		a.userService.Wait()
	}
	if a.events != nil {
		a.events.Shutdown()
	}
	if a.db != nil {
		if err := a.db.Disconnect(ctx); err != nil {
			a.logger.Errorf("Failed to disconnect: %v", err)
		}
	}
	_ = a.logger.Sync()
}
