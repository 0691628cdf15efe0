// Package container holds the components built once at startup and shared
// by the router modules.
package container

import (
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-users-api/config"
	"github.com/oksasatya/go-users-api/internal/application"
	"github.com/oksasatya/go-users-api/internal/domain/repository"
	"github.com/oksasatya/go-users-api/internal/infrastructure/search"
	"github.com/oksasatya/go-users-api/pkg/helpers"
)

type Container struct {
	Config *config.Config
	Logger *logrus.Logger
	Store  repository.Store

	// Optional integrations; nil when not configured.
	Redis  *redis.Client
	Rabbit *helpers.RabbitPublisher
	ES     *elasticsearch.Client

	Users *application.Service
}

// New wires the user service. Nil integrations are left out of the service
// rather than passed as typed nils.
func New(cfg *config.Config, logger *logrus.Logger, store repository.Store, rdb *redis.Client, rabbit *helpers.RabbitPublisher, es *elasticsearch.Client) *Container {
	var events application.EventPublisher
	if rabbit != nil {
		events = rabbit
	}
	var index application.UserIndex
	if es != nil {
		index = search.NewUserIndex(es, cfg.ESUsersIndex)
	}
	return &Container{
		Config: cfg,
		Logger: logger,
		Store:  store,
		Redis:  rdb,
		Rabbit: rabbit,
		ES:     es,
		Users:  application.NewService(store, events, index, logger),
	}
}

// Close releases the optional clients. The store is closed by its opener.
func (c *Container) Close() {
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	c.Rabbit.Close()
}
