package router

import (
	"github.com/oksasatya/go-users-api/internal/container"
	handlers "github.com/oksasatya/go-users-api/internal/interface/http"
	"github.com/oksasatya/go-users-api/internal/router/modules"
)

// InitModules builds the feature modules from c and adds them to r. Call it
// once at startup, before RegisterAll.
func InitModules(r *Registry, c *container.Container) {
	users := handlers.NewUserHandler(c.Users, c.Logger)
	health := handlers.NewHealthHandler(c.Store, c.Logger)

	limits := modules.RateLimitOptions{
		Redis:     c.Redis,
		PerMinute: c.Config.RateLimitPerMinute,
		SkipLocal: c.Config.RateLimitSkipLocal,
	}

	r.Add(modules.NewUserModule(users, limits))
	r.Add(modules.NewHealthModule(health))
	if c.Config.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(limits))
	}
}
