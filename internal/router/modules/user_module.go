package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/go-users-api/internal/interface/http"
	"github.com/oksasatya/go-users-api/internal/interface/middleware"
)

type RateLimitOptions struct {
	Redis     *redis.Client // nil disables limiting
	PerMinute int
	SkipLocal bool
}

func (o RateLimitOptions) handler(scope string) gin.HandlerFunc {
	var allow middleware.AllowFunc
	if o.SkipLocal {
		allow = middleware.AllowPrivateIP()
	}
	return middleware.RateLimit(o.Redis, o.PerMinute, time.Minute, middleware.KeyByIP(scope), allow)
}

// UserModule serves the root greeting and the /users CRUD routes.
type UserModule struct {
	Handler *handlers.UserHandler
	Limits  RateLimitOptions
}

func NewUserModule(h *handlers.UserHandler, limits RateLimitOptions) *UserModule {
	return &UserModule{Handler: h, Limits: limits}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	rg.GET("/", m.Handler.Root)

	users := rg.Group("/users", m.Limits.handler("users"))
	{
		// "/users/" is served in place, a redirect would carry no CORS headers.
		for _, path := range []string{"", "/"} {
			users.GET(path, m.Handler.ListUsers)
			users.POST(path, m.Handler.CreateUser)
		}
		users.GET("/search", m.Handler.SearchUsers)
		users.GET("/:id", m.Handler.GetUser)
		users.PUT("/:id", m.Handler.UpdateUser)
		users.DELETE("/:id", m.Handler.DeleteUser)
	}
}
