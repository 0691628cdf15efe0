package modules

import (
	"expvar"

	"github.com/gin-gonic/gin"
)

// DebugModule exposes expvar counters at /debug/vars, rate-limited per IP.
type DebugModule struct {
	Limits RateLimitOptions
}

func NewDebugModule(limits RateLimitOptions) *DebugModule { return &DebugModule{Limits: limits} }

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	rg.GET("/debug/vars", m.Limits.handler("debug"), gin.WrapH(expvar.Handler()))
}
