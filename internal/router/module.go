package router

import "github.com/gin-gonic/gin"

// Module mounts one feature's routes on the API group. Modules must not add
// global middleware; that belongs to the Registry.
type Module interface {
	Register(rg *gin.RouterGroup)
}
