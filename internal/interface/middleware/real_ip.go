package middleware

import (
	"github.com/gin-gonic/gin"
)

// ClientIPHeaders are consulted in order, and only for requests arriving from
// a trusted proxy.
var ClientIPHeaders = []string{"CF-Connecting-IP", "X-Forwarded-For", "X-Real-IP"}

// TrustProxies points gin's ClientIP at the forwarding headers and trusts
// them only from the given addresses or CIDRs. No proxies means the socket
// peer is always the client.
func TrustProxies(r *gin.Engine, proxies []string) error {
	r.ForwardedByClientIP = true
	r.RemoteIPHeaders = ClientIPHeaders
	if len(proxies) == 0 {
		proxies = nil
	}
	return r.SetTrustedProxies(proxies)
}

// RealIP stores the resolved client address under "real_ip".
func RealIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("real_ip", c.ClientIP())
		c.Next()
	}
}
