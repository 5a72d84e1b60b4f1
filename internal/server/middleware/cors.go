package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORSConfig holds configuration for the CORS middleware.
type CORSConfig struct {
	// AllowOrigins is a list of origins that may access the resource.
	// Use "*" to allow all origins.
	AllowOrigins []string
	AllowMethods []string
	AllowHeaders []string
	// MaxAge is how long, in seconds, preflight results may be cached.
	MaxAge int
}

// DefaultCORSConfig returns a CORS config that allows all origins.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", RequestIDHeader},
		MaxAge:       86400,
	}
}

// corsContext holds pre-computed values for CORS middleware.
type corsContext struct {
	allowAllOrigins bool
	origins         map[string]bool
	allowMethodsStr string
	allowHeadersStr string
	maxAgeStr       string
}

func newCORSContext(config CORSConfig) *corsContext {
	defaults := DefaultCORSConfig()
	if len(config.AllowOrigins) == 0 {
		config.AllowOrigins = defaults.AllowOrigins
	}
	if len(config.AllowMethods) == 0 {
		config.AllowMethods = defaults.AllowMethods
	}
	if len(config.AllowHeaders) == 0 {
		config.AllowHeaders = defaults.AllowHeaders
	}

	ctx := &corsContext{
		origins:         make(map[string]bool, len(config.AllowOrigins)),
		allowMethodsStr: strings.Join(config.AllowMethods, ", "),
		allowHeadersStr: strings.Join(config.AllowHeaders, ", "),
		maxAgeStr:       strconv.Itoa(config.MaxAge),
	}
	for _, origin := range config.AllowOrigins {
		if origin == "*" {
			ctx.allowAllOrigins = true
		}
		ctx.origins[origin] = true
	}
	return ctx
}

// CORS returns a CORS middleware. Preflight requests are answered with 204
// and do not reach the handlers.
func CORS(config CORSConfig) gin.HandlerFunc {
	ctx := newCORSContext(config)

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		switch {
		case ctx.allowAllOrigins:
			c.Header("Access-Control-Allow-Origin", "*")
		case origin != "" && ctx.origins[origin]:
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		default:
			c.Next()
			return
		}

		if c.Request.Method == http.MethodOptions {
			c.Header("Access-Control-Allow-Methods", ctx.allowMethodsStr)
			c.Header("Access-Control-Allow-Headers", ctx.allowHeadersStr)
			c.Header("Access-Control-Max-Age", ctx.maxAgeStr)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
