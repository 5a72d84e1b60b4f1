package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/apirelay/internal/observability"
)

// Metrics returns a middleware that records request count, latency and
// in-flight requests. Requests are labelled by route pattern so unmatched
// paths do not create new series.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		m.IncrementActiveRequests()
		defer m.DecrementActiveRequests()

		c.Next()

		m.RecordRequest(c.Request.Method, routeLabel(c), c.Writer.Status(), time.Since(start))
	}
}
