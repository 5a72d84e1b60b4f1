package relay

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/apirelay/internal/observability"
)

// respondError writes the error envelope
// {success:false, error, type, [status], [details], ...extra}.
func (h *Handler) respondError(c *gin.Context, err error, extra gin.H) {
	var relayErr *Error
	if !errors.As(err, &relayErr) {
		relayErr = NewInternalError(msgInternal, err)
	}

	status := relayErr.StatusCode()
	body := gin.H{
		"success": false,
		"error":   relayErr.Message,
		"type":    string(relayErr.Kind),
	}
	if relayErr.Kind == KindUpstream {
		body["status"] = status
		if relayErr.Details != nil {
			body["details"] = relayErr.Details
		}
	}
	for k, v := range extra {
		body[k] = v
	}

	logger := h.logger.WithContext(c.Request.Context())
	fields := []observability.Field{
		observability.String("type", string(relayErr.Kind)),
		observability.Int("status", status),
		observability.String("path", c.Request.URL.Path),
	}
	if relayErr.Cause != nil {
		fields = append(fields, observability.Error(relayErr.Cause))
	}
	if status >= http.StatusInternalServerError {
		logger.Error(relayErr.Message, fields...)
	} else {
		logger.Debug(relayErr.Message, fields...)
	}

	c.AbortWithStatusJSON(status, body)
}

// respondSuccess writes {success:true, ...body} with the given status.
func respondSuccess(c *gin.Context, status int, body gin.H) {
	out := gin.H{"success": true}
	for k, v := range body {
		out[k] = v
	}
	c.JSON(status, out)
}
