package relay

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/apirelay/internal/upstream"
)

// ProxyRequest is the body of POST /api/proxy.
type ProxyRequest struct {
	URL     string            `json:"url"`
	Method  string            `json:"method,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    json.RawMessage   `json:"body,omitempty"`
	Fields  []string          `json:"fields,omitempty"`
}

// validate checks the request and normalizes the method.
func (r *ProxyRequest) validate() error {
	r.URL = strings.TrimSpace(r.URL)
	if r.URL == "" {
		return NewValidationError("url is required")
	}

	u, err := url.Parse(r.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return NewValidationError("url must be an absolute http or https URL")
	}

	r.Method = strings.ToUpper(strings.TrimSpace(r.Method))
	if r.Method == "" {
		r.Method = http.MethodGet
	}
	return nil
}

// outbound builds the upstream request. A JSON body gets a JSON content
// type unless the caller supplied one.
func (r *ProxyRequest) outbound() upstream.Request {
	headers := make(map[string]string, len(r.Headers)+1)
	hasContentType := false
	for name, value := range r.Headers {
		headers[name] = value
		if strings.EqualFold(name, "Content-Type") {
			hasContentType = true
		}
	}

	var body []byte
	if trimmed := bytes.TrimSpace(r.Body); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		body = trimmed
		if !hasContentType {
			headers["Content-Type"] = "application/json"
		}
	}

	return upstream.Request{
		Method:  r.Method,
		URL:     r.URL,
		Headers: headers,
		Body:    body,
	}
}

func (h *Handler) handleProxy(c *gin.Context) {
	var req ProxyRequest
	if err := decodeBody(c, &req); err != nil {
		h.respondError(c, err, nil)
		return
	}
	if err := req.validate(); err != nil {
		h.respondError(c, err, nil)
		return
	}

	ctx := c.Request.Context()
	resp, err := h.proxy.Do(ctx, req.outbound())
	if err != nil {
		h.respondError(c, classifyUpstream(err), nil)
		return
	}

	respondSuccess(c, resp.StatusCode, gin.H{
		"data":   h.projector.Project(ctx, resp.Data(), req.Fields),
		"status": resp.StatusCode,
	})
}
