// Package middleware provides the gin middleware chain of the relay:
// panic recovery, request IDs, tracing, CORS, metrics, access logging and
// request body limits.
package middleware
