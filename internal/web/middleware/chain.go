// Package middleware provides the HTTP middleware used by the query API.
package middleware

import (
	"net/http"
)

// Middleware is a function that wraps an http.Handler
type Middleware func(http.Handler) http.Handler

// Chain is the ordered list of middleware the API router wraps around its
// whole mux, chi's not-found handlers included
type Chain struct {
	middlewares []Middleware
}

// NewChain starts a chain from the given middleware
func NewChain(middlewares ...Middleware) *Chain {
	return &Chain{middlewares: middlewares}
}

// Use appends m; it runs inside everything added before it
func (c *Chain) Use(m Middleware) *Chain {
	c.middlewares = append(c.middlewares, m)
	return c
}

// Then returns handler wrapped by the chain. The first middleware sees the
// request first and the response last, so RequestID must come before Logging
// for the access log to carry the id.
func (c *Chain) Then(handler http.Handler) http.Handler {
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		handler = c.middlewares[i](handler)
	}
	return handler
}
