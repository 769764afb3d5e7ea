// Traktboard - Personal Trakt Watch-History Dashboard
// Copyright 2026 Traktboard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/traktboard/traktboard

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/traktboard/traktboard/internal/config"
	"github.com/traktboard/traktboard/internal/middleware"
)

// Router wires the dashboard and API routes.
type Router struct {
	cfg     *config.Config
	handler *Handler
}

// NewRouter creates a Router around a prepared Handler.
func NewRouter(cfg *config.Config, handler *Handler) *Router {
	return &Router{cfg: cfg, handler: handler}
}

// Routes builds the chi handler tree.
//
// Middleware order matters: request IDs and real IPs first so every
// later log line can carry them, panic recovery before anything that
// can fail, then CORS globally so OPTIONS preflight is always
// answered.
func (router *Router) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: router.cfg.Security.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	if !router.cfg.Security.RateLimitDisabled {
		r.Use(httprate.LimitByIP(
			router.cfg.Security.RateLimitReqs,
			router.cfg.Security.RateLimitWindow,
		))
	}

	r.Use(middleware.Prometheus)

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/healthz", router.handler.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/history", router.handler.History)
		r.Get("/raw", router.handler.Raw)
	})

	r.Get("/refresh", router.handler.Refresh)

	// The dashboard owns everything else. Filters are path segments
	// ("/genre/action/actor/Pacino"), optionally prefixed with a
	// username, so the handler parses the remainder itself.
	r.Get("/", router.handler.Dashboard)
	r.Get("/*", router.handler.Dashboard)

	return r
}
