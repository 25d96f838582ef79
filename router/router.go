// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/quickly-vote/audit"
	"github.com/danielhkuo/quickly-vote/auth"
	"github.com/danielhkuo/quickly-vote/caster"
	"github.com/danielhkuo/quickly-vote/cliparse"
	"github.com/danielhkuo/quickly-vote/db"
	"github.com/danielhkuo/quickly-vote/handlers"
	"github.com/danielhkuo/quickly-vote/ledger"
	"github.com/danielhkuo/quickly-vote/metrics"
	"github.com/danielhkuo/quickly-vote/middleware"
	"github.com/danielhkuo/quickly-vote/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Services are the components the routes dispatch to.
type Services struct {
	Store   *store.Store
	Ledger  *ledger.Ledger
	Caster  *caster.Caster
	Auditor *audit.Auditor

	// Gatherer backs /metrics; nil leaves the route unregistered
	Gatherer prometheus.Gatherer
}

// Wire builds the services over one database handle. It fails only when the
// ballot secret is unusable.
func Wire(conn *sql.DB, dialect db.Dialect, cfg cliparse.Config, m *metrics.Metrics, logger *slog.Logger) (Services, error) {
	anonymizer, err := auth.NewAnonymizer(cfg.BallotSecret)
	if err != nil {
		return Services{}, fmt.Errorf("ballot anonymizer: %w", err)
	}

	s := store.New(conn, dialect, logger)
	l := ledger.New(conn, dialect, logger)

	return Services{
		Store:  s,
		Ledger: l,
		Caster: caster.New(s, l, anonymizer,
			caster.WithLogger(logger),
			caster.WithMetrics(m),
			caster.WithTxTimeout(cfg.TxTimeout),
		),
		Auditor: audit.New(s, l,
			audit.WithLogger(logger),
			audit.WithMetrics(m),
		),
	}, nil
}

func NewRouter(svc Services, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	votingHandler := handlers.NewVotingHandler(svc.Caster)
	resultsHandler := handlers.NewResultsHandler(svc.Store, svc.Ledger, cfg)
	adminHandler := handlers.NewAdminHandler(svc.Store, svc.Ledger, svc.Auditor)

	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.RequireAdmin(cfg.AdminKey, h))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if cfg.MetricsEnabled && svc.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(svc.Gatherer, promhttp.HandlerOpts{}))
	}

	// Voting (voter identity from the authentication layer)
	mux.HandleFunc("POST /elections/{id}/votes", middleware.WithLogging(votingHandler.CastVote))

	// Public reads
	mux.HandleFunc("GET /elections", middleware.WithLogging(resultsHandler.ListElections))
	mux.HandleFunc("GET /elections/{id}", middleware.WithLogging(resultsHandler.GetElection))
	mux.HandleFunc("GET /elections/{id}/results", middleware.WithLogging(resultsHandler.GetResults))
	mux.HandleFunc("GET /elections/{id}/ballot-count", middleware.WithLogging(resultsHandler.GetBallotCount))
	mux.HandleFunc("GET /elections/{id}/my-vote", middleware.WithLogging(votingHandler.VoteStatus))

	// Administration (requires X-Admin-Key)
	mux.HandleFunc("POST /admin/elections", admin(adminHandler.CreateElection))
	mux.HandleFunc("PATCH /admin/elections/{id}", admin(adminHandler.UpdateElection))
	mux.HandleFunc("PUT /admin/elections/{id}/window", admin(adminHandler.UpdateWindow))
	mux.HandleFunc("POST /admin/elections/{id}/status", admin(adminHandler.SetStatus))
	mux.HandleFunc("DELETE /admin/elections/{id}", admin(adminHandler.DeleteElection))
	mux.HandleFunc("POST /admin/elections/{id}/candidates", admin(adminHandler.AddCandidate))
	mux.HandleFunc("PATCH /admin/candidates/{id}", admin(adminHandler.UpdateCandidate))
	mux.HandleFunc("DELETE /admin/candidates/{id}", admin(adminHandler.DeleteCandidate))
	mux.HandleFunc("GET /admin/elections/{id}/integrity", admin(adminHandler.Integrity))
	mux.HandleFunc("GET /admin/elections/{id}/stats", admin(adminHandler.Stats))
	mux.HandleFunc("GET /admin/stats", admin(adminHandler.OverallStats))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("quickly-vote API v1"))
	})

	return mux
}
