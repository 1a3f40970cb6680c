/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package api

import (
	"context"
	"errors"
	"net/http"

	"propie-escrow-go/internal/escrow"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthChecker reports whether a backing service is usable
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Dependencies wires the HTTP surface to the ledger
type Dependencies struct {
	Ledger   *escrow.Ledger
	Gatherer prometheus.Gatherer // nil disables /metrics
	Health   HealthChecker       // nil reports healthy
}

// EscrowService exposes the escrow ledger over HTTP
type EscrowService struct {
	ledger *escrow.Ledger
	health HealthChecker
}

func NewEscrowService(deps Dependencies) (*EscrowService, error) {
	if deps.Ledger == nil {
		return nil, errors.New("api: ledger is required")
	}
	return &EscrowService{
		ledger: deps.Ledger,
		health: deps.Health,
	}, nil
}

// NewRouter builds the chi router for the escrow API
func NewRouter(deps Dependencies) (http.Handler, error) {
	s, err := NewEscrowService(deps)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(accessLogMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.healthz)
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1/escrows", func(r chi.Router) {
		r.Post("/", s.createAccount)
		r.Get("/", s.listTransactionEscrows)
		r.Route("/{escrowId}", func(r chi.Router) {
			r.Get("/", s.getAccount)
			r.Get("/summary", s.getSummary)
			r.Get("/reconcile", s.reconcile)
			r.Post("/deposits", s.depositFunds)
			r.Post("/conditions/{conditionId}/met", s.markConditionMet)
			r.Post("/conditions/{conditionId}/failed", s.failCondition)
			r.Post("/milestones/{milestoneId}/complete", s.completeMilestone)
			r.Post("/releases", s.requestRelease)
			r.Post("/releases/{releaseId}/approvals", s.approveRelease)
			r.Post("/dispute", s.raiseDispute)
			r.Post("/cancel", s.cancelEscrow)
			r.Post("/expire", s.expireEscrow)
		})
	})
	return r, nil
}

func (s *EscrowService) healthz(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "store health check failed: "+err.Error())
			return
		}
	}
	writeSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}
