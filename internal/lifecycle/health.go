// Package lifecycle owns process probes and the ordered shutdown sequence.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/Proton-105/himera-demo-bot/internal/health"
)

// HealthChecker exposes liveness and readiness probes.
type HealthChecker interface {
	Liveness(ctx context.Context) error
	Readiness(ctx context.Context) error
}

// Probes answers liveness from process state and readiness from component checks.
type Probes struct {
	log      *slog.Logger
	checker  *health.Checker
	draining atomic.Bool
}

// NewProbes creates a new Probes instance.
func NewProbes(log *slog.Logger, checker *health.Checker) *Probes {
	if log == nil {
		log = slog.Default()
	}
	return &Probes{log: log, checker: checker}
}

// MarkDraining makes readiness fail so traffic stops before shutdown hooks run.
func (p *Probes) MarkDraining() {
	p.draining.Store(true)
}

// Liveness reports success while the process is running.
func (p *Probes) Liveness(ctx context.Context) error {
	p.log.Debug("liveness probe called")
	return nil
}

// Readiness fails while draining or when any component check fails.
func (p *Probes) Readiness(ctx context.Context) error {
	if p.draining.Load() {
		return fmt.Errorf("shutting down")
	}
	if p.checker == nil {
		return nil
	}

	report := p.checker.Check(ctx)
	if report.Healthy {
		return nil
	}

	failed := make([]string, 0, len(report.Components))
	for name, status := range report.Components {
		if status != health.StatusOK {
			failed = append(failed, name+": "+status)
		}
	}
	sort.Strings(failed)
	return fmt.Errorf("not ready: %s", strings.Join(failed, "; "))
}

// LivenessHandler serves Liveness as plain text.
func (p *Probes) LivenessHandler() http.Handler {
	return probeHandler(p.Liveness)
}

// ReadinessHandler serves the component report as JSON.
func (p *Probes) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case p.draining.Load():
			health.WriteReport(w, health.Report{Components: map[string]string{"process": "shutting down"}})
		case p.checker == nil:
			health.WriteReport(w, health.Report{Healthy: true, Components: map[string]string{}})
		default:
			health.WriteReport(w, p.checker.Check(r.Context()))
		}
	})
}

func probeHandler(probe func(context.Context) error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := probe(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(err.Error()))
			return
		}
		_, _ = w.Write([]byte(health.StatusOK))
	})
}
