package controllers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/mozz-online/mozz-backend/api/responses"
	"github.com/mozz-online/mozz-backend/pkg/config"
	pkgerrors "github.com/mozz-online/mozz-backend/pkg/errors"
	"github.com/mozz-online/mozz-backend/pkg/logger"
)

const readyTimeout = 2 * time.Second

// Pinger is a dependency probed by the readiness check.
type Pinger interface {
	Ping(ctx context.Context) error
}

type healthBody struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Env       string            `json:"env"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthLive answers GET /health.
func HealthLive(cfg config.AppConfig, now func() time.Time) http.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteJSON(w, http.StatusOK, healthBody{
			Status:    "ok",
			Timestamp: now().UTC().Format(time.RFC3339),
			Env:       cfg.Env,
		})
	}
}

// HealthReady pings every dependency concurrently and fails with 503 when any
// of them is down.
func HealthReady(cfg config.AppConfig, deps map[string]Pinger, logg *logger.Logger) http.HandlerFunc {
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		results := make([]error, len(names))
		var g errgroup.Group
		for i, name := range names {
			g.Go(func() error {
				results[i] = deps[name].Ping(ctx)
				return nil
			})
		}
		_ = g.Wait()

		checks := make(map[string]string, len(names))
		var combined error
		for i, name := range names {
			if results[i] != nil {
				checks[name] = "down"
				combined = multierr.Append(combined, pkgerrors.Wrap(pkgerrors.CodeDependency, results[i], name))
				continue
			}
			checks[name] = "ok"
		}

		if combined != nil {
			if logg != nil {
				logg.Error(logg.WithField(ctx, "checks", checks), "health.ready.failed", combined)
			}
			responses.WriteJSON(w, http.StatusServiceUnavailable, healthBody{
				Status:    "unavailable",
				Timestamp: time.Now().UTC().Format(time.RFC3339),
				Env:       cfg.Env,
				Checks:    checks,
			})
			return
		}
		responses.WriteJSON(w, http.StatusOK, healthBody{
			Status:    "ok",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Env:       cfg.Env,
			Checks:    checks,
		})
	}
}
