package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/dmitrymomot/flagkit/pkg/logger"
)

// Check is a dependency probe, such as pg.Healthcheck or redis.Healthcheck.
type Check func(ctx context.Context) error

// HealthHandler runs every check and answers 200 with {"status":"ok"} or
// 503 with the failing check names. Without checks it is a liveness probe.
func HealthHandler(log *slog.Logger, timeout time.Duration, checks map[string]Check) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		status := map[string]string{}
		healthy := true
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				log.ErrorContext(ctx, "readiness check failed", slog.String("check", name), logger.Error(err))
				status[name] = "down"
				healthy = false
				continue
			}
			status[name] = "up"
		}

		body := map[string]any{"status": "ok", "checks": status}
		code := http.StatusOK
		if !healthy {
			body["status"] = "unavailable"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(body)
	}
}
