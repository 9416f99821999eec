package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/flagkit/pkg/audit"
	"github.com/dmitrymomot/flagkit/pkg/clientip"
)

// auditContext attaches the actor and client details used in audit entries.
func (a *API) auditContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if actor := strings.TrimSpace(r.Header.Get(ActorHeader)); actor != "" {
			ctx = audit.WithActorContext(ctx, audit.Actor{ID: actor, Type: audit.ActorUser})
		}
		ctx = audit.WithClientInfo(ctx, clientip.FromContext(ctx), r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// instrument records request counts and latencies by route pattern.
func (a *API) instrument(next http.Handler) http.Handler {
	if a.metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		a.metrics.ObserveHTTP(r.Method, route, status, time.Since(start))
	})
}

// recoverer turns a panic into a logged 500 response.
func (a *API) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			err, ok := rec.(error)
			if !ok {
				err = fmt.Errorf("%v", rec)
			}
			a.logger.ErrorContext(r.Context(), "panic recovered",
				slog.String("method", r.Method), slog.String("path", r.URL.Path),
				slog.String("stack", string(debug.Stack())))
			a.writeError(w, r, errors.Join(errPanic, err))
		}()
		next.ServeHTTP(w, r)
	})
}

var errPanic = errors.New("panic")
