// Package httpserver runs an http.Handler with graceful shutdown and exposes
// a readiness handler built from named dependency checks.
//
// Run blocks until the context is cancelled, then drains connections within
// the shutdown timeout. Signal handling belongs to the caller:
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//	err := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log)).Run(ctx, router)
package httpserver
