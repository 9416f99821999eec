// Package logger builds *slog.Logger instances with functional options and
// injects request-scoped values from context.Context into every record.
//
// New applies environment presets (JSON at info level for production and
// staging, text at debug level for development), static attributes, and
// ContextExtractor callbacks. Extractors run on each Handle call, so values
// such as the request id or tenant id are read from the context passed to
// the *Context logging methods:
//
//	log := logger.New(
//		logger.WithEnvironment(cfg.AppEnv, "flagkit"),
//		logger.WithContextExtractors(requestid.LoggerExtractor(), tenant.LoggerExtractor()),
//	)
//	log.InfoContext(ctx, "flag updated", logger.FeatureKey("dark_mode"), logger.Env("PROD"))
//
// Attribute helpers return an empty slog.Attr for nil input, which slog drops.
package logger
