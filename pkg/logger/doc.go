// Package logger builds the *slog.Logger used by the simpleab SDK and CLI.
//
// New creates a logger from functional options: output format (text or json),
// minimum level, static attributes and ContextExtractor callbacks that copy
// request-scoped values (such as the transport request id) into every record.
//
//	log := logger.New(
//		logger.WithFormat(logger.FormatText),
//		logger.WithLevel(slog.LevelDebug),
//		logger.WithService("checkout"),
//	)
//	client := simpleab.New(transport, simpleab.WithLogger(log))
//
// Attribute helpers in attr.go keep key names consistent across packages:
//
//	log.DebugContext(ctx, "treatment resolved",
//		logger.ExperimentID("exp1"),
//		logger.Treatment("T1"),
//	)
//
// Error returns an empty attribute for a nil error, so it can be passed
// without a nil check.
package logger
