// Package logger provides the structured logging interface used across
// postscope.
//
// It wraps zerolog with a small Logger interface so packages can accept a
// logger, attach fields, and be handed a TestLogger or NopLogger in tests.
//
//	log := logger.GetLogger().WithField("component", "fetcher")
//	log.InfoWithFields("page fetched", map[string]interface{}{
//	    "page":  3,
//	    "posts": 20,
//	})
//
// Console output is colorized; when a log file is configured, lines are
// written to both the console and the file. API credentials are never
// passed to the logger.
package logger
