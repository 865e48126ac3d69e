// Package logger provides structured logging for the scribe services
// using zerolog.
//
// It supports JSON and console output, log level configuration, and
// component-scoped loggers with structured fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.WithComponent("worker")
//	log.Info("segment merged", logger.Fields("session_id", id, "segment_index", 3))
package logger
