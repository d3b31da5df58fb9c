// Package logging provides structured logging for the plantpot daemon.
//
// It wraps log/slog with a JSON or text handler and stamps every record
// with the service name and build version. Components receive a child
// logger tagged with their name:
//
//	logger := logging.New(cfg.Logging, version)
//	sched.SetLogger(logger.Component("scheduler"))
//
// Configuration lives in the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
package logging
