// Package logger provides structured logging for the xform engine using
// zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers. Pipeline code logs with the engine field keys
// (table, verb, line, rows, run_id) so a single run can be followed across
// nested table builds.
//
// # Usage
//
//	logger.RegisterComponents(base, logger.Components...)
//	log := logger.Get(logger.ComponentTables)
//	log.Debug("stage built", logger.Fields(logger.FieldVerb, "where", logger.FieldLine, 3))
package logger
