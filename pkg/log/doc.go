/*
Package log provides structured logging for meshguard built on zerolog.

Init configures the process-wide logger once at startup (level, JSON or
console output); packages then derive child loggers with WithComponent or
WithNode so every line carries its origin:

	logger := log.WithComponent("guardian")
	logger.Warn().Str("node", id).Msg("restart budget exhausted")
*/
package log
