// Package logx is a thin wrapper over zerolog.
//
// Loggers derived from a Service follow its current sinks and level, so a
// config reload changes output without rebuilding component loggers. The
// console sink is human readable with a short caller; the file sink is JSON.
package logx
