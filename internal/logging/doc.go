// Package logging assembles structured slog loggers used across figstash.
//
// It owns the console and JSON handlers, level parsing, and output plumbing,
// and fans records out to an optional JSON log file so interactive runs stay
// readable while the file keeps full detail. Library code receives a
// *slog.Logger and falls back to NewNop when callers do not provide one.
package logging
