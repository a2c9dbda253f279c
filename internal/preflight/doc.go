// Package preflight provides readiness checks for the paths and tools
// figstash depends on.
//
// The CLI "figstash doctor" command runs RunAll and prints one row per check.
// Each check is gated by its config toggle; disabled features are skipped.
package preflight
