// Package rc holds the process-wide plot styling settings.
//
// Settings are dotted string keys such as figure.width or lines.color mapped to
// string values. Plot adapters read them when sizing and styling a figure, and
// the stash package snapshots them next to every saved figure so the look of a
// plot can be restored later with Update. Keys outside the built-in set are
// rejected unless they start with "user.".
package rc
