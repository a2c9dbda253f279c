// Package stash backs up everything needed to regenerate a plot whenever the
// plot is saved.
//
// A Figure wraps anything that can save itself to a path. After the wrapped
// save succeeds, Figure writes a companion backup next to the output: for
// fig.png the directory fig/ (or the archive fig.zip) receives
//
//   - the plotting function's source file and, when it can be located, the
//     function declaration on its own,
//   - one serialized file per captured input value,
//   - plotrc.toml, the active rc style settings,
//   - deps.txt, the module dependency set of the running program,
//   - stash.toml, metadata tying the artifacts together.
//
// Every artifact is written independently. A value that cannot be serialized
// or a function whose source is unavailable is reported in the returned Report
// and logged, and the remaining artifacts are still written. The figure save
// itself never depends on the backup: Save only returns the saver's error.
//
// Wrap turns a plotting function that takes a parameter struct into one whose
// figures capture those parameters automatically; Open reads a backup back.
package stash
