// Package main hosts the figstash CLI.
//
// The Cobra command tree plots CSV data through the save interceptor and
// inspects the backups it leaves behind: metadata, captured values, plotting
// source, differences between two saves and the sqlite history of past saves.
// Configuration loading, rc style overrides, logging and the backup index are
// resolved once in commandContext so subcommands only deal with their output.
package main
