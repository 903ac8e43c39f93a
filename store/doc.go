// Package store persists named rule formulas and their evaluation
// history to SQLite, so the HTTP server survives restarts without
// needing its YAML rule set reloaded. Only the server (rulectl serve)
// opens a Store; the TUI does not read it.
package store
