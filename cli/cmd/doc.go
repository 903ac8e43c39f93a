// Package cmd implements the rulectl subcommands: validating rule-set
// files, evaluating a single formula against an environment, and
// serving the rule engine over HTTP.
package cmd

var (
	// CacheIdentifier is the kong variable identifier containing the path to
	// the runtime cache directory.
	CacheIdentifier = "cache"

	// ConfigIdentifier is the kong variable identifier containing the path
	// to the default rule-set configuration file.
	ConfigIdentifier = "config"
)
