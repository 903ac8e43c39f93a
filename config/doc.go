// Package config loads named rule sets from YAML: a list of named
// formulas plus a default environment used to fill in fields a caller's
// request omits.
package config
