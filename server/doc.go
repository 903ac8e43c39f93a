// Package server exposes the rule engine over HTTP: evaluating ad hoc
// or stored formulas, listing and registering stored formulas, and
// streaming rollout decision flips over Server-Sent Events.
package server
