package cmd

import (
	"context"
	"fmt"

	"github.com/ardnew/rollout/config"
	"github.com/ardnew/rollout/pkg"
)

// Validate checks that every rule-set file given as an argument parses
// and that every formula it contains is well-formed. Every failure
// across every file is reported, not just the first.
type Validate struct {
	RuleSet []string `arg:"" help:"Rule set YAML file(s) to validate" name:"ruleset" type:"existingfile"`
}

// Run executes the validate command.
func (v *Validate) Run(ctx context.Context) error {
	var errs []error

	for _, path := range v.RuleSet {
		if _, err := config.Load(path); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))

			continue
		}

		fmt.Printf("%s: ok\n", path)
	}

	if len(errs) > 0 {
		return pkg.MakeError(errs...)
	}

	return nil
}
