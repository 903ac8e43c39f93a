package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ardnew/rollout/bucket"
	"github.com/ardnew/rollout/config"
	"github.com/ardnew/rollout/rule"
)

// Eval evaluates a single formula, either given literally or looked up by
// name from a loaded rule set, against an environment read from a JSON
// file or stdin.
type Eval struct {
	Formula string `help:"Formula text to evaluate"                short:"f" xor:"source"`
	Rule    string `help:"Name of a rule to evaluate from --rules"  short:"r" xor:"source"`

	Rules     string `help:"Rule set YAML file"                                type:"existingfile"`
	Env       string `default:"-"                                              help:"Environment JSON file, or '-' for stdin"`
	RolloutID string `help:"Rollout identifier; when set, also prints the bucket decision"`
}

// Run executes the eval command.
func (e *Eval) Run(ctx context.Context) error {
	var rs *config.RuleSet

	if e.Rules != "" {
		var err error

		rs, err = config.Load(e.Rules)
		if err != nil {
			return ErrLoadRuleSet.Wrap(err)
		}
	}

	formula := e.Formula

	if formula == "" {
		if rs == nil {
			return ErrUnknownRule.Wrap(fmt.Errorf("--rule requires --rules"))
		}

		f, ok := rs.Formula(e.Rule)
		if !ok {
			return ErrUnknownRule.Wrap(fmt.Errorf("%q", e.Rule))
		}

		formula = f
	}

	env, err := e.readEnv(rs)
	if err != nil {
		return ErrReadEnv.Wrap(err)
	}

	freq, err := rule.Evaluate(formula, env)
	if err != nil {
		return ErrEvaluate.Wrap(err)
	}

	if e.RolloutID == "" {
		fmt.Printf("frequency=%.4f\n", freq)

		return nil
	}

	decision := bucket.Decide(rule.CacheKey(formula), e.RolloutID, freq)
	fmt.Printf("frequency=%.4f decision=%v\n", freq, decision)

	return nil
}

// readEnv builds an [rule.Env] by reading a JSON object from e.Env and, if
// a rule set was loaded, merging it over the rule set's defaults (keys from
// the JSON win on collision).
func (e *Eval) readEnv(rs *config.RuleSet) (*rule.Env, error) {
	var r io.Reader

	if e.Env == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(e.Env)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		r = f
	}

	dec := json.NewDecoder(r)

	overrides := make(map[string]any)
	if err := dec.Decode(&overrides); err != nil && err != io.EOF {
		return nil, err
	}

	if rs != nil {
		return rs.Env(overrides), nil
	}

	return rule.NewEnvFromMap(overrides), nil
}
