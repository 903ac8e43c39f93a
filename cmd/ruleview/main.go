// Command ruleview is an interactive browser for a rule-set file: fuzzy
// filter rule names, select one, and watch its evaluated frequency and
// rollout decision update live against an editable sample environment.
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ardnew/rollout/config"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: ruleview <rules.yaml> [rollout-id]")
		os.Exit(2)
	}

	rs, err := config.Load(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "ruleview: %v\n", err)
		os.Exit(1)
	}

	rolloutID := "sample-user"
	if len(os.Args) > 2 {
		rolloutID = os.Args[2]
	}

	m := newModel(rs, rolloutID)

	if _, err := tea.NewProgram(m).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "ruleview: %v\n", err)
		os.Exit(1)
	}
}
