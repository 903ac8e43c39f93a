package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/ardnew/rollout/bucket"
	"github.com/ardnew/rollout/config"
	"github.com/ardnew/rollout/rule"
)

var (
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("4"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// pane identifies which widget has keyboard focus.
type pane int

const (
	paneFilter pane = iota
	paneEnv
)

// model is the Bubble Tea model backing ruleview: a fuzzy-filterable
// list of rule names on the left, and the selected rule's evaluated
// frequency, rollout decision, and any evaluation error on the right.
type model struct {
	rs        *config.RuleSet
	names     []string
	rolloutID string

	filter   textinput.Model
	env      textinput.Model
	focus    pane
	matches  fuzzy.Matches
	selected int

	quitting bool
}

func newModel(rs *config.RuleSet, rolloutID string) model {
	names := make([]string, 0, len(rs.Rules))
	for _, r := range rs.Rules {
		names = append(names, r.Name)
	}

	filter := textinput.New()
	filter.Placeholder = "filter rules"
	filter.Focus()

	env := textinput.New()
	env.Placeholder = `{"key": "value"}`
	env.Prompt = "env> "

	m := model{
		rs:        rs,
		names:     names,
		rolloutID: rolloutID,
		filter:    filter,
		env:       env,
		focus:     paneFilter,
	}
	m.refilter()

	return m
}

func (m model) Init() tea.Cmd { return nil }

// refilter recomputes the fuzzy match set from the current filter text.
// An empty filter matches every rule, preserving rule-set order.
func (m *model) refilter() {
	if m.filter.Value() == "" {
		m.matches = make(fuzzy.Matches, len(m.names))
		for i, n := range m.names {
			m.matches[i] = fuzzy.Match{Str: n, Index: i}
		}
	} else {
		m.matches = fuzzy.Find(m.filter.Value(), m.names)
	}

	if m.selected >= len(m.matches) {
		m.selected = 0
		if len(m.matches) > 0 {
			m.selected = len(m.matches) - 1
		}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true

			return m, tea.Quit
		case "tab":
			if m.focus == paneFilter {
				m.focus = paneEnv
				m.filter.Blur()
				m.env.Focus()
			} else {
				m.focus = paneFilter
				m.env.Blur()
				m.filter.Focus()
			}

			return m, nil
		case "up":
			if m.focus == paneFilter && m.selected > 0 {
				m.selected--
			}

			return m, nil
		case "down":
			if m.focus == paneFilter && m.selected < len(m.matches)-1 {
				m.selected++
			}

			return m, nil
		}
	}

	var cmd tea.Cmd

	if m.focus == paneFilter {
		m.filter, cmd = m.filter.Update(msg)
		m.refilter()
	} else {
		m.env, cmd = m.env.Update(msg)
	}

	return m, cmd
}

// overrides parses the env pane's JSON text into a map, returning an
// empty map (not an error) for blank input.
func (m model) overrides() (map[string]any, error) {
	text := strings.TrimSpace(m.env.Value())
	if text == "" {
		return map[string]any{}, nil
	}

	overrides := make(map[string]any)
	if err := json.Unmarshal([]byte(text), &overrides); err != nil {
		return nil, err
	}

	return overrides, nil
}

// evaluate resolves the currently selected rule's formula against the
// rule set's defaults merged with the env pane's overrides.
func (m model) evaluate() (name, formula string, frequency float32, decision bool, err error) {
	if len(m.matches) == 0 {
		return "", "", 0, false, fmt.Errorf("no rule selected")
	}

	name = m.matches[m.selected].Str

	formula, ok := m.rs.Formula(name)
	if !ok {
		return name, "", 0, false, fmt.Errorf("rule %q not found", name)
	}

	overrides, err := m.overrides()
	if err != nil {
		return name, formula, 0, false, fmt.Errorf("invalid env JSON: %w", err)
	}

	env := m.rs.Env(overrides)

	frequency, err = rule.Evaluate(formula, env)
	if err != nil {
		return name, formula, 0, false, err
	}

	decision = bucket.Decide(rule.CacheKey(formula), m.rolloutID, frequency)

	return name, formula, frequency, decision, nil
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("ruleview") + dimStyle.Render("  rollout-id="+m.rolloutID) + "\n\n")
	b.WriteString(m.filter.View() + "\n")

	for i, match := range m.matches {
		line := "  " + match.Str
		if i == m.selected {
			line = selectedStyle.Render("> " + match.Str)
		}

		b.WriteString(line + "\n")
	}

	if len(m.matches) == 0 {
		b.WriteString(dimStyle.Render("  (no matching rules)") + "\n")
	}

	b.WriteString("\n" + m.env.View() + "\n\n")

	name, formula, frequency, decision, err := m.evaluate()
	if err != nil {
		b.WriteString(errStyle.Render("error: "+err.Error()) + "\n")
	} else {
		b.WriteString(titleStyle.Render(name) + "  " + dimStyle.Render(formula) + "\n")
		b.WriteString(fmt.Sprintf("frequency=%.4f  decision=", frequency))
		b.WriteString(renderDecision(decision) + "\n")
	}

	b.WriteString("\n" + helpStyle.Render("tab: switch pane  ↑/↓: select rule  esc/ctrl+c: quit"))

	return b.String()
}

func renderDecision(decision bool) string {
	if decision {
		return okStyle.Render("true")
	}

	return errStyle.Render("false")
}
