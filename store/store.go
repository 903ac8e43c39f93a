package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver
)

// ErrNotFound is returned when a named rule has no stored formula.
var ErrNotFound = errors.New("rule not found")

// ErrClosed is returned by every method other than Close once the store
// has been closed.
var ErrClosed = errors.New("store is closed")

// Evaluation is one recorded evaluation of a stored rule.
type Evaluation struct {
	RuleName    string
	RolloutID   string
	Frequency   float32
	Decision    bool
	EvaluatedAt time.Time
}

// Store persists named formulas to SQLite. It is safe for concurrent
// use; SQLite itself permits only one writer at a time, so writes are
// additionally serialized behind mu.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// Open opens (creating if necessary) a SQLite-backed Store at path.
// Use ":memory:" for an ephemeral, process-local store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()

		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS rules (
			name       TEXT PRIMARY KEY,
			formula    TEXT NOT NULL,
			created_at TEXT NOT NULL
		)
	`); err != nil {
		db.Close()

		return nil, fmt.Errorf("create rules table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS evaluations (
			rule_name    TEXT NOT NULL,
			rollout_id   TEXT NOT NULL,
			frequency    REAL NOT NULL,
			decision     INTEGER NOT NULL,
			evaluated_at TEXT NOT NULL
		)
	`); err != nil {
		db.Close()

		return nil, fmt.Errorf("create evaluations table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_evaluations_rule_name
		ON evaluations(rule_name, evaluated_at DESC)
	`); err != nil {
		db.Close()

		return nil, fmt.Errorf("create evaluations index: %w", err)
	}

	return &Store{db: db}, nil
}

// Put registers or updates a named formula.
func (s *Store) Put(name, formula string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	_, err := s.db.Exec(`
		INSERT INTO rules (name, formula, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET formula = excluded.formula
	`, name, formula, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("put rule %s: %w", name, err)
	}

	return nil
}

// Get returns the formula registered under name.
func (s *Store) Get(name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", ErrClosed
	}

	var formula string

	err := s.db.QueryRow(`SELECT formula FROM rules WHERE name = ?`, name).Scan(&formula)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", ErrNotFound
	case err != nil:
		return "", fmt.Errorf("get rule %s: %w", name, err)
	}

	return formula, nil
}

// Named is one entry returned by [Store.List].
type Named struct {
	Name    string
	Formula string
}

// List returns every stored rule, ordered by name.
func (s *Store) List() ([]Named, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	rows, err := s.db.Query(`SELECT name, formula FROM rules ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}

	defer rows.Close()

	var out []Named

	for rows.Next() {
		var n Named
		if err := rows.Scan(&n.Name, &n.Formula); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}

		out = append(out, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}

	return out, nil
}

// Delete removes a named rule. Deleting an unknown name is not an
// error.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	if _, err := s.db.Exec(`DELETE FROM rules WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete rule %s: %w", name, err)
	}

	return nil
}

// RecordEvaluation appends one evaluation result to the named rule's
// history.
func (s *Store) RecordEvaluation(e Evaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	decision := 0
	if e.Decision {
		decision = 1
	}

	_, err := s.db.Exec(`
		INSERT INTO evaluations (rule_name, rollout_id, frequency, decision, evaluated_at)
		VALUES (?, ?, ?, ?, ?)
	`, e.RuleName, e.RolloutID, e.Frequency, decision, e.EvaluatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("record evaluation for %s: %w", e.RuleName, err)
	}

	return nil
}

// History returns the most recent limit evaluations for ruleName,
// most-recent first.
func (s *Store) History(ruleName string, limit int) ([]Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	rows, err := s.db.Query(`
		SELECT rule_name, rollout_id, frequency, decision, evaluated_at
		FROM evaluations
		WHERE rule_name = ?
		ORDER BY evaluated_at DESC
		LIMIT ?
	`, ruleName, limit)
	if err != nil {
		return nil, fmt.Errorf("history for %s: %w", ruleName, err)
	}

	defer rows.Close()

	var out []Evaluation

	for rows.Next() {
		var (
			e         Evaluation
			decision  int
			timestamp string
		)

		if err := rows.Scan(&e.RuleName, &e.RolloutID, &e.Frequency, &decision, &timestamp); err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}

		e.Decision = decision != 0
		e.EvaluatedAt, _ = time.Parse(time.RFC3339Nano, timestamp)
		out = append(out, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}

	return out, nil
}

// Close closes the underlying database handle. Close is idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true

	return s.db.Close()
}
