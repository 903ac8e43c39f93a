package store_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/rollout/store"
)

func TestStore_Persistence(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "rollout.db")

	s1, err := store.Open(dbPath)
	require.NoError(t, err)

	require.NoError(t, s1.Put("beta-users", `eq(env["plan"], "pro")`))
	require.NoError(t, s1.Close())

	s2, err := store.Open(dbPath)
	require.NoError(t, err)
	defer s2.Close()

	formula, err := s2.Get("beta-users")
	require.NoError(t, err)
	assert.Equal(t, `eq(env["plan"], "pro")`, formula)
}

func TestStore_GetUnknownIsNotFound(t *testing.T) {
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Get("does-not-exist")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_PutIsUpsert(t *testing.T) {
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put("r", "1"))
	require.NoError(t, s.Put("r", "0"))

	formula, err := s.Get("r")
	require.NoError(t, err)
	assert.Equal(t, "0", formula)
}

func TestStore_List(t *testing.T) {
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put("b", "1"))
	require.NoError(t, s.Put("a", "0"))

	rules, err := s.List()
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "a", rules[0].Name)
	assert.Equal(t, "b", rules[1].Name)
}

func TestStore_Delete(t *testing.T) {
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put("r", "1"))
	require.NoError(t, s.Delete("r"))

	_, err = s.Get("r")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// deleting an unknown name is not an error
	assert.NoError(t, s.Delete("still-unknown"))
}

func TestStore_History_MostRecentFirst(t *testing.T) {
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	now := time.Now().UTC()

	require.NoError(t, s.RecordEvaluation(store.Evaluation{
		RuleName: "r", RolloutID: "u1", Frequency: 0.1, Decision: false,
		EvaluatedAt: now.Add(-time.Minute),
	}))
	require.NoError(t, s.RecordEvaluation(store.Evaluation{
		RuleName: "r", RolloutID: "u2", Frequency: 0.9, Decision: true,
		EvaluatedAt: now,
	}))

	hist, err := s.History("r", 10)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "u2", hist[0].RolloutID)
	assert.Equal(t, "u1", hist[1].RolloutID)
}

func TestStore_CloseIdempotent(t *testing.T) {
	s, err := store.Open(":memory:")
	require.NoError(t, err)

	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

func TestStore_OperationsAfterCloseFail(t *testing.T) {
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Put("r", "1"), store.ErrClosed)
	_, getErr := s.Get("r")
	assert.ErrorIs(t, getErr, store.ErrClosed)
}
