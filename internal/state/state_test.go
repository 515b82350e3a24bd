package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLastRun_EmptyStore(t *testing.T) {
	s := openStore(t)
	run, err := s.LastRun("lists")
	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestRecordAndLastRun(t *testing.T) {
	s := openStore(t)
	now := time.Now()

	run := Run{
		ID: uuid.NewString(), Domain: "lists",
		Started: now.Add(-time.Second), Finished: now,
		Outcome: OutcomeCommitted, Artifacts: 2, Warnings: 1,
	}
	inputs := map[string]time.Time{
		"/root/control.csv": now.Add(-time.Hour),
	}
	require.NoError(t, s.RecordRun(run, inputs, []string{"list has no key x"}))

	got, err := s.LastRun("lists")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, OutcomeCommitted, got.Outcome)
	assert.Equal(t, 2, got.Artifacts)

	msgs, err := s.RecentMessages("lists", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"list has no key x"}, msgs)
}

func TestLastInputs_OnlyCommittedRunsCount(t *testing.T) {
	s := openStore(t)
	base := time.Now()

	committed := Run{ID: uuid.NewString(), Domain: "lists", Started: base, Finished: base, Outcome: OutcomeCommitted}
	require.NoError(t, s.RecordRun(committed, map[string]time.Time{"/a": base}, nil))

	failed := Run{ID: uuid.NewString(), Domain: "lists", Started: base.Add(time.Second), Finished: base.Add(time.Second), Outcome: OutcomeFailed}
	require.NoError(t, s.RecordRun(failed, map[string]time.Time{"/b": base}, []string{"boom"}))

	inputs, err := s.LastInputs("lists")
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	_, ok := inputs["/a"]
	assert.True(t, ok)
}

func TestLastInputs_PreservesNanoPrecision(t *testing.T) {
	s := openStore(t)
	mtime := time.Unix(1700000000, 123456789)
	run := Run{ID: uuid.NewString(), Domain: "commands", Started: time.Now(), Finished: time.Now(), Outcome: OutcomeCommitted}
	require.NoError(t, s.RecordRun(run, map[string]time.Time{"/f.talon": mtime}, nil))

	inputs, err := s.LastInputs("commands")
	require.NoError(t, err)
	assert.True(t, inputs["/f.talon"].Equal(mtime))
}

func TestDomainsIndependent(t *testing.T) {
	s := openStore(t)
	now := time.Now()
	require.NoError(t, s.RecordRun(Run{ID: uuid.NewString(), Domain: "lists", Started: now, Finished: now, Outcome: OutcomeCommitted}, nil, nil))

	run, err := s.LastRun("commands")
	require.NoError(t, err)
	assert.Nil(t, run)
}
