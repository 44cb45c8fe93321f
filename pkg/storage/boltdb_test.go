package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/gluster-reconciler/pkg/types"
)

func newStore(t *testing.T) *BoltStore {
	t.Helper()
	s, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func run(started time.Time, errMsg string) *types.RunRecord {
	return &types.RunRecord{
		Mode:       types.RunModeApply,
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
		Resources: []types.ResourceOutcome{
			{Resource: "Volume[vol1]", Actions: []string{"create", "start"}},
		},
		Error: errMsg,
	}
}

func TestSaveAndGetRun(t *testing.T) {
	s := newStore(t)
	r := run(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), "")

	require.NoError(t, s.SaveRun(r))
	require.NotEmpty(t, r.ID, "ID is assigned on save")

	got, err := s.GetRun(r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
	assert.True(t, r.StartedAt.Equal(got.StartedAt))
	assert.Equal(t, r.Resources, got.Resources)
	assert.False(t, got.Failed())
}

func TestGetRun_NotFound(t *testing.T) {
	s := newStore(t)

	_, err := s.GetRun("missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestListRuns_NewestFirst(t *testing.T) {
	s := newStore(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.SaveRun(run(base.Add(time.Duration(i)*time.Hour), "")))
	}

	runs, err := s.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 5)
	for i := 1; i < len(runs); i++ {
		assert.True(t, runs[i-1].StartedAt.After(runs[i].StartedAt))
	}

	runs, err = s.ListRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.True(t, runs[0].StartedAt.Equal(base.Add(4*time.Hour)))
}

func TestPruneRuns(t *testing.T) {
	s := newStore(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		require.NoError(t, s.SaveRun(run(base.Add(time.Duration(i)*time.Minute), "boom")))
	}

	removed, err := s.PruneRuns(1)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	runs, err := s.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].StartedAt.Equal(base.Add(3*time.Minute)))
	assert.True(t, runs[0].Failed())

	removed, err = s.PruneRuns(10)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestReopenKeepsHistory(t *testing.T) {
	dir := t.TempDir()
	s, err := NewBoltStore(dir)
	require.NoError(t, err)
	r := run(time.Now().UTC(), "")
	require.NoError(t, s.SaveRun(r))
	require.NoError(t, s.Close())

	s, err = NewBoltStore(dir)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetRun(r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
}
