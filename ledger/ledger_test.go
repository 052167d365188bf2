package ledger

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func open(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "db", "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestOpenCreatesDirectory(t *testing.T) {
	l := open(t)
	_, err := os.Stat(l.Path())
	assert.NoError(t, err)
}

func TestRunRoundTrip(t *testing.T) {
	l := open(t)
	seed := uint64(1 << 63)
	run := &Run{Source: "netlist.sp", Fingerprint: "abc", Mode: 2, Seed: &seed, Fakes: 3, IRDropDiff: 0.75}
	require.NoError(t, l.StartRun(run))
	_, err := uuid.Parse(run.ID)
	require.NoError(t, err)

	got, err := l.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Source, got.Source)
	assert.Equal(t, run.Mode, got.Mode)
	assert.Equal(t, run.Fakes, got.Fakes)
	assert.Equal(t, 0.75, got.IRDropDiff)
	require.NotNil(t, got.Seed)
	assert.Equal(t, seed, *got.Seed)
	assert.Equal(t, run.Started.UnixMilli(), got.Started.UnixMilli())

	other := &Run{Source: "b.sp", Fingerprint: "def", Mode: 1, Fakes: 1}
	require.NoError(t, l.StartRun(other))
	assert.NotEqual(t, run.ID, other.ID)
	got, err = l.GetRun(other.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Seed)

	_, err = l.GetRun("missing")
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestFakes(t *testing.T) {
	l := open(t)
	run := &Run{Source: "netlist.sp", Fingerprint: "abc", Mode: 1, Fakes: 2, IRDropDiff: 0.5}
	require.NoError(t, l.StartRun(run))

	second := Fake{Run: run.ID, Index: 1, Mode: 1, Applied: 2, Difference: 0.4, MaxDrop: 0.1,
		MinDrop: 0.01, MeanDrop: math.NaN(), Attempts: 7, Iterations: 120, Digest: "d2", Path: "b"}
	first := Fake{Run: run.ID, Index: 0, Mode: 1, Applied: 1, Difference: 0.2, MaxDrop: 0.1,
		MinDrop: 0.01, MeanDrop: 0.05, Attempts: 3, Iterations: 90, Digest: "d1", Path: "a"}
	require.NoError(t, l.RecordFake(second))
	require.NoError(t, l.RecordFake(first))

	fakes, err := l.ListFakes(run.ID)
	require.NoError(t, err)
	require.Len(t, fakes, 2)
	assert.Equal(t, first, fakes[0])
	assert.Equal(t, 2, fakes[1].Applied)
	assert.True(t, math.IsNaN(fakes[1].MeanDrop))

	assert.Error(t, l.RecordFake(first), "同一序号不能重复记录")
	assert.Error(t, l.RecordFake(Fake{Run: "missing", Digest: "x"}), "运行必须存在")

	found, err := l.FindDigest("d2")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, 1, found[0].Index)

	empty, err := l.ListFakes("missing")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
