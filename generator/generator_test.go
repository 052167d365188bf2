package generator

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdnfake"
	"pdnfake/config"
	"pdnfake/ledger"
	"pdnfake/load"
)

const ladder = `* 两端供电的金属线
V1 n1_m9_0_0 0 1.0
R1 n1_m9_0_0 n1_m1_0_0 0.1
R2 n1_m1_0_0 n1_m1_10_0 0.2
R3 n1_m1_10_0 n1_m1_20_0 0.2
R4 n1_m1_20_0 n1_m1_30_0 0.2
R5 n1_m1_30_0 n1_m1_40_0 0.2
R6 n1_m1_40_0 n1_m9_40_0 0.1
V2 n1_m9_40_0 0 1.0
I1 n1_m1_10_0 0 0.01
I2 n1_m1_30_0 0 0.02
`

func setup(t *testing.T, mode int) (config.Config, *pdnfake.PDN) {
	t.Helper()
	dir := t.TempDir()
	source := filepath.Join(dir, "netlist.sp")
	require.NoError(t, os.WriteFile(source, []byte(ladder), 0644))

	cfg := config.Default()
	cfg.Source = source
	cfg.Destination = filepath.Join(dir, "out")
	cfg.Mode = mode
	cfg.NumOfFakes = 3
	cfg.IRDropDiff = 0.3
	cfg.IRDropPrecision = 1e-12
	seed := uint64(17)
	cfg.Seed = &seed
	require.NoError(t, cfg.Validate())

	pdn := pdnfake.New(pdnfake.WithSeed(seed), pdnfake.WithPrecision(cfg.IRDropPrecision))
	require.NoError(t, pdn.Load(source))
	return cfg, pdn
}

func TestRunValueScaling(t *testing.T) {
	cfg, pdn := setup(t, 3)
	gen := New(cfg, Discard())
	summary, err := gen.Run(context.Background(), pdn, cfg.Destination)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Fakes)

	m, err := ReadManifest(cfg.Destination)
	require.NoError(t, err)
	require.Len(t, m.Fakes, 3)
	assert.Equal(t, 3, m.Mode)
	assert.Equal(t, 2, m.Counts.VoltageSources)
	for i, fake := range m.Fakes {
		assert.Equal(t, i, fake.Index)
		assert.InDelta(t, 0.1*0.9*float64(i+1), fake.Target, 1e-12)
		assert.GreaterOrEqual(t, fake.Difference, fake.Target)
		assert.False(t, fake.Exhausted)
		assert.Positive(t, fake.Attempts)
		assert.Equal(t, FakeDir(cfg.Destination, 3, i), fake.Dir)

		lines, err := load.ReadFile(filepath.Join(fake.Dir, NetlistName))
		require.NoError(t, err)
		g, err := load.Parse(lines)
		require.NoError(t, err)
		assert.Equal(t, fake.Digest, g.Fingerprint())
		_, err = os.Stat(filepath.Join(fake.Dir, IRDropName))
		assert.NoError(t, err)
	}
	// 修改在伪造网表之间累积
	assert.Less(t, m.Fakes[0].Difference, m.Fakes[2].Difference)
	assert.Len(t, gen.Record.Attempts, m.Fakes[0].Attempts+m.Fakes[1].Attempts+m.Fakes[2].Attempts)
	assert.NotEqual(t, m.Fingerprint, m.Fakes[0].Digest)
}

func TestRunAttemptsExhausted(t *testing.T) {
	cfg, pdn := setup(t, 3)
	cfg.NumOfFakes = 1
	cfg.IRDropDiff = 100
	cfg.MaxAttempts = 4
	summary, err := New(cfg, Discard()).Run(context.Background(), pdn, cfg.Destination)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Fakes)

	m, err := ReadManifest(cfg.Destination)
	require.NoError(t, err)
	require.Len(t, m.Fakes, 1)
	assert.True(t, m.Fakes[0].Exhausted)
	assert.Equal(t, 4, m.Fakes[0].Attempts)
	assert.Less(t, m.Fakes[0].Step, 0.01*100.0, "每次未达标后幅度衰减")
}

func TestRunOutputs(t *testing.T) {
	cfg, pdn := setup(t, 2)
	cfg.NumOfFakes = 1
	cfg.Compress = true
	cfg.Charts = true
	cfg.Plot = true
	cfg.TileSize = 10
	cfg.Ledger = filepath.Join(cfg.Destination, "ledger.db")
	gen := New(cfg, Discard())
	require.NoError(t, gen.Open())
	_, err := gen.Run(context.Background(), pdn, cfg.Destination)
	require.NoError(t, err)
	require.NoError(t, gen.Close())

	dir := FakeDir(cfg.Destination, 2, 0)
	for _, name := range []string{NetlistName + ".zst", IRDropName + ".zst", ChartsName, PlotName} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	m, err := ReadManifest(cfg.Destination)
	require.NoError(t, err)
	require.NotEmpty(t, m.Run)
	l, err := ledger.Open(cfg.Ledger)
	require.NoError(t, err)
	defer l.Close()
	fakes, err := l.ListFakes(m.Run)
	require.NoError(t, err)
	require.Len(t, fakes, 1)
	assert.Equal(t, m.Fakes[0].Digest, fakes[0].Digest)
	assert.Equal(t, dir, fakes[0].Path)
}

func TestRunCanceled(t *testing.T) {
	cfg, pdn := setup(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(cfg, Discard()).Run(ctx, pdn, cfg.Destination)
	assert.True(t, errors.Is(err, context.Canceled))

	m, err := ReadManifest(cfg.Destination)
	require.NoError(t, err)
	assert.Empty(t, m.Fakes)
}

func TestRunEmpty(t *testing.T) {
	_, err := New(config.Default(), Discard()).Run(context.Background(), pdnfake.New(), t.TempDir())
	assert.True(t, errors.Is(err, pdnfake.ErrEmpty))
}

func TestRunWriteFailureKeepsManifest(t *testing.T) {
	cfg, pdn := setup(t, 3)
	require.NoError(t, os.MkdirAll(cfg.Destination, 0755))
	// 输出目录位置被普通文件占用
	blocked := FakeDir(cfg.Destination, 3, 0)
	require.NoError(t, os.WriteFile(blocked, nil, 0644))

	_, err := New(cfg, Discard()).Run(context.Background(), pdn, cfg.Destination)
	require.Error(t, err)

	m, err := ReadManifest(cfg.Destination)
	require.NoError(t, err)
	assert.Empty(t, m.Fakes)
	assert.Equal(t, 0, m.Summary.Fakes)
}

func TestRunLogsDuplicateDigest(t *testing.T) {
	cfg, pdn := setup(t, 3)
	cfg.NumOfFakes = 1
	cfg.Ledger = filepath.Join(t.TempDir(), "ledger.db")

	first := New(cfg, Discard())
	require.NoError(t, first.Open())
	_, err := first.Run(context.Background(), pdn, cfg.Destination)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	again := pdnfake.New(pdnfake.WithSeed(*cfg.Seed), pdnfake.WithPrecision(cfg.IRDropPrecision), pdnfake.WithLogger(Discard()))
	require.NoError(t, again.Load(cfg.Source))
	var out bytes.Buffer
	second := New(cfg, log.New(&out, "", 0))
	require.NoError(t, second.Open())
	defer second.Close()
	_, err = second.Run(context.Background(), again, filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)
	assert.Contains(t, out.String(), "netlist-fake-0 与 "+cfg.Source+" 的 netlist-fake-0 相同")
}

func TestRunAllChartsPerSource(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.sp", "b.sp"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(ladder), 0644))
	}
	cfg := config.Default()
	cfg.Source = filepath.Join(dir, "*.sp")
	cfg.Destination = filepath.Join(dir, "out")
	cfg.Mode = 3
	cfg.NumOfFakes = 2
	cfg.IRDropDiff = 0.1
	cfg.Charts = true
	cfg.TileSize = 10

	gen := New(cfg, Discard())
	_, err := gen.RunAll(context.Background())
	require.NoError(t, err)

	m, err := ReadManifest(filepath.Join(cfg.Destination, "b"))
	require.NoError(t, err)
	require.Len(t, m.Fakes, 2)
	// 记录只包含最后一个网表的尝试
	assert.Len(t, gen.Record.Attempts, m.Fakes[0].Attempts+m.Fakes[1].Attempts)
	assert.Len(t, gen.Record.Fake(0), m.Fakes[0].Attempts)
	for _, fake := range m.Fakes {
		_, err := os.Stat(filepath.Join(fake.Dir, ChartsName))
		assert.NoError(t, err)
	}
}

func TestRunAll(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.sp", "b.sp"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(ladder), 0644))
	}
	cfg := config.Default()
	cfg.Source = filepath.Join(dir, "*.sp")
	cfg.Destination = filepath.Join(dir, "out")
	cfg.Mode = 3
	cfg.NumOfFakes = 1
	cfg.IRDropDiff = 0.1

	summaries, err := New(cfg, Discard()).RunAll(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	for _, name := range []string{"a", "b"} {
		m, err := ReadManifest(filepath.Join(cfg.Destination, name))
		require.NoError(t, err)
		assert.Len(t, m.Fakes, 1)
	}

	cfg.Mode = 0
	_, err = New(cfg, Discard()).RunAll(context.Background())
	assert.Error(t, err)
}
