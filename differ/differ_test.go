package differ

import (
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/defistate/defistate-amm-go/protocols/pair"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDiffer(t *testing.T) (*StateDiffer, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	d, err := NewStateDiffer(&StateDifferConfig{
		Registry: reg,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return d, reg
}

func pool(id uint64, r1, r2 int64) pair.PoolView {
	return pair.PoolView{ID: id, Reserve1: big.NewInt(r1), Reserve2: big.NewInt(r2), TotalSupply: big.NewInt(1)}
}

func TestNewStateDiffer(t *testing.T) {
	_, err := NewStateDiffer(&StateDifferConfig{Logger: slog.Default()})
	assert.Error(t, err, "registry is required")

	_, err = NewStateDiffer(&StateDifferConfig{Registry: prometheus.NewRegistry()})
	assert.Error(t, err, "logger is required")
}

func TestStateDiffer(t *testing.T) {
	d, reg := newTestDiffer(t)

	old := &State{Sequence: 1, Pools: []pair.PoolView{pool(1, 10, 10)}}
	next := &State{Sequence: 2, Pools: []pair.PoolView{pool(1, 11, 9), pool(2, 5, 5)}}

	diff, err := d.Diff(old, next)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), diff.FromSequence)
	assert.Equal(t, uint64(2), diff.ToSequence)
	assert.Len(t, diff.Pools.Updates, 1)
	assert.Len(t, diff.Pools.Additions, 1)
	assert.False(t, diff.IsEmpty())

	diff, err = d.Diff(next, &State{Sequence: 3, Pools: next.Pools})
	require.NoError(t, err)
	assert.True(t, diff.IsEmpty())

	_, err = d.Diff(next, old)
	assert.Error(t, err, "sequence cannot go backwards")
	_, err = d.Diff(nil, old)
	assert.Error(t, err)

	count, err := testutil.GatherAndCount(reg, "amm_state_diffs_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count, "changed, empty and error series")
}
