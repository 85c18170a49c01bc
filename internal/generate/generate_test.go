package generate

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"offset-bench/internal/taskset"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"pgregory.net/rapid"
)

func TestReadFactorMatrix(t *testing.T) {
	m, err := ReadFactorMatrix(strings.NewReader("# rates\n1,2,4\n1, 3\n\n10\n"))
	require.NoError(t, err)
	require.Equal(t, FactorMatrix{{1, 2, 4}, {1, 3}, {10}}, m)

	var buf bytes.Buffer
	require.NoError(t, WriteFactorMatrix(&buf, m))
	back, err := ReadFactorMatrix(&buf)
	require.NoError(t, err)
	require.Equal(t, m, back)
}

func TestReadFactorMatrix_Invalid(t *testing.T) {
	for _, in := range []string{"", "1,x\n", "1,0\n", "-2\n"} {
		_, err := ReadFactorMatrix(strings.NewReader(in))
		require.True(t, errors.Is(err, taskset.ErrInvalidInput), "input %q: %v", in, err)
	}
}

func TestFactorMatrix_ValidateOverflow(t *testing.T) {
	m := FactorMatrix{{math.MaxInt64 / 2}, {3}}
	require.True(t, errors.Is(m.Validate(), taskset.ErrResourceLimit))
}

func TestFactorMatrix_PeriodIsProductOfRowPicks(t *testing.T) {
	m := FactorMatrix{{1, 2}, {1, 3}, {5}}
	allowed := map[int64]bool{5: true, 10: true, 15: true, 30: true}
	rng := rand.New(rand.NewSource(9))
	seen := map[int64]bool{}
	for i := 0; i < 500; i++ {
		p := m.Period(rng)
		require.True(t, allowed[p], "period %d", p)
		seen[p] = true
	}
	require.Len(t, seen, 4)
}

func TestParams_Validate(t *testing.T) {
	require.NoError(t, DefaultParams().Validate())

	bad := []func(*Params){
		func(p *Params) { p.Tasks = 0 },
		func(p *Params) { p.Utilization = 1.5 },
		func(p *Params) { p.UMin, p.UMax = 0.5, 0.2 },
		func(p *Params) { p.UMax = 0.01 },
		func(p *Params) { p.Granularity = 0 },
		func(p *Params) { p.MinExecTime = 0 },
	}
	for i, mutate := range bad {
		p := DefaultParams()
		mutate(&p)
		require.True(t, errors.Is(p.Validate(), taskset.ErrInvalidInput), "case %d", i)
	}
}

func TestUUniFast_SumsToTotal(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 32).Draw(t, "n")
		total := rapid.Float64Range(0.01, 1).Draw(t, "total")
		rng := rand.New(rand.NewSource(rapid.Uint64().Draw(t, "seed")))

		u := UUniFast(rng, n, total)
		require.Len(t, u, n)
		sum := 0.0
		for _, v := range u {
			require.GreaterOrEqual(t, v, 0.0)
			sum += v
		}
		require.InDelta(t, total, sum, 1e-9)
	})
}

func TestGenerator_TaskSet(t *testing.T) {
	p := DefaultParams()
	p.Tasks = 8
	p.Utilization = 0.5
	p.Granularity = 10
	p.MinExecTime = 10
	g, err := New(DefaultFactorMatrix(), p, 3)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		ts, err := g.TaskSet()
		require.NoError(t, err)
		require.Len(t, ts, 8)
		require.NoError(t, ts.Validate())
		for _, task := range ts {
			require.Zero(t, task.ExecTime%10)
			require.GreaterOrEqual(t, task.ExecTime, int64(10))
		}
	}
}

func TestGenerator_SeedDeterminism(t *testing.T) {
	a, err := New(DefaultFactorMatrix(), DefaultParams(), 11)
	require.NoError(t, err)
	b, err := New(DefaultFactorMatrix(), DefaultParams(), 11)
	require.NoError(t, err)

	sa, err := a.Sets(3, false)
	require.NoError(t, err)
	sb, err := b.Sets(3, false)
	require.NoError(t, err)
	require.Equal(t, sa, sb)
}

func TestGenerator_ImpossibleMinimum(t *testing.T) {
	p := DefaultParams()
	p.Tasks = 4
	p.MinExecTime = 1 << 40
	p.MaxAttempts = 20
	g, err := New(FactorMatrix{{10, 20}}, p, 1)
	require.NoError(t, err)
	_, err = g.TaskSet()
	require.True(t, errors.Is(err, taskset.ErrResourceLimit))
}

func TestGenerator_FilteredSetsAreSpread(t *testing.T) {
	p := DefaultParams()
	p.Tasks = 4
	p.Utilization = 0.2
	g, err := New(FactorMatrix{{100}, {1, 2, 3}}, p, 5)
	require.NoError(t, err)

	sets, err := g.Sets(10, true)
	require.NoError(t, err)
	require.Len(t, sets, 10)
	for _, ts := range sets {
		require.True(t, Spread(ts))
	}
}

func TestSpread(t *testing.T) {
	require.True(t, Spread(taskset.TaskSet{{Period: 20, ExecTime: 3}, {Period: 30, ExecTime: 9}}))
	require.False(t, Spread(taskset.TaskSet{{Period: 20, ExecTime: 3}, {Period: 30, ExecTime: 10}}))
}

func TestGenerator_Incremental(t *testing.T) {
	p := MessageParams(6, 0.6, 10, 2)
	g, err := New(FactorMatrix{{100, 200, 400}, {1, 3}}, p, 8)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		ts, err := g.Incremental(0, 0)
		require.NoError(t, err)
		require.NotEmpty(t, ts)
		require.LessOrEqual(t, len(ts), 6)
		require.LessOrEqual(t, ts.Utilization(), 1.0+1e-9)
		for _, task := range ts {
			require.Zero(t, task.ExecTime%10)
			require.GreaterOrEqual(t, task.ExecTime, int64(20))
		}
	}
}
