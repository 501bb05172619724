package bnb_test

import (
	"context"
	"math/rand"
	"sort"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cde-ev/cdecao/internal/bnb"
)

// A toy domain exercising bnb.Run's genericity independent of the course
// package: choose exactly k of n non-negative integers minimizing their
// sum, decided one item at a time (include/exclude), in index order.

type pickSub struct {
	values   []int
	k        int
	decided  int   // how many of the first `decided` items have been ruled on
	included int   // how many of the decided items were included
	sum      int64
	chosen   []int // values included so far
}

func (s pickSub) Depth() int { return s.decided }

func pickSolve(_ context.Context, s pickSub) bnb.NodeResult[[]int] {
	n := len(s.values)
	remaining := n - s.decided
	stillNeeded := s.k - s.included

	if stillNeeded < 0 || stillNeeded > remaining {
		return bnb.NodeResult[[]int]{Outcome: bnb.Infeasible}
	}

	if s.decided == n {
		return bnb.NodeResult[[]int]{Outcome: bnb.FeasibleAndClosed, Cost: s.sum, Solution: s.chosen}
	}

	// lower bound: current sum plus the `stillNeeded` smallest remaining values.
	rest := append([]int(nil), s.values[s.decided:]...)
	sort.Ints(rest)
	var bound int64 = s.sum
	for i := 0; i < stillNeeded; i++ {
		bound += int64(rest[i])
	}
	return bnb.NodeResult[[]int]{Outcome: bnb.Bound, Bound: bound}
}

func pickBranch(s pickSub, _ []int) []pickSub {
	if s.decided == len(s.values) {
		return nil
	}
	v := s.values[s.decided]
	include := s
	include.decided++
	include.included++
	include.sum += int64(v)
	include.chosen = append(append([]int(nil), s.chosen...), v)

	exclude := s
	exclude.decided++

	return []pickSub{include, exclude}
}

func bruteForcePick(values []int, k int) int64 {
	n := len(values)
	best := int64(1) << 60
	var rec func(i, included int, sum int64)
	rec = func(i, included int, sum int64) {
		if included > k || (n-i)+included < k {
			return
		}
		if i == n {
			if included == k && sum < best {
				best = sum
			}
			return
		}
		rec(i+1, included+1, sum+int64(values[i]))
		rec(i+1, included, sum)
	}
	rec(0, 0, 0)
	return best
}

func TestRun_GenericToyProblem_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(11))

	for trial := 0; trial < 10; trial++ {
		n := 4 + rng.Intn(6)
		k := 1 + rng.Intn(n)
		values := make([]int, n)
		for i := range values {
			values[i] = rng.Intn(20)
		}

		root := pickSub{values: values, k: k}
		sol, found, stats := bnb.Run(context.Background(), root, pickSolve, pickBranch, bnb.Options[[]int]{Workers: 4})
		require.True(t, found)
		assert.Equal(t, bnb.Exhausted, stats.Reason)

		var gotCost int64
		for _, v := range sol {
			gotCost += int64(v)
		}
		assert.Equal(t, bruteForcePick(values, k), gotCost)
	}
}

// lexLess reports whether a sorted copy of a is lexicographically before a
// sorted copy of b. Used as a TieBreak so that equal-cost solutions reached
// by different worker-count schedules still settle on the same one.
func lexLess(a, b []int) bool {
	sa := append([]int(nil), a...)
	sb := append([]int(nil), b...)
	sort.Ints(sa)
	sort.Ints(sb)
	for i := 0; i < len(sa) && i < len(sb); i++ {
		if sa[i] != sb[i] {
			return sa[i] < sb[i]
		}
	}
	return len(sa) < len(sb)
}

// Without a TieBreak, Run keeps whichever equal-cost solution closes first;
// with one supplied, the result must not depend on how many workers
// explored the tree.
func TestRun_Deterministic_AcrossWorkerCounts(t *testing.T) {
	values := []int{9, 3, 7, 1, 8, 2, 6, 4, 5, 0}
	root := pickSub{values: values, k: 4}

	results := make([][]int, 0, 4)
	for _, w := range []int{1, 2, 4, 8} {
		sol, found, _ := bnb.Run(context.Background(), root, pickSolve, pickBranch, bnb.Options[[]int]{
			Workers:  w,
			TieBreak: lexLess,
		})
		require.True(t, found)
		results = append(results, sol)
	}
	for i := 1; i < len(results); i++ {
		assert.Equal(t, results[0], results[i], "worker count should not change the returned solution")
	}
}

func TestRun_Cancellation(t *testing.T) {
	values := make([]int, 22)
	for i := range values {
		values[i] = i
	}
	root := pickSub{values: values, k: 11}

	var cancel atomic.Bool
	cancel.Store(true)

	_, _, stats := bnb.Run(context.Background(), root, pickSolve, pickBranch, bnb.Options[[]int]{Workers: 4, Cancel: &cancel})
	assert.Equal(t, bnb.Cancelled, stats.Reason)
}

func TestRun_Infeasible(t *testing.T) {
	root := pickSub{values: []int{1, 2, 3}, k: 10}
	_, found, stats := bnb.Run(context.Background(), root, pickSolve, pickBranch, bnb.Options[[]int]{Workers: 3})
	assert.False(t, found)
	assert.Equal(t, bnb.Exhausted, stats.Reason)
}

func TestRun_InternalErrorFromPanic(t *testing.T) {
	boom := func(_ context.Context, s pickSub) bnb.NodeResult[[]int] {
		if s.decided == 1 {
			panic("boom")
		}
		return pickSolve(context.Background(), s)
	}
	root := pickSub{values: []int{1, 2, 3}, k: 1}
	_, _, stats := bnb.Run(context.Background(), root, boom, pickBranch, bnb.Options[[]int]{Workers: 2})
	assert.Equal(t, bnb.InternalError, stats.Reason)
	assert.Error(t, stats.Err)
}

// Stress: many workers, many small nodes, must still terminate and agree
// with a single-worker run.
func TestRun_StressManyWorkers(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping stress test in short mode")
	}
	values := make([]int, 16)
	for i := range values {
		values[i] = (i*7 + 3) % 23
	}
	root := pickSub{values: values, k: 8}

	single, found, _ := bnb.Run(context.Background(), root, pickSolve, pickBranch, bnb.Options[[]int]{Workers: 1})
	require.True(t, found)

	for trial := 0; trial < 20; trial++ {
		got, found, stats := bnb.Run(context.Background(), root, pickSolve, pickBranch, bnb.Options[[]int]{Workers: 16})
		require.True(t, found)
		assert.Equal(t, bnb.Exhausted, stats.Reason)
		assert.Equal(t, single, got)
	}
}
