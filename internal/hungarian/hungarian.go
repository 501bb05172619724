// Package hungarian solves the dense square minimum-cost perfect matching
// problem (assignment problem) in O(n^3) using the primal-dual
// (Kuhn-Munkres / Jonker-Volgenant) method with explicit potentials.
//
// This is a from-scratch int64 port of the classic labeling algorithm,
// following the structure of the Kevin L. Stern Java implementation (as
// carried by github.com/charles-haynes/munkres): maintain a feasible
// labeling (u, v), grow an alternating tree from each unmatched row via
// the zero-slack edges of the reduced-cost graph, and augment along the
// first unmatched column reached. Ties among equal-slack candidates are
// broken by ascending column index so that repeated runs over identical
// input produce an identical assignment.
package hungarian

import (
	"errors"
	"fmt"
)

// ErrIrregularMatrix is returned when the cost matrix rows are not all
// the same length, or the matrix is not square.
var ErrIrregularMatrix = errors.New("hungarian: cost matrix must be square with equal-length rows")

// ErrNegativeCost is returned when a cost matrix entry is negative.
// The algorithm's dual-feasibility argument requires non-negative costs.
var ErrNegativeCost = errors.New("hungarian: cost matrix entries must be non-negative")

// Result is the outcome of solving a square cost matrix.
type Result struct {
	// Assignment[row] is the column matched to that row. len(Assignment) == N.
	Assignment []int

	// RowPotential and ColPotential are the dual potentials (u, v) satisfying
	// RowPotential[i] + ColPotential[j] <= Cost[i][j] for all i, j, with
	// equality whenever j == Assignment[i].
	RowPotential []int64
	ColPotential []int64

	// Cost is the objective value of Assignment: sum of Cost[i][Assignment[i]].
	Cost int64
}

// Solve computes an optimal assignment for the given N x N non-negative
// integer cost matrix. It never fails to find a perfect matching for a
// well-formed square matrix; Solve only returns an error for malformed
// input (irregular shape, negative costs).
func Solve(cost [][]int64) (Result, error) {
	n := len(cost)
	for i, row := range cost {
		if len(row) != n {
			return Result{}, fmt.Errorf("%w: row %d has length %d, want %d", ErrIrregularMatrix, i, len(row), n)
		}
		for j, c := range row {
			if c < 0 {
				return Result{}, fmt.Errorf("%w: at [%d][%d] = %d", ErrNegativeCost, i, j, c)
			}
		}
	}
	if n == 0 {
		return Result{}, nil
	}

	s := newSolver(cost, n)
	s.run()

	result := Result{
		Assignment:   append([]int(nil), s.matchColByRow...),
		RowPotential: append([]int64(nil), s.u...),
		ColPotential: append([]int64(nil), s.v...),
	}
	var total int64
	for row, col := range result.Assignment {
		total += cost[row][col]
	}
	result.Cost = total
	return result, nil
}

// solver holds the mutable working state for one run() call. It is not
// safe for concurrent use; callers construct a fresh solver per matrix.
type solver struct {
	n    int
	cost [][]int64

	u, v []int64 // row and column potentials (the dual solution)

	matchColByRow []int // -1 if unmatched
	matchRowByCol []int

	// per-phase alternating-tree bookkeeping
	committedRow      []bool
	parentRowByCol    []int   // parent row in the alternating tree, keyed by column; -1 if column not yet reached
	minSlackValueByCo []int64 // smallest reduced cost seen so far from the committed rows to this column
	minSlackRowByCol  []int
}

func newSolver(cost [][]int64, n int) *solver {
	s := &solver{
		n:                 n,
		cost:              cost,
		u:                 make([]int64, n),
		v:                 make([]int64, n),
		matchColByRow:     make([]int, n),
		matchRowByCol:     make([]int, n),
		committedRow:      make([]bool, n),
		parentRowByCol:    make([]int, n),
		minSlackValueByCo: make([]int64, n),
		minSlackRowByCol:  make([]int, n),
	}
	for i := 0; i < n; i++ {
		s.matchColByRow[i] = -1
		s.matchRowByCol[i] = -1
	}
	return s
}

func (s *solver) run() {
	s.initialFeasibleLabeling()
	s.greedyMatch()

	for row := s.firstUnmatchedRow(); row < s.n; row = s.firstUnmatchedRow() {
		s.initializePhase(row)
		s.runPhase()
	}
}

// initialFeasibleLabeling sets u = 0 and v[j] = min_i cost[i][j], which is a
// valid dual-feasible labeling of the (unmodified) input matrix: u_i + v_j
// = v_j <= cost[i][j] for all i, j by construction.
func (s *solver) initialFeasibleLabeling() {
	for j := 0; j < s.n; j++ {
		min := s.cost[0][j]
		for i := 1; i < s.n; i++ {
			if s.cost[i][j] < min {
				min = s.cost[i][j]
			}
		}
		s.v[j] = min
	}
}

// greedyMatch jump-starts the augmentation procedure by matching along any
// zero-slack edges of the initial labeling.
func (s *solver) greedyMatch() {
	for i := 0; i < s.n; i++ {
		for j := 0; j < s.n; j++ {
			if s.matchColByRow[i] == -1 && s.matchRowByCol[j] == -1 &&
				s.cost[i][j]-s.u[i]-s.v[j] == 0 {
				s.match(i, j)
			}
		}
	}
}

func (s *solver) firstUnmatchedRow() int {
	for i, c := range s.matchColByRow {
		if c == -1 {
			return i
		}
	}
	return s.n
}

// initializePhase roots a new alternating-tree search at the given
// unmatched row, resetting the per-phase bookkeeping.
func (s *solver) initializePhase(row int) {
	for i := range s.committedRow {
		s.committedRow[i] = false
	}
	for j := range s.parentRowByCol {
		s.parentRowByCol[j] = -1
	}
	s.committedRow[row] = true
	for j := 0; j < s.n; j++ {
		s.minSlackValueByCo[j] = s.cost[row][j] - s.u[row] - s.v[j]
		s.minSlackRowByCol[j] = row
	}
}

// runPhase grows the alternating tree until an augmenting path to an
// unmatched column is found, then augments along it. Column candidates
// are always scanned in ascending index order and slack ties keep the
// first (lowest-index) candidate, which is what makes the final
// assignment deterministic across runs.
func (s *solver) runPhase() {
	for {
		col := -1
		row := -1
		var slack int64 = -1
		for j := 0; j < s.n; j++ {
			if s.parentRowByCol[j] != -1 {
				continue
			}
			if col == -1 || s.minSlackValueByCo[j] < slack {
				slack = s.minSlackValueByCo[j]
				row = s.minSlackRowByCol[j]
				col = j
			}
		}

		if slack > 0 {
			s.updateLabeling(slack)
		}
		s.parentRowByCol[col] = row

		if s.matchRowByCol[col] == -1 {
			// augmenting path found: walk it back to the root, flipping matches
			for {
				parentRow := s.parentRowByCol[col]
				nextCol := s.matchColByRow[parentRow]
				s.match(parentRow, col)
				if nextCol == -1 {
					return
				}
				col = nextCol
			}
		}

		// column already matched: extend the tree through its matched row
		newRow := s.matchRowByCol[col]
		s.committedRow[newRow] = true
		for j := 0; j < s.n; j++ {
			if s.parentRowByCol[j] != -1 {
				continue
			}
			cand := s.cost[newRow][j] - s.u[newRow] - s.v[j]
			if cand < s.minSlackValueByCo[j] {
				s.minSlackValueByCo[j] = cand
				s.minSlackRowByCol[j] = newRow
			}
		}
	}
}

// updateLabeling raises u on committed rows and lowers v on committed
// columns by slack, preserving dual feasibility while creating at least
// one new zero-slack edge.
func (s *solver) updateLabeling(slack int64) {
	for i := 0; i < s.n; i++ {
		if s.committedRow[i] {
			s.u[i] += slack
		}
	}
	for j := 0; j < s.n; j++ {
		if s.parentRowByCol[j] != -1 {
			s.v[j] -= slack
		} else {
			s.minSlackValueByCo[j] -= slack
		}
	}
}

func (s *solver) match(row, col int) {
	s.matchColByRow[row] = col
	s.matchRowByCol[col] = row
}
