package course

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/cde-ev/cdecao/internal/hungarian"
)

// runningCourse is one course participating in the matching for a given
// subproblem: its index, seat count, and the (course-local) seat range
// where its forced-seat prefix (if any) ends.
type runningCourse struct {
	index       int
	seats       int
	forcedSeats int // seats [0, forcedSeats) must go to a chooser or be infeasible
	instructors int
}

// instance is the transient Hungarian matching instance for one bnb node
// (spec.md §3 "Hungarian instance"). It is owned by the worker that built
// it and discarded after interpretation.
type instance struct {
	problem *Problem

	rows    []int // rows[i] = participant index for real row i, or -1 for a dummy row
	courses []runningCourse
	colOf   []int // colOf[j] = course index for column j

	// Cost is a float64 view of the matrix for inspection/debugging,
	// matching the mat.Dense-based representation jjhbw-GoMILP uses for
	// its constraint matrices. The Hungarian solver itself consumes the
	// int64 rows built by costRows, not this Dense view.
	Cost *mat.Dense

	costRows [][]int64
}

// buildInstance encodes sub against problem as a square Hungarian instance,
// per spec.md §4.3. Returns ok == false when the subproblem is
// capacity-infeasible before any matrix is even built (too few seats, or a
// forced-run course with too few choosers).
func buildInstance(p *Problem, sub subproblem) (*instance, bool) {
	running := make([]runningCourse, 0, len(p.Courses))
	for ci, c := range p.Courses {
		if sub.cancelled(ci) {
			continue
		}
		maxSize := c.MaxSize
		if override, ok := sub.maxSizeOverride[ci]; ok && override < maxSize {
			maxSize = override
		}
		instructors := len(c.Instructors)
		seats := maxSize - instructors
		if seats < 0 {
			seats = 0
		}
		rc := runningCourse{index: ci, seats: seats, instructors: instructors}
		if sub.enforcedRun[ci] {
			needed := c.MinSize - instructors
			if needed < 0 {
				needed = 0
			}
			if needed > seats {
				needed = seats
			}
			rc.forcedSeats = needed
		}
		running = append(running, rc)
	}

	instructedBy := make([]int, len(p.Participants))
	for i := range instructedBy {
		instructedBy[i] = -1
	}
	for ci, c := range p.Courses {
		if sub.cancelled(ci) {
			continue
		}
		for _, ins := range c.Instructors {
			instructedBy[ins] = ci
		}
	}

	// rows: every participant not pre-assigned as instructor of a running course.
	realRows := make([]int, 0, len(p.Participants))
	freedInstructor := make(map[int]bool)
	for pi := range p.Participants {
		if instructedBy[pi] != -1 {
			continue // instructor of a running course: pre-assigned, excluded
		}
		realRows = append(realRows, pi)
		if wasInstructorOfCancelled(p, pi, sub) {
			freedInstructor[pi] = true
		}
	}

	colOf := make([]int, 0)
	forcedCol := make([]bool, 0)
	for _, rc := range running {
		for s := 0; s < rc.seats; s++ {
			colOf = append(colOf, rc.index)
			forcedCol = append(forcedCol, s < rc.forcedSeats)
		}
	}

	rowsN := len(realRows)
	colsN := len(colOf)
	if colsN < rowsN {
		return nil, false
	}

	// fast-path infeasibility: a forced-run course with fewer choosers than
	// its forced seats can never be filled.
	for _, rc := range running {
		if rc.forcedSeats == 0 {
			continue
		}
		choosers := 0
		for _, pi := range realRows {
			if freedInstructor[pi] {
				choosers++ // free agents can fill a forced seat
				continue
			}
			if choiceFor(p.Participants[pi], rc.index) != nil {
				choosers++
			}
		}
		if choosers < rc.forcedSeats {
			return nil, false
		}
	}

	n := colsN // colsN >= rowsN already checked
	rows := make([]int, n)
	copy(rows, realRows)
	for i := rowsN; i < n; i++ {
		rows[i] = -1 // dummy: wasted-seat row
	}

	costRows := make([][]int64, n)
	flat := make([]float64, n*n)
	for i := 0; i < n; i++ {
		costRows[i] = make([]int64, n)
		pi := rows[i]
		for j := 0; j < n; j++ {
			var cost int64
			switch {
			case pi == -1:
				// A dummy row is a wasted seat: free everywhere except a
				// forced column, where it would let a real attendee's seat
				// go unfilled for free and defeat spec.md §4.3's forcing
				// mechanism entirely.
				if forcedCol[j] {
					cost = p.infeasibleCost
				}
			case freedInstructor[pi]:
				cost = 0
			default:
				ci := colOf[j]
				if ch := choiceFor(p.Participants[pi], ci); ch != nil {
					cost = ch.Penalty
				} else if forcedCol[j] {
					cost = p.infeasibleCost
				} else {
					cost = p.penaltyMax
				}
			}
			costRows[i][j] = cost
			flat[i*n+j] = float64(cost)
		}
	}

	return &instance{
		problem:  p,
		rows:     rows,
		courses:  running,
		colOf:    colOf,
		Cost:     mat.NewDense(n, n, flat),
		costRows: costRows,
	}, true
}

// wasInstructorOfCancelled reports whether pi instructs some course that is
// cancelled in sub, making them a "freed" participant per spec.md §4.3
// bullet 3 (cost 0 to any column).
func wasInstructorOfCancelled(p *Problem, pi int, sub subproblem) bool {
	for ci, c := range p.Courses {
		if !sub.cancelled(ci) {
			continue
		}
		for _, ins := range c.Instructors {
			if ins == pi {
				return true
			}
		}
	}
	return false
}

// choiceFor returns the participant's choice for course ci, honoring the
// "only the first occurrence counts" rule for duplicate listings
// (spec.md §9, Open Question).
func choiceFor(pt Participant, ci int) *Choice {
	for i := range pt.Choices {
		if pt.Choices[i].Course == ci {
			return &pt.Choices[i]
		}
	}
	return nil
}

// solve runs the Hungarian solver and returns the total cost over
// real (non-dummy) rows plus the resulting matching, keyed by participant
// index -> course index (real rows only). blocked reports whether the
// optimal matching had to spend an infeasibleCost cell anywhere — including
// on a dummy row, whose own cost never contributes to the returned
// objective but still means no feasible completion exists (spec.md §4.1).
func (inst *instance) solve() (assignment map[int]int, cost int64, blocked bool, err error) {
	res, err := hungarian.Solve(inst.costRows)
	if err != nil {
		return nil, 0, false, err
	}
	assignment = make(map[int]int, len(inst.rows))
	for i, pi := range inst.rows {
		col := res.Assignment[i]
		if inst.costRows[i][col] >= inst.problem.infeasibleCost {
			blocked = true
		}
		if pi == -1 {
			continue // wasted seat
		}
		assignment[pi] = inst.colOf[col]
		cost += inst.costRows[i][col]
	}
	return assignment, cost, blocked, nil
}

// sortedCopy returns an ascending sorted copy of vals.
func sortedCopy(vals []float64) []float64 {
	out := append([]float64(nil), vals...)
	sort.Float64s(out)
	return out
}
