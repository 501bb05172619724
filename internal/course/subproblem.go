package course

import (
	"context"

	"github.com/cde-ev/cdecao/internal/bnb"
)

// subproblem is the course-assignment bnb.Subproblem (spec.md §3 "BaB
// subproblem"): the incremental constraints layered on the root Problem.
// Cloned (never mutated in place) on every branch, mirroring jjhbw-GoMILP's
// subProblem.copy() discipline.
type subproblem struct {
	enforcedCancel  map[int]bool
	enforcedRun     map[int]bool
	maxSizeOverride map[int]int
	depth           int
}

func rootSubproblem() subproblem {
	return subproblem{
		enforcedCancel:  map[int]bool{},
		enforcedRun:     map[int]bool{},
		maxSizeOverride: map[int]int{},
	}
}

func (s subproblem) Depth() int { return s.depth }

func (s subproblem) cancelled(course int) bool { return s.enforcedCancel[course] }

// clone returns a deep-enough copy: the maps are duplicated so a child may
// add to them without the parent (or a sibling) observing the change.
func (s subproblem) clone() subproblem {
	c := subproblem{
		enforcedCancel:  make(map[int]bool, len(s.enforcedCancel)),
		enforcedRun:     make(map[int]bool, len(s.enforcedRun)),
		maxSizeOverride: make(map[int]int, len(s.maxSizeOverride)),
		depth:           s.depth + 1,
	}
	for k, v := range s.enforcedCancel {
		c.enforcedCancel[k] = v
	}
	for k, v := range s.enforcedRun {
		c.enforcedRun[k] = v
	}
	for k, v := range s.maxSizeOverride {
		c.maxSizeOverride[k] = v
	}
	return c
}

// violationKind distinguishes why a candidate matching isn't yet closed.
type violationKind int

const (
	noViolation violationKind = iota
	minSizeViolation
	roomViolation
)

// candidate is the Solution type (bnb's T) this package's solve/branch
// functions exchange: a matching result plus, when not yet closed, which
// course needs to be branched on and why.
type candidate struct {
	assignment     map[int]int // participant index -> course index, real rows only
	full           []int       // participant index -> course index, everyone, -1 if unset
	runningCourses []int       // non-cancelled courses, ascending
	cost           int64

	violationCourse int
	violation       violationKind
}

// Solution is the public, read-only result of a successful Solve: a total
// function from participant index to course index, including instructors.
type Solution struct {
	Assignment     []int // indexed by participant, course index, or -1 if somehow unassigned
	RunningCourses []int
	Objective      int64
}

func newSolveFunc(p *Problem) bnb.SolveFunc[subproblem, candidate] {
	return func(_ context.Context, sub subproblem) bnb.NodeResult[candidate] {
		inst, ok := buildInstance(p, sub)
		if !ok {
			return bnb.NodeResult[candidate]{Outcome: bnb.Infeasible}
		}
		assignment, cost, blocked, err := inst.solve()
		if err != nil {
			// A malformed matrix here is an internal invariant violation:
			// buildInstance is responsible for producing a well-formed
			// square non-negative matrix.
			panic("course: buildInstance produced an invalid matching instance: " + err.Error())
		}

		// A matching that had to spend an infeasibleCost cell — on a real
		// row or a dummy one — is not a real candidate, per spec.md §4.1's
		// "optimal objective >= INFEASIBLE_COST signals infeasibility".
		// This catches e.g. two simultaneously-forced courses contending
		// for an overlapping chooser pool: each course's own fast-path
		// check in buildInstance can pass individually while the joint
		// requirement is infeasible.
		if blocked {
			return bnb.NodeResult[candidate]{Outcome: bnb.Infeasible}
		}

		running := runningCourseIndices(p, sub)
		cand := candidate{
			assignment:     assignment,
			full:           fullAssignment(p, sub, assignment),
			runningCourses: running,
			cost:           cost,
		}

		if v, ci := findMinSizeViolation(p, sub, assignment, running); v {
			cand.violation = minSizeViolation
			cand.violationCourse = ci
			return bnb.NodeResult[candidate]{Outcome: bnb.Bound, Bound: cost, Solution: cand}
		}

		if len(p.Rooms) > 0 {
			if v, ci := findRoomViolation(p, sub, assignment, running); v {
				cand.violation = roomViolation
				cand.violationCourse = ci
				return bnb.NodeResult[candidate]{Outcome: bnb.Bound, Bound: cost, Solution: cand}
			}
		}

		return bnb.NodeResult[candidate]{Outcome: bnb.FeasibleAndClosed, Cost: cost, Solution: cand}
	}
}

func newBranchFunc(p *Problem) bnb.BranchFunc[subproblem, candidate] {
	return func(sub subproblem, sol candidate) []subproblem {
		switch sol.violation {
		case minSizeViolation:
			return branchMinSize(p, sub, sol.violationCourse)
		case roomViolation:
			return branchRoom(p, sub, sol.violationCourse)
		default:
			return nil
		}
	}
}

// branchMinSize implements spec.md §4.3's branching rule: force-cancel (if
// permitted) and force-run children.
func branchMinSize(p *Problem, sub subproblem, ci int) []subproblem {
	var children []subproblem

	if !p.Courses[ci].Fixed {
		cancelChild := sub.clone()
		cancelChild.enforcedCancel[ci] = true
		children = append(children, cancelChild)
	}

	runChild := sub.clone()
	runChild.enforcedRun[ci] = true
	children = append(children, runChild)

	return children
}

// fullAssignment merges the matching result with the pre-assigned
// instructors of still-running courses into one total function over every
// participant, used both for the final Solution and as the comparison key
// for the engine's tie-break (spec.md §5: "ascending assignment sequence").
func fullAssignment(p *Problem, sub subproblem, assignment map[int]int) []int {
	full := make([]int, len(p.Participants))
	for i := range full {
		full[i] = -1
	}
	for ci, c := range p.Courses {
		if sub.cancelled(ci) {
			continue
		}
		for _, ins := range c.Instructors {
			full[ins] = ci
		}
	}
	for pi, ci := range assignment {
		full[pi] = ci
	}
	return full
}

// lexLess reports whether a's assignment sequence precedes b's, comparing
// participant index 0 upward (spec.md §5's tie-break discipline).
func lexLess(a, b []int) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

func runningCourseIndices(p *Problem, sub subproblem) []int {
	var out []int
	for ci := range p.Courses {
		if !sub.cancelled(ci) {
			out = append(out, ci)
		}
	}
	return out
}

// findMinSizeViolation returns the course to branch on per spec.md §4.3's
// tie-break: smallest attendee count a(c) first, then smallest course index.
func findMinSizeViolation(p *Problem, sub subproblem, assignment map[int]int, running []int) (bool, int) {
	best := -1
	bestCount := -1
	for _, ci := range running {
		c := p.Courses[ci]
		count := len(c.Instructors)
		for _, assignedTo := range assignment {
			if assignedTo == ci {
				count++
			}
		}
		if count >= c.MinSize {
			continue
		}
		if best == -1 || count < bestCount {
			best = ci
			bestCount = count
		}
	}
	if best == -1 {
		return false, 0
	}
	return true, best
}
