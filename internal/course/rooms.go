package course

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// roomEpsilon tolerates floating-point noise when comparing effective sizes
// against room capacities (spec.md §9: "floating-point in room fitting ...
// comparisons must tolerate a small epsilon").
const roomEpsilon = 1e-9

// findRoomViolation implements spec.md §4.4 steps 2-3: compute effective
// sizes for all running courses and attempt a greedy largest-first pairing
// against the room multiset. Returns the smallest (by effective size)
// course that failed to find a room, if any.
func findRoomViolation(p *Problem, sub subproblem, assignment map[int]int, running []int) (bool, int) {
	type sized struct {
		course int
		size   float64
	}
	sizes := make([]sized, 0, len(running))
	for _, ci := range running {
		c := p.Courses[ci]
		attendees := 0
		for _, assignedTo := range assignment {
			if assignedTo == ci {
				attendees++
			}
		}
		sizes = append(sizes, sized{course: ci, size: c.EffectiveSize(attendees, len(c.Instructors))})
	}

	sort.Slice(sizes, func(i, j int) bool {
		if sizes[i].size != sizes[j].size {
			return sizes[i].size > sizes[j].size // largest first
		}
		return sizes[i].course < sizes[j].course
	})

	rooms := sortedCopy(p.Rooms)
	sort.Sort(sort.Reverse(sort.Float64Slice(rooms)))

	used := make([]bool, len(rooms))
	unfit := make([]sized, 0)
	for _, s := range sizes {
		fit := -1
		for ri, roomCap := range rooms {
			if used[ri] {
				continue
			}
			if roomCap > s.size || floats.EqualWithinAbs(roomCap, s.size, roomEpsilon) {
				if fit == -1 || rooms[fit] > roomCap {
					fit = ri
				}
			}
		}
		if fit == -1 {
			unfit = append(unfit, s)
			continue
		}
		used[fit] = true
	}

	if len(unfit) == 0 {
		return false, 0
	}

	// smallest effective size among the courses that failed to fit.
	sort.Slice(unfit, func(i, j int) bool {
		if unfit[i].size != unfit[j].size {
			return unfit[i].size < unfit[j].size
		}
		return unfit[i].course < unfit[j].course
	})
	return true, unfit[0].course
}

// branchRoom implements spec.md §4.4 step 4: shrink (by one) or cancel the
// offending course. A shrink that would drop max_size below min_size
// collapses to a cancel-only child (the shrink would be immediately
// infeasible at the next min-size check anyway, so dropping it here keeps
// the tree smaller without changing the search's outcome).
func branchRoom(p *Problem, sub subproblem, ci int) []subproblem {
	c := p.Courses[ci]
	currentMax := c.MaxSize
	if override, ok := sub.maxSizeOverride[ci]; ok {
		currentMax = override
	}

	var children []subproblem

	if currentMax-1 >= c.MinSize {
		shrinkChild := sub.clone()
		shrinkChild.maxSizeOverride[ci] = currentMax - 1
		children = append(children, shrinkChild)
	}

	if !c.Fixed {
		cancelChild := sub.clone()
		cancelChild.enforcedCancel[ci] = true
		children = append(children, cancelChild)
	}

	return children
}
