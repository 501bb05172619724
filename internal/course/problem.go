// Package course is the course-assignment specialization of the generic
// bnb engine: it encodes a course-assignment problem instance as a sequence
// of bnb subproblems, builds the Hungarian cost matrix for each, and
// interprets the resulting matching back into a course assignment.
//
// This mirrors the split jjhbw-GoMILP draws between its abstract Problem
// (api.go) and its internal milpProblem/subProblem (ilp.go, subproblem.go):
// Problem here is the caller-facing, validated, immutable instance; the
// unexported subproblem type carries the incremental bnb state.
package course

import (
	"errors"
	"fmt"
)

// ErrInvalidIndex is returned when a course or participant index is out of
// range for the problem instance.
var ErrInvalidIndex = errors.New("course: index out of range")

// ErrInvalidSize is returned for a course whose min/max sizes are malformed.
var ErrInvalidSize = errors.New("course: invalid min/max size")

// ErrUnrunnableCourse is returned for a course whose min_size is below its
// own instructor count: such a course could never run even at minimum
// capacity, so it cannot be accepted as valid input (spec.md §3, §7).
var ErrUnrunnableCourse = errors.New("course: min_size below instructor count, course can never run")

// ErrMultiInstructor is returned when a participant instructs more than one
// course in the track.
var ErrMultiInstructor = errors.New("course: participant instructs more than one course")

// ErrNegativePenalty is returned for a choice with a negative penalty.
var ErrNegativePenalty = errors.New("course: choice penalty must be non-negative")

// ErrMagnitudeOverflow is returned when the problem is large enough that
// the internal cost sentinels (penaltyMax, infeasibleCost) could not be
// chosen without risking int64 overflow in the Hungarian solver's inner
// loop (spec.md §9: "bound COST_MAX * (N+1) < 2^62").
var ErrMagnitudeOverflow = errors.New("course: problem too large for safe cost-sentinel magnitudes")

// Choice is one ranked course preference: smaller Penalty is more preferred.
type Choice struct {
	Course  int
	Penalty int64
}

// Participant is one event participant: a name (opaque to the core beyond
// round-tripping it) and an ordered list of course choices.
type Participant struct {
	Name    string
	Choices []Choice
}

// Course is one offered course.
type Course struct {
	Name        string
	MinSize     int
	MaxSize     int
	Instructors []int // participant indices
	Fixed       bool  // cannot be cancelled

	// RoomOffset and RoomFactor parameterize the room-fitting extension's
	// effective-size formula (spec.md §4.4). A zero RoomFactor is treated
	// as the default of 1.
	RoomOffset float64
	RoomFactor float64
}

func (c Course) effectiveRoomFactor() float64 {
	if c.RoomFactor == 0 {
		return 1
	}
	return c.RoomFactor
}

// EffectiveSize is the room-fitting size for a course running with the
// given attendee count (non-instructor participants only); instructors are
// added separately since callers usually already track them.
func (c Course) EffectiveSize(attendees, instructors int) float64 {
	return c.RoomOffset + c.effectiveRoomFactor()*float64(attendees+instructors)
}

// Problem is a fully validated, immutable course-assignment instance for a
// single track. Construct with NewProblem; the zero value is not valid.
type Problem struct {
	Courses      []Course
	Participants []Participant
	// Rooms is an optional multiset of room capacities, kept in the order
	// given; the room-fitting check sorts its own copy. A nil/empty Rooms
	// disables the room-fitting extension.
	Rooms []float64

	// penaltyMax and infeasibleCost are the PENALTY_MAX / INFEASIBLE_COST
	// sentinels from spec.md §4.3/§9, derived from the instance at load
	// time rather than hard-coded.
	penaltyMax     int64
	infeasibleCost int64
}

// instructorOf maps participant index to the course they instruct, or -1.
func (p *Problem) instructorOf(participant int) int {
	for ci, c := range p.Courses {
		for _, ins := range c.Instructors {
			if ins == participant {
				return ci
			}
		}
	}
	return -1
}

// NewProblem validates courses/participants/rooms and computes the cost
// sentinels, returning a ready-to-solve Problem.
func NewProblem(courses []Course, participants []Participant, rooms []float64) (*Problem, error) {
	nc := len(courses)
	np := len(participants)

	instructorCount := make([]int, nc)
	instructedBy := make([]int, np)
	for i := range instructedBy {
		instructedBy[i] = -1
	}

	for ci, c := range courses {
		if c.MinSize < 0 || c.MaxSize < c.MinSize {
			return nil, fmt.Errorf("%w: course %d (min=%d, max=%d)", ErrInvalidSize, ci, c.MinSize, c.MaxSize)
		}
		for _, ins := range c.Instructors {
			if ins < 0 || ins >= np {
				return nil, fmt.Errorf("%w: course %d instructor %d", ErrInvalidIndex, ci, ins)
			}
			if instructedBy[ins] != -1 {
				return nil, fmt.Errorf("%w: participant %d instructs courses %d and %d", ErrMultiInstructor, ins, instructedBy[ins], ci)
			}
			instructedBy[ins] = ci
			instructorCount[ci]++
		}
		if c.MinSize < instructorCount[ci] {
			return nil, fmt.Errorf("%w: course %d", ErrUnrunnableCourse, ci)
		}
	}

	var maxPenalty int64
	for pi, pt := range participants {
		for _, ch := range pt.Choices {
			if ch.Course < 0 || ch.Course >= nc {
				return nil, fmt.Errorf("%w: participant %d choice course %d", ErrInvalidIndex, pi, ch.Course)
			}
			if ch.Penalty < 0 {
				return nil, fmt.Errorf("%w: participant %d course %d", ErrNegativePenalty, pi, ch.Course)
			}
			if ch.Penalty > maxPenalty {
				maxPenalty = ch.Penalty
			}
		}
	}

	penaltyMax := maxPenalty + 1

	// infeasibleCost must dominate any sum of at most np penaltyMax terms,
	// and (infeasibleCost)*(np+1) must stay well under 2^62 so the
	// Hungarian solver's potential/slack arithmetic cannot overflow.
	n64 := int64(np) + 2
	if penaltyMax != 0 && n64 > (int64(1)<<61)/penaltyMax {
		return nil, ErrMagnitudeOverflow
	}
	infeasibleCost := penaltyMax * n64
	if infeasibleCost != 0 && int64(np)+1 > (int64(1)<<62)/infeasibleCost {
		return nil, ErrMagnitudeOverflow
	}

	return &Problem{
		Courses:        append([]Course(nil), courses...),
		Participants:   append([]Participant(nil), participants...),
		Rooms:          append([]float64(nil), rooms...),
		penaltyMax:     penaltyMax,
		infeasibleCost: infeasibleCost,
	}, nil
}
