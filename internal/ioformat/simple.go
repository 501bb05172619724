// Package ioformat decodes and encodes the JSON formats the core
// course package never needs to know about: the self-contained "Simple"
// format and a partial flattener for the upstream event-export format.
// The core only ever sees course.Problem/course.Solution by index; names
// and presentation concerns (hidden_participant_names) live entirely here.
package ioformat

import (
	"encoding/json"
	"fmt"

	"github.com/cde-ev/cdecao/internal/course"
)

// SimpleCourse is one entry of the Simple format's "courses" array.
type SimpleCourse struct {
	Name                  string   `json:"name"`
	NumMin                int      `json:"num_min"`
	NumMax                int      `json:"num_max"`
	Instructors           []int    `json:"instructors"`
	RoomOffset            *float64 `json:"room_offset,omitempty"`
	RoomFactor            *float64 `json:"room_factor,omitempty"`
	FixedCourse           bool     `json:"fixed_course,omitempty"`
	HiddenParticipantName []string `json:"hidden_participant_names,omitempty"`
}

// SimpleChoice is either a bare course index or an object with a penalty;
// UnmarshalJSON accepts both shapes per spec.md §6.
type SimpleChoice struct {
	Course  int
	Penalty int64
}

// UnmarshalJSON accepts a bare integer (implicit ascending penalty by
// position is NOT assumed here -- penalty 0 is used when bare, matching
// "an index with no penalty means most preferred among bare entries")
// or an object {"course": i, "penalty": p}.
func (c *SimpleChoice) UnmarshalJSON(data []byte) error {
	var bare int
	if err := json.Unmarshal(data, &bare); err == nil {
		c.Course = bare
		c.Penalty = 0
		return nil
	}

	var obj struct {
		Course  int   `json:"course"`
		Penalty int64 `json:"penalty"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("ioformat: choice must be a bare course index or {course, penalty}: %w", err)
	}
	c.Course = obj.Course
	c.Penalty = obj.Penalty
	return nil
}

// MarshalJSON round-trips as the object form; the bare-index shorthand is
// an input-only convenience.
func (c SimpleChoice) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Course  int   `json:"course"`
		Penalty int64 `json:"penalty"`
	}{c.Course, c.Penalty})
}

// SimpleParticipant is one entry of the Simple format's "participants" array.
type SimpleParticipant struct {
	Name    string         `json:"name"`
	Choices []SimpleChoice `json:"choices"`
}

// SimpleInstance is the Simple format's input document.
type SimpleInstance struct {
	Courses      []SimpleCourse      `json:"courses"`
	Participants []SimpleParticipant `json:"participants"`
	Rooms        []float64           `json:"rooms,omitempty"`
}

// SimpleResult is the Simple format's output document.
type SimpleResult struct {
	Assignment []int `json:"assignment"`
}

// DecodeSimple parses a Simple-format instance document.
func DecodeSimple(data []byte) (*SimpleInstance, error) {
	var inst SimpleInstance
	if err := json.Unmarshal(data, &inst); err != nil {
		return nil, fmt.Errorf("ioformat: decode simple instance: %w", err)
	}
	return &inst, nil
}

// ToProblem converts a Simple-format instance into the core's Problem
// representation. Names are copied through for round-tripping; the solver
// itself works only with indices.
func (inst *SimpleInstance) ToProblem() (*course.Problem, error) {
	courses := make([]course.Course, len(inst.Courses))
	for i, sc := range inst.Courses {
		c := course.Course{
			Name:        sc.Name,
			MinSize:     sc.NumMin,
			MaxSize:     sc.NumMax,
			Instructors: append([]int(nil), sc.Instructors...),
			Fixed:       sc.FixedCourse,
		}
		if sc.RoomOffset != nil {
			c.RoomOffset = *sc.RoomOffset
		}
		if sc.RoomFactor != nil {
			c.RoomFactor = *sc.RoomFactor
		}
		courses[i] = c
	}

	participants := make([]course.Participant, len(inst.Participants))
	for i, sp := range inst.Participants {
		choices := make([]course.Choice, len(sp.Choices))
		for j, ch := range sp.Choices {
			choices[j] = course.Choice{Course: ch.Course, Penalty: ch.Penalty}
		}
		participants[i] = course.Participant{Name: sp.Name, Choices: choices}
	}

	return course.NewProblem(courses, participants, inst.Rooms)
}

// EncodeSimpleResult renders a solved course.Solution as the Simple
// format's output document, indexed by input participant order.
func EncodeSimpleResult(sol course.Solution) ([]byte, error) {
	res := SimpleResult{Assignment: sol.Assignment}
	data, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("ioformat: encode simple result: %w", err)
	}
	return data, nil
}

// HiddenParticipants returns the set of participant names that a course's
// hidden_participant_names field says should be excluded from printed or
// exported output for that course. Purely a presentation concern -- it
// never reaches course.Problem.
func HiddenParticipants(inst *SimpleInstance, courseIdx int) map[string]bool {
	hidden := make(map[string]bool)
	if courseIdx < 0 || courseIdx >= len(inst.Courses) {
		return hidden
	}
	for _, name := range inst.Courses[courseIdx].HiddenParticipantName {
		hidden[name] = true
	}
	return hidden
}

// ParticipantNames returns the Simple-format participant names in input
// order, for presentation layers (printing, event-export re-emission)
// that need to attach a name back onto a core-returned assignment index.
func (inst *SimpleInstance) ParticipantNames() []string {
	names := make([]string, len(inst.Participants))
	for i, p := range inst.Participants {
		names[i] = p.Name
	}
	return names
}
