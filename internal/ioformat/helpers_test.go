package ioformat

import (
	"encoding/json"

	"github.com/cde-ev/cdecao/internal/course"
)

func courseSolutionFixture() course.Solution {
	return course.Solution{
		Assignment:     []int{0, 1, 0, 1},
		RunningCourses: []int{0, 1},
		Objective:      3,
	}
}

func decodeJSON(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}
