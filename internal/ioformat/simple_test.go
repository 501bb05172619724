package ioformat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const simpleDoc = `{
  "courses": [
    {"name": "A", "num_min": 1, "num_max": 2, "instructors": [0]},
    {"name": "B", "num_min": 1, "num_max": 2, "instructors": [1], "hidden_participant_names": ["p2"]}
  ],
  "participants": [
    {"name": "iA", "choices": []},
    {"name": "iB", "choices": []},
    {"name": "p1", "choices": [0, {"course": 1, "penalty": 3}]},
    {"name": "p2", "choices": [{"course": 1, "penalty": 0}]}
  ]
}`

func TestDecodeSimple_MixedChoiceShapes(t *testing.T) {
	inst, err := DecodeSimple([]byte(simpleDoc))
	require.NoError(t, err)
	require.Len(t, inst.Participants, 4)

	p1 := inst.Participants[2]
	require.Len(t, p1.Choices, 2)
	assert.Equal(t, 0, p1.Choices[0].Course)
	assert.Equal(t, int64(0), p1.Choices[0].Penalty)
	assert.Equal(t, 1, p1.Choices[1].Course)
	assert.Equal(t, int64(3), p1.Choices[1].Penalty)
}

func TestSimpleInstance_ToProblem(t *testing.T) {
	inst, err := DecodeSimple([]byte(simpleDoc))
	require.NoError(t, err)

	p, err := inst.ToProblem()
	require.NoError(t, err)
	require.Len(t, p.Courses, 2)
	require.Len(t, p.Participants, 4)
	assert.Equal(t, []int{0}, p.Courses[0].Instructors)
}

func TestHiddenParticipants(t *testing.T) {
	inst, err := DecodeSimple([]byte(simpleDoc))
	require.NoError(t, err)

	hidden := HiddenParticipants(inst, 1)
	assert.True(t, hidden["p2"])
	assert.False(t, hidden["p1"])

	assert.Empty(t, HiddenParticipants(inst, 99))
}

func TestEncodeSimpleResult_RoundTrip(t *testing.T) {
	sol := courseSolutionFixture()
	data, err := EncodeSimpleResult(sol)
	require.NoError(t, err)

	var res SimpleResult
	require.NoError(t, decodeJSON(data, &res))
	assert.Equal(t, sol.Assignment, res.Assignment)
}
