package ioformat

import (
	"encoding/json"
	"fmt"

	"github.com/cde-ev/cdecao/internal/course"
)

// EventExport is a thin model of the upstream database export this tool
// consumes in production: several tracks, each with its own courses and
// per-participant choices. Only the fields needed to populate a
// course.Problem and to re-serialize an assignment patch are modeled; the
// rest of the upstream schema is out of scope per spec.md §1.
type EventExport struct {
	Tracks []ExportTrack `json:"tracks"`
}

// ExportTrack is one scheduling track within an event export.
type ExportTrack struct {
	ID           string              `json:"id"`
	Courses      []SimpleCourse      `json:"courses"`
	Participants []SimpleParticipant `json:"participants"`
}

// ErrTrackNotFound is returned when FlattenTrack is asked for a track id
// the export does not contain.
type ErrTrackNotFound string

func (e ErrTrackNotFound) Error() string {
	return fmt.Sprintf("ioformat: track %q not found in event export", string(e))
}

// DecodeEventExport parses an event-export document.
func DecodeEventExport(data []byte) (*EventExport, error) {
	var ex EventExport
	if err := json.Unmarshal(data, &ex); err != nil {
		return nil, fmt.Errorf("ioformat: decode event export: %w", err)
	}
	return &ex, nil
}

// FlattenTrack picks one track by id and flattens it down to the core's
// Problem representation, returning the SimpleInstance view alongside it
// so a caller can later re-attach names (e.g. hidden_participant_names,
// or the patch re-emission below).
func (ex *EventExport) FlattenTrack(trackID string) (*course.Problem, *SimpleInstance, error) {
	for _, t := range ex.Tracks {
		if t.ID != trackID {
			continue
		}
		inst := &SimpleInstance{Courses: t.Courses, Participants: t.Participants}
		p, err := inst.ToProblem()
		if err != nil {
			return nil, nil, err
		}
		return p, inst, nil
	}
	return nil, nil, ErrTrackNotFound(trackID)
}

// TrackPatch is the re-import document emitted for one solved track: the
// upstream system matches it back by track id and participant index.
type TrackPatch struct {
	TrackID    string `json:"track_id"`
	Assignment []int  `json:"assignment"`
}

// EncodeTrackPatch renders a solved track's assignment as a re-importable
// patch object.
func EncodeTrackPatch(trackID string, sol course.Solution) ([]byte, error) {
	patch := TrackPatch{TrackID: trackID, Assignment: sol.Assignment}
	data, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("ioformat: encode track patch: %w", err)
	}
	return data, nil
}
