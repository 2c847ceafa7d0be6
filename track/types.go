// Package track implements stateful multi-object tracking over an ordered
// frame stream.  A Tracker consumes frames once, accumulating per identity
// trajectory state, from which trajectories and summary statistics can be
// derived at any point during or after the run.
package track

import (
	"time"

	"github.com/argusvision/argus/detect"
)

// TrackedDetection is a single normalized detection within a frame.  When
// the oracle has established identity continuity for the object, TrackID
// is set and ObjectID carries the "{class}_{id}" identity unique within
// the run.  Observations the oracle has not yet assigned an identity to
// (first appearance, occlusion recovery) appear with TrackID zero and an
// empty ObjectID, they are part of the frame record but never part of a
// trajectory.
type TrackedDetection struct {
	TrackID    int        `json:"track_id,omitempty"`
	ObjectID   string     `json:"object_id,omitempty"`
	ClassName  string     `json:"class_name"`
	Confidence float64    `json:"confidence"`
	Box        detect.Box `json:"bbox"`
}

// Tracked reports whether the detection carries a persistent identity.
func (d *TrackedDetection) Tracked() bool {
	return d.TrackID > 0
}

// FrameTracking holds all detections for one frame.  A record exists for
// every input frame, zero detections is a valid state.
type FrameTracking struct {
	FrameNumber int                `json:"frame_number"`
	TimestampMS float64            `json:"timestamp_ms"`
	Detections  []TrackedDetection `json:"detections"`
}

// TrackedCount returns the number of detections carrying an identity.
func (f *FrameTracking) TrackedCount() int {

	n := 0

	for i := range f.Detections {
		if f.Detections[i].Tracked() {
			n++
		}
	}

	return n
}

// TrajectoryPoint is one position entry of an object trajectory.
type TrajectoryPoint struct {
	FrameNumber int        `json:"frame_number"`
	TimestampMS float64    `json:"timestamp_ms"`
	Box         detect.Box `json:"bbox"`
	Confidence  float64    `json:"confidence"`
}

// ObjectTrajectory is the ordered position history of one identity.  An
// identity has exactly one domain class for its lifetime, the class
// observed at its first appearance.
type ObjectTrajectory struct {
	ObjectID  string            `json:"object_id"`
	ClassName string            `json:"class_name"`
	FirstSeen int               `json:"first_seen"`
	LastSeen  int               `json:"last_seen"`
	Positions []TrajectoryPoint `json:"positions"`
}

// Summary holds aggregate statistics over a tracking run.  Statistics are
// defined over tracked detections only, untracked frame entries do not
// contribute.
type Summary struct {
	TotalUniqueIdentities int            `json:"total_unique_identities"`
	ByClass               map[string]int `json:"by_class"`
	FramesWithTracks      int            `json:"frames_with_tracks"`
	FramesWithoutTracks   int            `json:"frames_without_tracks"`
	AvgConfidence         float64        `json:"avg_confidence"`
}

// Result is the full output of a tracking run, the persisted artifact
// consumed by downstream phases and dashboards.
type Result struct {
	RunID        string             `json:"run_id"`
	Source       string             `json:"source"`
	StartedAt    time.Time          `json:"started_at"`
	FinishedAt   time.Time          `json:"finished_at"`
	Frames       []FrameTracking    `json:"frames"`
	Trajectories []ObjectTrajectory `json:"trajectories"`
	Summary      Summary            `json:"summary"`
}
