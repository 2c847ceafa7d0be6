package track

import (
	"fmt"
	"log/slog"

	"github.com/argusvision/argus/detect"
	"github.com/argusvision/argus/video"
)

// trackState is the run-scoped accumulator for one identity.
type trackState struct {
	trackID int
	// class is the domain class observed at the identity's first
	// appearance.  It never changes for the lifetime of the identity
	class    string
	objectID string
	points   []TrajectoryPoint
}

// Tracker converts a raw per frame oracle feed into identity-continuous
// frame records while accumulating trajectory state.
//
// A Tracker owns one run's mutable state exclusively and is single
// writer, frames must be submitted sequentially by one caller and Reset
// must not run concurrently with an in-flight ProcessFrame.  Independent
// video sources run on separate Tracker instances, there is no shared
// state between instances.
type Tracker struct {
	oracle detect.Oracle
	filter *detect.Filter
	// skipFailed continues past oracle failures instead of aborting.
	// Unsafe for strict trajectory continuity
	skipFailed bool
	log        *slog.Logger

	// run-scoped accumulator, cleared only by Reset
	frames       []FrameTracking
	tracks       map[int]*trackState
	lastFrame    int
	trackedCount int
	confSum      float64
	anomalies    int
}

// NewTracker returns a Tracker running the given oracle with observations
// normalized and filtered by filter.  The oracle must assign persistent
// identities for trajectories to accumulate, a detect-only oracle yields
// frame records with untracked detections and no trajectories.
func NewTracker(oracle detect.Oracle, filter *detect.Filter) *Tracker {

	t := &Tracker{
		oracle: oracle,
		filter: filter,
		log:    slog.Default().With("component", "track"),
	}

	t.Reset()

	return t
}

// SkipFailedFrames makes the tracker log and continue past per frame
// oracle failures instead of aborting the run.  A skipped frame still
// produces an empty frame record.  This is unsafe for strict trajectory
// continuity, any object in flight across the gap may lose its identity.
func (t *Tracker) SkipFailedFrames(skip bool) {
	t.skipFailed = skip
}

// Reset clears the run-scoped accumulator, making the same instance
// reusable on a new, independent frame stream.  The oracle, filter and
// configuration are untouched.  Must not be called concurrently with an
// in-flight ProcessFrame on the same instance.
func (t *Tracker) Reset() {
	t.frames = make([]FrameTracking, 0)
	t.tracks = make(map[int]*trackState)
	t.lastFrame = -1
	t.trackedCount = 0
	t.confSum = 0
	t.anomalies = 0
}

// ProcessFrame runs the oracle on one frame, normalizes and filters its
// observations, folds identity-carrying observations into the trajectory
// accumulator and returns the frame's tracking record.  A record is
// returned for every frame regardless of detection count.
func (t *Tracker) ProcessFrame(frame *video.Frame) (FrameTracking, error) {

	record := FrameTracking{
		FrameNumber: frame.Number,
		TimestampMS: frame.TimestampMS,
	}

	if frame.Number <= t.lastFrame {
		return record, &OrderError{
			FrameNumber:   frame.Number,
			LastProcessed: t.lastFrame,
		}
	}

	observations, err := t.oracle.Observe(frame)

	if err != nil {

		if !t.skipFailed {
			return record, &OracleError{
				FrameNumber:   frame.Number,
				LastProcessed: t.lastFrame,
				Err:           err,
			}
		}

		// unsafe continuation, record the frame as empty so record
		// count parity with the input stream holds
		t.log.Warn("oracle failed, skipping frame",
			"frame", frame.Number, "err", err)

		t.frames = append(t.frames, record)
		t.lastFrame = frame.Number

		return record, nil
	}

	for _, obs := range observations {

		class, ok := t.filter.Normalize(obs)

		if !ok {
			continue
		}

		det := TrackedDetection{
			ClassName:  class,
			Confidence: obs.Confidence,
			Box:        obs.Box,
		}

		if obs.TrackID > 0 {
			// identity established, fold into the accumulator.  The
			// emitted class is the identity's first-seen class
			state := t.observe(obs.TrackID, class, frame, obs)
			det.TrackID = obs.TrackID
			det.ObjectID = state.objectID
			det.ClassName = state.class

			t.trackedCount++
			t.confSum += obs.Confidence
		}

		record.Detections = append(record.Detections, det)
	}

	t.frames = append(t.frames, record)
	t.lastFrame = frame.Number

	return record, nil
}

// ProcessStream pulls frames from src until it is exhausted, processing
// each in order.  It returns the frame records emitted so far along with
// the first error encountered.  On error the accumulated trajectories and
// summary remain valid as a partial result.
func (t *Tracker) ProcessStream(src video.Source) ([]FrameTracking, error) {

	var records []FrameTracking

	for {
		frame, ok, err := src.Next()

		if err != nil {
			return records, fmt.Errorf("frame source failed: %w", err)
		}

		if !ok {
			return records, nil
		}

		record, err := t.ProcessFrame(&frame)

		if err != nil {
			return records, err
		}

		records = append(records, record)
	}
}

// Frames returns the accumulated frame records of the current run.
func (t *Tracker) Frames() []FrameTracking {
	return t.frames
}

// FramesProcessed returns the number of frames processed this run.
func (t *Tracker) FramesProcessed() int {
	return len(t.frames)
}

// Anomalies returns the number of class conflict anomalies observed this
// run.
func (t *Tracker) Anomalies() int {
	return t.anomalies
}

// observe folds a single identity-carrying observation into the
// accumulator, creating the identity's state on first appearance.
func (t *Tracker) observe(trackID int, class string, frame *video.Frame,
	obs detect.RawObservation) *trackState {

	state, exists := t.tracks[trackID]

	if !exists {
		state = &trackState{
			trackID:  trackID,
			class:    class,
			objectID: fmt.Sprintf("%s_%d", class, trackID),
		}
		t.tracks[trackID] = state
	}

	if class != state.class {
		// the oracle reported an existing identity under a different
		// class.  The first-seen class is kept, the trajectory's class
		// is never rewritten retroactively
		t.anomalies++
		t.log.Warn("class conflict for tracked identity",
			"object_id", state.objectID,
			"first_seen_class", state.class,
			"reported_class", class,
			"frame", frame.Number)
	}

	state.points = append(state.points, TrajectoryPoint{
		FrameNumber: frame.Number,
		TimestampMS: frame.TimestampMS,
		Box:         obs.Box,
		Confidence:  obs.Confidence,
	})

	return state
}
