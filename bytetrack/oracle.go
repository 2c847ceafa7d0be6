package bytetrack

import (
	"fmt"
	"log/slog"

	"github.com/argusvision/argus/detect"
	"github.com/argusvision/argus/video"
)

// Oracle upgrades a stateless detection oracle into a tracking oracle.
// Observations from the wrapped backend are associated across frames and
// returned with persistent TrackIDs assigned.  Observations the engine
// has no confirmed identity for yet pass through with TrackID zero.
//
// Like any tracking oracle it is stateful, frames must be submitted in
// stream order by a single caller.
type Oracle struct {
	backend detect.Oracle
	tracker *Tracker
	log     *slog.Logger
}

// NewOracle wraps backend with BYTE association using params.
func NewOracle(backend detect.Oracle, params Params) *Oracle {
	return &Oracle{
		backend: backend,
		tracker: NewTracker(params),
		log:     slog.Default().With("component", "bytetrack"),
	}
}

// Observe runs the backend on the frame and assigns persistent
// identities to its observations.
func (o *Oracle) Observe(frame *video.Frame) ([]detect.RawObservation, error) {

	observations, err := o.backend.Observe(frame)

	if err != nil {
		return nil, err
	}

	dets := make([]Det, len(observations))

	for i, obs := range observations {
		dets[i] = Det{
			Index: i,
			X:     float64(obs.Box.X),
			Y:     float64(obs.Box.Y),
			W:     float64(obs.Box.Width),
			H:     float64(obs.Box.Height),
			Score: obs.Confidence,
		}
	}

	assigned, err := o.tracker.Update(dets)

	if err != nil {
		return nil, fmt.Errorf("association failed on frame %d: %w",
			frame.Number, err)
	}

	for i := range observations {
		if id, ok := assigned[i]; ok {
			observations[i].TrackID = id
		}
	}

	return observations, nil
}

// Reset clears the association state so the oracle can be reused on a
// new, independent stream.  The wrapped backend is untouched.
func (o *Oracle) Reset() {
	o.tracker.Reset()
}
