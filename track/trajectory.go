package track

import "sort"

// BuildTrajectories derives the ordered trajectory collection from the
// current accumulator state.  It may be called at any time, mid-run or
// after, and never mutates the accumulator, repeated calls with no
// intervening processing return identical results.
//
// Entries within a trajectory are ascending by frame number by
// construction.  The builder asserts this rather than re-sorting, a
// violation is returned as an InvariantError since it signals frames were
// ingested out of order.  The collection is ordered by first-seen frame
// ascending, tie-broken by identity string, so output is deterministic
// and repeatable for identical input.  Zero accumulated identities yields
// an empty collection, not an error.
func (t *Tracker) BuildTrajectories() ([]ObjectTrajectory, error) {

	trajectories := make([]ObjectTrajectory, 0, len(t.tracks))

	for _, state := range t.tracks {

		if len(state.points) == 0 {
			continue
		}

		for i := 1; i < len(state.points); i++ {
			if state.points[i].FrameNumber <= state.points[i-1].FrameNumber {
				return nil, &InvariantError{
					ObjectID: state.objectID,
					Detail: "trajectory entries not strictly ascending " +
						"by frame number",
				}
			}
		}

		// copy position entries so callers cannot mutate the accumulator
		// through the derived view
		positions := make([]TrajectoryPoint, len(state.points))
		copy(positions, state.points)

		trajectories = append(trajectories, ObjectTrajectory{
			ObjectID:  state.objectID,
			ClassName: state.class,
			FirstSeen: positions[0].FrameNumber,
			LastSeen:  positions[len(positions)-1].FrameNumber,
			Positions: positions,
		})
	}

	sort.Slice(trajectories, func(i, j int) bool {

		if trajectories[i].FirstSeen != trajectories[j].FirstSeen {
			return trajectories[i].FirstSeen < trajectories[j].FirstSeen
		}

		return trajectories[i].ObjectID < trajectories[j].ObjectID
	})

	return trajectories, nil
}
