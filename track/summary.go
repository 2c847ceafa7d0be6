package track

// BuildSummary computes aggregate statistics as a pure read of the
// accumulated state.  Repeated calls with no intervening processing
// return identical results.  All counters are zero and AvgConfidence is
// 0.0, never undefined, when nothing has been tracked.
func (t *Tracker) BuildSummary() Summary {

	s := Summary{
		TotalUniqueIdentities: len(t.tracks),
		ByClass:               make(map[string]int),
	}

	for _, state := range t.tracks {
		s.ByClass[state.class]++
	}

	for i := range t.frames {
		if t.frames[i].TrackedCount() > 0 {
			s.FramesWithTracks++
		}
	}

	s.FramesWithoutTracks = len(t.frames) - s.FramesWithTracks

	if t.trackedCount > 0 {
		s.AvgConfidence = t.confSum / float64(t.trackedCount)
	}

	return s
}
