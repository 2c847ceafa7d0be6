package bytetrack

import (
	"testing"

	"github.com/argusvision/argus/detect"
	"github.com/argusvision/argus/video"
)

// stubBackend replays scripted observations per frame number.
type stubBackend struct {
	observations map[int][]detect.RawObservation
}

func (s *stubBackend) Observe(frame *video.Frame) ([]detect.RawObservation, error) {

	// return copies so TrackID assignment does not leak between runs
	src := s.observations[frame.Number]
	out := make([]detect.RawObservation, len(src))
	copy(out, src)

	return out, nil
}

func obs(x, y, w, h int, conf float64) detect.RawObservation {
	return detect.RawObservation{
		NativeClass: "person",
		Confidence:  conf,
		Box:         detect.Box{X: x, Y: y, Width: w, Height: h},
	}
}

func observe(t *testing.T, o *Oracle, n int) []detect.RawObservation {
	t.Helper()

	result, err := o.Observe(&video.Frame{Number: n, TimestampMS: float64(n) * 100})

	if err != nil {
		t.Fatalf("Observe(%d) failed: %v", n, err)
	}

	return result
}

func TestIdentityContinuity(t *testing.T) {

	backend := &stubBackend{observations: map[int][]detect.RawObservation{}}

	// one object drifting right across 5 frames
	for i := 0; i < 5; i++ {
		backend.observations[i] = []detect.RawObservation{
			obs(100+i*4, 200, 60, 140, 0.9),
		}
	}

	o := NewOracle(backend, DefaultParams(30))

	for i := 0; i < 5; i++ {
		result := observe(t, o, i)

		if len(result) != 1 {
			t.Fatalf("frame %d: got %d observations, want 1", i, len(result))
		}

		// present from the first frame, so the identity is assigned
		// immediately and must never change
		if result[0].TrackID != 1 {
			t.Errorf("frame %d: TrackID = %d, want 1", i, result[0].TrackID)
		}
	}
}

func TestDistinctObjectsDistinctIdentities(t *testing.T) {

	backend := &stubBackend{observations: map[int][]detect.RawObservation{}}

	for i := 0; i < 3; i++ {
		backend.observations[i] = []detect.RawObservation{
			obs(50+i*2, 100, 40, 100, 0.9),
			obs(400-i*2, 300, 80, 60, 0.85),
		}
	}

	o := NewOracle(backend, DefaultParams(30))

	for i := 0; i < 3; i++ {
		result := observe(t, o, i)

		if result[0].TrackID == 0 || result[1].TrackID == 0 {
			t.Fatalf("frame %d: missing identity: %d, %d",
				i, result[0].TrackID, result[1].TrackID)
		}

		if result[0].TrackID == result[1].TrackID {
			t.Errorf("frame %d: objects share identity %d", i, result[0].TrackID)
		}
	}
}

func TestLateAppearanceUnconfirmedFirst(t *testing.T) {

	backend := &stubBackend{observations: map[int][]detect.RawObservation{}}

	// first object present from frame 0, second appears on frame 2
	for i := 0; i < 5; i++ {
		backend.observations[i] = []detect.RawObservation{
			obs(100, 100, 50, 120, 0.9),
		}
	}

	for i := 2; i < 5; i++ {
		backend.observations[i] = append(backend.observations[i],
			obs(400, 300, 70, 90, 0.9))
	}

	o := NewOracle(backend, DefaultParams(30))

	observe(t, o, 0)
	observe(t, o, 1)

	// first sighting of the late object has no confirmed identity yet
	result := observe(t, o, 2)

	if result[1].TrackID != 0 {
		t.Errorf("frame 2: late object TrackID = %d, want 0 (unconfirmed)",
			result[1].TrackID)
	}

	// confirmed on its second sighting
	result = observe(t, o, 3)

	if result[1].TrackID == 0 {
		t.Errorf("frame 3: late object still unconfirmed")
	}

	id := result[1].TrackID

	result = observe(t, o, 4)

	if result[1].TrackID != id {
		t.Errorf("frame 4: late object TrackID = %d, want %d",
			result[1].TrackID, id)
	}
}

func TestIdentityDroppedAfterLossTolerance(t *testing.T) {

	backend := &stubBackend{observations: map[int][]detect.RawObservation{}}

	// present frames 0-1, absent frames 2-5, back on frame 6
	for _, i := range []int{0, 1, 6, 7} {
		backend.observations[i] = []detect.RawObservation{
			obs(100, 100, 50, 120, 0.9),
		}
	}

	o := NewOracle(backend, DefaultParams(2))

	var firstID int

	for i := 0; i < 8; i++ {
		result := observe(t, o, i)

		if i == 1 {
			firstID = result[0].TrackID

			if firstID == 0 {
				t.Fatal("object not tracked by frame 1")
			}
		}

		if i == 7 {
			if result[0].TrackID == 0 {
				t.Fatal("reappeared object never re-confirmed")
			}

			if result[0].TrackID == firstID {
				t.Errorf("identity %d survived a gap beyond the loss "+
					"tolerance", firstID)
			}
		}
	}
}

func TestOracleReset(t *testing.T) {

	backend := &stubBackend{observations: map[int][]detect.RawObservation{}}

	for i := 0; i < 2; i++ {
		backend.observations[i] = []detect.RawObservation{
			obs(100, 100, 50, 120, 0.9),
		}
	}

	o := NewOracle(backend, DefaultParams(30))

	first := observe(t, o, 0)
	observe(t, o, 1)

	o.Reset()

	// a fresh run assigns the same first identity again
	again := observe(t, o, 0)

	if again[0].TrackID != first[0].TrackID {
		t.Errorf("TrackID after reset = %d, want %d",
			again[0].TrackID, first[0].TrackID)
	}
}

func TestLowConfidenceKeepsExistingTrack(t *testing.T) {

	backend := &stubBackend{observations: map[int][]detect.RawObservation{}}

	// strong sightings establish the track, a weak one sustains it
	backend.observations[0] = []detect.RawObservation{obs(100, 100, 50, 120, 0.9)}
	backend.observations[1] = []detect.RawObservation{obs(102, 100, 50, 120, 0.9)}
	backend.observations[2] = []detect.RawObservation{obs(104, 100, 50, 120, 0.3)}
	backend.observations[3] = []detect.RawObservation{obs(106, 100, 50, 120, 0.9)}

	o := NewOracle(backend, DefaultParams(30))

	observe(t, o, 0)
	observe(t, o, 1)

	// the low confidence sighting is associated in the second stage and
	// keeps the identity alive
	result := observe(t, o, 2)

	if result[0].TrackID != 1 {
		t.Errorf("frame 2: TrackID = %d, want 1 via low confidence stage",
			result[0].TrackID)
	}

	result = observe(t, o, 3)

	if result[0].TrackID != 1 {
		t.Errorf("frame 3: TrackID = %d, want 1", result[0].TrackID)
	}
}

func TestRectIoU(t *testing.T) {

	tests := []struct {
		name string
		a, b rect
		want float64
	}{
		{"identical", rect{0, 0, 10, 10}, rect{0, 0, 10, 10}, 1.0},
		{"disjoint", rect{0, 0, 10, 10}, rect{20, 20, 10, 10}, 0.0},
		{"half overlap", rect{0, 0, 10, 10}, rect{5, 0, 10, 10}, 1.0 / 3.0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {

			got := tc.a.iou(tc.b)

			if diff := got - tc.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("iou = %v, want %v", got, tc.want)
			}
		})
	}
}
