package bytetrack

import (
	"fmt"
	"sort"
)

// firstFrame is the internal frame counter value of the first processed
// frame, tracks born on it are activated without confirmation.
const firstFrame = 1

// Det is one detection candidate fed to the association engine.  Index
// identifies the detection within the caller's frame so assignments can
// be mapped back.
type Det struct {
	Index int
	X, Y  float64
	W, H  float64
	Score float64
}

// Params tunes the association engine.
type Params struct {
	// TrackThresh splits detections into the high and low confidence
	// association stages
	TrackThresh float64
	// HighThresh is the minimum score for an unmatched detection to
	// start a new track
	HighThresh float64
	// MatchThresh is the minimum IoU for the first association stage
	MatchThresh float64
	// MaxLost is the number of frames a track survives unobserved
	// before its identity is dropped
	MaxLost int
}

// DefaultParams returns the standard BYTE association thresholds with
// the given loss tolerance.
func DefaultParams(maxLost int) Params {
	return Params{
		TrackThresh: 0.5,
		HighThresh:  0.6,
		MatchThresh: 0.2,
		MaxLost:     maxLost,
	}
}

// Tracker is the BYTE association engine.  It is stateful and single
// writer, Update must be called once per frame in stream order.
type Tracker struct {
	params  Params
	frame   int
	nextID  int
	tracked []*strack
	lost    []*strack
}

// NewTracker returns a Tracker with the given association parameters.
func NewTracker(params Params) *Tracker {
	return &Tracker{params: params}
}

// Reset clears all track state so the instance can be reused on a new,
// independent stream.
func (t *Tracker) Reset() {
	t.frame = 0
	t.nextID = 0
	t.tracked = nil
	t.lost = nil
}

// cand pairs a detection's track representation with its input index.
type cand struct {
	s   *strack
	idx int
}

// Update associates one frame of detections against the current tracks
// and returns the identity assignment, a map from detection Index to
// track id.  Detections without an entry have no established identity on
// this frame.
func (t *Tracker) Update(dets []Det) (map[int]int, error) {

	t.frame++

	assigned := make(map[int]int)

	// split detections into high and low confidence candidates
	var high, low []cand

	for _, d := range dets {

		c := cand{
			s:   newSTrack(rect{x: d.X, y: d.Y, w: d.W, h: d.H}, d.Score),
			idx: d.Index,
		}

		if d.Score >= t.params.TrackThresh {
			high = append(high, c)
		} else {
			low = append(low, c)
		}
	}

	// partition existing tracks, unconfirmed ones only match against
	// leftover high confidence detections
	var active, unconfirmed []*strack

	for _, s := range t.tracked {
		if s.activated {
			active = append(active, s)
		} else {
			unconfirmed = append(unconfirmed, s)
		}
	}

	pool := append([]*strack{}, active...)
	pool = append(pool, t.lost...)

	for _, s := range pool {
		s.predict()
	}

	// stage 1: high confidence detections against the full pool
	matchedPool, remainHigh, err := t.associate(pool, high,
		t.params.MatchThresh, assigned)

	if err != nil {
		return nil, err
	}

	var currTracked, currLost, currRemoved []*strack

	for _, s := range matchedPool {
		currTracked = append(currTracked, s)
	}

	// stage 2: low confidence detections recover tracks that were
	// active last frame but missed stage 1
	var remainActive []*strack

	for _, s := range pool {
		if !contains(matchedPool, s) && s.state == stateTracked {
			remainActive = append(remainActive, s)
		}
	}

	matchedLow, _, err := t.associate(remainActive, low, 0.5, assigned)

	if err != nil {
		return nil, err
	}

	currTracked = append(currTracked, matchedLow...)

	for _, s := range remainActive {
		if !contains(matchedLow, s) {
			s.state = stateLost
			currLost = append(currLost, s)
		}
	}

	// stage 3: unconfirmed tracks get one chance against the leftover
	// high confidence detections
	matchedNew, remainHigh, err := t.associate(unconfirmed, remainHigh,
		0.7, assigned)

	if err != nil {
		return nil, err
	}

	currTracked = append(currTracked, matchedNew...)

	for _, s := range unconfirmed {
		if !contains(matchedNew, s) {
			s.state = stateRemoved
			currRemoved = append(currRemoved, s)
		}
	}

	// stage 4: strong leftover detections start new tracks
	for _, c := range remainHigh {

		if c.s.score < t.params.HighThresh {
			continue
		}

		t.nextID++
		c.s.activate(t.frame, t.nextID)
		currTracked = append(currTracked, c.s)

		if c.s.activated {
			assigned[c.idx] = c.s.id
		}
	}

	// stage 5: expire tracks lost beyond the tolerance
	var keptLost []*strack

	for _, s := range t.lost {

		if contains(currTracked, s) {
			continue
		}

		if t.frame-s.lastFrame > t.params.MaxLost {
			s.state = stateRemoved
			currRemoved = append(currRemoved, s)
			continue
		}

		keptLost = append(keptLost, s)
	}

	t.tracked = currTracked
	t.lost = append(keptLost, currLost...)

	return assigned, nil
}

// associate greedily matches tracks to detection candidates best IoU
// first, recording identity assignments for activated tracks.  It
// returns the matched tracks and the unmatched candidates.
func (t *Tracker) associate(tracks []*strack, cands []cand,
	minIoU float64, assigned map[int]int) ([]*strack, []cand, error) {

	type pair struct {
		ti, ci int
		iou    float64
	}

	var pairs []pair

	for ti, s := range tracks {
		for ci, c := range cands {
			if v := s.rect.iou(c.s.rect); v >= minIoU {
				pairs = append(pairs, pair{ti: ti, ci: ci, iou: v})
			}
		}
	}

	// best IoU first, index order on ties for deterministic output
	sort.Slice(pairs, func(i, j int) bool {

		if pairs[i].iou != pairs[j].iou {
			return pairs[i].iou > pairs[j].iou
		}

		if pairs[i].ti != pairs[j].ti {
			return pairs[i].ti < pairs[j].ti
		}

		return pairs[i].ci < pairs[j].ci
	})

	usedTrack := make(map[int]bool)
	usedCand := make(map[int]bool)

	var matched []*strack

	for _, p := range pairs {

		if usedTrack[p.ti] || usedCand[p.ci] {
			continue
		}

		usedTrack[p.ti] = true
		usedCand[p.ci] = true

		s := tracks[p.ti]
		c := cands[p.ci]

		if err := s.update(c.s, t.frame); err != nil {
			return nil, nil, fmt.Errorf("track %d update failed: %w", s.id, err)
		}

		matched = append(matched, s)

		if s.activated {
			assigned[c.idx] = s.id
		}
	}

	var unmatched []cand

	for ci, c := range cands {
		if !usedCand[ci] {
			unmatched = append(unmatched, c)
		}
	}

	return matched, unmatched, nil
}

func contains(list []*strack, s *strack) bool {

	for _, v := range list {
		if v == s {
			return true
		}
	}

	return false
}
