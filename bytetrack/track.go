// Package bytetrack layers BYTE style multi-object association over any
// stateless detection oracle, assigning persistent identities to
// detections by IoU matching against Kalman predicted track positions.
//
// Identity continuity is an approximation of physical object continuity,
// not re-identification.  An object occluded for longer than the
// configured loss tolerance loses its identity and reappears under a new
// one, and an identity freed that way may effectively be recycled for a
// different object.
package bytetrack

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// rect is a box in top-left x, y, width, height pixel coordinates.
type rect struct {
	x, y, w, h float64
}

// xyah converts the box to center x, center y, aspect ratio, height
// measurement form.
func (r rect) xyah() [4]float64 {
	return [4]float64{r.x + r.w/2, r.y + r.h/2, r.w / r.h, r.h}
}

// iou computes the intersection over union of two boxes.
func (r rect) iou(o rect) float64 {

	iw := math.Min(r.x+r.w, o.x+o.w) - math.Max(r.x, o.x)

	if iw <= 0 {
		return 0
	}

	ih := math.Min(r.y+r.h, o.y+o.h) - math.Max(r.y, o.y)

	if ih <= 0 {
		return 0
	}

	union := r.w*r.h + o.w*o.h - iw*ih

	return iw * ih / union
}

// trackState is the lifecycle state of one track.
type trackState int

const (
	stateNew trackState = iota
	stateTracked
	stateLost
	stateRemoved
)

// strack is a single track, the Kalman state and lifecycle bookkeeping
// for one identity.
type strack struct {
	id    int
	kf    *kalmanFilter
	mean  *mat.VecDense
	cov   *mat.Dense
	rect  rect
	state trackState
	// activated is set once the track has been confirmed by a second
	// observation (or on the first frame of the run).  Only activated
	// tracks expose their identity
	activated  bool
	score      float64
	startFrame int
	lastFrame  int
}

func newSTrack(r rect, score float64) *strack {
	return &strack{
		kf:    newKalmanFilter(),
		rect:  r,
		state: stateNew,
		score: score,
	}
}

// activate starts the track's Kalman state and assigns its identity.
// Tracks born on the first frame of the run are activated immediately,
// later ones stay unconfirmed until a second observation matches.
func (s *strack) activate(frame, id int) {

	s.mean, s.cov = s.kf.initiate(s.rect.xyah())

	s.state = stateTracked
	s.activated = frame == firstFrame
	s.id = id
	s.startFrame = frame
	s.lastFrame = frame
}

// predict advances the track one frame through the motion model.
func (s *strack) predict() {

	if s.mean == nil {
		return
	}

	if s.state != stateTracked {
		// zero the height velocity while unobserved
		s.mean.SetVec(7, 0)
	}

	s.kf.predict(s.mean, s.cov)
	s.syncRect()
}

// update folds a matched detection into the track.
func (s *strack) update(det *strack, frame int) error {

	if err := s.kf.correct(s.mean, s.cov, det.rect.xyah()); err != nil {
		return err
	}

	s.syncRect()

	s.state = stateTracked
	s.activated = true
	s.score = det.score
	s.lastFrame = frame

	return nil
}

// syncRect refreshes the pixel box from the Kalman state mean.
func (s *strack) syncRect() {
	h := s.mean.AtVec(3)
	w := s.mean.AtVec(2) * h

	s.rect = rect{
		x: s.mean.AtVec(0) - w/2,
		y: s.mean.AtVec(1) - h/2,
		w: w,
		h: h,
	}
}
