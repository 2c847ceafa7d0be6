package video

import (
	"math"
)

// Extractor samples frames from a Source at a target FPS.  It implements
// Source itself so the downstream pipeline sees a plain frame stream.
//
// Selection is timestamp based rather than a simple frame number modulo so
// it handles fractional rates without drift, for each target interval the
// first frame whose timestamp meets or exceeds the next target time is
// selected.  Frame numbers and timestamps of the source are preserved.
type Extractor struct {
	src       Source
	targetFPS float64
	everyFrm  bool
	interval  float64
	nextMS    float64
	extracted int
}

// NewExtractor returns an Extractor sampling src at targetFPS.  The rate
// is clamped to the source FPS, requesting a rate at or above the source
// rate passes every frame through.
func NewExtractor(src Source, targetFPS float64) *Extractor {

	sourceFPS := src.Info().FPS
	fps := math.Min(targetFPS, sourceFPS)

	e := &Extractor{
		src:       src,
		targetFPS: fps,
	}

	if math.Abs(fps-sourceFPS) < 0.01 {
		e.everyFrm = true
	} else {
		e.interval = 1000.0 / fps
	}

	return e
}

// Info returns the wrapped source's video metadata.
func (e *Extractor) Info() VideoInfo {
	return e.src.Info()
}

// TargetFPS returns the effective sampling rate after clamping.
func (e *Extractor) TargetFPS() float64 {
	return e.targetFPS
}

// Extracted returns the number of frames emitted so far.
func (e *Extractor) Extracted() int {
	return e.extracted
}

// Next returns the next sampled frame, skipping source frames that fall
// between target intervals.
func (e *Extractor) Next() (Frame, bool, error) {

	for {
		frame, ok, err := e.src.Next()

		if err != nil || !ok {
			return Frame{}, false, err
		}

		if e.everyFrm {
			e.extracted++
			return frame, true, nil
		}

		if frame.TimestampMS >= e.nextMS {
			e.nextMS += e.interval
			e.extracted++
			return frame, true, nil
		}
	}
}
