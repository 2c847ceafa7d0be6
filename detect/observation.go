// Package detect defines the detection oracle boundary and the stateless
// per frame detection pipeline.
package detect

import (
	"github.com/argusvision/argus"
	"github.com/argusvision/argus/video"
)

// Box is a bounding box in pixel coordinates within the frame bounds.
type Box struct {
	// X is the top-left x coordinate
	X int `json:"x"`
	// Y is the top-left y coordinate
	Y int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// RawObservation is a single raw result from the detection oracle, in the
// model's native class vocabulary and before any filtering.
type RawObservation struct {
	// NativeClass is the class label in the model's own vocabulary
	NativeClass string
	// Confidence is the detection confidence in [0,1]
	Confidence float64
	// Box is the pixel bounding box of the object
	Box Box
	// TrackID is the persistent identity assigned by a tracking oracle.
	// Zero means no identity has been established for this observation,
	// detect-only oracles never set it
	TrackID int
}

// Oracle is the detection/tracking capability boundary.  Observe runs the
// backend on one frame and returns zero or more raw observations.  A
// tracking oracle is stateful and must be fed frames in order, a
// detect-only oracle is stateless.
type Oracle interface {
	Observe(frame *video.Frame) ([]RawObservation, error)
}

// Filter normalizes raw observations to domain classes and applies the
// configured target class set and confidence threshold.  It is shared by
// the stateless detector and the stateful tracker so both modes see the
// identical class semantics.
type Filter struct {
	classes argus.ClassMap
	targets map[string]bool
	minConf float64
}

// NewFilter returns a Filter for the given class map, target domain
// classes and minimum confidence.
func NewFilter(cm argus.ClassMap, targets []string, minConf float64) *Filter {

	set := make(map[string]bool, len(targets))

	for _, class := range targets {
		set[class] = true
	}

	return &Filter{
		classes: cm,
		targets: set,
		minConf: minConf,
	}
}

// Normalize maps an observation's native class to its domain class.  The
// second return value is false when the observation must be dropped, its
// native class is unmapped, its domain class is out of the target set, or
// its confidence is below the threshold.
func (f *Filter) Normalize(o RawObservation) (string, bool) {

	domain, ok := f.classes.Domain(o.NativeClass)

	if !ok {
		return "", false
	}

	if !f.targets[domain] {
		return "", false
	}

	if o.Confidence < f.minConf {
		return "", false
	}

	return domain, true
}
