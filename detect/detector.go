package detect

import (
	"fmt"
	"log/slog"

	"github.com/argusvision/argus/video"
)

// Detection is a single normalized, filtered object detection.
type Detection struct {
	ClassName  string  `json:"class_name"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"bbox"`
}

// FrameDetections holds all detections from a single frame.  A frame with
// zero detections is a valid, non-error record.
type FrameDetections struct {
	FrameNumber int         `json:"frame_number"`
	TimestampMS float64     `json:"timestamp_ms"`
	Detections  []Detection `json:"detections"`
}

// Summary holds aggregate statistics over a detection run.
type Summary struct {
	TotalDetections         int            `json:"total_detections"`
	ByClass                 map[string]int `json:"by_class"`
	AvgConfidence           float64        `json:"avg_confidence"`
	FramesWithDetections    int            `json:"frames_with_detections"`
	FramesWithoutDetections int            `json:"frames_without_detections"`
}

// Detector runs stateless per frame object detection.  Unlike the tracker
// it keeps no cross-frame state, each frame is independent and frames may
// be processed in any order.
type Detector struct {
	oracle Oracle
	filter *Filter
	log    *slog.Logger
}

// NewDetector returns a Detector running the given oracle with results
// normalized and filtered by filter.
func NewDetector(oracle Oracle, filter *Filter) *Detector {
	return &Detector{
		oracle: oracle,
		filter: filter,
		log:    slog.Default().With("component", "detect"),
	}
}

// DetectFrame runs detection on a single frame and returns the filtered
// detections.
func (d *Detector) DetectFrame(frame *video.Frame) (FrameDetections, error) {

	out := FrameDetections{
		FrameNumber: frame.Number,
		TimestampMS: frame.TimestampMS,
	}

	observations, err := d.oracle.Observe(frame)

	if err != nil {
		return out, fmt.Errorf("oracle failed on frame %d: %w", frame.Number, err)
	}

	for _, obs := range observations {

		domain, ok := d.filter.Normalize(obs)

		if !ok {
			continue
		}

		out.Detections = append(out.Detections, Detection{
			ClassName:  domain,
			Confidence: obs.Confidence,
			Box:        obs.Box,
		})
	}

	return out, nil
}

// Summarize computes aggregate statistics over the given frame records.
// AvgConfidence is 0.0 when no detections exist.
func Summarize(frames []FrameDetections) Summary {

	s := Summary{
		ByClass: make(map[string]int),
	}

	confSum := 0.0

	for _, frame := range frames {

		if len(frame.Detections) > 0 {
			s.FramesWithDetections++
		} else {
			s.FramesWithoutDetections++
		}

		for _, det := range frame.Detections {
			s.TotalDetections++
			s.ByClass[det.ClassName]++
			confSum += det.Confidence
		}
	}

	if s.TotalDetections > 0 {
		s.AvgConfidence = confSum / float64(s.TotalDetections)
	}

	return s
}
