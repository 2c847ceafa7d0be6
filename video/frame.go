package video

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Frame is a single decoded video frame with its stream position.  Frames
// produced by a Source are strictly increasing by Number.
type Frame struct {
	// Number is the 0-indexed frame number within the source video
	Number int
	// TimestampMS is the frame's presentation time in milliseconds
	TimestampMS float64
	// Image is the decoded frame pixels.  Ownership stays with the
	// producing Source, consumers must not retain it across calls
	Image gocv.Mat
}

func (f *Frame) String() string {
	return fmt.Sprintf("Frame(%d @ %.1fms)", f.Number, f.TimestampMS)
}

// VideoInfo is the metadata of a source video file.
type VideoInfo struct {
	Path            string  `json:"path"`
	TotalFrames     int     `json:"total_frames"`
	FPS             float64 `json:"fps"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	DurationSeconds float64 `json:"duration_seconds"`
	Codec           string  `json:"codec"`
}

// Source produces an ordered, lazy sequence of frames.  Next returns the
// next frame and true, or a zero Frame and false once the stream is
// exhausted.  A decode failure mid-stream is returned as an error.
// Consumers may stop pulling at any point.
type Source interface {
	Info() VideoInfo
	Next() (Frame, bool, error)
}
