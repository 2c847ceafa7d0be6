package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/argusvision/argus/detect"
	"github.com/argusvision/argus/video"
)

// ExtractionArtifact is the persisted record of an extract only run.
type ExtractionArtifact struct {
	RunID           string          `json:"run_id"`
	Source          string          `json:"source"`
	StartedAt       time.Time       `json:"started_at"`
	FinishedAt      time.Time       `json:"finished_at"`
	Video           video.VideoInfo `json:"video"`
	TargetFPS       float64         `json:"target_fps"`
	FramesExtracted int             `json:"frames_extracted"`
}

// DetectionArtifact is the persisted record of a detect mode run.
type DetectionArtifact struct {
	RunID      string                   `json:"run_id"`
	Source     string                   `json:"source"`
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt time.Time                `json:"finished_at"`
	Video      video.VideoInfo          `json:"video"`
	Frames     []detect.FrameDetections `json:"frames"`
	Summary    detect.Summary           `json:"summary"`
}

// writeJSON marshals v indented and writes it to path.
func writeJSON(path string, v interface{}) error {

	data, err := json.MarshalIndent(v, "", "  ")

	if err != nil {
		return fmt.Errorf("error marshalling artifact: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("error writing artifact: %w", err)
	}

	return nil
}
