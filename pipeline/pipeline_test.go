package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argusvision/argus"
	"github.com/argusvision/argus/detect"
	"github.com/argusvision/argus/track"
	"github.com/argusvision/argus/video"
)

// stubOracle replays scripted observations keyed by frame number.
type stubOracle struct {
	observations map[int][]detect.RawObservation
}

func (s *stubOracle) Observe(frame *video.Frame) ([]detect.RawObservation, error) {
	return s.observations[frame.Number], nil
}

func TestSelectMode(t *testing.T) {

	tests := []struct {
		name     string
		tracking bool
		detect   bool
		want     Mode
	}{
		{"nothing enabled", false, false, ModeExtract},
		{"detection only", false, true, ModeDetect},
		{"tracking only", true, false, ModeTrack},
		{"tracking overrides detection", true, true, ModeTrack},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {

			cfg := argus.DefaultConfig()
			cfg.Tracking.Enabled = tc.tracking
			cfg.Detection.Enabled = tc.detect

			assert.Equal(t, tc.want, SelectMode(&cfg))
		})
	}
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "extract", ModeExtract.String())
	assert.Equal(t, "detect", ModeDetect.String())
	assert.Equal(t, "track", ModeTrack.String())
}

func TestNewRejectsInvalidConfig(t *testing.T) {

	cfg := argus.DefaultConfig()
	cfg.Extraction.TargetFPS = 0

	_, err := New(cfg, argus.DefaultClassMap())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestBuildResult(t *testing.T) {

	oracle := &stubOracle{observations: map[int][]detect.RawObservation{
		0: {{NativeClass: "person", Confidence: 0.9, TrackID: 4,
			Box: detect.Box{X: 10, Y: 10, Width: 20, Height: 40}}},
		1: {{NativeClass: "person", Confidence: 0.8, TrackID: 4,
			Box: detect.Box{X: 14, Y: 10, Width: 20, Height: 40}}},
	}}

	filter := detect.NewFilter(argus.DefaultClassMap(), []string{"person"}, 0.5)
	tracker := track.NewTracker(oracle, filter)

	for i := 0; i < 2; i++ {
		frame := video.Frame{Number: i, TimestampMS: float64(i) * 100}
		_, err := tracker.ProcessFrame(&frame)
		require.NoError(t, err)
	}

	started := time.Now()

	result, err := buildResult(tracker, "run-1", "lobby.mp4", started)
	require.NoError(t, err)

	assert.Equal(t, "run-1", result.RunID)
	assert.Equal(t, "lobby.mp4", result.Source)
	assert.Len(t, result.Frames, 2)
	require.Len(t, result.Trajectories, 1)
	assert.Equal(t, "person_4", result.Trajectories[0].ObjectID)
	assert.Len(t, result.Trajectories[0].Positions, 2)
	assert.Equal(t, 1, result.Summary.TotalUniqueIdentities)
	assert.False(t, result.FinishedAt.Before(started))
}

func TestWriteJSONArtifactFields(t *testing.T) {

	path := filepath.Join(t.TempDir(), "extraction.json")

	art := ExtractionArtifact{
		RunID:           "r",
		Source:          "v.mp4",
		StartedAt:       time.Now(),
		FinishedAt:      time.Now(),
		TargetFPS:       5,
		FramesExtracted: 7,
	}

	require.NoError(t, writeJSON(path, art))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &m))

	for _, key := range []string{"run_id", "source", "started_at",
		"finished_at", "video", "target_fps", "frames_extracted"} {
		assert.Contains(t, m, key)
	}

	assert.EqualValues(t, 7, m["frames_extracted"])
}

func TestArtifactPath(t *testing.T) {

	cfg := argus.DefaultConfig()
	cfg.Extraction.OutputDir = "/tmp/out"

	p, err := New(cfg, argus.DefaultClassMap())
	require.NoError(t, err)

	got := p.artifactPath("videos/front_lobby.mp4", "tracking.json")
	assert.Equal(t, filepath.Join("/tmp/out", "front_lobby_tracking.json"), got)
}

func TestDetectionsToTracked(t *testing.T) {

	dets := []detect.Detection{
		{ClassName: "vehicle", Confidence: 0.77,
			Box: detect.Box{X: 1, Y: 2, Width: 3, Height: 4}},
	}

	out := detectionsToTracked(dets)

	require.Len(t, out, 1)
	assert.Equal(t, "vehicle", out[0].ClassName)
	assert.Equal(t, 0.77, out[0].Confidence)
	assert.Equal(t, dets[0].Box, out[0].Box)
	assert.False(t, out[0].Tracked())
}
