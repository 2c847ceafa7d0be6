// Package pipeline wires the video, detection and tracking stages into
// complete processing runs and persists their result artifacts.
package pipeline

import (
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/argusvision/argus"
	"github.com/argusvision/argus/bytetrack"
	"github.com/argusvision/argus/detect"
	"github.com/argusvision/argus/render"
	"github.com/argusvision/argus/store"
	"github.com/argusvision/argus/track"
	"github.com/argusvision/argus/video"
)

// Mode selects which stages a run executes.
type Mode int

const (
	// ModeExtract samples frames from the video without detection
	ModeExtract Mode = iota
	// ModeDetect runs stateless per frame detection on sampled frames
	ModeDetect
	// ModeTrack runs detection plus identity tracking on sampled frames
	ModeTrack
)

// String returns the mode name used in logs and the run archive.
func (m Mode) String() string {

	switch m {
	case ModeDetect:
		return "detect"
	case ModeTrack:
		return "track"
	default:
		return "extract"
	}
}

// SelectMode resolves the run mode from configuration.  Tracking takes
// precedence over detection since tracking implies detection, the
// detection enabled flag is not consulted when tracking is on.
func SelectMode(cfg *argus.Config) Mode {

	switch {
	case cfg.Tracking.Enabled:
		return ModeTrack
	case cfg.Detection.Enabled:
		return ModeDetect
	default:
		return ModeExtract
	}
}

// Report summarizes a completed run.  Detection and Tracking are set for
// their respective modes only.
type Report struct {
	RunID           string
	Mode            Mode
	Video           video.VideoInfo
	FramesProcessed int
	Detection       *detect.Summary
	Tracking        *track.Result
	// Artifacts lists the files written during the run
	Artifacts []string
}

// Pipeline executes processing runs for one validated configuration.
type Pipeline struct {
	cfg argus.Config
	cm  argus.ClassMap
	log *slog.Logger
}

// New validates cfg against the class map and returns a Pipeline.  A
// validation error here is fatal, no frames are processed.
func New(cfg argus.Config, cm argus.ClassMap) (*Pipeline, error) {

	if err := cfg.Validate(cm); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Pipeline{
		cfg: cfg,
		cm:  cm,
		log: slog.Default().With("component", "pipeline"),
	}, nil
}

// Run executes the configured stages on the given video file.  On a mid
// run failure the returned Report carries whatever was computed before
// the failure alongside the error.
func (p *Pipeline) Run(videoPath string) (*Report, error) {

	mode := SelectMode(&p.cfg)
	runID := uuid.New().String()
	started := time.Now()

	if err := os.MkdirAll(p.cfg.Extraction.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating output directory: %w", err)
	}

	reader, err := video.OpenReader(videoPath, p.cfg.Extraction.SupportedFormats)

	if err != nil {
		return nil, err
	}

	defer reader.Close()

	src := video.NewExtractor(reader, p.cfg.Extraction.TargetFPS)

	p.log.Info("starting run", "run_id", runID, "mode", mode.String(),
		"video", filepath.Base(videoPath), "target_fps", src.TargetFPS())

	// echo the effective configuration for run provenance
	if cfgData, err := json.Marshal(p.cfg); err == nil {
		p.log.Debug("effective config", "run_id", runID,
			"config", string(cfgData))
	}

	report := &Report{RunID: runID, Mode: mode, Video: reader.Info()}

	switch mode {
	case ModeTrack:
		err = p.runTrack(src, report, started)
	case ModeDetect:
		err = p.runDetect(src, report, started)
	default:
		err = p.runExtract(src, report, started)
	}

	if err != nil {
		return report, err
	}

	if err := p.archive(report, started); err != nil {
		// archive failure does not invalidate the computed result
		p.log.Warn("run archive failed", "err", err)
	}

	p.log.Info("run complete", "run_id", runID,
		"frames", report.FramesProcessed,
		"duration", time.Since(started).Round(time.Millisecond))

	return report, nil
}

// runExtract drains the frame stream, recording only the sampled count.
func (p *Pipeline) runExtract(src *video.Extractor, report *Report,
	started time.Time) error {

	sample := gocv.NewMat()
	defer sample.Close()

	for {
		frame, ok, err := src.Next()

		if err != nil {
			return fmt.Errorf("frame source failed: %w", err)
		}

		if !ok {
			break
		}

		if p.cfg.Extraction.SaveSampleFrame && sample.Empty() {
			frame.Image.CopyTo(&sample)
		}
	}

	report.FramesProcessed = src.Extracted()

	art := ExtractionArtifact{
		RunID:           report.RunID,
		Source:          report.Video.Path,
		StartedAt:       started,
		FinishedAt:      time.Now(),
		Video:           report.Video,
		TargetFPS:       src.TargetFPS(),
		FramesExtracted: src.Extracted(),
	}

	path := p.artifactPath(report.Video.Path, "extraction.json")

	if err := writeJSON(path, art); err != nil {
		return err
	}

	report.Artifacts = append(report.Artifacts, path)

	return p.saveSample(report, &sample, nil, nil)
}

// runDetect runs stateless detection over the frame stream.
func (p *Pipeline) runDetect(src *video.Extractor, report *Report,
	started time.Time) error {

	backend, err := p.newBackend()

	if err != nil {
		return err
	}

	defer backend.Close()

	detector := detect.NewDetector(backend, p.newFilter())

	sample := gocv.NewMat()
	defer sample.Close()

	var frames []detect.FrameDetections
	var sampleRecord detect.FrameDetections

	for {
		frame, ok, err := src.Next()

		if err != nil {
			return fmt.Errorf("frame source failed: %w", err)
		}

		if !ok {
			break
		}

		record, err := detector.DetectFrame(&frame)

		if err != nil {
			return err
		}

		frames = append(frames, record)

		// the busiest frame becomes the annotated sample
		if p.cfg.Extraction.SaveSampleFrame && (sample.Empty() ||
			len(record.Detections) > len(sampleRecord.Detections)) {
			frame.Image.CopyTo(&sample)
			sampleRecord = record
		}
	}

	summary := detect.Summarize(frames)
	report.FramesProcessed = len(frames)
	report.Detection = &summary

	art := DetectionArtifact{
		RunID:      report.RunID,
		Source:     report.Video.Path,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Video:      report.Video,
		Frames:     frames,
		Summary:    summary,
	}

	path := p.artifactPath(report.Video.Path, "detections.json")

	if err := writeJSON(path, art); err != nil {
		return err
	}

	report.Artifacts = append(report.Artifacts, path)

	return p.saveSample(report, &sample,
		detectionsToTracked(sampleRecord.Detections), nil)
}

// runTrack runs detection with identity tracking over the frame stream.
func (p *Pipeline) runTrack(src *video.Extractor, report *Report,
	started time.Time) error {

	backend, err := p.newBackend()

	if err != nil {
		return err
	}

	defer backend.Close()

	oracle := bytetrack.NewOracle(backend,
		bytetrack.DefaultParams(p.cfg.Tracking.LostTolerance))

	tracker := track.NewTracker(oracle, p.newFilter())
	tracker.SkipFailedFrames(p.cfg.Tracking.SkipFailedFrames)

	sample := gocv.NewMat()
	defer sample.Close()

	var sampleRecord track.FrameTracking

	for {
		frame, ok, err := src.Next()

		if err != nil {
			return fmt.Errorf("frame source failed: %w", err)
		}

		if !ok {
			break
		}

		record, err := tracker.ProcessFrame(&frame)

		if err != nil {
			return err
		}

		if p.cfg.Extraction.SaveSampleFrame && (sample.Empty() ||
			record.TrackedCount() > sampleRecord.TrackedCount()) {
			frame.Image.CopyTo(&sample)
			sampleRecord = record
		}
	}

	result, err := buildResult(tracker, report.RunID, report.Video.Path, started)

	if err != nil {
		return err
	}

	report.FramesProcessed = tracker.FramesProcessed()
	report.Tracking = result

	path := p.artifactPath(report.Video.Path, "tracking.json")

	if err := writeJSON(path, result); err != nil {
		return err
	}

	report.Artifacts = append(report.Artifacts, path)

	return p.saveSample(report, &sample, sampleRecord.Detections,
		result.Trajectories)
}

// buildResult assembles the persisted tracking artifact from the
// tracker's accumulated state.
func buildResult(t *track.Tracker, runID, source string,
	started time.Time) (*track.Result, error) {

	trajectories, err := t.BuildTrajectories()

	if err != nil {
		return nil, err
	}

	return &track.Result{
		RunID:        runID,
		Source:       source,
		StartedAt:    started,
		FinishedAt:   time.Now(),
		Frames:       t.Frames(),
		Trajectories: trajectories,
		Summary:      t.BuildSummary(),
	}, nil
}

// newBackend builds the detection oracle from configuration.
func (p *Pipeline) newBackend() (*detect.YOLONet, error) {

	labels, err := detect.LoadLabels(p.cfg.Detection.LabelFile)

	if err != nil {
		return nil, err
	}

	return detect.NewYOLONet(p.cfg.Detection.ModelFile, labels,
		p.cfg.Detection.ConfThreshold, p.cfg.Detection.NMSThreshold)
}

// newFilter builds the class normalizer from configuration.
func (p *Pipeline) newFilter() *detect.Filter {
	return detect.NewFilter(p.cm, p.cfg.Detection.TargetClasses,
		p.cfg.Detection.ConfThreshold)
}

// saveSample annotates and writes the sample frame when configured.
func (p *Pipeline) saveSample(report *Report, img *gocv.Mat,
	dets []track.TrackedDetection, trails []track.ObjectTrajectory) error {

	if !p.cfg.Extraction.SaveSampleFrame || img.Empty() {
		return nil
	}

	// trails first so box labels stay on top
	if len(trails) > 0 {
		render.Trails(img, trails, render.DefaultTrailStyle())
	}

	if len(dets) > 0 {
		render.Detections(img, dets, render.DefaultFont(), 2)
	}

	p.caption(report, img)

	path := p.artifactPath(report.Video.Path, "sample.png")

	if ok := gocv.IMWrite(path, *img); !ok {
		return fmt.Errorf("error writing sample frame %s", path)
	}

	report.Artifacts = append(report.Artifacts, path)

	return nil
}

// caption stamps the run provenance onto the sample frame, with the
// configured TTF font when one is set.
func (p *Pipeline) caption(report *Report, img *gocv.Mat) {

	text := fmt.Sprintf("run %s  %s", report.RunID[:8], report.Mode)
	pos := image.Pt(10, img.Rows()-12)

	if p.cfg.Extraction.FontFile != "" {

		lw, err := render.NewLabelWriter(p.cfg.Extraction.FontFile, 16)

		if err == nil {
			err = lw.Write(img, text, pos.X, pos.Y, render.White)
		}

		if err == nil {
			return
		}

		p.log.Warn("caption font unusable, falling back",
			"font", p.cfg.Extraction.FontFile, "err", err)
	}

	gocv.PutText(img, text, pos, gocv.FontHersheySimplex, 0.5,
		render.White, 1)
}

// archive persists the run summary to the sqlite archive when configured.
func (p *Pipeline) archive(report *Report, started time.Time) error {

	if p.cfg.Store.DBFile == "" {
		return nil
	}

	s, err := store.Open(p.cfg.Store.DBFile)

	if err != nil {
		return err
	}

	defer s.Close()

	rec := &store.RunRecord{
		RunID:           report.RunID,
		Source:          report.Video.Path,
		Mode:            report.Mode.String(),
		StartedAt:       started.UnixNano(),
		FinishedAt:      time.Now().UnixNano(),
		FramesProcessed: report.FramesProcessed,
	}

	switch {
	case report.Tracking != nil:
		rec.UniqueIdentities = report.Tracking.Summary.TotalUniqueIdentities
		rec.FramesWithTracks = report.Tracking.Summary.FramesWithTracks
		rec.AvgConfidence = report.Tracking.Summary.AvgConfidence

		if data, err := json.Marshal(report.Tracking.Summary); err == nil {
			rec.SummaryJSON = data
		}

	case report.Detection != nil:
		rec.AvgConfidence = report.Detection.AvgConfidence

		if data, err := json.Marshal(report.Detection); err == nil {
			rec.SummaryJSON = data
		}
	}

	return s.InsertRun(rec)
}

// artifactPath builds an output file path from the video file stem.
func (p *Pipeline) artifactPath(videoPath, suffix string) string {

	stem := strings.TrimSuffix(filepath.Base(videoPath),
		filepath.Ext(videoPath))

	return filepath.Join(p.cfg.Extraction.OutputDir, stem+"_"+suffix)
}

// detectionsToTracked adapts detect records to the render input type.
func detectionsToTracked(dets []detect.Detection) []track.TrackedDetection {

	out := make([]track.TrackedDetection, len(dets))

	for i, d := range dets {
		out[i] = track.TrackedDetection{
			ClassName:  d.ClassName,
			Confidence: d.Confidence,
			Box:        d.Box,
		}
	}

	return out
}
