package argus

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ExtractionConfig holds the frame extraction settings.
type ExtractionConfig struct {
	// TargetFPS is the rate frames are sampled from the source video at.
	// It is clamped to the source FPS at runtime
	TargetFPS float64 `yaml:"target_fps"`
	// OutputDir is the directory result artifacts get written to
	OutputDir string `yaml:"output_dir"`
	// SaveSampleFrame writes an annotated sample frame as PNG
	SaveSampleFrame bool `yaml:"save_sample_frame"`
	// FontFile is an optional TTF font used for the sample frame caption,
	// blank falls back to the built in Hershey font
	FontFile string `yaml:"font_file"`
	// SupportedFormats is the list of accepted video file extensions
	SupportedFormats []string `yaml:"supported_formats"`
}

// DetectionConfig holds the object detection settings.
type DetectionConfig struct {
	// Enabled turns the stateless per frame detection pass on
	Enabled bool `yaml:"enabled"`
	// ModelFile is the path to the ONNX detection model
	ModelFile string `yaml:"model_file"`
	// LabelFile is the path to the model's native class label list
	LabelFile string `yaml:"label_file"`
	// ConfThreshold is the minimum confidence for a detection to be kept
	ConfThreshold float64 `yaml:"conf_threshold"`
	// NMSThreshold is the IoU threshold used for non-maximum suppression
	NMSThreshold float64 `yaml:"nms_threshold"`
	// TargetClasses restricts results to the given domain classes
	TargetClasses []string `yaml:"target_classes"`
}

// TrackingConfig holds the multi-object tracking settings.
type TrackingConfig struct {
	// Enabled turns identity tracking on.  Tracking implies detection so
	// the detection Enabled flag is ignored when this is set
	Enabled bool `yaml:"enabled"`
	// LostTolerance is the number of frames an object may be unseen
	// before its identity is dropped and may be recycled.  Passed through
	// to the tracking backend, not interpreted by the tracker core
	LostTolerance int `yaml:"lost_tolerance"`
	// SkipFailedFrames continues past per frame oracle failures instead
	// of aborting the run.  Unsafe for strict trajectory continuity, any
	// object in flight over a skipped frame may have its identity broken
	SkipFailedFrames bool `yaml:"skip_failed_frames"`
}

// StoreConfig holds the run archive settings.
type StoreConfig struct {
	// DBFile is the sqlite database runs are archived to.  Empty
	// disables archiving
	DBFile string `yaml:"db_file"`
}

// Config is the top level configuration for a processing run.
type Config struct {
	Extraction ExtractionConfig `yaml:"extraction"`
	Detection  DetectionConfig  `yaml:"detection"`
	Tracking   TrackingConfig   `yaml:"tracking"`
	Store      StoreConfig      `yaml:"store"`
}

// DefaultConfig returns the configuration defaults used when no YAML file
// is given or a field is missing from it.
func DefaultConfig() Config {
	return Config{
		Extraction: ExtractionConfig{
			TargetFPS:        5.0,
			OutputDir:        "./output",
			SaveSampleFrame:  true,
			SupportedFormats: []string{".mp4", ".mov", ".avi", ".mkv"},
		},
		Detection: DetectionConfig{
			ConfThreshold: 0.5,
			NMSThreshold:  0.45,
			TargetClasses: []string{"person", "vehicle", "weapon", "package"},
		},
		Tracking: TrackingConfig{
			LostTolerance: 30,
		},
	}
}

// LoadConfig reads configuration from a YAML file, falling back to the
// defaults for any missing field.  A missing file is not an error, the
// defaults are returned.
func LoadConfig(file string) (Config, error) {

	cfg := DefaultConfig()

	data, err := os.ReadFile(file)

	if os.IsNotExist(err) {
		return cfg, nil
	}

	if err != nil {
		return cfg, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration against the given class mapping.  It
// is called once at startup before any frame is processed, an error here
// is fatal to the run.
func (c *Config) Validate(cm ClassMap) error {

	if c.Extraction.TargetFPS <= 0 {
		return fmt.Errorf("extraction target_fps must be positive, got %v",
			c.Extraction.TargetFPS)
	}

	if c.Detection.ConfThreshold < 0 || c.Detection.ConfThreshold > 1 {
		return fmt.Errorf("detection conf_threshold must be in [0,1], got %v",
			c.Detection.ConfThreshold)
	}

	if c.Detection.NMSThreshold < 0 || c.Detection.NMSThreshold > 1 {
		return fmt.Errorf("detection nms_threshold must be in [0,1], got %v",
			c.Detection.NMSThreshold)
	}

	if c.Detection.Enabled || c.Tracking.Enabled {

		if len(c.Detection.TargetClasses) == 0 {
			return fmt.Errorf("detection target_classes must not be empty")
		}

		known := cm.DomainClasses()

		for _, class := range c.Detection.TargetClasses {
			if !slices.Contains(known, class) {
				return fmt.Errorf("unknown target class %q, class map "+
					"produces %v", class, known)
			}
		}
	}

	if c.Tracking.Enabled && c.Tracking.LostTolerance < 1 {
		return fmt.Errorf("tracking lost_tolerance must be at least 1, got %d",
			c.Tracking.LostTolerance)
	}

	return nil
}
