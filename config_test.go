package argus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate(DefaultClassMap()))
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {

	file := filepath.Join(t.TempDir(), "config.yaml")

	content := `
extraction:
  target_fps: 2.5
tracking:
  enabled: true
  lost_tolerance: 10
store:
  db_file: runs.db
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))

	cfg, err := LoadConfig(file)
	require.NoError(t, err)

	assert.Equal(t, 2.5, cfg.Extraction.TargetFPS)
	assert.True(t, cfg.Tracking.Enabled)
	assert.Equal(t, 10, cfg.Tracking.LostTolerance)
	assert.Equal(t, "runs.db", cfg.Store.DBFile)

	// untouched fields keep their defaults
	assert.Equal(t, 0.5, cfg.Detection.ConfThreshold)
	assert.Equal(t, "./output", cfg.Extraction.OutputDir)
}

func TestLoadConfigRejectsMalformedYAML(t *testing.T) {

	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("extraction: ["), 0o644))

	_, err := LoadConfig(file)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "zero fps",
			mutate:  func(c *Config) { c.Extraction.TargetFPS = 0 },
			wantErr: "target_fps",
		},
		{
			name:    "negative fps",
			mutate:  func(c *Config) { c.Extraction.TargetFPS = -1 },
			wantErr: "target_fps",
		},
		{
			name:    "conf threshold out of range",
			mutate:  func(c *Config) { c.Detection.ConfThreshold = 1.5 },
			wantErr: "conf_threshold",
		},
		{
			name:    "nms threshold out of range",
			mutate:  func(c *Config) { c.Detection.NMSThreshold = -0.1 },
			wantErr: "nms_threshold",
		},
		{
			name: "no target classes",
			mutate: func(c *Config) {
				c.Detection.Enabled = true
				c.Detection.TargetClasses = nil
			},
			wantErr: "target_classes",
		},
		{
			name: "unknown target class",
			mutate: func(c *Config) {
				c.Tracking.Enabled = true
				c.Detection.TargetClasses = []string{"person", "drone"}
			},
			wantErr: "unknown target class",
		},
		{
			name: "lost tolerance below one",
			mutate: func(c *Config) {
				c.Tracking.Enabled = true
				c.Tracking.LostTolerance = 0
			},
			wantErr: "lost_tolerance",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {

			cfg := DefaultConfig()
			tc.mutate(&cfg)

			err := cfg.Validate(DefaultClassMap())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
