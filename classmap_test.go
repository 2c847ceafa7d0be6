package argus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultClassMapDomains(t *testing.T) {

	cm := DefaultClassMap()

	tests := []struct {
		native string
		domain string
		ok     bool
	}{
		{"person", "person", true},
		{"car", "vehicle", true},
		{"truck", "vehicle", true},
		{"knife", "weapon", true},
		{"suitcase", "package", true},
		{"dog", "", false},
		{"traffic light", "", false},
	}

	for _, tc := range tests {
		domain, ok := cm.Domain(tc.native)
		assert.Equal(t, tc.ok, ok, tc.native)
		assert.Equal(t, tc.domain, domain, tc.native)
	}
}

func TestDomainClassesDistinct(t *testing.T) {

	classes := DefaultClassMap().DomainClasses()

	assert.ElementsMatch(t,
		[]string{"person", "vehicle", "weapon", "package"}, classes)
}

func TestLoadClassMap(t *testing.T) {

	file := filepath.Join(t.TempDir(), "classes.txt")

	content := `# custom mapping
person=person
bicycle = vehicle

car=vehicle
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))

	cm, err := LoadClassMap(file)
	require.NoError(t, err)

	assert.Len(t, cm, 3)

	domain, ok := cm.Domain("bicycle")
	assert.True(t, ok)
	assert.Equal(t, "vehicle", domain)
}

func TestLoadClassMapRejectsMalformedLine(t *testing.T) {

	file := filepath.Join(t.TempDir(), "classes.txt")
	require.NoError(t, os.WriteFile(file, []byte("person person\n"), 0o644))

	_, err := LoadClassMap(file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid mapping line")
}

func TestLoadClassMapMissingFile(t *testing.T) {
	_, err := LoadClassMap("/nonexistent/classes.txt")
	require.Error(t, err)
}
