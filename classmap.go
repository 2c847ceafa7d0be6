package argus

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ClassMap is a many-to-one mapping from a detection model's native class
// vocabulary to the domain class set.  It is immutable once created and is
// shared read-only across runs, so the same mapping drives both the
// stateless detector and the stateful tracker.
type ClassMap map[string]string

// DefaultClassMap returns the built-in COCO to domain class mapping.
func DefaultClassMap() ClassMap {
	return ClassMap{
		"person":     "person",
		"car":        "vehicle",
		"motorcycle": "vehicle",
		"bus":        "vehicle",
		"truck":      "vehicle",
		"knife":      "weapon",
		"backpack":   "package",
		"suitcase":   "package",
		"handbag":    "package",
	}
}

// LoadClassMap reads a class mapping from the given text file.  It should
// contain one "native=domain" pair per line, blank lines and lines starting
// with # are skipped.
func LoadClassMap(file string) (ClassMap, error) {

	// open the file
	f, err := os.Open(file)

	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}

	defer f.Close()

	// create a scanner to read the file.
	scanner := bufio.NewScanner(f)

	cm := make(ClassMap)

	// read and trim each line
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		native, domain, ok := strings.Cut(line, "=")

		if !ok {
			return nil, fmt.Errorf("invalid mapping line %q", line)
		}

		cm[strings.TrimSpace(native)] = strings.TrimSpace(domain)
	}

	// check for errors during scanning
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	return cm, nil
}

// Domain maps a native class name to its domain class.  The second return
// value is false when the native class has no mapping, such observations
// are dropped upstream of the tracker.
func (cm ClassMap) Domain(native string) (string, bool) {
	domain, ok := cm[native]
	return domain, ok
}

// DomainClasses returns the distinct domain classes the mapping can
// produce, for validating configured target classes.
func (cm ClassMap) DomainClasses() []string {

	seen := make(map[string]bool)
	var classes []string

	for _, domain := range cm {
		if !seen[domain] {
			seen[domain] = true
			classes = append(classes, domain)
		}
	}

	return classes
}
