package detect

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadLabels reads a model's class vocabulary from a text file, one
// label per line in class index order.  Blank lines and lines starting
// with # are skipped.
func LoadLabels(file string) ([]string, error) {

	f, err := os.Open(file)

	if err != nil {
		return nil, fmt.Errorf("error opening label file: %w", err)
	}

	defer f.Close()

	var labels []string

	scanner := bufio.NewScanner(f)

	for scanner.Scan() {

		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		labels = append(labels, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading label file: %w", err)
	}

	if len(labels) == 0 {
		return nil, fmt.Errorf("label file %s contains no labels", file)
	}

	return labels, nil
}
