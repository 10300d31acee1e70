package rank

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Populations are flat numeric sequences: one decimal value per line.

func readPopulation(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "rank: open population %s", path)
	}
	defer f.Close()

	var values []float64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "rank: parse population value %q in %s", line, path)
		}
		values = append(values, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrapf(err, "rank: read population %s", path)
	}
	return values, nil
}

// writePopulation rewrites the whole population atomically: write to a
// temp file in the same directory, then rename over the target.
func writePopulation(path string, values []float64) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".population-*")
	if err != nil {
		return eris.Wrap(err, "rank: create temp population")
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, v := range values {
		if _, err := w.WriteString(strconv.FormatFloat(v, 'g', -1, 64) + "\n"); err != nil {
			tmp.Close()
			return eris.Wrap(err, "rank: write population")
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return eris.Wrap(err, "rank: flush population")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "rank: close temp population")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrap(err, "rank: replace population")
	}
	return nil
}
