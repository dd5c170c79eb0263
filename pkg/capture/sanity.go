package capture

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// initPattern matches the line every ensemble member prints at startup.
var initPattern = regexp.MustCompile(`INIT: ensemble size=(\d+), random weight=([0|1].\d+)`)

// ErrNoInitMarker is returned when a sanity-check capture never saw the
// startup line.
var ErrNoInitMarker = errors.New("no INIT marker in output")

// ParseInit extracts the ensemble size and random weight from the first INIT
// line in output.
func ParseInit(output string) (int, float64, error) {
	m := initPattern.FindStringSubmatch(output)
	if m == nil {
		return 0, 0, ErrNoInitMarker
	}
	size, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, fmt.Errorf("parse ensemble size %q: %w", m[1], err)
	}
	weight, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse random weight %q: %w", m[2], err)
	}
	return size, weight, nil
}
