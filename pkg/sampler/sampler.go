package sampler

import (
	"regexp"
	"strconv"
)

// rxPattern matches the receive rate the COMSERVER reports, e.g. "... rx=120.5 MB/s ...".
var rxPattern = regexp.MustCompile(`rx=(\d+(?:\.\d+)?) MB/s`)

// Parse extracts the data rate in MB/s from a telemetry line. Lines without a
// rate, including empty ones, yield false.
func Parse(line string) (float64, bool) {
	match := rxPattern.FindStringSubmatch(line)
	if match == nil {
		return 0, false
	}

	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}

	return value, true
}
