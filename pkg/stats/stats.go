package stats

import (
	"math"

	mstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// Statistics are the figures the verdict is based on.
type Statistics struct {
	Count  int
	Mean   float64
	StdDev float64 // population standard deviation
}

// Summary adds the spread of a run for the operator log.
type Summary struct {
	Statistics

	Minimum float64
	Maximum float64
	Median  float64
}

// Compute returns the mean and population standard deviation of samples.
// An empty run has a mean and deviation of 0.
func Compute(samples []float64) Statistics {
	if len(samples) == 0 {
		return Statistics{}
	}

	mean := stat.Mean(samples, nil)
	variance := stat.PopVariance(samples, nil)
	if variance < 0 || math.IsNaN(variance) {
		variance = 0
	}

	return Statistics{
		Count:  len(samples),
		Mean:   mean,
		StdDev: math.Sqrt(variance),
	}
}

func Summarize(samples []float64) Summary {
	summary := Summary{Statistics: Compute(samples)}
	if len(samples) == 0 {
		return summary
	}

	data := mstats.LoadRawData(samples)
	summary.Minimum, _ = mstats.Min(data)
	summary.Maximum, _ = mstats.Max(data)
	summary.Median, _ = mstats.Median(data)

	return summary
}

// Round half away from zero to the given number of decimals, as shown to the operator.
func Round(value float64, places int) float64 {
	rounded, err := mstats.Round(value, places)
	if err != nil {
		return value
	}
	return rounded
}
