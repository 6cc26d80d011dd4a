package verdict

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"github.com/vhive-serverless/sensorcheck/pkg/common"
	"github.com/vhive-serverless/sensorcheck/pkg/config"
	"github.com/vhive-serverless/sensorcheck/pkg/stats"
)

var limits = config.TestConfiguration{
	SensorPartNumber: "A2C-TEST",
	MinDataRateLimit: 100,
	MaxDataRateLimit: 150,
	MaxStdDevLimit:   10,
	TestRunTime:      10,
}

func TestEvaluate(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(10 * time.Second)

	tests := []struct {
		name       string
		statistics stats.Statistics
		anomalies  int
		verdict    common.Verdict
		violations []Violation
	}{
		{
			name:       "within limits",
			statistics: stats.Compute([]float64{120.5, 118.0}),
			verdict:    common.Pass,
		},
		{
			name:       "band edges are inclusive",
			statistics: stats.Statistics{Count: 2, Mean: 100, StdDev: 10},
			verdict:    common.Pass,
		},
		{
			name:       "no samples",
			statistics: stats.Compute(nil),
			verdict:    common.Fail,
			violations: []Violation{ViolationRateTooLow},
		},
		{
			name:       "one anomaly",
			statistics: stats.Statistics{Count: 5, Mean: 120, StdDev: 1},
			anomalies:  1,
			verdict:    common.Fail,
			violations: []Violation{ViolationAnomalies},
		},
		{
			name:       "average too high",
			statistics: stats.Statistics{Count: 5, Mean: 150.01, StdDev: 1},
			verdict:    common.Fail,
			violations: []Violation{ViolationRateTooHigh},
		},
		{
			name:       "deviation too high",
			statistics: stats.Statistics{Count: 5, Mean: 120, StdDev: 10.5},
			verdict:    common.Fail,
			violations: []Violation{ViolationStdDev},
		},
		{
			name:       "everything wrong",
			statistics: stats.Statistics{Count: 5, Mean: 90, StdDev: 20},
			anomalies:  3,
			verdict:    common.Fail,
			violations: []Violation{ViolationAnomalies, ViolationRateTooLow, ViolationStdDev},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := Evaluate(Input{
				RunID:         "run",
				SerialNumber:  "SN-1",
				Statistics:    test.statistics,
				AnomalyCount:  test.anomalies,
				Configuration: limits,
				Start:         start,
				End:           end,
			})

			assert.Equal(t, test.verdict, result.Verdict)
			assert.Equal(t, test.violations, result.Violations)
			assert.Equal(t, test.verdict == common.Pass, result.Passed())

			assert.Equal(t, "A2C-TEST", result.SensorPartNumber)
			assert.Equal(t, "SN-1", result.SerialNumber)
			assert.Equal(t, start, result.Start)
			assert.Equal(t, end, result.End)
			assert.Equal(t, test.anomalies, result.Errors)
			assert.Equal(t, test.statistics.Mean, result.AverageDataRate)
			assert.Equal(t, 150.0, result.MaxDataRateLimit)
		})
	}
}

func TestEvaluateString(t *testing.T) {
	result := Evaluate(Input{Statistics: stats.Compute([]float64{120.5, 118.0}), Configuration: limits})
	assert.Equal(t, "PASS: average data rate 119.25 MB/s, standard deviation 1.25, errors 0", result.String())
}

func TestVerdictProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	passing := func(mean, stdDev float64) Input {
		return Input{
			Statistics:    stats.Statistics{Count: 10, Mean: mean, StdDev: stdDev},
			Configuration: limits,
		}
	}
	inBand := gen.Float64Range(limits.MinDataRateLimit, limits.MaxDataRateLimit)
	inSpread := gen.Float64Range(0, limits.MaxStdDevLimit)

	properties.Property("conforming runs pass", prop.ForAll(
		func(mean, stdDev float64) bool {
			return Evaluate(passing(mean, stdDev)).Verdict == common.Pass
		},
		inBand, inSpread,
	))

	properties.Property("any anomaly fails", prop.ForAll(
		func(mean, stdDev float64, anomalies int) bool {
			in := passing(mean, stdDev)
			in.AnomalyCount = anomalies
			return Evaluate(in).Verdict == common.Fail
		},
		inBand, inSpread, gen.IntRange(1, 1000),
	))

	properties.Property("average below the band fails", prop.ForAll(
		func(mean, stdDev float64) bool {
			return Evaluate(passing(mean, stdDev)).Verdict == common.Fail
		},
		gen.Float64Range(0, limits.MinDataRateLimit-0.001), inSpread,
	))

	properties.Property("average above the band fails", prop.ForAll(
		func(mean, stdDev float64) bool {
			return Evaluate(passing(mean, stdDev)).Verdict == common.Fail
		},
		gen.Float64Range(limits.MaxDataRateLimit+0.001, 10_000), inSpread,
	))

	properties.Property("excess deviation fails", prop.ForAll(
		func(mean, stdDev float64) bool {
			return Evaluate(passing(mean, stdDev)).Verdict == common.Fail
		},
		inBand, gen.Float64Range(limits.MaxStdDevLimit+0.001, 1000),
	))

	properties.TestingRun(t)
}
