/*
 * MIT License
 *
 * Copyright (c) 2023 EASL and the vHive community
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package verdict

import (
	"fmt"
	"time"

	"github.com/vhive-serverless/sensorcheck/pkg/common"
	"github.com/vhive-serverless/sensorcheck/pkg/config"
	"github.com/vhive-serverless/sensorcheck/pkg/stats"
)

type Violation string

const (
	ViolationAnomalies   Violation = "anomalies"
	ViolationRateTooLow  Violation = "average_below_minimum"
	ViolationRateTooHigh Violation = "average_above_maximum"
	ViolationStdDev      Violation = "std_dev_above_maximum"
)

type Input struct {
	RunID        string
	SerialNumber string

	Statistics   stats.Statistics
	AnomalyCount int

	Configuration config.TestConfiguration

	Start time.Time
	End   time.Time
}

// TestResult is the immutable outcome of one test run.
type TestResult struct {
	RunID            string
	SensorPartNumber string
	SerialNumber     string

	Start time.Time
	End   time.Time

	MinDataRateLimit float64
	MaxDataRateLimit float64
	MaxStdDevLimit   float64

	AverageDataRate float64
	StdDev          float64
	SampleCount     int
	Errors          int

	Verdict    common.Verdict
	Violations []Violation
}

func (r TestResult) Passed() bool {
	return r.Verdict == common.Pass
}

func (r TestResult) String() string {
	return fmt.Sprintf("%s: average data rate %.2f MB/s, standard deviation %.2f, errors %d",
		r.Verdict, r.AverageDataRate, r.StdDev, r.Errors)
}

// Evaluate fails the run when any anomaly was seen, the average leaves the
// configured band or the deviation exceeds its limit.
func Evaluate(in Input) TestResult {
	cfg := in.Configuration

	var violations []Violation
	if in.AnomalyCount > 0 {
		violations = append(violations, ViolationAnomalies)
	}
	if in.Statistics.Mean < cfg.MinDataRateLimit {
		violations = append(violations, ViolationRateTooLow)
	}
	if in.Statistics.Mean > cfg.MaxDataRateLimit {
		violations = append(violations, ViolationRateTooHigh)
	}
	if in.Statistics.StdDev > cfg.MaxStdDevLimit {
		violations = append(violations, ViolationStdDev)
	}

	verdict := common.Pass
	if len(violations) > 0 {
		verdict = common.Fail
	}

	return TestResult{
		RunID:            in.RunID,
		SensorPartNumber: cfg.SensorPartNumber,
		SerialNumber:     in.SerialNumber,
		Start:            in.Start,
		End:              in.End,
		MinDataRateLimit: cfg.MinDataRateLimit,
		MaxDataRateLimit: cfg.MaxDataRateLimit,
		MaxStdDevLimit:   cfg.MaxStdDevLimit,
		AverageDataRate:  in.Statistics.Mean,
		StdDev:           in.Statistics.StdDev,
		SampleCount:      in.Statistics.Count,
		Errors:           in.AnomalyCount,
		Verdict:          verdict,
		Violations:       violations,
	}
}
