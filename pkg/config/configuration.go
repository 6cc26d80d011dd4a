package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
)

var ErrInvalidConfiguration = errors.New("invalid test configuration")

// TestConfiguration holds the acceptance limits of one sensor part number.
// Keys follow the configuration exchange format of the setup files.
type TestConfiguration struct {
	SensorPartNumber string  `json:"sensor_part_number" yaml:"sensor_part_number"`
	MinDataRateLimit float64 `json:"min_data_rate_limit" yaml:"min_data_rate_limit"` // MB/s
	MaxDataRateLimit float64 `json:"max_data_rate_limit" yaml:"max_data_rate_limit"` // MB/s
	MaxStdDevLimit   float64 `json:"max_std_dev_limit" yaml:"max_std_dev_limit"`
	TestRunTime      int     `json:"test_run_time" yaml:"test_run_time"` // in seconds
	ComserverPath    string  `json:"comserver_path" yaml:"comserver_path"`
	TestResultPath   string  `json:"test_result_path" yaml:"test_result_path"`
}

func (c TestConfiguration) TestDuration() time.Duration {
	return time.Duration(c.TestRunTime) * time.Second
}

// Validate rejects configurations no test can run with. An inverted rate band
// is only reported, since every run against it simply fails.
func (c TestConfiguration) Validate() error {
	if c.TestRunTime < 1 {
		return fmt.Errorf("%w: test_run_time must be at least one second, got %d", ErrInvalidConfiguration, c.TestRunTime)
	}
	if c.MaxStdDevLimit < 0 {
		return fmt.Errorf("%w: max_std_dev_limit must not be negative", ErrInvalidConfiguration)
	}
	if c.ComserverPath == "" {
		return fmt.Errorf("%w: comserver_path is empty", ErrInvalidConfiguration)
	}
	if c.TestResultPath == "" {
		return fmt.Errorf("%w: test_result_path is empty", ErrInvalidConfiguration)
	}
	if _, err := os.Stat(c.ComserverPath); err != nil {
		return fmt.Errorf("%w: comserver_path: %v", ErrInvalidConfiguration, err)
	}

	if c.MinDataRateLimit > c.MaxDataRateLimit {
		log.Warnf("Minimum data rate limit %.2f MB/s exceeds the maximum %.2f MB/s; every test will fail.",
			c.MinDataRateLimit, c.MaxDataRateLimit)
	}

	return nil
}
