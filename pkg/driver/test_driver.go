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

package driver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vhive-serverless/sensorcheck/pkg/common"
	"github.com/vhive-serverless/sensorcheck/pkg/config"
	mc "github.com/vhive-serverless/sensorcheck/pkg/metric"
	"github.com/vhive-serverless/sensorcheck/pkg/monitor"
	"github.com/vhive-serverless/sensorcheck/pkg/plot"
	"github.com/vhive-serverless/sensorcheck/pkg/stats"
	"github.com/vhive-serverless/sensorcheck/pkg/supervisor"
	"github.com/vhive-serverless/sensorcheck/pkg/verdict"
	"github.com/vhive-serverless/sensorcheck/pkg/watchdog"
)

var (
	ErrProducerNotRunning = errors.New("COMSERVER is not running, start it before starting the test")
	ErrMissingSerial      = errors.New("sensor serial number is empty")
)

type DriverConfiguration struct {
	// PlotDirectory receives one PNG per run when set.
	PlotDirectory string

	// Metrics is optional.
	Metrics *mc.RunMetrics

	PollInterval     time.Duration
	WatchdogInterval time.Duration

	// OnProgress receives the remaining-time counter while a test runs.
	OnProgress func(remaining int)
	// OnStatus receives every sensor status change reported by the watchdog.
	OnStatus func(status common.SensorStatus)
}

// Report is everything a single test run produced.
type Report struct {
	Result      verdict.TestResult
	Summary     stats.Summary
	Acquisition monitor.Acquisition
	PlotPath    string
}

// Driver runs acceptance tests against one COMSERVER instance. Tests are serialised;
// the configuration may be swapped between them.
type Driver struct {
	Configuration *DriverConfiguration

	supervisor *supervisor.Supervisor
	watchdog   *watchdog.Watchdog
	statusTap  *supervisor.Tap

	configMutex   sync.RWMutex
	testConfig    config.TestConfiguration
	runMutex      sync.Mutex
	watchdogMutex sync.Mutex
}

func NewDriver(testConfig config.TestConfiguration, driverConfig *DriverConfiguration) *Driver {
	if driverConfig == nil {
		driverConfig = &DriverConfiguration{}
	}

	d := &Driver{
		Configuration: driverConfig,
		supervisor:    supervisor.NewSupervisor(),
		testConfig:    testConfig,
	}

	d.statusTap = d.supervisor.Tap()
	d.watchdog = watchdog.NewWatchdog(d.statusTap)
	if driverConfig.WatchdogInterval > 0 {
		d.watchdog.Interval = driverConfig.WatchdogInterval
	}
	d.watchdog.OnStatus = d.publishStatus

	return d
}

func (d *Driver) TestConfiguration() config.TestConfiguration {
	d.configMutex.RLock()
	defer d.configMutex.RUnlock()

	return d.testConfig
}

// UpdateConfiguration replaces the limits used by the next test. A running test keeps its copy.
func (d *Driver) UpdateConfiguration(testConfig config.TestConfiguration) {
	d.configMutex.Lock()
	defer d.configMutex.Unlock()

	d.testConfig = testConfig
	log.WithField("sensor", testConfig.SensorPartNumber).Info("Test configuration updated.")
}

// StartProducer launches the configured COMSERVER and its watchdog.
func (d *Driver) StartProducer(ctx context.Context) error {
	if err := d.supervisor.Start(d.TestConfiguration().ComserverPath); err != nil {
		return err
	}

	d.watchdogMutex.Lock()
	defer d.watchdogMutex.Unlock()

	// a watchdog that saw the previous producer exit has already returned
	d.watchdog.Stop()
	d.watchdog.Start(ctx)

	return nil
}

func (d *Driver) ProducerRunning() bool {
	return d.supervisor.Running()
}

// ProducerDone is closed once the current COMSERVER has exited.
func (d *Driver) ProducerDone() <-chan struct{} {
	return d.supervisor.Done()
}

func (d *Driver) SensorStatus() common.SensorStatus {
	return d.watchdog.Status()
}

// Stop ends the watchdog and the COMSERVER process tree.
func (d *Driver) Stop() {
	d.watchdogMutex.Lock()
	d.watchdog.Stop()
	d.watchdogMutex.Unlock()

	d.supervisor.Stop()
}

// Close stops everything and releases the watchdog tap. The driver cannot be reused.
func (d *Driver) Close() {
	d.Stop()
	d.statusTap.Close()
}

func (d *Driver) publishStatus(status common.SensorStatus) {
	if d.Configuration.Metrics != nil {
		d.Configuration.Metrics.SetStatus(status)
	}
	if d.Configuration.OnStatus != nil {
		d.Configuration.OnStatus(status)
	}
}

// RunTest acquires samples for the configured duration and records the verdict in the ledger.
// Only missing preconditions abort a test; a failed ledger write is returned along with the report.
func (d *Driver) RunTest(ctx context.Context, serialNumber string) (*Report, error) {
	d.runMutex.Lock()
	defer d.runMutex.Unlock()

	if !d.supervisor.Running() {
		return nil, ErrProducerNotRunning
	}
	serialNumber = strings.TrimSpace(serialNumber)
	if serialNumber == "" {
		return nil, ErrMissingSerial
	}

	testConfig := d.TestConfiguration()
	runID := uuid.New().String()

	logger := log.WithFields(log.Fields{
		"run":    runID,
		"sensor": testConfig.SensorPartNumber,
		"serial": serialNumber,
	})

	tap := d.supervisor.Tap()
	defer tap.Close()

	logger.Infof("Starting %d s test.", testConfig.TestRunTime)

	m := &monitor.Monitor{
		Source:       tap,
		Duration:     testConfig.TestDuration(),
		PollInterval: d.Configuration.PollInterval,
		OnProgress:   d.Configuration.OnProgress,
		Logger:       logger,
	}
	acquisition := m.Run(ctx)

	if dropped := tap.Dropped(); dropped > 0 {
		logger.Warnf("%d lines were dropped while the test was running.", dropped)
	}

	summary := stats.Summarize(acquisition.Samples)
	logger.Debugf("Samples: %d, min %.2f, max %.2f, median %.2f MB/s.",
		summary.Count, summary.Minimum, summary.Maximum, summary.Median)

	result := verdict.Evaluate(verdict.Input{
		RunID:         runID,
		SerialNumber:  serialNumber,
		Statistics:    summary.Statistics,
		AnomalyCount:  acquisition.AnomalyCount(),
		Configuration: testConfig,
		Start:         acquisition.Start,
		End:           acquisition.End,
	})

	report := &Report{
		Result:      result,
		Summary:     summary,
		Acquisition: acquisition,
	}

	if len(result.Violations) > 0 {
		logger.WithField("violations", result.Violations).Info(result.String())
	} else {
		logger.Info(result.String())
	}

	if d.Configuration.Metrics != nil {
		d.Configuration.Metrics.ObserveRun(result, acquisition)
	}

	if d.Configuration.PlotDirectory != "" {
		path, err := plot.SampleFigure(d.Configuration.PlotDirectory, result, acquisition.Samples)
		switch {
		case errors.Is(err, plot.ErrNoSamples):
			logger.Debug("No samples, skipping the plot.")
		case err != nil:
			logger.Warnf("Failed to plot the samples: %v", err)
		default:
			report.PlotPath = path
		}
	}

	if err := mc.AppendResult(testConfig.TestResultPath, result); err != nil {
		return report, fmt.Errorf("recording result in %s: %w", testConfig.TestResultPath, err)
	}

	return report, nil
}
