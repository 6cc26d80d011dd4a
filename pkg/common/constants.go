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

package common

import "time"

const (
	// TrivialLineLength lines shorter than this are heartbeat noise and never compared or parsed.
	// The producer terminates every line with a newline, so this equals "more than 3 bytes" on the wire.
	TrivialLineLength = 3

	// DuplicateTolerance consecutive repeats of the previous line allowed before each extra repeat is an anomaly.
	DuplicateTolerance = 1

	// DefaultPollInterval pause between two fully empty read rounds of the acquisition loop.
	DefaultPollInterval = time.Millisecond
)

const (
	// WatchdogInterval pause between two watchdog reads.
	WatchdogInterval = 100 * time.Millisecond

	// ConnectedLineLength a primary line at least this long is real sensor telemetry.
	ConnectedLineLength = 42

	// ShortLineLimit consecutive short reads tolerated before the sensor is reported as disconnected.
	ShortLineLimit = 20
)

const (
	// StopTimeout upper bound for draining the producer pipes after termination.
	StopTimeout = 5 * time.Second

	// LedgerTimeFormat is the microsecond timestamp layout of existing ledger files.
	LedgerTimeFormat = "2006-01-02 15:04:05.000000"
)

type Stream int

const (
	Primary Stream = iota
	Diagnostic
)

func (s Stream) String() string {
	switch s {
	case Primary:
		return "stdout"
	case Diagnostic:
		return "stderr"
	default:
		return "unknown"
	}
}

type Verdict string

const (
	Pass Verdict = "PASS"
	Fail Verdict = "FAIL"
)

type SensorStatus string

const (
	StatusNotRunning         SensorStatus = "Not Running"
	StatusRunning            SensorStatus = "Running"
	StatusSensorNotConnected SensorStatus = "Sensor not connected"
)
