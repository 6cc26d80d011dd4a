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

package monitor

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vhive-serverless/sensorcheck/pkg/common"
	"github.com/vhive-serverless/sensorcheck/pkg/sampler"
)

// LineSource is a non-blocking view of the producer output.
type LineSource interface {
	ReadLine(stream common.Stream) (string, bool)
	Running() bool
}

type AnomalyKind int

const (
	// ParseAnomaly a fresh line carried no rate sample.
	ParseAnomaly AnomalyKind = iota
	// StaleAnomaly the producer repeated its previous line beyond the tolerance.
	StaleAnomaly
	// ProcessExitedDuringTest the producer died before the window closed.
	ProcessExitedDuringTest
)

var AnomalyKinds = []AnomalyKind{ParseAnomaly, StaleAnomaly, ProcessExitedDuringTest}

func (k AnomalyKind) String() string {
	switch k {
	case ParseAnomaly:
		return "parse"
	case StaleAnomaly:
		return "stale"
	case ProcessExitedDuringTest:
		return "process_exited"
	default:
		return "unknown"
	}
}

// Acquisition is everything one monitoring window collected.
type Acquisition struct {
	Samples []float64
	Sum     float64

	Anomalies map[AnomalyKind]int

	AcceptedLines  int
	DuplicateLines int
	IgnoredLines   int

	ProducerExited bool

	Start time.Time
	End   time.Time
}

func (a Acquisition) AnomalyCount() int {
	count := 0
	for _, n := range a.Anomalies {
		count += n
	}
	return count
}

type Monitor struct {
	Source   LineSource
	Duration time.Duration

	// PollInterval pause between two empty read rounds; common.DefaultPollInterval when zero.
	PollInterval time.Duration

	// OnProgress receives the remaining-time display counter after every accepted line.
	OnProgress func(remaining int)

	Logger *log.Entry
}

type readOutcome int

const (
	lineRead readOutcome = iota
	windowClosed
	producerGone
)

// state is the running accumulation of one window, owned by Run.
type state struct {
	acquisition Acquisition

	previous  string
	streak    int
	remaining int
}

// Run acquires samples until the window closes, the producer exits or ctx is done.
// Every irregularity is counted, never returned.
func (m *Monitor) Run(ctx context.Context) Acquisition {
	logger := m.Logger
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}

	start := time.Now()
	deadline := start.Add(m.Duration)

	st := &state{
		acquisition: Acquisition{
			Samples:   []float64{},
			Anomalies: make(map[AnomalyKind]int),
			Start:     start,
		},
		remaining: int(m.Duration / time.Second),
	}

	for time.Now().Before(deadline) && ctx.Err() == nil {
		line, outcome := m.next(ctx, deadline)

		if outcome == producerGone {
			st.acquisition.ProducerExited = true
			st.anomaly(logger, ProcessExitedDuringTest, "")
			break
		}
		if outcome == windowClosed {
			break
		}

		st.observe(logger, line, m.OnProgress)
	}

	st.acquisition.End = time.Now()

	logger.Debugf("Acquisition finished: %d samples, %d accepted, %d duplicate, %d ignored lines, %d anomalies.",
		len(st.acquisition.Samples), st.acquisition.AcceptedLines, st.acquisition.DuplicateLines,
		st.acquisition.IgnoredLines, st.acquisition.AnomalyCount())

	return st.acquisition
}

// next polls the diagnostic stream, then the primary one, until one of them yields a line.
func (m *Monitor) next(ctx context.Context, deadline time.Time) (string, readOutcome) {
	interval := m.PollInterval
	if interval <= 0 {
		interval = common.DefaultPollInterval
	}

	for {
		// sampled before reading: once the reaper reports the exit, every line is already queued
		alive := m.Source.Running()

		if line, ok := m.Source.ReadLine(common.Diagnostic); ok {
			return line, lineRead
		}
		if line, ok := m.Source.ReadLine(common.Primary); ok {
			return line, lineRead
		}
		if !alive {
			return "", producerGone
		}
		if !time.Now().Before(deadline) || ctx.Err() != nil {
			return "", windowClosed
		}

		time.Sleep(interval)
	}
}

func (st *state) observe(logger *log.Entry, line string, onProgress func(int)) {
	if len(line) < common.TrivialLineLength {
		st.acquisition.IgnoredLines++
		return
	}

	if line == st.previous {
		st.acquisition.DuplicateLines++
		st.streak++
		if st.streak > common.DuplicateTolerance {
			st.anomaly(logger, StaleAnomaly, line)
		}
		return
	}

	st.previous = line
	st.streak = 0
	st.remaining--
	st.acquisition.AcceptedLines++
	if onProgress != nil {
		onProgress(st.remaining)
	}

	value, ok := sampler.Parse(line)
	if !ok {
		st.anomaly(logger, ParseAnomaly, line)
		return
	}

	st.acquisition.Samples = append(st.acquisition.Samples, value)
	st.acquisition.Sum += value
	logger.Tracef("Sample %.2f MB/s", value)
}

func (st *state) anomaly(logger *log.Entry, kind AnomalyKind, line string) {
	st.acquisition.Anomalies[kind]++
	logger.WithField("anomaly", kind.String()).Debugf("Anomaly on line %q", line)
}
