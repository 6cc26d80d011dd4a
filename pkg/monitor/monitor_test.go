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
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vhive-serverless/sensorcheck/pkg/common"
)

type fakeSource struct {
	mutex   sync.Mutex
	lines   map[common.Stream][]string
	running atomic.Bool
}

func newFakeSource(primary ...string) *fakeSource {
	source := &fakeSource{lines: map[common.Stream][]string{common.Primary: primary}}
	source.running.Store(true)
	return source
}

func (f *fakeSource) push(stream common.Stream, lines ...string) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.lines[stream] = append(f.lines[stream], lines...)
}

func (f *fakeSource) ReadLine(stream common.Stream) (string, bool) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	queue := f.lines[stream]
	if len(queue) == 0 {
		return "", false
	}
	f.lines[stream] = queue[1:]
	return queue[0], true
}

func (f *fakeSource) Running() bool {
	return f.running.Load()
}

func runMonitor(source LineSource, duration time.Duration) Acquisition {
	m := &Monitor{Source: source, Duration: duration}
	return m.Run(context.Background())
}

func TestTwoValidSamples(t *testing.T) {
	acquisition := runMonitor(newFakeSource("rx=120.5 MB/s", "rx=118.0 MB/s"), 200*time.Millisecond)

	assert.Equal(t, []float64{120.5, 118.0}, acquisition.Samples)
	assert.InDelta(t, 238.5, acquisition.Sum, 1e-9)
	assert.Zero(t, acquisition.AnomalyCount())
	assert.False(t, acquisition.ProducerExited)
	assert.GreaterOrEqual(t, acquisition.End.Sub(acquisition.Start), 200*time.Millisecond,
		"a live but silent producer keeps the window open")
}

func TestSilentProducer(t *testing.T) {
	acquisition := runMonitor(newFakeSource(), 150*time.Millisecond)

	assert.Empty(t, acquisition.Samples)
	assert.Zero(t, acquisition.AnomalyCount())
	assert.GreaterOrEqual(t, acquisition.End.Sub(acquisition.Start), 150*time.Millisecond)
}

func TestRepeatedGarbage(t *testing.T) {
	acquisition := runMonitor(newFakeSource("garbage", "garbage", "garbage", "rx=120.0 MB/s"), 100*time.Millisecond)

	assert.Equal(t, []float64{120.0}, acquisition.Samples)
	assert.Equal(t, 1, acquisition.Anomalies[ParseAnomaly])
	assert.Equal(t, 1, acquisition.Anomalies[StaleAnomaly])
	assert.GreaterOrEqual(t, acquisition.AnomalyCount(), 2)
	assert.Equal(t, 2, acquisition.DuplicateLines)
}

func TestProducerExitEndsWindowEarly(t *testing.T) {
	source := newFakeSource("rx=120.0 MB/s")
	go func() {
		time.Sleep(200 * time.Millisecond)
		source.running.Store(false)
	}()

	acquisition := runMonitor(source, 10*time.Second)

	assert.True(t, acquisition.ProducerExited)
	assert.Equal(t, 1, acquisition.Anomalies[ProcessExitedDuringTest])
	assert.Less(t, acquisition.End.Sub(acquisition.Start), 5*time.Second)
	assert.Equal(t, []float64{120.0}, acquisition.Samples)
}

func TestQueuedLinesAreDrainedAfterExit(t *testing.T) {
	source := newFakeSource("rx=101.0 MB/s", "rx=102.0 MB/s")
	source.running.Store(false)

	acquisition := runMonitor(source, time.Second)

	assert.Equal(t, []float64{101.0, 102.0}, acquisition.Samples)
	assert.Equal(t, 1, acquisition.Anomalies[ProcessExitedDuringTest])
}

func TestSingleRepeatIsTolerated(t *testing.T) {
	source := newFakeSource("rx=110.0 MB/s", "rx=110.0 MB/s", "rx=111.0 MB/s", "rx=111.0 MB/s")

	acquisition := runMonitor(source, 100*time.Millisecond)

	assert.Equal(t, []float64{110.0, 111.0}, acquisition.Samples)
	assert.Zero(t, acquisition.AnomalyCount(), "the streak restarts after a fresh line")
	assert.Equal(t, 2, acquisition.DuplicateLines)
}

func TestStalledProducer(t *testing.T) {
	source := newFakeSource("rx=110.0 MB/s", "rx=110.0 MB/s", "rx=110.0 MB/s", "rx=110.0 MB/s")

	acquisition := runMonitor(source, 100*time.Millisecond)

	assert.Equal(t, []float64{110.0}, acquisition.Samples)
	assert.Equal(t, 2, acquisition.Anomalies[StaleAnomaly])
}

func TestTrivialLinesAreNoise(t *testing.T) {
	source := newFakeSource("", "ok", "\t", "rx=120.0 MB/s", "", "")

	acquisition := runMonitor(source, 100*time.Millisecond)

	assert.Equal(t, []float64{120.0}, acquisition.Samples)
	assert.Zero(t, acquisition.AnomalyCount())
	assert.Equal(t, 5, acquisition.IgnoredLines)
}

func TestDiagnosticStreamIsReadFirst(t *testing.T) {
	source := newFakeSource("rx=120.0 MB/s")
	source.push(common.Diagnostic, "rx=130.0 MB/s")

	acquisition := runMonitor(source, 100*time.Millisecond)

	assert.Equal(t, []float64{130.0, 120.0}, acquisition.Samples)
}

func TestDuplicateAcrossStreams(t *testing.T) {
	source := newFakeSource("comserver: link up")
	source.push(common.Diagnostic, "comserver: link up", "comserver: link up")

	acquisition := runMonitor(source, 100*time.Millisecond)

	assert.Equal(t, 1, acquisition.Anomalies[ParseAnomaly])
	assert.Equal(t, 1, acquisition.Anomalies[StaleAnomaly],
		"the previous line is shared by both streams")
}

func TestLateLinesAreSampled(t *testing.T) {
	source := newFakeSource()
	go func() {
		for _, line := range []string{"rx=100.0 MB/s", "rx=101.0 MB/s", "rx=102.0 MB/s"} {
			time.Sleep(30 * time.Millisecond)
			source.push(common.Primary, line)
		}
	}()

	acquisition := runMonitor(source, 500*time.Millisecond)

	assert.Equal(t, []float64{100.0, 101.0, 102.0}, acquisition.Samples)
}

func TestProgressCounter(t *testing.T) {
	var remaining []int
	m := &Monitor{
		Source:     newFakeSource("rx=1.0 MB/s", "rx=2.0 MB/s", "rx=2.0 MB/s", "noise line"),
		Duration:   2 * time.Second,
		OnProgress: func(r int) { remaining = append(remaining, r) },
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	m.Run(ctx)

	assert.Equal(t, []int{1, 0, -1}, remaining)
}

func TestCancellationEndsWindow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	m := &Monitor{Source: newFakeSource(), Duration: 10 * time.Second}
	acquisition := m.Run(ctx)

	require.Less(t, acquisition.End.Sub(acquisition.Start), 5*time.Second)
	assert.Zero(t, acquisition.AnomalyCount())
	assert.False(t, acquisition.ProducerExited)
}

func TestAnomalyKindString(t *testing.T) {
	assert.Equal(t, "parse", ParseAnomaly.String())
	assert.Equal(t, "stale", StaleAnomaly.String())
	assert.Equal(t, "process_exited", ProcessExitedDuringTest.String())
	assert.Equal(t, "unknown", AnomalyKind(42).String())
}
