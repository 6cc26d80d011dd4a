package supervisor

import (
	"sync/atomic"

	"github.com/vhive-serverless/sensorcheck/pkg/common"
)

// Tap is one consumer's view of the producer output. Every tap sees every line,
// so the acquisition loop and the watchdog never steal lines from each other.
type Tap struct {
	supervisor *Supervisor
	queues     [2]*common.LineQueue

	dropped atomic.Int64
}

func (t *Tap) push(line common.Line) {
	queue := t.queues[line.Stream]
	for queue.Length() >= MaxTapBacklog {
		if _, ok := queue.TryDequeue(); !ok {
			break
		}
		t.dropped.Add(1)
	}
	queue.Enqueue(line)
}

// ReadLine returns the next queued line of the stream, or false when none is available.
func (t *Tap) ReadLine(stream common.Stream) (string, bool) {
	line, ok := t.queues[stream].TryDequeue()
	return line.Text, ok
}

func (t *Tap) Running() bool {
	return t.supervisor.Running()
}

// Dropped counts lines discarded because the tap fell behind.
func (t *Tap) Dropped() int64 {
	return t.dropped.Load()
}

// Close detaches the tap; queued lines stay readable.
func (t *Tap) Close() {
	t.supervisor.release(t)
}
