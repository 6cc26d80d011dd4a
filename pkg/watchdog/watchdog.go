package watchdog

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vhive-serverless/sensorcheck/pkg/common"
)

type LineSource interface {
	ReadLine(stream common.Stream) (string, bool)
	Running() bool
}

// Watchdog infers from the length of the latest primary line whether the COMSERVER still talks to a sensor.
// A connected sensor produces full telemetry lines, a disconnected one only short status lines or nothing.
// Every tick judges the newest line only; older queued lines are discarded.
type Watchdog struct {
	Source   LineSource
	Interval time.Duration
	OnStatus func(status common.SensorStatus)

	status atomic.Value

	mutex  sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewWatchdog(source LineSource) *Watchdog {
	return &Watchdog{
		Source:   source,
		Interval: common.WatchdogInterval,
	}
}

// Start launches the watchdog loop. Calling Start on a running watchdog does nothing.
func (w *Watchdog) Start(ctx context.Context) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.cancel != nil {
		return
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop(ctx)
	}()
}

// Stop cancels the loop and waits for it to return.
func (w *Watchdog) Stop() {
	w.mutex.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mutex.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
}

func (w *Watchdog) Status() common.SensorStatus {
	if status, ok := w.status.Load().(common.SensorStatus); ok {
		return status
	}
	return common.StatusNotRunning
}

func (w *Watchdog) loop(ctx context.Context) {
	interval := w.Interval
	if interval <= 0 {
		interval = common.WatchdogInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	shortLines := 0
	for {
		select {
		case <-ctx.Done():
			w.publish(common.StatusNotRunning)
			return
		case <-ticker.C:
		}

		if !w.Source.Running() {
			w.publish(common.StatusNotRunning)
			return
		}

		w.drain(common.Diagnostic)
		line := w.drain(common.Primary)

		if len(line) < common.ConnectedLineLength {
			shortLines++
		} else {
			shortLines = 0
		}

		if shortLines > common.ShortLineLimit {
			w.publish(common.StatusSensorNotConnected)
		} else {
			w.publish(common.StatusRunning)
		}
	}
}

// drain empties the stream and returns its newest line, or "" when nothing arrived since the last tick.
func (w *Watchdog) drain(stream common.Stream) string {
	latest := ""
	for {
		line, ok := w.Source.ReadLine(stream)
		if !ok {
			return latest
		}
		latest = line
	}
}

func (w *Watchdog) publish(status common.SensorStatus) {
	if w.Status() == status && w.status.Load() != nil {
		return
	}
	w.status.Store(status)

	log.WithField("status", string(status)).Info("Sensor status changed")
	if w.OnStatus != nil {
		w.OnStatus(status)
	}
}
