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

package supervisor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vhive-serverless/sensorcheck/pkg/common"
)

var ErrEmptyPath = errors.New("producer path is empty")

// LaunchError is returned when the producer process cannot be started.
type LaunchError struct {
	Path string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch producer %q: %v", e.Path, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// Termination mechanisms, replaced in tests.
var (
	terminateTree = killProcessGroup
	killProcess   = (*os.Process).Kill
)

// MaxTapBacklog bounds the lines a slow tap keeps per stream; older lines are dropped first.
const MaxTapBacklog = 4096

// Supervisor owns at most one producer process and fans its output out to taps.
type Supervisor struct {
	mutex sync.Mutex
	cmd   *exec.Cmd
	done  chan struct{}

	running atomic.Bool
	seq     atomic.Uint64

	tapMutex sync.RWMutex
	taps     map[*Tap]struct{}
}

func NewSupervisor() *Supervisor {
	return &Supervisor{
		taps: make(map[*Tap]struct{}),
	}
}

// Start launches the producer with both output streams captured. Calling Start
// while a producer is alive keeps the existing one.
func (s *Supervisor) Start(path string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.running.Load() {
		log.Debugf("COMSERVER already running (pid %d), not starting %s.", s.cmd.Process.Pid, path)
		return nil
	}

	if path == "" {
		return &LaunchError{Path: path, Err: ErrEmptyPath}
	}
	if _, err := os.Stat(path); err != nil {
		return &LaunchError{Path: path, Err: err}
	}

	cmd := shellCommand(path)
	configureProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &LaunchError{Path: path, Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return &LaunchError{Path: path, Err: err}
	}

	if err := cmd.Start(); err != nil {
		return &LaunchError{Path: path, Err: err}
	}

	s.cmd = cmd
	s.done = make(chan struct{})
	s.running.Store(true)

	log.Infof("COMSERVER started (pid %d): %s", cmd.Process.Pid, path)

	var readers sync.WaitGroup
	readers.Add(2)
	go s.pump(stdout, common.Primary, &readers)
	go s.pump(stderr, common.Diagnostic, &readers)
	go s.await(cmd, s.done, &readers)

	return nil
}

// pump forwards every line of one pipe to all taps until EOF.
func (s *Supervisor) pump(pipe io.Reader, stream common.Stream, readers *sync.WaitGroup) {
	defer readers.Done()

	reader := bufio.NewReader(pipe)
	for {
		text, err := reader.ReadString('\n')
		if len(text) > 0 {
			s.broadcast(common.Line{
				Text:   strings.TrimRight(text, "\r\n"),
				Stream: stream,
				Seq:    s.seq.Add(1),
			})
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				log.Debugf("COMSERVER %s closed: %v", stream, err)
			}
			return
		}
	}
}

// await reaps the process once both pipes are drained, so that every line is
// queued before Running reports false.
func (s *Supervisor) await(cmd *exec.Cmd, done chan struct{}, readers *sync.WaitGroup) {
	readers.Wait()
	err := cmd.Wait()

	s.running.Store(false)
	close(done)

	if err != nil {
		log.Infof("COMSERVER (pid %d) exited: %v", cmd.Process.Pid, err)
	} else {
		log.Infof("COMSERVER (pid %d) exited.", cmd.Process.Pid)
	}
}

func (s *Supervisor) broadcast(line common.Line) {
	s.tapMutex.RLock()
	defer s.tapMutex.RUnlock()

	for tap := range s.taps {
		tap.push(line)
	}
}

// Stop terminates the producer and its children. Failures are logged, never returned.
func (s *Supervisor) Stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.cmd == nil || !s.running.Load() {
		log.Debug("COMSERVER is not running, nothing to stop.")
		return
	}

	pid := s.cmd.Process.Pid
	if err := terminateTree(s.cmd); err != nil {
		log.Warnf("Failed to terminate the COMSERVER process tree (pid %d): %v", pid, err)

		if err := killProcess(s.cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
			log.Warnf("Failed to forcefully terminate COMSERVER (pid %d), abandoning it: %v", pid, err)
			return
		}
	}

	select {
	case <-s.done:
		log.Infof("COMSERVER (pid %d) stopped.", pid)
	case <-time.After(common.StopTimeout):
		log.Warnf("COMSERVER (pid %d) did not release its output within %v, abandoning it.", pid, common.StopTimeout)
	}
}

// Running never blocks; it reflects the last state observed by the reaper.
func (s *Supervisor) Running() bool {
	return s.running.Load()
}

// Done is closed when the current producer has exited.
func (s *Supervisor) Done() <-chan struct{} {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.done == nil {
		done := make(chan struct{})
		close(done)
		return done
	}
	return s.done
}

func (s *Supervisor) Pid() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.cmd == nil || !s.running.Load() {
		return 0
	}
	return s.cmd.Process.Pid
}

// Tap registers a new consumer that receives every line produced from now on.
func (s *Supervisor) Tap() *Tap {
	tap := &Tap{
		supervisor: s,
		queues:     [2]*common.LineQueue{common.NewLineQueue(), common.NewLineQueue()},
	}

	s.tapMutex.Lock()
	s.taps[tap] = struct{}{}
	s.tapMutex.Unlock()

	return tap
}

func (s *Supervisor) release(tap *Tap) {
	s.tapMutex.Lock()
	delete(s.taps, tap)
	s.tapMutex.Unlock()
}
