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

import (
	"sync/atomic"
)

// Line is one line of producer output with the stream it came from.
type Line struct {
	Text   string
	Stream Stream
	// Seq is the arrival order across both streams of one producer.
	Seq uint64
}

// LineQueue is an unbounded multi-producer FIFO whose reads never block
// (Michael & Scott, The Art of Multiprocessor Programming pg. 236).
type LineQueue struct {
	head atomic.Pointer[lineNode]
	tail atomic.Pointer[lineNode]

	length atomic.Int64
}

type lineNode struct {
	line Line
	next atomic.Pointer[lineNode]
}

func NewLineQueue() *LineQueue {
	queue := &LineQueue{}
	sentinel := &lineNode{}

	queue.head.Store(sentinel)
	queue.tail.Store(sentinel)

	return queue
}

func (q *LineQueue) Enqueue(line Line) {
	node := &lineNode{line: line}

	for {
		last := q.tail.Load()
		next := last.next.Load()

		if last != q.tail.Load() {
			continue
		}
		if next != nil {
			q.tail.CompareAndSwap(last, next)
			continue
		}
		if last.next.CompareAndSwap(nil, node) {
			q.tail.CompareAndSwap(last, node)
			q.length.Add(1)
			return
		}
	}
}

// TryDequeue returns false immediately when the queue is empty.
func (q *LineQueue) TryDequeue() (Line, bool) {
	for {
		first := q.head.Load()
		last := q.tail.Load()
		next := first.next.Load()

		if first != q.head.Load() {
			continue
		}
		if first == last {
			if next == nil {
				return Line{}, false
			}
			q.tail.CompareAndSwap(last, next)
			continue
		}
		if q.head.CompareAndSwap(first, next) {
			q.length.Add(-1)
			return next.line, true
		}
	}
}

func (q *LineQueue) Length() int {
	return int(q.length.Load())
}
