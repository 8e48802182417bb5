package logger

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
)

// sink is one destination of an asyncWriter. A sink that fails once is
// disabled so a full disk under the log file does not silence stdout.
type sink struct {
	buf *bufio.Writer
	err error
}

// asyncWriter owns its sinks from a single goroutine. Lines are buffered and
// flushed whenever the queue drains, so bursts cost one syscall per sink.
type asyncWriter struct {
	lines   chan []byte
	syncReq chan chan struct{}
	done    chan struct{}
	stop    sync.Once

	sinks []*sink
	// live counts sinks that still accept writes.
	live atomic.Int32

	// closeMu guards closed and the send on lines against Close.
	closeMu sync.RWMutex
	closed  bool

	errMu sync.Mutex
	errs  []error
}

func newAsyncWriter(writers []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	w := &asyncWriter{
		lines:   make(chan []byte, 256),
		syncReq: make(chan chan struct{}),
		done:    make(chan struct{}),
	}
	for _, out := range writers {
		if out != nil {
			w.sinks = append(w.sinks, &sink{buf: bufio.NewWriterSize(out, bufSize)})
		}
	}
	w.live.Store(int32(len(w.sinks)))
	go w.run()
	return w
}

func (w *asyncWriter) run() {
	defer close(w.done)
	for {
		select {
		case line, ok := <-w.lines:
			if !ok {
				w.flush()
				return
			}
			w.emit(line)
			if len(w.lines) == 0 {
				w.flush()
			}
		case ack := <-w.syncReq:
			w.drain()
			w.flush()
			close(ack)
		}
	}
}

// drain writes everything queued so far without blocking on new lines.
func (w *asyncWriter) drain() {
	for {
		select {
		case line, ok := <-w.lines:
			if !ok {
				return
			}
			w.emit(line)
		default:
			return
		}
	}
}

func (w *asyncWriter) emit(line []byte) {
	for i, s := range w.sinks {
		if s.err != nil {
			continue
		}
		if _, err := s.buf.Write(line); err != nil {
			w.fail(i, err)
		}
	}
}

func (w *asyncWriter) flush() {
	for i, s := range w.sinks {
		if s.err != nil {
			continue
		}
		if err := s.buf.Flush(); err != nil {
			w.fail(i, err)
		}
	}
}

func (w *asyncWriter) fail(i int, err error) {
	s := w.sinks[i]
	s.err = fmt.Errorf("log sink %d: %w", i, err)
	w.live.Add(-1)
	w.errMu.Lock()
	w.errs = append(w.errs, s.err)
	w.errMu.Unlock()
}

// Write queues a copy of p. It blocks while the queue is full and fails only
// once every sink has failed or the writer is closed.
func (w *asyncWriter) Write(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if len(w.sinks) > 0 && w.live.Load() == 0 {
		return w.Err()
	}
	w.closeMu.RLock()
	defer w.closeMu.RUnlock()
	if w.closed {
		return errors.New("logger: writer closed")
	}
	w.lines <- append([]byte(nil), p...)
	return nil
}

// Flush waits until every line queued before the call reached the sinks and
// reports the sinks that have failed so far.
func (w *asyncWriter) Flush() error {
	ack := make(chan struct{})
	select {
	case w.syncReq <- ack:
		<-ack
	case <-w.done:
	}
	return w.Err()
}

// Close drains the queue and returns the errors of failed sinks.
func (w *asyncWriter) Close() error {
	w.stop.Do(func() {
		w.closeMu.Lock()
		w.closed = true
		close(w.lines)
		w.closeMu.Unlock()
	})
	<-w.done
	return w.Err()
}

// Err joins the errors of all failed sinks.
func (w *asyncWriter) Err() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return errors.Join(w.errs...)
}
