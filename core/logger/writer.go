package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

// sinkOp is either a log line or a flush request; flush carries the ack channel.
type sinkOp struct {
	line  []byte
	flush chan error
}

// lineSink owns the outputs from a single goroutine so records from
// concurrent handlers never interleave mid-line.
type lineSink struct {
	ops     chan sinkOp
	stopped chan struct{}
	close   sync.Once

	outs []*bufio.Writer

	errMu sync.Mutex
	err   error
}

func newLineSink(outputs []io.Writer, bufSize int) *lineSink {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	s := &lineSink{
		ops:     make(chan sinkOp, 256),
		stopped: make(chan struct{}),
	}
	for _, out := range outputs {
		if out != nil {
			s.outs = append(s.outs, bufio.NewWriterSize(out, bufSize))
		}
	}
	go s.run()
	return s
}

func (s *lineSink) run() {
	defer close(s.stopped)
	for op := range s.ops {
		if op.flush != nil {
			op.flush <- s.flushOutputs()
			continue
		}
		s.record(s.emit(op.line))
	}
	s.record(s.flushOutputs())
}

// Write copies p and hands it to the sink goroutine. It blocks when the
// queue is full; lines are never dropped.
func (s *lineSink) Write(p []byte) error {
	if err := s.firstErr(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	s.ops <- sinkOp{line: append([]byte(nil), p...)}
	return nil
}

// Flush blocks until every queued line has reached the outputs.
func (s *lineSink) Flush() error {
	if err := s.firstErr(); err != nil {
		return err
	}
	ack := make(chan error, 1)
	s.ops <- sinkOp{flush: ack}
	return <-ack
}

// Close drains the queue and returns the first write error seen.
func (s *lineSink) Close() error {
	s.close.Do(func() { close(s.ops) })
	<-s.stopped
	return s.firstErr()
}

// emit writes line to every output and flushes it immediately so a crash
// loses at most the line in flight.
func (s *lineSink) emit(line []byte) error {
	for _, out := range s.outs {
		if _, err := out.Write(line); err != nil {
			return err
		}
		if err := out.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (s *lineSink) flushOutputs() error {
	var errs []error
	for _, out := range s.outs {
		if err := out.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *lineSink) record(err error) {
	if err == nil {
		return
	}
	s.errMu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.errMu.Unlock()
}

func (s *lineSink) firstErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}
