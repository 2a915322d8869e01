package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// debugRatio is the pass rate of a sampler: keep events out of every window.
// The zero value disables sampling.
type debugRatio struct {
	keep, window int
}

// parseDebugRatio reads "keep/window" or a bare "window" meaning 1/window.
// Anything unparsable or non-positive disables sampling.
func parseDebugRatio(raw string) debugRatio {
	raw = strings.TrimSpace(raw)
	if keepStr, windowStr, ok := strings.Cut(raw, "/"); ok {
		keep, err1 := strconv.Atoi(strings.TrimSpace(keepStr))
		window, err2 := strconv.Atoi(strings.TrimSpace(windowStr))
		if err1 != nil || err2 != nil || keep <= 0 || window <= 0 {
			return debugRatio{}
		}
		return debugRatio{keep: min(keep, window), window: window}
	}
	window, err := strconv.Atoi(raw)
	if err != nil || window <= 0 {
		return debugRatio{}
	}
	return debugRatio{keep: 1, window: window}
}

func (r debugRatio) disabled() bool { return r.keep <= 0 || r.window <= 0 }

// debugSampler admits the first keep events of each window. It is lock-free;
// the ratio is swapped atomically and resets the window position.
type debugSampler struct {
	ratio atomic.Pointer[debugRatio]
	seen  atomic.Uint64
}

func newDebugSampler(r debugRatio) *debugSampler {
	s := &debugSampler{}
	s.Reset(r)
	return s
}

// Reset installs a new ratio.
func (s *debugSampler) Reset(r debugRatio) {
	s.ratio.Store(&r)
	s.seen.Store(0)
}

// Allow reports whether the next event passes.
func (s *debugSampler) Allow() bool {
	r := s.ratio.Load()
	if r == nil || r.disabled() {
		return true
	}
	n := s.seen.Add(1) - 1
	return n%uint64(r.window) < uint64(r.keep)
}
