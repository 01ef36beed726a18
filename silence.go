package main

import "time"

const (
	tickInterval     = 100 * time.Millisecond
	silenceWarnAfter = 8 * time.Second
	speechMinRatio   = 0.10
	speechClearRatio = 0.25 // higher threshold to clear warning (hysteresis)
)

type SilenceEvent int

const (
	SilenceNone      SilenceEvent = iota
	SilenceWarn                   // no voice detected
	SilenceWarnClear              // speech resumed after warning
)

// silenceMonitor watches input levels for a microphone that never picks up
// speech. Frames are grouped into fixed ticks of audio time; a tick counts
// as speech when any frame in it reaches the threshold.
type silenceMonitor struct {
	threshold float64
	windowSz  int

	ticks  int
	window []bool
	warned bool

	acc  time.Duration
	loud bool
}

func newSilenceMonitor(threshold float64) *silenceMonitor {
	windowSz := int(silenceWarnAfter / tickInterval)
	return &silenceMonitor{
		threshold: threshold,
		windowSz:  windowSz,
		window:    make([]bool, windowSz),
	}
}

// Feed accounts one frame of d audio at the given level.
func (m *silenceMonitor) Feed(level float64, d time.Duration) SilenceEvent {
	if level >= m.threshold {
		m.loud = true
	}
	m.acc += d
	ev := SilenceNone
	for m.acc >= tickInterval {
		m.acc -= tickInterval
		if e := m.Tick(m.loud); e != SilenceNone {
			ev = e
		}
		m.loud = false
	}
	return ev
}

func (m *silenceMonitor) ratio() float64 {
	n := min(m.ticks, m.windowSz)
	if n == 0 {
		return 1.0
	}
	count := 0
	for i := 0; i < n; i++ {
		if m.window[(m.ticks-1-i+m.windowSz)%m.windowSz] {
			count++
		}
	}
	return float64(count) / float64(n)
}

func (m *silenceMonitor) Tick(hasSpeech bool) SilenceEvent {
	m.window[m.ticks%m.windowSz] = hasSpeech
	m.ticks++

	r := m.ratio()
	if m.ticks >= m.windowSz && r < speechMinRatio && !m.warned {
		m.warned = true
		return SilenceWarn
	}
	if m.warned && r >= speechClearRatio {
		m.warned = false
		return SilenceWarnClear
	}
	return SilenceNone
}
