package engine

import "time"

type edge int

const (
	edgeNone edge = iota
	edgeStart
	edgeEnd
)

// endpointer gates utterances on frame energy. The silence timeout is
// fetched through pause before every end-of-utterance decision so that
// threshold changes apply to the utterance in progress.
type endpointer struct {
	threshold    float64
	speechStart  time.Duration
	minUtterance time.Duration
	maxUtterance time.Duration
	pause        func() time.Duration

	active  bool
	voiced  time.Duration
	silence time.Duration
	length  time.Duration
}

func (e *endpointer) Active() bool { return e.active }

func (e *endpointer) Length() time.Duration { return e.length }

func (e *endpointer) Process(level float64, d time.Duration) edge {
	loud := level >= e.threshold

	if !e.active {
		if !loud {
			e.voiced = 0
			return edgeNone
		}
		e.voiced += d
		if e.voiced < e.speechStart {
			return edgeNone
		}
		e.active = true
		e.length = e.voiced
		e.voiced = 0
		e.silence = 0
		return edgeStart
	}

	e.length += d
	if loud {
		e.silence = 0
	} else {
		e.silence += d
	}

	if e.maxUtterance > 0 && e.length >= e.maxUtterance {
		e.reset()
		return edgeEnd
	}
	if e.silence >= e.pause() && e.length >= e.minUtterance {
		e.reset()
		return edgeEnd
	}
	return edgeNone
}

func (e *endpointer) reset() {
	e.active = false
	e.voiced = 0
	e.silence = 0
	e.length = 0
}
