package finalize

import "time"

const (
	EndOfSentencePause = 450 * time.Millisecond
	UnknownPause       = 700 * time.Millisecond
	MidSentencePause   = 2 * time.Second
)

// PauseSetter is the single write the controller performs on the engine.
type PauseSetter interface {
	SetPauseDuration(d time.Duration)
}

// PauseFor maps a boundary guess to the trailing silence the engine should
// wait before closing the utterance.
func PauseFor(b Boundary) time.Duration {
	switch b {
	case MidSentence:
		return MidSentencePause
	case EndOfSentence:
		return EndOfSentencePause
	default:
		return UnknownPause
	}
}

// Threshold pushes pause durations into the engine. Writes are never
// coalesced: the engine polls the value before each silence decision.
type Threshold struct {
	setter  PauseSetter
	onApply func(Boundary, time.Duration)
}

func NewThreshold(setter PauseSetter) *Threshold {
	return &Threshold{setter: setter}
}

func (t *Threshold) Apply(b Boundary) time.Duration {
	d := PauseFor(b)
	if t.setter != nil {
		t.setter.SetPauseDuration(d)
	}
	if t.onApply != nil {
		t.onApply(b, d)
	}
	return d
}
