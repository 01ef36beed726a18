// Package engine adapts speech-to-text backends into a stream of partial and
// final utterance callbacks.
package engine

import (
	"context"
	"errors"
	"time"
)

// Handler receives the text an engine produces for one utterance: zero or
// more partial updates followed by exactly one final utterance.
type Handler interface {
	PartialUpdate(text string)
	FinalUtterance(text string)
}

// Source produces utterances. Text blocks until one utterance has been
// finalized and delivered to h.
type Source interface {
	Text(ctx context.Context, h Handler) error
	SetPauseDuration(d time.Duration)
	Close()
}

var (
	ErrScriptDone = errors.New("script exhausted")
	ErrClosed     = errors.New("source closed")
)
