package main

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"scribe/engine"
	"scribe/log"
	"scribe/metrics"
)

const errorBackoff = 500 * time.Millisecond

type sender interface {
	Send(msg tea.Msg)
}

// countingHandler counts partial updates before passing them on.
type countingHandler struct {
	engine.Handler
	m *metrics.Metrics
}

func (h countingHandler) PartialUpdate(text string) {
	h.m.PartialUpdates.Inc()
	h.Handler.PartialUpdate(text)
}

// transcribeLoop requests utterances until ctx ends or the source is
// exhausted. Engine errors are reported and retried after a short pause.
func transcribeLoop(ctx context.Context, src engine.Source, h engine.Handler, ui sender, m *metrics.Metrics) {
	for {
		err := src.Text(ctx, h)
		switch {
		case err == nil:
			continue
		case ctx.Err() != nil, errors.Is(err, engine.ErrClosed):
			return
		case errors.Is(err, engine.ErrScriptDone):
			log.Info("replay_finished")
			ui.Send(StatusMsg{Text: "replay finished, ctrl+c to exit"})
			return
		}

		log.Errorf("engine error: %v", err)
		m.EngineErrors.Inc()
		ui.Send(StatusMsg{Text: err.Error(), Err: true})

		select {
		case <-ctx.Done():
			return
		case <-time.After(errorBackoff):
		}
	}
}
