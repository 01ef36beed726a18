// Package finalize decides when live transcription fragments become part of
// the transcript and steers the engine's end-of-utterance silence threshold.
package finalize

import (
	"sync"
	"time"
)

// Hooks observe controller activity. Any field may be nil.
type Hooks struct {
	Threshold func(b Boundary, pause time.Duration)
	Final     func(text string, appended bool)
	Render    func(v View, suppressed bool)
}

// Controller consumes partial and final hypotheses from one engine session.
type Controller struct {
	mu        sync.Mutex
	threshold *Threshold
	renderer  Renderer
	hooks     Hooks

	log      TranscriptLog
	pending  string
	previous string
	lastView View
}

func New(setter PauseSetter, renderer Renderer, hooks Hooks) *Controller {
	t := NewThreshold(setter)
	t.onApply = hooks.Threshold
	return &Controller{
		threshold: t,
		renderer:  renderer,
		hooks:     hooks,
	}
}

// PartialUpdate handles a stabilized, not yet final hypothesis.
func (c *Controller) PartialUpdate(raw string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.partialLocked(raw)
}

// FinalUtterance commits a completed utterance to the transcript.
func (c *Controller) FinalUtterance(raw string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.threshold.Apply(Unknown)

	text := Normalize(raw)
	appended := c.log.Append(text)
	if c.hooks.Final != nil {
		c.hooks.Final(cleanFinal(text), appended)
	}

	c.previous = ""
	c.pending = ""
	c.partialLocked("")
}

func (c *Controller) partialLocked(raw string) {
	text := Normalize(raw)
	c.threshold.Apply(Classify(text, c.previous))
	c.previous = text
	c.pending = text

	view := c.viewLocked()
	if view.Equal(c.lastView) {
		if c.hooks.Render != nil {
			c.hooks.Render(view, true)
		}
		return
	}
	c.lastView = view
	if c.renderer != nil {
		c.renderer.Render(view)
	}
	if c.hooks.Render != nil {
		c.hooks.Render(view, false)
	}
}

func (c *Controller) viewLocked() View {
	view := View(c.log.Entries())
	if c.pending != "" {
		view = append(view, Segment{Text: c.pending, Style: StylePending})
	}
	return view
}

// View returns the most recently rendered view.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append(View(nil), c.lastView...)
}

// Transcript returns the finalized sentences joined by spaces.
func (c *Controller) Transcript() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.log.Text()
}

// Sentences returns the number of finalized sentences.
func (c *Controller) Sentences() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.log.Len()
}

// Pending returns the current in-progress fragment.
func (c *Controller) Pending() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}
