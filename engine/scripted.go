package engine

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

type EventKind int

const (
	EventPartial EventKind = iota
	EventFinal
)

type Event struct {
	Kind  EventKind
	Text  string
	Delay time.Duration
}

func Partial(text string) Event { return Event{Kind: EventPartial, Text: text} }
func Final(text string) Event   { return Event{Kind: EventFinal, Text: text} }

// UnmarshalYAML accepts `partial: text` or `final: text`, with an optional
// `delay` before the event is delivered.
func (e *Event) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Partial *string `yaml:"partial"`
		Final   *string `yaml:"final"`
		Delay   string  `yaml:"delay"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	switch {
	case raw.Partial != nil && raw.Final != nil:
		return fmt.Errorf("line %d: event has both partial and final", node.Line)
	case raw.Partial != nil:
		e.Kind, e.Text = EventPartial, *raw.Partial
	case raw.Final != nil:
		e.Kind, e.Text = EventFinal, *raw.Final
	default:
		return fmt.Errorf("line %d: event needs partial or final", node.Line)
	}
	if raw.Delay != "" {
		d, err := time.ParseDuration(raw.Delay)
		if err != nil {
			return fmt.Errorf("line %d: delay: %w", node.Line, err)
		}
		e.Delay = d
	}
	return nil
}

// Scripted replays a fixed event sequence and records every pause write.
type Scripted struct {
	mu     sync.Mutex
	events []Event
	pos    int
	pauses []time.Duration
}

func NewScripted(events ...Event) *Scripted {
	return &Scripted{events: events}
}

func LoadScript(path string) (*Scripted, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	var events []Event
	if err := yaml.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("parsing script: %w", err)
	}
	return NewScripted(events...), nil
}

func (s *Scripted) Text(ctx context.Context, h Handler) error {
	for {
		s.mu.Lock()
		if s.pos >= len(s.events) {
			s.mu.Unlock()
			return ErrScriptDone
		}
		ev := s.events[s.pos]
		s.pos++
		s.mu.Unlock()

		if ev.Delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(ev.Delay):
			}
		}

		switch ev.Kind {
		case EventPartial:
			h.PartialUpdate(ev.Text)
		case EventFinal:
			h.FinalUtterance(ev.Text)
			return nil
		}
	}
}

func (s *Scripted) SetPauseDuration(d time.Duration) {
	s.mu.Lock()
	s.pauses = append(s.pauses, d)
	s.mu.Unlock()
}

// Pauses returns every pause duration written so far, oldest first.
func (s *Scripted) Pauses() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.pauses...)
}

func (s *Scripted) Close() {}
