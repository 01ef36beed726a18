package engine

import (
	"context"
	"fmt"
	"sync"
)

// FakeTranscriber returns canned text. When texts has several entries they
// are returned in order and the last one repeats. If fn is set it decides
// the text for each request instead.
type FakeTranscriber struct {
	mu       sync.Mutex
	texts    []string
	fn       func(Request) (string, error)
	err      error
	requests []Request
}

func NewFake(err error, texts ...string) *FakeTranscriber {
	return &FakeTranscriber{texts: texts, err: err}
}

// NewFakeFunc returns a fake that answers every request with fn.
func NewFakeFunc(fn func(Request) (string, error)) *FakeTranscriber {
	return &FakeTranscriber{fn: fn}
}

func (f *FakeTranscriber) Name() string { return "fake" }

func (f *FakeTranscriber) Transcribe(_ context.Context, r Request) (*Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r)
	if f.fn != nil {
		text, err := f.fn(r)
		if err != nil {
			return nil, err
		}
		return &Result{Text: text, Metrics: &NetworkMetrics{}}, nil
	}
	if f.err != nil {
		return nil, fmt.Errorf("fake transcriber error: %w", f.err)
	}
	text := ""
	if len(f.texts) > 0 {
		text = f.texts[0]
		if len(f.texts) > 1 {
			f.texts = f.texts[1:]
		}
	}
	return &Result{Text: text, Metrics: &NetworkMetrics{}}, nil
}

// Requests returns every request seen so far.
func (f *FakeTranscriber) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.requests...)
}
