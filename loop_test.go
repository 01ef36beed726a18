package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"scribe/engine"
	"scribe/finalize"
	"scribe/metrics"
)

type msgRecorder struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (r *msgRecorder) Send(msg tea.Msg) {
	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.mu.Unlock()
}

func (r *msgRecorder) statuses() []StatusMsg {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []StatusMsg
	for _, m := range r.msgs {
		if s, ok := m.(StatusMsg); ok {
			out = append(out, s)
		}
	}
	return out
}

func TestTranscribeLoopReplay(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	script := engine.NewScripted(
		engine.Partial("when the sky..."),
		engine.Partial("when the sky is blue."),
		engine.Final("when the sky is blue."),
		engine.Partial("she walked home."),
		engine.Final("she walked home."),
	)
	ui := &msgRecorder{}
	ctrl := finalize.New(script, finalize.RendererFunc(func(v finalize.View) {
		ui.Send(ViewMsg{View: v})
	}), finalize.Hooks{})

	transcribeLoop(context.Background(), script, countingHandler{Handler: ctrl, m: m}, ui, m)

	if got := ctrl.Transcript(); got != "When the sky is blue. She walked home." {
		t.Errorf("transcript = %q", got)
	}
	if got := testutil.ToFloat64(m.PartialUpdates); got != 3 {
		t.Errorf("partial updates = %v, want 3", got)
	}
	st := ui.statuses()
	if len(st) != 1 || st[0].Err {
		t.Errorf("statuses = %+v, want one replay finished notice", st)
	}
}

type failingSource struct {
	mu    sync.Mutex
	calls int
}

func (s *failingSource) Text(ctx context.Context, h engine.Handler) error {
	s.mu.Lock()
	s.calls++
	n := s.calls
	s.mu.Unlock()
	if n >= 2 {
		<-ctx.Done()
		return ctx.Err()
	}
	return errors.New("backend unavailable")
}

func (s *failingSource) SetPauseDuration(time.Duration) {}
func (s *failingSource) Close()                         {}

func TestTranscribeLoopRetriesAfterError(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	src := &failingSource{}
	ui := &msgRecorder{}
	ctrl := finalize.New(src, nil, finalize.Hooks{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		transcribeLoop(ctx, src, ctrl, ui, m)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		src.mu.Lock()
		calls := src.calls
		src.mu.Unlock()
		if calls >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("loop did not retry")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	<-done

	if got := testutil.ToFloat64(m.EngineErrors); got != 1 {
		t.Errorf("engine errors = %v, want 1", got)
	}
	st := ui.statuses()
	if len(st) != 1 || !st[0].Err || st[0].Text != "backend unavailable" {
		t.Errorf("statuses = %+v", st)
	}
}

func TestTranscribeLoopStopsOnClose(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	src := closedSource{}
	done := make(chan struct{})
	go func() {
		transcribeLoop(context.Background(), src, finalize.New(src, nil, finalize.Hooks{}), &msgRecorder{}, m)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop kept running after the source closed")
	}
}

type closedSource struct{}

func (closedSource) Text(context.Context, engine.Handler) error { return engine.ErrClosed }
func (closedSource) SetPauseDuration(time.Duration)             {}
func (closedSource) Close()                                     {}
