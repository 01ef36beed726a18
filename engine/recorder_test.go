package engine

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"scribe/audio"
	"scribe/encoder"
)

type recordingHandler struct {
	mu     sync.Mutex
	events []string
}

func (h *recordingHandler) PartialUpdate(text string) {
	h.mu.Lock()
	h.events = append(h.events, "partial:"+text)
	h.mu.Unlock()
}

func (h *recordingHandler) FinalUtterance(text string) {
	h.mu.Lock()
	h.events = append(h.events, "final:"+text)
	h.mu.Unlock()
}

func (h *recordingHandler) Events() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.events...)
}

func tone(d time.Duration) []byte {
	n := int(d * encoder.SampleRate / time.Second)
	pcm := make([]byte, n*2)
	for i := range n {
		s := int16(8000 * math.Sin(2*math.Pi*440*float64(i)/encoder.SampleRate))
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}
	return pcm
}

func testRecorderConfig() RecorderConfig {
	return RecorderConfig{
		Model:           "final-model",
		Language:        "en",
		EnergyThreshold: 0.05,
		SpeechStart:     100 * time.Millisecond,
		PreRoll:         300 * time.Millisecond,
		MinUtterance:    200 * time.Millisecond,
		MaxUtterance:    30 * time.Second,
		InitialPause:    700 * time.Millisecond,
	}
}

func newTestRecorder(t *testing.T, pcm []byte, realtime bool, tr Transcriber, cfg RecorderConfig, hooks RecorderHooks) *Recorder {
	t.Helper()
	ctx := audio.NewFakeContextPCM(pcm, realtime)
	dev, err := ctx.NewCapture(nil, audio.CaptureConfig{SampleRate: encoder.SampleRate, Channels: 1})
	if err != nil {
		t.Fatal(err)
	}
	r := NewRecorder(dev, tr, cfg, hooks)
	t.Cleanup(r.Close)
	return r
}

func TestRecorderFinalUtterance(t *testing.T) {
	tr := NewFake(nil, "hello world.")
	var (
		stats  UtteranceStats
		states []State
	)
	r := newTestRecorder(t, tone(time.Second), false, tr, testRecorderConfig(), RecorderHooks{
		State:     func(s State) { states = append(states, s) },
		Utterance: func(s UtteranceStats) { stats = s },
	})

	h := &recordingHandler{}
	if err := r.Text(context.Background(), h); err != nil {
		t.Fatal(err)
	}

	events := h.Events()
	if len(events) != 1 || events[0] != "final:hello world." {
		t.Errorf("events = %q", events)
	}

	reqs := tr.Requests()
	if len(reqs) != 1 {
		t.Fatalf("requests = %d, want 1", len(reqs))
	}
	req := reqs[0]
	if req.Model != "final-model" || req.Format != "flac" || req.Language != "en" {
		t.Errorf("request = %+v", req)
	}
	if !bytes.HasPrefix(req.Audio, []byte("fLaC")) {
		t.Error("final audio is not FLAC")
	}

	if stats.Audio < 1500*time.Millisecond || stats.Audio > 2500*time.Millisecond {
		t.Errorf("utterance audio = %v, want speech plus 700ms pause", stats.Audio)
	}
	want := []State{StateListening, StateRecording, StateTranscribing, StateListening}
	if len(states) != len(want) {
		t.Fatalf("states = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("states[%d] = %v, want %v", i, states[i], want[i])
		}
	}
}

func TestRecorderHonorsPauseDuration(t *testing.T) {
	tests := []struct {
		pause    time.Duration
		min, max time.Duration
	}{
		{450 * time.Millisecond, 1300 * time.Millisecond, 2000 * time.Millisecond},
		{2 * time.Second, 2900 * time.Millisecond, 3600 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.pause.String(), func(t *testing.T) {
			var stats UtteranceStats
			r := newTestRecorder(t, tone(time.Second), false, NewFake(nil, "ok."), testRecorderConfig(), RecorderHooks{
				Utterance: func(s UtteranceStats) { stats = s },
			})
			r.SetPauseDuration(tt.pause)
			if got := r.PauseDuration(); got != tt.pause {
				t.Fatalf("PauseDuration = %v", got)
			}

			if err := r.Text(context.Background(), &recordingHandler{}); err != nil {
				t.Fatal(err)
			}
			if stats.Audio < tt.min || stats.Audio > tt.max {
				t.Errorf("utterance audio = %v, want within [%v, %v]", stats.Audio, tt.min, tt.max)
			}
		})
	}
}

func TestRecorderTranscriptionError(t *testing.T) {
	boom := errors.New("boom")
	r := newTestRecorder(t, tone(500*time.Millisecond), false, NewFake(boom), testRecorderConfig(), RecorderHooks{})

	h := &recordingHandler{}
	err := r.Text(context.Background(), h)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped boom", err)
	}
	if len(h.Events()) != 0 {
		t.Errorf("events = %q, want none", h.Events())
	}
}

func TestRecorderContextCancel(t *testing.T) {
	r := newTestRecorder(t, nil, false, NewFake(nil, "x"), testRecorderConfig(), RecorderHooks{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := r.Text(ctx, &recordingHandler{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestRecorderClose(t *testing.T) {
	r := newTestRecorder(t, nil, false, NewFake(nil, "x"), testRecorderConfig(), RecorderHooks{})

	errc := make(chan error, 1)
	go func() { errc <- r.Text(context.Background(), &recordingHandler{}) }()

	time.Sleep(20 * time.Millisecond)
	r.Close()

	select {
	case err := <-errc:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("err = %v, want ErrClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Text did not return after Close")
	}
}

func TestRecorderRealtimePartials(t *testing.T) {
	tr := NewFakeFunc(func(r Request) (string, error) {
		if r.Model == "rt-model" {
			return "hello...", nil
		}
		return "Hello world.", nil
	})
	cfg := testRecorderConfig()
	cfg.RealtimeModel = "rt-model"
	cfg.RealtimePrompt = RealtimePrompt
	cfg.RealtimePause = 10 * time.Millisecond

	var stats UtteranceStats
	r := newTestRecorder(t, tone(time.Second), true, tr, cfg, RecorderHooks{
		Utterance: func(s UtteranceStats) { stats = s },
	})

	h := &recordingHandler{}
	if err := r.Text(context.Background(), h); err != nil {
		t.Fatal(err)
	}

	events := h.Events()
	if len(events) < 2 {
		t.Fatalf("events = %q, want partials then final", events)
	}
	if last := events[len(events)-1]; last != "final:Hello world." {
		t.Errorf("last event = %q", last)
	}
	for _, ev := range events[:len(events)-1] {
		if ev != "partial:hello..." {
			t.Errorf("unexpected event before final: %q", ev)
		}
	}
	if stats.Partials != len(events)-1 {
		t.Errorf("stats.Partials = %d, want %d", stats.Partials, len(events)-1)
	}

	for _, req := range tr.Requests() {
		if req.Model == "rt-model" && req.Prompt != RealtimePrompt {
			t.Errorf("realtime request prompt = %q", req.Prompt)
		}
	}
}

type providerTranscriber struct {
	*FakeTranscriber
	res    Result
	warmed chan struct{}
}

func (p *providerTranscriber) Transcribe(ctx context.Context, r Request) (*Result, error) {
	if _, err := p.FakeTranscriber.Transcribe(ctx, r); err != nil {
		return nil, err
	}
	res := p.res
	return &res, nil
}

func (p *providerTranscriber) Warm(context.Context) { close(p.warmed) }

func TestRecorderProviderDetails(t *testing.T) {
	tr := &providerTranscriber{
		FakeTranscriber: NewFake(nil),
		res:             Result{Text: "hello.", RateLimit: "9/10", Confidence: 0.8, Duration: 1.5},
		warmed:          make(chan struct{}),
	}
	var stats UtteranceStats
	r := newTestRecorder(t, tone(time.Second), false, tr, testRecorderConfig(), RecorderHooks{
		Utterance: func(s UtteranceStats) { stats = s },
	})

	if err := r.Text(context.Background(), &recordingHandler{}); err != nil {
		t.Fatal(err)
	}
	select {
	case <-tr.warmed:
	case <-time.After(time.Second):
		t.Error("transcriber was not warmed on start")
	}
	if stats.RateLimit != "9/10" || stats.Confidence != 0.8 || stats.Billed != 1500*time.Millisecond {
		t.Errorf("stats = %+v", stats)
	}
}
