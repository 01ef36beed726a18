package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"scribe/audio"
	"scribe/encoder"
)

// RealtimePrompt asks the realtime model to mark unfinished sentences with an
// ellipsis, which is what the sentence classifier keys on.
const RealtimePrompt = "End incomplete sentences with ellipses.\n" +
	"Examples:\n" +
	"Complete: The sky is blue.\n" +
	"Incomplete: When the sky...\n" +
	"Complete: She walked home.\n" +
	"Incomplete: Because he...\n"

const (
	defaultPause   = 700 * time.Millisecond
	frameQueueSize = 1024
)

type RecorderConfig struct {
	Model          string
	RealtimeModel  string // empty disables partial updates
	Language       string
	Prompt         string
	RealtimePrompt string

	EnergyThreshold float64
	SpeechStart     time.Duration
	PreRoll         time.Duration
	MinUtterance    time.Duration
	MaxUtterance    time.Duration // 0 means unbounded
	RealtimePause   time.Duration
	InitialPause    time.Duration
}

type State int

const (
	StateListening State = iota
	StateRecording
	StateTranscribing
)

func (s State) String() string {
	switch s {
	case StateListening:
		return "listening"
	case StateRecording:
		return "recording"
	case StateTranscribing:
		return "transcribing"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// UtteranceStats describes one finalized utterance. RateLimit, Confidence
// and Billed come from the provider and are zero when it does not report
// them.
type UtteranceStats struct {
	Audio      time.Duration
	Partials   int
	Latency    time.Duration
	Metrics    *NetworkMetrics
	RateLimit  string
	Confidence float64
	Billed     time.Duration
}

// RecorderHooks are optional observers. Level is called from the capture
// path for every frame with its RMS and duration and must not block.
type RecorderHooks struct {
	Level     func(rms float64, frame time.Duration)
	State     func(State)
	Error     func(error)
	Utterance func(UtteranceStats)
}

// Recorder turns microphone audio into utterances: an energy gate opens and
// closes utterances, a realtime worker streams stabilized partial text while
// one is open, and the closed utterance is transcribed once more with the
// final model.
type Recorder struct {
	cfg   RecorderConfig
	tr    Transcriber
	dev   audio.CaptureDevice
	hooks RecorderHooks

	pause  atomic.Int64
	frames chan []byte

	mu        sync.Mutex
	started   bool
	closed    chan struct{}
	closeOnce sync.Once
	warmStop  context.CancelFunc
}

func NewRecorder(dev audio.CaptureDevice, tr Transcriber, cfg RecorderConfig, hooks RecorderHooks) *Recorder {
	r := &Recorder{
		cfg:    cfg,
		tr:     tr,
		dev:    dev,
		hooks:  hooks,
		frames: make(chan []byte, frameQueueSize),
		closed: make(chan struct{}),
	}
	pause := cfg.InitialPause
	if pause <= 0 {
		pause = defaultPause
	}
	r.pause.Store(int64(pause))
	return r
}

// SetPauseDuration sets the trailing silence that ends an utterance. It is
// safe to call from any goroutine and takes effect on the next frame.
func (r *Recorder) SetPauseDuration(d time.Duration) {
	r.pause.Store(int64(d))
}

func (r *Recorder) PauseDuration() time.Duration {
	return time.Duration(r.pause.Load())
}

func (r *Recorder) start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil
	}
	r.dev.SetCallback(func(data []byte, _ uint32) {
		frame := make([]byte, len(data))
		copy(frame, data)
		select {
		case r.frames <- frame:
		default:
		}
	})
	if err := r.dev.Start(); err != nil {
		r.dev.ClearCallback()
		return fmt.Errorf("starting capture on %s: %w", r.dev.DeviceName(), err)
	}
	r.started = true
	if w, ok := r.tr.(Warmer); ok {
		ctx, cancel := context.WithCancel(context.Background())
		r.warmStop = cancel
		go w.Warm(ctx)
	}
	return nil
}

// Text waits for the next utterance and delivers it to h. Capture starts on
// the first call.
func (r *Recorder) Text(ctx context.Context, h Handler) error {
	if err := r.start(); err != nil {
		return err
	}

	ep := &endpointer{
		threshold:    r.cfg.EnergyThreshold,
		speechStart:  r.cfg.SpeechStart,
		minUtterance: r.cfg.MinUtterance,
		maxUtterance: r.cfg.MaxUtterance,
		pause:        r.PauseDuration,
	}
	prerollBytes := int(max(r.cfg.PreRoll, r.cfg.SpeechStart) * encoder.BytesPerSecond / time.Second)

	var (
		preroll   []byte
		utterance []byte
		worker    *realtimeWorker
	)
	defer func() {
		if worker != nil {
			worker.stop()
		}
	}()

	r.setState(StateListening)
	for {
		var frame []byte
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.closed:
			return ErrClosed
		case frame = <-r.frames:
		}

		level := audio.Level(frame)
		d := encoder.PCMDuration(frame)
		if r.hooks.Level != nil {
			r.hooks.Level(level, d)
		}

		if !ep.Active() {
			preroll = append(preroll, frame...)
			if over := len(preroll) - prerollBytes; over > 0 {
				preroll = preroll[over&^1:]
			}
		}

		switch ep.Process(level, d) {
		case edgeStart:
			utterance = append([]byte(nil), preroll...)
			preroll = nil
			r.setState(StateRecording)
			worker = r.startRealtime(ctx, h)
			worker.update(utterance)
		case edgeEnd:
			utterance = append(utterance, frame...)
			worker.stop()
			partials := worker.count()
			worker = nil
			return r.finish(ctx, h, utterance, partials)
		default:
			if ep.Active() {
				utterance = append(utterance, frame...)
				worker.update(utterance)
			}
		}
	}
}

func (r *Recorder) finish(ctx context.Context, h Handler, pcm []byte, partials int) error {
	r.setState(StateTranscribing)
	defer r.setState(StateListening)

	start := time.Now()
	flac, err := encoder.EncodeFLAC(pcm)
	if err != nil {
		return fmt.Errorf("encoding utterance: %w", err)
	}
	res, err := r.tr.Transcribe(ctx, Request{
		Audio:    flac,
		Format:   "flac",
		Model:    r.cfg.Model,
		Language: r.cfg.Language,
		Prompt:   r.cfg.Prompt,
	})
	if err != nil {
		return fmt.Errorf("transcribing utterance: %w", err)
	}

	h.FinalUtterance(res.Text)

	if r.hooks.Utterance != nil {
		r.hooks.Utterance(UtteranceStats{
			Audio:      encoder.PCMDuration(pcm),
			Partials:   partials,
			Latency:    time.Since(start),
			Metrics:    res.Metrics,
			RateLimit:  res.RateLimit,
			Confidence: res.Confidence,
			Billed:     time.Duration(res.Duration * float64(time.Second)),
		})
	}
	return nil
}

func (r *Recorder) setState(s State) {
	if r.hooks.State != nil {
		r.hooks.State(s)
	}
}

func (r *Recorder) reportError(err error) {
	if r.hooks.Error != nil {
		r.hooks.Error(err)
	}
}

// Close stops capture and unblocks any pending Text call. The capture device
// itself is owned by the caller.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		close(r.closed)
		r.mu.Lock()
		defer r.mu.Unlock()
		r.dev.ClearCallback()
		if r.warmStop != nil {
			r.warmStop()
		}
		if r.started {
			r.dev.Stop()
		}
	})
}

type realtimeWorker struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	audio    []byte
	partials int
}

func (r *Recorder) startRealtime(ctx context.Context, h Handler) *realtimeWorker {
	w := &realtimeWorker{done: make(chan struct{}), cancel: func() {}}
	if r.cfg.RealtimeModel == "" || r.cfg.RealtimePause <= 0 {
		close(w.done)
		return w
	}
	wctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	go w.run(wctx, r, h)
	return w
}

func (w *realtimeWorker) update(pcm []byte) {
	w.mu.Lock()
	w.audio = pcm
	w.mu.Unlock()
}

func (w *realtimeWorker) snapshot() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.audio
}

func (w *realtimeWorker) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.partials
}

// stop cancels any in-flight request and waits, so no partial can be
// delivered after it returns.
func (w *realtimeWorker) stop() {
	w.cancel()
	<-w.done
}

func (w *realtimeWorker) run(ctx context.Context, r *Recorder, h Handler) {
	defer close(w.done)

	ticker := time.NewTicker(r.cfg.RealtimePause)
	defer ticker.Stop()

	var (
		st   stabilizer
		last string
		sent int
	)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		pcm := w.snapshot()
		if len(pcm) == 0 || len(pcm) == sent {
			continue
		}
		sent = len(pcm)

		flac, err := encoder.EncodeFLAC(pcm)
		if err != nil {
			r.reportError(fmt.Errorf("encoding realtime audio: %w", err))
			continue
		}
		res, err := r.tr.Transcribe(ctx, Request{
			Audio:    flac,
			Format:   "flac",
			Model:    r.cfg.RealtimeModel,
			Language: r.cfg.Language,
			Prompt:   r.cfg.RealtimePrompt,
		})
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			r.reportError(fmt.Errorf("realtime transcription: %w", err))
			continue
		}

		text := st.Add(res.Text)
		if text == last {
			continue
		}
		last = text

		w.mu.Lock()
		w.partials++
		w.mu.Unlock()
		h.PartialUpdate(text)
	}
}
