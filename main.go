package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"

	"scribe/audio"
	"scribe/clipboard"
	"scribe/config"
	"scribe/doctor"
	"scribe/encoder"
	"scribe/engine"
	"scribe/finalize"
	"scribe/log"
	"scribe/metrics"
	"scribe/shutdown"
)

var version = "dev"

func main() {
	os.Exit(run())
}

type flags struct {
	model, rtModel, lang, root, provider string
	device                               int
	configPath, wav, replay              string
	metricsBind, logPath                 string
	version, doctor, copy, debug         bool
}

func parseFlags() flags {
	var f flags
	flag.StringVar(&f.model, "model", "", "Final transcription model (default depends on provider)")
	flag.StringVar(&f.rtModel, "rt-model", "", "Realtime transcription model used for partial updates")
	flag.StringVar(&f.lang, "lang", "en", "Language code for transcription (e.g., en, de). Empty = auto-detect")
	flag.StringVar(&f.root, "root", "", "Root directory for cached data and session logs")
	flag.IntVar(&f.device, "device", -1, "Audio input device index (prompts when unset)")
	flag.StringVar(&f.provider, "provider", "", "Transcription provider: groq or deepgram (default from available API key)")
	flag.StringVar(&f.configPath, "config", "", "YAML config file")
	flag.StringVar(&f.wav, "wav", "", "Transcribe a WAV file as if it were the microphone")
	flag.StringVar(&f.replay, "replay", "", "Replay a scripted YAML event file (no audio, no API)")
	flag.StringVar(&f.metricsBind, "metrics", "", "Serve Prometheus metrics on this address (e.g., :9100)")
	flag.StringVar(&f.logPath, "logpath", "", "log directory path (default: <root>/logs or OS-specific location)")
	flag.BoolVar(&f.version, "version", false, "Print version and exit")
	flag.BoolVar(&f.doctor, "doctor", false, "Run system diagnostics and exit")
	flag.BoolVar(&f.copy, "copy", false, "Copy the transcript to the clipboard on exit")
	flag.BoolVar(&f.debug, "debug", false, "Log every silence threshold change")
	flag.Parse()
	return f
}

// applyFlags overrides cfg with the flags that were set on the command line.
func applyFlags(cfg *config.Config, f flags) {
	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "model":
			cfg.Engine.Model = f.model
		case "rt-model":
			cfg.Engine.RealtimeModel = f.rtModel
		case "lang":
			cfg.Engine.Language = f.lang
		case "root":
			cfg.Root = f.root
		case "device":
			cfg.Audio.Device = f.device
		case "provider":
			cfg.Engine.Provider = f.provider
		case "metrics":
			cfg.MetricsBind = f.metricsBind
		case "logpath":
			cfg.LogPath = f.logPath
		case "debug":
			cfg.Debug = f.debug
		}
	})
}

func initCrashLog() {
	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	debug.SetCrashOutput(crashFile, debug.CrashOptions{})
}

func run() int {
	f := parseFlags()

	if f.version {
		fmt.Printf("scribe %s\n", version)
		return 0
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	applyFlags(&cfg, f)
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	logPath, err := log.ResolveDir(cfg.LogPath, cfg.Root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		return 1
	}
	log.SetDir(logPath)
	log.SetDebug(cfg.Debug)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	} else {
		initCrashLog()
	}

	if f.doctor {
		return doctor.Run(doctor.Options{
			Provider: cfg.Engine.Provider,
			Model:    cfg.Engine.Model,
			Language: cfg.Engine.Language,
			Device:   cfg.Audio.Device,
		})
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if cfg.MetricsBind != "" {
		srv, err := metrics.Listen(cfg.MetricsBind, reg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: metrics listener: %v\n", err)
			return 1
		}
		srv.Start(func(err error) { log.Errorf("metrics server error: %v", err) })
		defer srv.Shutdown(context.Background())
		log.Info("metrics_listening: " + srv.Addr())
	}

	var ctrl *finalize.Controller
	copyTranscript := func() (int, error) {
		text := ctrl.Transcript()
		if text == "" {
			return 0, fmt.Errorf("transcript is empty")
		}
		return len([]rune(text)), clipboard.Copy(text)
	}

	s, err := openSource(cfg, f, m)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		log.Errorf("source init error: %v", err)
		return 1
	}
	if s == nil {
		fmt.Fprintln(os.Stderr, "No device selected. Exiting...")
		return 1
	}
	defer s.close()

	p := NewTUIProgram(s.info, copyTranscript)
	s.attach(p)
	if s.hint != "" {
		log.Warn(s.hint)
		go p.Send(StatusMsg{Text: s.hint, Err: true})
	}

	ctrl = finalize.New(s.src, finalize.RendererFunc(func(v finalize.View) {
		p.Send(ViewMsg{View: v})
	}), finalize.Hooks{
		Threshold: func(b finalize.Boundary, pause time.Duration) {
			log.Threshold(b.String(), pause)
			m.RecordThreshold(b.String(), pause)
		},
		Final: func(text string, appended bool) {
			m.RecordFinal(appended)
			if appended {
				log.TranscriptionText(text)
			}
		},
		Render: func(_ finalize.View, suppressed bool) {
			m.RecordRender(suppressed)
		},
	})

	log.SessionStart(s.provider, s.model, s.rtModel, cfg.Engine.Language, s.device)
	started := time.Now()

	ctx, stop := shutdown.Context(context.Background())
	defer stop()
	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	go transcribeLoop(ctx, s.src, countingHandler{Handler: ctrl, m: m}, p, m)

	if _, err := p.Run(); err != nil {
		log.Errorf("TUI error: %v", err)
	}
	stop()
	s.src.Close()

	fmt.Println(errStyle.Bold(true).Render("Transcription stopped by user. Exiting..."))
	log.SessionEnd(ctrl.Sentences(), time.Since(started))
	if id := log.Session(); id != "" {
		fmt.Printf("Session %s logged to %s\n", id[:8], log.Dir())
	}

	if f.copy {
		if n, err := copyTranscript(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not copy transcript: %v\n", err)
		} else {
			fmt.Printf("Copied %d characters to the clipboard\n", n)
		}
	}
	return 0
}

// source bundles the engine with what the session needs to describe and
// release it.
type source struct {
	src      engine.Source
	info     string
	provider string
	model    string
	rtModel  string
	device   string
	hint     string

	attach func(p *tea.Program)
	close  func()
}

func openSource(cfg config.Config, f flags, m *metrics.Metrics) (*source, error) {
	if f.replay != "" {
		script, err := engine.LoadScript(f.replay)
		if err != nil {
			return nil, err
		}
		return &source{
			src:      script,
			info:     "replay: " + filepath.Base(f.replay),
			provider: "replay",
			device:   "none",
			attach:   func(*tea.Program) {},
			close:    func() {},
		}, nil
	}

	tr, err := engine.New(cfg.Engine.Provider)
	if err != nil {
		return nil, err
	}
	model, rtModel := engine.DefaultModels(tr.Name())
	if cfg.Engine.Model != "" {
		model = cfg.Engine.Model
	}
	if cfg.Engine.RealtimeModel != "" {
		rtModel = cfg.Engine.RealtimeModel
	}
	if !cfg.Engine.Realtime {
		rtModel = ""
	}

	var (
		actx   audio.Context
		device *audio.DeviceInfo
	)
	if f.wav != "" {
		fake, err := audio.NewFakeContext(f.wav, true)
		if err != nil {
			return nil, err
		}
		actx = fake
	} else {
		actx, err = audio.NewContext()
		if err != nil {
			return nil, fmt.Errorf("initializing audio: %w", err)
		}
		if cfg.Audio.Device >= 0 {
			device, err = audio.DeviceByIndex(actx, cfg.Audio.Device)
		} else {
			fmt.Println("Audio Device Selection for Live Transcription")
			device, _, err = audio.SelectDevice(actx)
			if err == nil && device == nil {
				actx.Close()
				return nil, nil
			}
		}
		if err != nil {
			actx.Close()
			return nil, err
		}
	}

	capture, err := actx.NewCapture(device, audio.CaptureConfig{
		SampleRate: uint32(cfg.Audio.SampleRate),
		Channels:   encoder.Channels,
		Gain:       cfg.Audio.Gain,
	})
	if err != nil {
		actx.Close()
		return nil, fmt.Errorf("initializing capture device: %w", err)
	}

	s := &source{
		provider: tr.Name(),
		model:    model,
		rtModel:  rtModel,
		device:   capture.DeviceName(),
	}
	s.info = fmt.Sprintf("[%s | %s]", tr.Name(), model)
	s.hint = promptHint(tr, rtModel)
	if f.wav != "" {
		s.info += " wav: " + filepath.Base(f.wav)
	} else {
		s.info += " mic: " + capture.DeviceName()
	}

	rcfg := engine.RecorderConfig{
		Model:           model,
		RealtimeModel:   rtModel,
		Language:        cfg.Engine.Language,
		RealtimePrompt:  engine.RealtimePrompt,
		EnergyThreshold: cfg.Engine.EnergyThreshold,
		SpeechStart:     cfg.Engine.SpeechStart(),
		PreRoll:         cfg.Engine.PreRoll(),
		MinUtterance:    cfg.Engine.MinUtterance(),
		MaxUtterance:    cfg.Engine.MaxUtterance(),
		RealtimePause:   cfg.Engine.RealtimePause(),
		InitialPause:    finalize.UnknownPause,
	}

	var p atomic.Pointer[tea.Program]
	send := func(msg tea.Msg) {
		if prog := p.Load(); prog != nil {
			prog.Send(msg)
		}
	}
	quiet := newSilenceMonitor(cfg.Engine.EnergyThreshold)
	rec := engine.NewRecorder(capture, tr, rcfg, engine.RecorderHooks{
		Level: func(rms float64, frame time.Duration) {
			send(LevelMsg{Level: rms})
			switch quiet.Feed(rms, frame) {
			case SilenceWarn:
				log.Warn("no voice detected")
				send(StatusMsg{Text: "⚠ no voice detected, check the microphone", Err: true})
			case SilenceWarnClear:
				send(StatusMsg{Text: "voice detected"})
			}
		},
		State: func(st engine.State) { send(StateMsg{State: st}) },
		Error: func(err error) {
			log.Warnf("%v", err)
			send(StatusMsg{Text: err.Error(), Err: true})
		},
		Utterance: func(u engine.UtteranceStats) {
			m.RecordUtterance(u.Audio, u.Latency)
			um := log.UtteranceMetrics{
				Provider:    tr.Name(),
				AudioS:      u.Audio.Seconds(),
				BilledS:     u.Billed.Seconds(),
				Partials:    u.Partials,
				LatencyMs:   float64(u.Latency.Milliseconds()),
				RateLimit:   u.RateLimit,
				Confidence:  u.Confidence,
				MemoryAlloc: memAllocMB(),
			}
			if nm := u.Metrics; nm != nil {
				um.NetworkMs = float64(nm.Sum().Milliseconds())
				um.DNSTimeMs = float64(nm.DNS.Milliseconds())
				um.TLSTimeMs = float64(nm.TLS.Milliseconds())
				um.TTFBMs = float64(nm.TTFB.Milliseconds())
				um.ConnReused = nm.ConnReused
			}
			log.Utterance(um)
		},
	})

	s.src = rec
	s.attach = func(prog *tea.Program) { p.Store(prog) }
	s.close = func() {
		rec.Close()
		capture.Close()
		actx.Close()
	}
	return s, nil
}

// promptHint warns when partial updates come from a provider that cannot be
// asked to mark unfinished sentences, which leaves the mid-sentence pause
// unused.
func promptHint(tr engine.Transcriber, rtModel string) string {
	if rtModel == "" || engine.SupportsPrompt(tr) {
		return ""
	}
	return tr.Name() + " ignores the realtime prompt; long mid-sentence pauses are not detected"
}

func memAllocMB() float64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return float64(ms.Alloc) / 1024 / 1024
}
