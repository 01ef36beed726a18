package doctor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"scribe/audio"
	"scribe/clipboard"
	"scribe/encoder"
	"scribe/engine"
	"scribe/shutdown"
)

const (
	defaultRecordFor = 3 * time.Second
	minPeak          = 0.02
	doctorText       = "scribe-doctor"
)

type Options struct {
	Provider string
	Model    string
	Language string
	Device   int // -1 uses the first device

	RecordFor time.Duration

	NewContext     func() (audio.Context, error)
	NewTranscriber func(provider string) (engine.Transcriber, error)
	SkipClipboard  bool

	In  io.Reader
	Out io.Writer
}

func (o *Options) defaults() {
	if o.NewContext == nil {
		o.NewContext = audio.NewContext
	}
	if o.NewTranscriber == nil {
		o.NewTranscriber = engine.New
	}
	if o.RecordFor <= 0 {
		o.RecordFor = defaultRecordFor
	}
	if o.In == nil {
		o.In = os.Stdin
	}
	if o.Out == nil {
		o.Out = os.Stdout
	}
}

type doctor struct {
	opts  Options
	in    *bufio.Reader
	out   io.Writer
	total int
	step  int
}

// Run executes the diagnostic checks and returns an exit code (0=all pass, 1=any fail).
func Run(opts Options) int {
	opts.defaults()
	if f, ok := opts.In.(*os.File); ok && f == os.Stdin {
		resetTerminal()
		setupInterruptHandler()
	}

	d := &doctor{opts: opts, in: bufio.NewReader(opts.In), out: opts.Out, total: 2}
	if !opts.SkipClipboard {
		d.total = 3
	}

	d.printf("scribe doctor - system diagnostics\n")
	d.printf("==================================\n")

	allPass := true
	pcm, ok := d.checkMicrophone()
	if !ok {
		allPass = false
	}
	if allPass && !d.checkTranscription(pcm) {
		allPass = false
	}
	if allPass && !opts.SkipClipboard && !d.checkClipboard() {
		allPass = false
	}

	d.printf("\n")
	if allPass {
		d.printf("All checks passed!\n")
		return 0
	}
	d.printf("Some checks failed. See details above.\n")
	return 1
}

func setupInterruptHandler() {
	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted")
		os.Exit(1)
	}()
}

func (d *doctor) printf(format string, args ...any) {
	fmt.Fprintf(d.out, format, args...)
}

func (d *doctor) header(title string) {
	d.step++
	d.printf("\n[%d/%d] %s\n", d.step, d.total, title)
}

func (d *doctor) readLine() string {
	s, _ := d.in.ReadString('\n')
	return strings.TrimSpace(s)
}

func (d *doctor) checkMicrophone() ([]byte, bool) {
	d.header("Microphone")

	ctx, err := d.opts.NewContext()
	if err != nil {
		d.printf("  FAIL: cannot connect to audio: %v\n", err)
		return nil, false
	}
	defer ctx.Close()

	var device *audio.DeviceInfo
	if d.opts.Device >= 0 {
		device, err = audio.DeviceByIndex(ctx, d.opts.Device)
	} else {
		device, err = audio.DeviceByIndex(ctx, 0)
	}
	if err != nil {
		d.printf("  FAIL: %v\n", err)
		return nil, false
	}
	d.printf("Using device: %s\n", device.Name)

	d.printf("Press Enter and speak for %s...", d.opts.RecordFor)
	d.readLine()

	pcm, peak, err := record(ctx, device, d.opts.RecordFor)
	if err != nil {
		d.printf("  FAIL: recording error: %v\n", err)
		return nil, false
	}
	if len(pcm) == 0 {
		d.printf("  FAIL: no audio captured\n")
		return nil, false
	}
	if peak < minPeak {
		d.printf("  FAIL: input level too low (peak %.3f); check the device and its volume\n", peak)
		return nil, false
	}
	d.printf("  PASS: captured %.1fs, peak level %.3f\n", encoder.PCMDuration(pcm).Seconds(), peak)
	return pcm, true
}

func (d *doctor) checkTranscription(pcm []byte) bool {
	d.header("Transcription")

	tr, err := d.opts.NewTranscriber(d.opts.Provider)
	if err != nil {
		d.printf("  FAIL: %v\n", err)
		return false
	}
	model := d.opts.Model
	if model == "" {
		model, _ = engine.DefaultModels(tr.Name())
	}

	flac, err := encoder.EncodeFLAC(pcm)
	if err != nil {
		d.printf("  FAIL: encoding error: %v\n", err)
		return false
	}
	d.printf("  Encoded %.1f KB FLAC, transcribing with %s/%s...\n", float64(len(flac))/1024, tr.Name(), model)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	res, err := tr.Transcribe(ctx, engine.Request{
		Audio:    flac,
		Format:   "flac",
		Model:    model,
		Language: d.opts.Language,
	})
	if err != nil {
		d.printf("  FAIL: transcription error: %v\n", err)
		return false
	}

	text := strings.TrimSpace(res.Text)
	if text == "" {
		text = "(no speech detected)"
	}
	d.printf("\n  Transcribed text: %s\n\n", text)

	d.printf("Is this correct? [y/n]: ")
	confirm := strings.ToLower(d.readLine())
	if confirm == "y" || confirm == "yes" {
		d.printf("  PASS: transcription verified by user\n")
		return true
	}
	d.printf("  FAIL: transcription not confirmed\n")
	return false
}

func (d *doctor) checkClipboard() bool {
	d.header("Clipboard")

	testStr := fmt.Sprintf("%s-%d", doctorText, time.Now().UnixNano())
	if err := clipboard.Copy(testStr); err != nil {
		d.printf("  FAIL: clipboard write failed: %v\n", err)
		return false
	}
	got, err := clipboard.Read()
	if err != nil {
		d.printf("  FAIL: clipboard read failed: %v\n", err)
		return false
	}
	if got != testStr {
		d.printf("  FAIL: clipboard mismatch: wrote %q, got %q\n", testStr, got)
		return false
	}
	d.printf("  PASS: clipboard write/read verified\n")
	return true
}

// record captures for the given duration and returns the PCM and its peak
// frame level.
func record(ctx audio.Context, device *audio.DeviceInfo, d time.Duration) ([]byte, float64, error) {
	var (
		mu      sync.Mutex
		pcm     []byte
		peak    float64
		stopped bool
	)

	dev, err := ctx.NewCapture(device, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	if err != nil {
		return nil, 0, err
	}
	defer dev.Close()

	dev.SetCallback(func(data []byte, _ uint32) {
		mu.Lock()
		defer mu.Unlock()
		if stopped || encoder.PCMDuration(pcm) >= d {
			return
		}
		pcm = append(pcm, data...)
		peak = max(peak, audio.Level(data))
	})
	if err := dev.Start(); err != nil {
		return nil, 0, err
	}
	time.Sleep(d)
	dev.Stop()
	dev.ClearCallback()

	mu.Lock()
	defer mu.Unlock()
	stopped = true
	return pcm, peak, nil
}
