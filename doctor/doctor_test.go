package doctor

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"scribe/audio"
	"scribe/engine"
)

func tone(samples int, amplitude float64) []byte {
	pcm := make([]byte, samples*2)
	for i := range samples {
		s := int16(amplitude * math.Sin(2*math.Pi*440*float64(i)/16000))
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}
	return pcm
}

func run(t *testing.T, pcm []byte, tr *engine.FakeTranscriber, answer string) (int, string, *engine.FakeTranscriber) {
	t.Helper()
	var out bytes.Buffer
	code := Run(Options{
		Device:     -1,
		Language:   "en",
		RecordFor:  200 * time.Millisecond,
		NewContext: func() (audio.Context, error) { return audio.NewFakeContextPCM(pcm, false), nil },
		NewTranscriber: func(string) (engine.Transcriber, error) {
			if tr == nil {
				return nil, errors.New("set GROQ_API_KEY or DEEPGRAM_API_KEY environment variable")
			}
			return tr, nil
		},
		SkipClipboard: true,
		In:            strings.NewReader("\n" + answer + "\n"),
		Out:           &out,
	})
	return code, out.String(), tr
}

func TestRunPasses(t *testing.T) {
	tr := engine.NewFake(nil, "testing one two three.")
	code, out, _ := run(t, tone(32000, 8000), tr, "y")
	if code != 0 {
		t.Fatalf("exit code %d, output:\n%s", code, out)
	}
	for _, want := range []string{"[1/2] Microphone", "[2/2] Transcription", "testing one two three.", "All checks passed!"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	reqs := tr.Requests()
	if len(reqs) != 1 || reqs[0].Format != "flac" || reqs[0].Model != "whisper-large-v3" {
		t.Errorf("requests = %+v", reqs)
	}
}

func TestRunFailures(t *testing.T) {
	tests := []struct {
		name   string
		pcm    []byte
		tr     *engine.FakeTranscriber
		answer string
		want   string
	}{
		{"silent microphone", make([]byte, 32000), engine.NewFake(nil, "x"), "y", "input level too low"},
		{"no transcriber", tone(32000, 8000), nil, "y", "GROQ_API_KEY"},
		{"transcription error", tone(32000, 8000), engine.NewFake(errors.New("boom")), "y", "transcription error"},
		{"not confirmed", tone(32000, 8000), engine.NewFake(nil, "wrong words"), "n", "not confirmed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out, _ := run(t, tt.pcm, tt.tr, tt.answer)
			if code != 1 {
				t.Errorf("exit code = %d, want 1", code)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, out)
			}
		})
	}
}
