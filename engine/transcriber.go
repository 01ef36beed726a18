package engine

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"
)

type NetworkMetrics struct {
	DNS        time.Duration
	ConnWait   time.Duration
	TCP        time.Duration
	TLS        time.Duration
	ReqHeaders time.Duration
	ReqBody    time.Duration
	TTFB       time.Duration
	Download   time.Duration
	Total      time.Duration
	ConnReused bool
}

// Sum is the time spent in the network phases of a request.
func (m *NetworkMetrics) Sum() time.Duration {
	return m.ConnWait + m.DNS + m.TCP + m.TLS + m.ReqHeaders + m.ReqBody + m.TTFB + m.Download
}

func firstNonEmpty(h http.Header, keys ...string) string {
	for _, k := range keys {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return "?"
}

// Request is one batch transcription of an encoded audio clip.
type Request struct {
	Audio    []byte
	Format   string // "flac" or "wav"
	Model    string
	Language string
	Prompt   string
}

type Result struct {
	Text       string
	Metrics    *NetworkMetrics
	RateLimit  string
	Confidence float64
	Duration   float64
}

// Transcriber turns a recorded clip into text.
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, req Request) (*Result, error)
}

// Warmer is implemented by transcribers that can open their connection
// before the first request.
type Warmer interface {
	Warm(ctx context.Context)
}

// Prompter reports whether a transcriber honors Request.Prompt.
type Prompter interface {
	SupportsPrompt() bool
}

// SupportsPrompt reports whether tr sends Request.Prompt to its model.
// Transcribers that do not say otherwise are assumed to.
func SupportsPrompt(tr Transcriber) bool {
	if p, ok := tr.(Prompter); ok {
		return p.SupportsPrompt()
	}
	return true
}

// New picks a provider by name, or by whichever API key is present when name
// is empty.
func New(name string) (Transcriber, error) {
	groqKey := os.Getenv("GROQ_API_KEY")
	dgKey := os.Getenv("DEEPGRAM_API_KEY")

	switch name {
	case "groq":
		if groqKey == "" {
			return nil, fmt.Errorf("GROQ_API_KEY is not set")
		}
		return NewGroq(groqKey), nil
	case "deepgram":
		if dgKey == "" {
			return nil, fmt.Errorf("DEEPGRAM_API_KEY is not set")
		}
		return NewDeepgram(dgKey), nil
	case "":
	default:
		return nil, fmt.Errorf("unknown provider %q (use groq or deepgram)", name)
	}

	if groqKey != "" {
		return NewGroq(groqKey), nil
	}
	if dgKey != "" {
		return NewDeepgram(dgKey), nil
	}
	return nil, fmt.Errorf("set GROQ_API_KEY or DEEPGRAM_API_KEY environment variable")
}

// DefaultModels returns the final and realtime model ids for a provider.
func DefaultModels(provider string) (model, realtime string) {
	if provider == "deepgram" {
		return "nova-3", "nova-3"
	}
	return "whisper-large-v3", "whisper-large-v3-turbo"
}
