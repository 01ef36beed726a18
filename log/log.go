package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	diagLog        zerolog.Logger
	diagFile       *os.File
	transcriptFile *os.File
	logMu          sync.Mutex
	logReady       bool
	pid            int
	session        string
	dir            string
	level          = zerolog.InfoLevel
)

// UtteranceMetrics is logged once per finalized utterance.
type UtteranceMetrics struct {
	Provider    string
	AudioS      float64
	BilledS     float64 // audio length reported by the provider
	Partials    int
	LatencyMs   float64
	NetworkMs   float64
	DNSTimeMs   float64
	TLSTimeMs   float64
	TTFBMs      float64
	ConnReused  bool
	RateLimit   string
	Confidence  float64
	MemoryAlloc float64
}

func absolute(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

// ResolveDir picks the log directory: the -logpath flag, then
// SCRIBE_LOG_PATH, then <root>/logs when a root is set, then the OS default.
func ResolveDir(flagPath, root string) (string, error) {
	if flagPath != "" {
		return absolute(flagPath)
	}
	if envPath := os.Getenv("SCRIBE_LOG_PATH"); envPath != "" {
		return absolute(envPath)
	}
	if root != "" {
		return absolute(filepath.Join(root, "logs"))
	}
	return getDefaultDir()
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

// SetDebug enables debug-level events such as threshold changes. Call before Init.
func SetDebug(on bool) {
	if on {
		level = zerolog.DebugLevel
	} else {
		level = zerolog.InfoLevel
	}
}

// Session returns the id of the current logging session, empty before Init.
func Session() string {
	logMu.Lock()
	defer logMu.Unlock()
	return session
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()
	session = uuid.NewString()

	var err error

	diagPath := filepath.Join(dir, "diagnostics_log.txt")
	diagFile, err = os.OpenFile(diagPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	transcriptPath := filepath.Join(dir, "transcript_log.txt")
	transcriptFile, err = os.OpenFile(transcriptPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).Level(level).With().
		Timestamp().
		Int("pid", pid).
		Str("session", session[:8]).
		Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if transcriptFile != nil {
		transcriptFile.Close()
		transcriptFile = nil
	}
	logReady = false
}

// logger returns the diagnostics logger and whether Init has run. Events are
// written outside the lock; a write racing Close fails on the closed file.
func logger() (*zerolog.Logger, bool) {
	logMu.Lock()
	defer logMu.Unlock()
	if !logReady {
		return nil, false
	}
	l := diagLog
	return &l, true
}

func Info(msg string) {
	if l, ok := logger(); ok {
		l.Info().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if l, ok := logger(); ok {
		l.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if l, ok := logger(); ok {
		l.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if l, ok := logger(); ok {
		l.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

// Threshold records a silence threshold write.
func Threshold(boundary string, pause time.Duration) {
	l, ok := logger()
	if !ok {
		return
	}
	l.Debug().
		Str("boundary", boundary).
		Dur("pause", pause).
		Msg("threshold")
}

func Utterance(m UtteranceMetrics) {
	l, ok := logger()
	if !ok {
		return
	}

	connStatus := "new"
	if m.ConnReused {
		connStatus = "reused"
	}

	ev := l.Info().
		Str("provider", m.Provider).
		Str("conn", connStatus).
		Float64("audio_s", m.AudioS).
		Int("partials", m.Partials).
		Float64("latency_ms", m.LatencyMs).
		Float64("net_ms", m.NetworkMs).
		Float64("dns_ms", m.DNSTimeMs).
		Float64("tls_ms", m.TLSTimeMs).
		Float64("ttfb_ms", m.TTFBMs).
		Float64("mem_mb", m.MemoryAlloc)
	if m.BilledS > 0 {
		ev = ev.Float64("billed_s", m.BilledS)
	}
	if m.RateLimit != "" {
		ev = ev.Str("rate_limit", m.RateLimit)
	}
	if m.Confidence > 0 {
		ev = ev.Float64("confidence", m.Confidence)
	}
	ev.Msg("utterance")
}

// TranscriptionText appends one finalized sentence to transcript_log.txt.
func TranscriptionText(text string) {
	logMu.Lock()
	defer logMu.Unlock()
	if !logReady || transcriptFile == nil {
		return
	}
	line := fmt.Sprintf("%s\t[%d]\t%s\n", time.Now().Format("2006-01-02 15:04:05"), pid, text)
	transcriptFile.WriteString(line)
}

func SessionStart(provider, model, realtimeModel, language, device string) {
	l, ok := logger()
	if !ok {
		return
	}
	if language == "" {
		language = "auto"
	}
	l.Info().
		Str("provider", provider).
		Str("model", model).
		Str("realtime_model", realtimeModel).
		Str("language", language).
		Str("device", device).
		Msg("session_start")
}

func SessionEnd(sentences int, elapsed time.Duration) {
	l, ok := logger()
	if !ok {
		return
	}
	l.Info().
		Int("sentences", sentences).
		Dur("elapsed", elapsed).
		Msg("session_end")
}
