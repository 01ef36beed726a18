// Package metrics exposes Prometheus counters for the finalization pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "scribe"

type Metrics struct {
	PartialUpdates   prometheus.Counter
	FinalUtterances  prometheus.Counter
	SentencesAppend  prometheus.Counter
	Renders          prometheus.Counter
	RendersSkipped   prometheus.Counter
	ThresholdWrites  *prometheus.CounterVec
	PauseSeconds     prometheus.Gauge
	UtteranceSeconds prometheus.Histogram
	FinalLatency     prometheus.Histogram
	EngineErrors     prometheus.Counter
}

// New registers every metric with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PartialUpdates: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "partial_updates_total",
			Help:      "Partial transcription updates received from the engine",
		}),
		FinalUtterances: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "final_utterances_total",
			Help:      "Final utterances received from the engine",
		}),
		SentencesAppend: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sentences_appended_total",
			Help:      "Sentences appended to the transcript log",
		}),
		Renders: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Views sent to the renderer",
		}),
		RendersSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_suppressed_total",
			Help:      "Views not sent because they equal the last one",
		}),
		ThresholdWrites: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "threshold_writes_total",
			Help:      "Silence threshold writes by sentence boundary",
		}, []string{"boundary"}),
		PauseSeconds: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pause_seconds",
			Help:      "Current end-of-utterance silence threshold",
		}),
		UtteranceSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "utterance_audio_seconds",
			Help:      "Audio length of finalized utterances",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
		FinalLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "final_latency_seconds",
			Help:      "Time from end of speech to final transcription",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
		EngineErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_errors_total",
			Help:      "Errors returned by the transcription engine",
		}),
	}
}

func (m *Metrics) RecordThreshold(boundary string, pause time.Duration) {
	m.ThresholdWrites.WithLabelValues(boundary).Inc()
	m.PauseSeconds.Set(pause.Seconds())
}

func (m *Metrics) RecordRender(suppressed bool) {
	if suppressed {
		m.RendersSkipped.Inc()
		return
	}
	m.Renders.Inc()
}

func (m *Metrics) RecordFinal(appended bool) {
	m.FinalUtterances.Inc()
	if appended {
		m.SentencesAppend.Inc()
	}
}

func (m *Metrics) RecordUtterance(audio, latency time.Duration) {
	m.UtteranceSeconds.Observe(audio.Seconds())
	m.FinalLatency.Observe(latency.Seconds())
}
