package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

const deepgramAPIURL = "https://api.deepgram.com/v1/listen"

type Deepgram struct {
	client *TracedClient
	apiURL string
	apiKey string
}

func NewDeepgram(apiKey string) *Deepgram {
	return &Deepgram{
		client: NewTracedClient("https://api.deepgram.com"),
		apiURL: deepgramAPIURL,
		apiKey: apiKey,
	}
}

func (d *Deepgram) Name() string { return "deepgram" }

func (d *Deepgram) Warm(ctx context.Context) { d.client.Warm(ctx) }

// SupportsPrompt is false: the pre-recorded API has no free-text prompt, so
// realtime hypotheses never carry the trailing ellipsis.
func (d *Deepgram) SupportsPrompt() bool { return false }

type deepgramResponse struct {
	Metadata struct {
		Duration float64 `json:"duration"`
	} `json:"metadata"`
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

func (d *Deepgram) Transcribe(ctx context.Context, r Request) (*Result, error) {
	endpoint, err := url.Parse(d.apiURL)
	if err != nil {
		return nil, err
	}
	q := endpoint.Query()
	q.Set("model", r.Model)
	q.Set("punctuate", "true")
	q.Set("smart_format", "true")
	if r.Language != "" {
		q.Set("language", r.Language)
	} else {
		q.Set("detect_language", "true")
	}
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint.String(), bytes.NewReader(r.Audio))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+d.apiKey)
	req.Header.Set("Content-Type", "audio/"+r.Format)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("deepgram API error %d: %s", resp.StatusCode, string(resp.Body))
	}

	var dgResp deepgramResponse
	if err := json.Unmarshal(resp.Body, &dgResp); err != nil {
		return nil, fmt.Errorf("deepgram response parse error: %w", err)
	}

	var text string
	var confidence float64
	if len(dgResp.Results.Channels) > 0 && len(dgResp.Results.Channels[0].Alternatives) > 0 {
		alt := dgResp.Results.Channels[0].Alternatives[0]
		text = alt.Transcript
		confidence = alt.Confidence
	}

	remaining := firstNonEmpty(resp.Header,
		"x-dg-ratelimit-remaining", "x-ratelimit-remaining", "ratelimit-remaining")
	limit := firstNonEmpty(resp.Header,
		"x-dg-ratelimit-limit", "x-ratelimit-limit", "ratelimit-limit")

	return &Result{
		Text:       text,
		Metrics:    resp.Metrics,
		RateLimit:  remaining + "/" + limit,
		Confidence: confidence,
		Duration:   dgResp.Metadata.Duration,
	}, nil
}
