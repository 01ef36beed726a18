package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
)

const groqAPIURL = "https://api.groq.com/openai/v1/audio/transcriptions"

type Groq struct {
	client *TracedClient
	apiURL string
	apiKey string
}

func NewGroq(apiKey string) *Groq {
	return &Groq{
		client: NewTracedClient(groqAPIURL),
		apiURL: groqAPIURL,
		apiKey: apiKey,
	}
}

func (g *Groq) Name() string { return "groq" }

func (g *Groq) Warm(ctx context.Context) { g.client.Warm(ctx) }

type groqResponse struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
}

func (g *Groq) Transcribe(ctx context.Context, r Request) (*Result, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio."+r.Format)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(r.Audio); err != nil {
		return nil, err
	}

	writer.WriteField("model", r.Model)
	writer.WriteField("response_format", "json")
	writer.WriteField("temperature", "0")
	if r.Language != "" {
		writer.WriteField("language", r.Language)
	}
	if r.Prompt != "" {
		writer.WriteField("prompt", r.Prompt)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, "POST", g.apiURL, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("groq API error %d: %s", resp.StatusCode, string(resp.Body))
	}

	var gResp groqResponse
	if err := json.Unmarshal(resp.Body, &gResp); err != nil {
		return nil, fmt.Errorf("groq response parse error: %w", err)
	}

	remaining := firstNonEmpty(resp.Header, "x-ratelimit-remaining-requests")
	limit := firstNonEmpty(resp.Header, "x-ratelimit-limit-requests")

	return &Result{
		Text:      gResp.Text,
		Metrics:   resp.Metrics,
		RateLimit: remaining + "/" + limit,
		Duration:  gResp.Duration,
	}, nil
}
