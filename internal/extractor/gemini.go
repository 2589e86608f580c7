package extractor

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
)

// ErrRateLimited is returned for HTTP 429 replies.
var ErrRateLimited = errors.New("engine rate limited")

var (
	geminiOnce sync.Once
	geminiHTTP *http.Client
)

func sharedGeminiHTTP() *http.Client {
	geminiOnce.Do(func() {
		geminiHTTP = &http.Client{}
	})
	return geminiHTTP
}

type GeminiOptions struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// Gemini calls the generateContent REST method with the audio inlined.
type Gemini struct {
	baseURL string
	apiKey  string
	hc      *http.Client
}

func NewGemini(opts GeminiOptions) *Gemini {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://generativelanguage.googleapis.com"
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = sharedGeminiHTTP()
	}
	return &Gemini{baseURL: base, apiKey: opts.APIKey, hc: hc}
}

type gmInlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type gmPart struct {
	Text       string        `json:"text,omitempty"`
	InlineData *gmInlineData `json:"inline_data,omitempty"`
}

type gmContent struct {
	Role  string   `json:"role,omitempty"`
	Parts []gmPart `json:"parts"`
}

type gmGenerationConfig struct {
	ResponseMIMEType string  `json:"response_mime_type,omitempty"`
	Temperature      float64 `json:"temperature"`
}

type gmReq struct {
	Contents         []gmContent        `json:"contents"`
	GenerationConfig gmGenerationConfig `json:"generationConfig"`
}

type gmResp struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

// UpstreamError is a non-2xx reply other than 429.
type UpstreamError struct {
	Status int
	Msg    string
}

func (e *UpstreamError) Error() string { return fmt.Sprintf("gemini upstream %d: %s", e.Status, e.Msg) }

func (g *Gemini) Generate(ctx context.Context, r Request) (string, error) {
	if g.apiKey == "" {
		return "", errors.New("gemini: missing api key")
	}
	audio, err := os.ReadFile(r.AudioPath)
	if err != nil {
		return "", fmt.Errorf("read staged audio: %w", err)
	}
	body, err := json.Marshal(gmReq{
		Contents: []gmContent{{
			Role: "user",
			Parts: []gmPart{
				{Text: r.Prompt},
				{InlineData: &gmInlineData{MIMEType: r.MIMEType, Data: base64.StdEncoding.EncodeToString(audio)}},
			},
		}},
		GenerationConfig: gmGenerationConfig{ResponseMIMEType: "application/json"},
	})
	if err != nil {
		return "", fmt.Errorf("encode gemini request: %w", err)
	}

	endpoint := g.baseURL + "/v1beta/models/" + url.PathEscape(r.Model) + ":generateContent"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", ErrRateLimited
	}
	if resp.StatusCode/100 != 2 {
		slurp, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", &UpstreamError{Status: resp.StatusCode, Msg: strings.TrimSpace(string(slurp))}
	}

	var out gmResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}
	if len(out.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates", ErrInvalidResponse)
	}
	var b strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", fmt.Errorf("%w: empty candidate (finish reason %q)", ErrInvalidResponse, out.Candidates[0].FinishReason)
	}
	return b.String(), nil
}
