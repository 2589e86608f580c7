package extractor

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func stagedFile(t *testing.T, data string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "a.mp3")
	if err := os.WriteFile(p, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestGemini_Generate(t *testing.T) {
	var got gmReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/gemini-2.0-flash:generateContent" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "k-123" {
			t.Errorf("api key header = %q", r.Header.Get("x-goog-api-key"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"a\":"},{"text":"1}"}]}}]}`))
	}))
	defer srv.Close()

	g := NewGemini(GeminiOptions{BaseURL: srv.URL, APIKey: "k-123", HTTPClient: srv.Client()})
	text, err := g.Generate(context.Background(), Request{
		Model:     "gemini-2.0-flash",
		Prompt:    "extract",
		AudioPath: stagedFile(t, "sound"),
		MIMEType:  "audio/mp3",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != `{"a":1}` {
		t.Fatalf("text = %q", text)
	}
	if got.GenerationConfig.ResponseMIMEType != "application/json" {
		t.Fatalf("generationConfig = %+v", got.GenerationConfig)
	}
	parts := got.Contents[0].Parts
	if len(parts) != 2 || parts[0].Text != "extract" || parts[1].InlineData == nil {
		t.Fatalf("parts = %+v", parts)
	}
	if parts[1].InlineData.MIMEType != "audio/mp3" || parts[1].InlineData.Data != base64.StdEncoding.EncodeToString([]byte("sound")) {
		t.Fatalf("inline data = %+v", parts[1].InlineData)
	}
}

func TestGemini_Errors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{"rate limited", http.StatusTooManyRequests, "", func(err error) bool { return errors.Is(err, ErrRateLimited) }},
		{"upstream", http.StatusBadGateway, "bad", func(err error) bool {
			var ue *UpstreamError
			return errors.As(err, &ue) && ue.Status == http.StatusBadGateway && ue.Msg == "bad"
		}},
		{"no candidates", http.StatusOK, `{"candidates":[]}`, func(err error) bool { return errors.Is(err, ErrInvalidResponse) }},
		{"empty text", http.StatusOK, `{"candidates":[{"content":{"parts":[]},"finishReason":"SAFETY"}]}`, func(err error) bool { return errors.Is(err, ErrInvalidResponse) }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(c.status)
				w.Write([]byte(c.body))
			}))
			defer srv.Close()

			g := NewGemini(GeminiOptions{BaseURL: srv.URL, APIKey: "k", HTTPClient: srv.Client()})
			_, err := g.Generate(context.Background(), Request{Model: "m", AudioPath: stagedFile(t, "x"), MIMEType: "audio/mp3"})
			if err == nil || !c.check(err) {
				t.Fatalf("err = %v", err)
			}
		})
	}
}

func TestGemini_MissingKey(t *testing.T) {
	g := NewGemini(GeminiOptions{})
	if _, err := g.Generate(context.Background(), Request{Model: "m"}); err == nil {
		t.Fatal("expected error without api key")
	}
}
