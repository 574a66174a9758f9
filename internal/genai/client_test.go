package genai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func writeTestJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatal(err)
	}
}

func candidates(texts ...string) map[string]any {
	parts := make([]map[string]string, 0, len(texts))
	for _, t := range texts {
		parts = append(parts, map[string]string{"text": t})
	}
	return map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"role": "model", "parts": parts}, "finishReason": "STOP"},
		},
	}
}

// TestGenerateJSONRequest verifies the path, API key header and JSON mime type.
func TestGenerateJSONRequest(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/models/gemini-2.5-pro:generateContent" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "secret" {
			t.Errorf("api key = %q, want secret", got)
		}
		body, _ := io.ReadAll(r.Body)
		var req generateRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.GenerationConfig == nil || req.GenerationConfig.ResponseMimeType != "application/json" {
			t.Errorf("generationConfig = %+v, want application/json", req.GenerationConfig)
		}
		if len(req.Contents) != 1 || req.Contents[0].Parts[0].Text != "make a menu" {
			t.Errorf("contents = %+v", req.Contents)
		}
		writeTestJSON(t, w, http.StatusOK, candidates(`{"a":`, `1}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL+"/", "secret", time.Second)
	got, err := c.GenerateJSON(context.Background(), "gemini-2.5-pro", "make a menu")
	if err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}
	if string(got) != `{"a":1}` {
		t.Errorf("got %s, want {\"a\":1}", got)
	}
}

// TestGenerateTextOmitsMimeType verifies free-text requests carry no generation config.
func TestGenerateTextOmitsMimeType(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]json.RawMessage
		json.NewDecoder(r.Body).Decode(&raw)
		if _, ok := raw["generationConfig"]; ok {
			t.Error("generationConfig present on text request")
		}
		writeTestJSON(t, w, http.StatusOK, candidates("Keep your back straight."))
	}))
	defer ts.Close()

	got, err := NewClient(ts.URL, "k", time.Second).GenerateText(context.Background(), "gemini-2.5-flash", "q")
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if got != "Keep your back straight." {
		t.Errorf("got %q", got)
	}
}

// TestGenerateAPIError verifies non-2xx replies become *APIError with the server's message.
func TestGenerateAPIError(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeTestJSON(t, w, http.StatusTooManyRequests, map[string]any{
			"error": map[string]any{"code": 429, "message": "quota exceeded", "status": "RESOURCE_EXHAUSTED"},
		})
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL, "k", time.Second).GenerateJSON(context.Background(), "m", "p")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests || apiErr.Message != "quota exceeded" {
		t.Errorf("apiErr = %+v", apiErr)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retries)", calls)
	}
}

// TestGenerateEmpty verifies replies without text are ErrEmptyResponse.
func TestGenerateEmpty(t *testing.T) {
	for name, body := range map[string]any{
		"no candidates": map[string]any{"candidates": []any{}},
		"blank text":    candidates("  "),
	} {
		t.Run(name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeTestJSON(t, w, http.StatusOK, body)
			}))
			defer ts.Close()

			_, err := NewClient(ts.URL, "k", time.Second).GenerateText(context.Background(), "m", "p")
			if !errors.Is(err, ErrEmptyResponse) {
				t.Errorf("err = %v, want ErrEmptyResponse", err)
			}
		})
	}
}
