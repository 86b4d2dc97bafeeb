package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/roofwise/compliance-assistant/internal/core/domain"
)

func promptCaptureServer(t *testing.T, captured *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		*captured, _ = payload["prompt"].(string)
		_, _ = w.Write([]byte(`{"response":"ok"}`))
	}))
}

func TestGenerateAnswerStrictPromptCitesSources(t *testing.T) {
	var capturedPrompt string
	server := promptCaptureServer(t, &capturedPrompt)
	defer server.Close()

	gen := NewGenerator(New(server.URL, "gen", "embed"))
	passages := []domain.Passage{
		{Source: "NZS 3604", Page: 45, Clause: "8.5.2", Content: "stud spacing table"},
	}
	_, err := gen.GenerateAnswer(context.Background(), "what stud spacing?", passages, domain.ModeStrict)
	if err != nil {
		t.Fatalf("GenerateAnswer() error = %v", err)
	}
	if !strings.Contains(capturedPrompt, "what stud spacing?") || !strings.Contains(capturedPrompt, "stud spacing table") {
		t.Fatalf("unexpected prompt: %s", capturedPrompt)
	}
	if !strings.Contains(capturedPrompt, "NZS 3604 clause 8.5.2 p.45") {
		t.Fatalf("expected clause locator in prompt, got: %s", capturedPrompt)
	}
	if !strings.Contains(capturedPrompt, "never guess") {
		t.Fatalf("expected strict instructions, got: %s", capturedPrompt)
	}
}

func TestGenerateAnswerFastPromptUsesSynthesisInstructions(t *testing.T) {
	var capturedPrompt string
	server := promptCaptureServer(t, &capturedPrompt)
	defer server.Close()

	gen := NewGenerator(New(server.URL, "gen", "embed"))
	_, err := gen.GenerateAnswer(context.Background(), "q?", nil, domain.ModeFast)
	if err != nil {
		t.Fatalf("GenerateAnswer() error = %v", err)
	}
	if !strings.Contains(capturedPrompt, "short, direct answer") {
		t.Fatalf("expected fast instructions, got: %s", capturedPrompt)
	}
	if strings.Contains(capturedPrompt, "never guess") {
		t.Fatalf("strict instructions leaked into fast prompt: %s", capturedPrompt)
	}
}

func TestEmbedIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "gen", "embed"))
	_, err := embedder.Embed(context.Background(), []string{"hello"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected HTTPStatusError with 502, got %v", err)
	}
}

func TestClassifyModelError(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		retryable bool
		record    bool
	}{
		{"retryable status", &HTTPStatusError{StatusCode: http.StatusServiceUnavailable}, true, true},
		{"client status", &HTTPStatusError{StatusCode: http.StatusBadRequest}, false, false},
		{"cancelled", context.Canceled, false, false},
		{"unknown", errors.New("boom"), false, true},
	}
	for _, tc := range cases {
		class := classifyModelError(tc.err)
		if class.Retryable != tc.retryable || class.RecordFailure != tc.record {
			t.Errorf("%s: classification = %+v, want retryable=%v record=%v",
				tc.name, class, tc.retryable, tc.record)
		}
	}
}

func TestWrapTemporaryMarksRetryableErrors(t *testing.T) {
	err := wrapTemporaryIfNeeded("generate answer", &HTTPStatusError{StatusCode: http.StatusServiceUnavailable, Status: "503"})
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary kind, got %v", err)
	}

	permanent := wrapTemporaryIfNeeded("generate answer", &HTTPStatusError{StatusCode: http.StatusBadRequest, Status: "400"})
	if domain.IsKind(permanent, domain.ErrTemporary) {
		t.Fatalf("permanent error wrongly marked temporary: %v", permanent)
	}
}
