package nli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/claimgate/internal/model"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

func newJudgeServer(t *testing.T, content func(hypothesis string) string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Expected bearer auth, got %q", got)
		}

		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.ResponseFormat == nil || req.ResponseFormat.Type != openai.ChatCompletionResponseFormatTypeJSONObject {
			t.Errorf("Expected JSON object response format")
		}

		user := req.Messages[len(req.Messages)-1].Content
		hypothesis := user[strings.Index(user, "HYPOTHESIS:\n")+len("HYPOTHESIS:\n"):]

		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Model: req.Model,
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content(hypothesis)}},
			},
		})
	}))
}

func judgeConfig(endpoint string) model.BackendConfig {
	return model.BackendConfig{
		Kind:        KindJudge,
		Endpoint:    endpoint,
		APIKey:      "test-key",
		Model:       "gpt-4o-mini",
		BatchSize:   2,
		Timeout:     5 * time.Second,
		Parallelism: 2,
	}
}

func TestJudgeBackend_Score(t *testing.T) {
	server := newJudgeServer(t, func(hypothesis string) string {
		if strings.Contains(hypothesis, "not") {
			return `{"entailment": 0.05, "contradiction": 0.9, "neutral": 0.05}`
		}
		return "```json\n{\"entailment\": 0.95, \"contradiction\": 0.01, \"neutral\": 0.04}\n```"
	})
	defer server.Close()

	backend, err := NewJudgeBackend(judgeConfig(server.URL), zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create backend: %v", err)
	}

	scores, err := backend.Score(context.Background(), []Pair{
		{Premise: "The sky is blue.", Hypothesis: "The sky is blue."},
		{Premise: "The sky is blue.", Hypothesis: "The sky is not blue."},
		{Premise: "Grass is green.", Hypothesis: "Grass is green."},
	})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if len(scores) != 3 {
		t.Fatalf("Expected 3 scores, got %d", len(scores))
	}
	if scores[0].Entailment != 0.95 || scores[2].Entailment != 0.95 {
		t.Errorf("Expected entailment 0.95, got %+v", scores)
	}
	if scores[1].Contradiction != 0.9 {
		t.Errorf("Expected contradiction 0.9, got %+v", scores[1])
	}
}

func TestJudgeBackend_MalformedOutput(t *testing.T) {
	server := newJudgeServer(t, func(string) string { return "I think it is entailed." })
	defer server.Close()

	backend, err := NewJudgeBackend(judgeConfig(server.URL), zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create backend: %v", err)
	}

	_, err = backend.Score(context.Background(), []Pair{{Premise: "a", Hypothesis: "b"}})
	if err == nil || !strings.Contains(err.Error(), "malformed judge output") {
		t.Errorf("Expected malformed output error, got %v", err)
	}
}

func TestJudgeBackend_RequiresAPIKey(t *testing.T) {
	cfg := judgeConfig("http://localhost")
	cfg.APIKey = ""

	_, err := NewJudgeBackend(cfg, zap.NewNop())
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Backend != KindJudge {
		t.Errorf("Expected judge ConfigError, got %v", err)
	}
}

func TestParseJudgeContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    model.RelationScore
		wantErr bool
	}{
		{"plain", `{"entailment": 0.7, "contradiction": 0.1, "neutral": 0.2}`, model.RelationScore{Entailment: 0.7, Contradiction: 0.1, Neutral: 0.2}, false},
		{"clamped", `{"entailment": 1.4, "contradiction": -0.2, "neutral": 0}`, model.RelationScore{Entailment: 1, Contradiction: 0, Neutral: 0}, false},
		{"neutral derived", `{"entailment": 0.5, "contradiction": 0.5}`, model.RelationScore{Entailment: 0.5, Contradiction: 0.5, Neutral: 0}, false},
		{"missing channel", `{"entailment": 0.5}`, model.RelationScore{}, true},
		{"not json", `yes`, model.RelationScore{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseJudgeContent(tt.content)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseJudgeContent() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}
