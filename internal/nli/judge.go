package nli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/claimgate/internal/model"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const judgeSystemPrompt = `You are a natural language inference classifier.
Given a PREMISE and a HYPOTHESIS, estimate the probability that the premise
entails, contradicts, or is neutral toward the hypothesis. Use only the
premise. Respond with a JSON object of the form
{"entailment": <0..1>, "contradiction": <0..1>, "neutral": <0..1>}
and nothing else.`

// JudgeBackend asks a chat-completion model to act as the entailment
// classifier. Works with any OpenAI-compatible endpoint.
type JudgeBackend struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	batcher batcher
	logger  *zap.Logger
}

type judgeVerdict struct {
	Entailment    *float64 `json:"entailment"`
	Contradiction *float64 `json:"contradiction"`
	Neutral       *float64 `json:"neutral"`
}

// NewJudgeBackend creates a judge backend. No request is made until Score.
func NewJudgeBackend(cfg model.BackendConfig, logger *zap.Logger) (*JudgeBackend, error) {
	if cfg.APIKey == "" {
		return nil, configErr(KindJudge, "API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = openai.GPT4oMini
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &JudgeBackend{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   modelName,
		timeout: timeout,
		batcher: newBatcher(KindJudge, cfg, logger),
		logger:  logger,
	}, nil
}

// Score implements Backend. Each pair is one chat completion; batches run
// concurrently up to the configured parallelism.
func (b *JudgeBackend) Score(ctx context.Context, pairs []Pair) ([]model.RelationScore, error) {
	return b.batcher.run(ctx, pairs, b.scoreBatch)
}

func (b *JudgeBackend) scoreBatch(ctx context.Context, batch []Pair) ([]model.RelationScore, error) {
	scores := make([]model.RelationScore, 0, len(batch))
	for i, pair := range batch {
		score, err := b.scorePair(ctx, pair)
		if err != nil {
			return nil, fmt.Errorf("pair %d: %w", i, err)
		}
		scores = append(scores, score)
	}
	return scores, nil
}

func (b *JudgeBackend) scorePair(ctx context.Context, pair Pair) (model.RelationScore, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	resp, err := b.client.CreateChatCompletion(ctxWithTimeout, openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: judgeSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "PREMISE:\n" + pair.Premise + "\n\nHYPOTHESIS:\n" + pair.Hypothesis},
		},
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return model.RelationScore{}, fmt.Errorf("judge API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return model.RelationScore{}, fmt.Errorf("no response from judge model")
	}

	return parseJudgeContent(resp.Choices[0].Message.Content)
}

// parseJudgeContent reads the JSON object out of a completion, tolerating
// code fences around it
func parseJudgeContent(content string) (model.RelationScore, error) {
	content = strings.TrimSpace(content)
	if start := strings.Index(content, "{"); start >= 0 {
		if end := strings.LastIndex(content, "}"); end > start {
			content = content[start : end+1]
		}
	}

	var v judgeVerdict
	if err := json.Unmarshal([]byte(content), &v); err != nil {
		return model.RelationScore{}, fmt.Errorf("malformed judge output: %w", err)
	}
	if v.Entailment == nil || v.Contradiction == nil {
		return model.RelationScore{}, fmt.Errorf("judge output missing entailment or contradiction")
	}

	score := model.RelationScore{
		Entailment:    model.Clamp01(*v.Entailment),
		Contradiction: model.Clamp01(*v.Contradiction),
	}
	if v.Neutral != nil {
		score.Neutral = model.Clamp01(*v.Neutral)
	} else {
		score.Neutral = model.Clamp01(1 - score.Entailment - score.Contradiction)
	}
	return score, nil
}
