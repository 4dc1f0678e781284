package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/quizdex/internal/domain"
	"github.com/kailas-cloud/quizdex/internal/metrics"
)

// TokenBudget gates chat requests on spent tokens.
type TokenBudget interface {
	Check(ctx context.Context) error
	Record(tokens int64)
}

// ChatConfig holds the settings shared by the generator and the validator.
type ChatConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	// RequestsPerSecond of zero disables rate limiting.
	RequestsPerSecond float64
	Burst             int
	// Budget is optional. Generator and validator may share one.
	Budget TokenBudget
}

// chatClient is a rate-limited JSON-mode chat completion client.
type chatClient struct {
	client      *openai.Client
	limiter     *rate.Limiter
	budget      TokenBudget
	model       string
	temperature float32
	role        string
}

func newChatClient(cfg ChatConfig, role string) *chatClient {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := max(cfg.Burst, 1)
	return &chatClient{
		client:      newClient(cfg.APIKey, cfg.BaseURL),
		limiter:     rate.NewLimiter(limit, burst),
		budget:      cfg.Budget,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		role:        role,
	}
}

// completeJSON sends a system+user prompt and decodes the JSON object reply into out.
func (c *chatClient) completeJSON(ctx context.Context, system, user string, out any) error {
	if c.budget != nil {
		if err := c.budget.Check(ctx); err != nil {
			if errors.Is(err, domain.ErrGenerationQuotaExceeded) {
				metrics.GenerationBudgetRejectionsTotal.Inc()
			}
			return err
		}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return fmt.Errorf("chat completion: %w", err)
	}
	c.recordUsage(resp.Usage.TotalTokens)
	if len(resp.Choices) == 0 {
		return fmt.Errorf("chat completion: empty response")
	}

	content := stripCodeFence(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("decode completion: %w", err)
	}
	return nil
}

func (c *chatClient) recordUsage(tokens int) {
	if tokens <= 0 {
		return
	}
	metrics.GenerationTokensTotal.WithLabelValues(c.role).Add(float64(tokens))
	if c.budget != nil {
		c.budget.Record(int64(tokens))
	}
}

// stripCodeFence removes a surrounding ```json fence some models add despite JSON mode.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func isUnitInterval(f float64) bool {
	return !math.IsNaN(f) && f >= 0 && f <= 1
}
