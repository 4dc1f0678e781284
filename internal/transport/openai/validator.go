package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/quizdex/internal/domain/question"
	"github.com/kailas-cloud/quizdex/internal/domain/topic"
)

const validatorSystemPrompt = `You review exam questions for alignment with a curriculum topic.
Judge whether the question tests the topic, is answerable, and whether the listed answers are correct.
Reply with a single JSON object: {"score": <number between 0 and 1>, "reason": "<one sentence>"}`

type validationResponse struct {
	Score  *float64 `json:"score"`
	Reason string   `json:"reason"`
}

// Validator scores question-topic alignment with a chat model.
type Validator struct {
	chat *chatClient
}

// NewValidator creates an alignment scorer.
func NewValidator(cfg ChatConfig) *Validator {
	return &Validator{chat: newChatClient(cfg, "validator")}
}

// Score returns the alignment of q with tc in [0, 1].
func (v *Validator) Score(ctx context.Context, q question.Question, tc topic.Context) (float64, error) {
	var resp validationResponse
	if err := v.chat.completeJSON(ctx, validatorSystemPrompt, validationPrompt(q, tc), &resp); err != nil {
		return 0, fmt.Errorf("score question %s: %w", q.ID(), err)
	}
	if resp.Score == nil {
		return 0, fmt.Errorf("score question %s: response has no score", q.ID())
	}
	if !isUnitInterval(*resp.Score) {
		return 0, fmt.Errorf("score question %s: score %v outside [0, 1]", q.ID(), *resp.Score)
	}
	return *resp.Score, nil
}

func validationPrompt(q question.Question, tc topic.Context) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n", tc.DescriptiveText())
	if concepts := tc.RelatedConcepts(); len(concepts) > 0 {
		fmt.Fprintf(&b, "Key concepts: %s\n", strings.Join(concepts, ", "))
	}
	fmt.Fprintf(&b, "Question (%s): %s\n", q.Type(), q.Text())
	if opts := q.Options(); len(opts) > 0 {
		fmt.Fprintf(&b, "Options: %s\n", strings.Join(opts, "; "))
	}
	fmt.Fprintf(&b, "Correct answers: %s\n", strings.Join(q.CorrectAnswers(), "; "))
	return b.String()
}
