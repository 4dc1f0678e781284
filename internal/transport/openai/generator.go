package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/quizdex/internal/domain/question"
	"github.com/kailas-cloud/quizdex/internal/domain/topic"
)

// maxExistingInPrompt bounds how many existing questions are listed for de-duplication.
const maxExistingInPrompt = 25

const generatorSystemPrompt = `You write exam questions for school curricula.
Reply with a single JSON object of the form:
{"questions":[{"text":"...","type":"multiple_choice|short_answer|numerical","options":["..."],"correct_answers":["..."],"syllabus_reference":"...","difficulty_tier":1}]}
Rules: multiple_choice questions have 3 to 5 options and every correct answer is copied verbatim from the options.
short_answer and numerical questions have no options. numerical answers are plain numbers.
difficulty_tier is 1 (easy) to 3 (hard). Never repeat or paraphrase a question listed as existing.`

type generatedQuestion struct {
	Text              string   `json:"text"`
	Type              string   `json:"type"`
	Options           []string `json:"options"`
	CorrectAnswers    []string `json:"correct_answers"`
	SyllabusReference string   `json:"syllabus_reference"`
	DifficultyTier    int      `json:"difficulty_tier"`
}

type generationResponse struct {
	Questions []generatedQuestion `json:"questions"`
}

// Generator produces candidate questions with a chat model.
type Generator struct {
	chat *chatClient
}

// NewGenerator creates a question generator.
func NewGenerator(cfg ChatConfig) *Generator {
	return &Generator{chat: newChatClient(cfg, "generator")}
}

// Generate asks the model for count candidates for the topic. Candidates are
// well-formed JSON but not validated; ids and topic ids are left to the caller.
// An unknown type string is passed through as-is so the caller rejects it.
func (g *Generator) Generate(
	ctx context.Context, tc topic.Context, count int, existing []question.Question,
) ([]question.Params, error) {
	if count <= 0 {
		return nil, nil
	}

	var resp generationResponse
	if err := g.chat.completeJSON(ctx, generatorSystemPrompt, generationPrompt(tc, count, existing), &resp); err != nil {
		return nil, fmt.Errorf("generate questions for %s: %w", tc.TopicID(), err)
	}

	out := make([]question.Params, 0, len(resp.Questions))
	for _, gq := range resp.Questions {
		qtype, err := question.ParseType(gq.Type)
		if err != nil {
			qtype = question.Type(gq.Type)
		}
		out = append(out, question.Params{
			TopicID:           tc.TopicID(),
			Text:              gq.Text,
			Type:              qtype,
			Options:           gq.Options,
			CorrectAnswers:    gq.CorrectAnswers,
			SyllabusReference: gq.SyllabusReference,
			DifficultyTier:    gq.DifficultyTier,
		})
	}
	return out, nil
}

func generationPrompt(tc topic.Context, count int, existing []question.Question) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n", tc.DescriptiveText())
	if concepts := tc.RelatedConcepts(); len(concepts) > 0 {
		fmt.Fprintf(&b, "Key concepts: %s\n", strings.Join(concepts, ", "))
	}
	fmt.Fprintf(&b, "Write %d new questions.\n", count)

	if len(existing) > 0 {
		b.WriteString("Existing questions:\n")
		for i := range existing {
			if i == maxExistingInPrompt {
				break
			}
			fmt.Fprintf(&b, "- %s\n", existing[i].Text())
		}
	}
	return b.String()
}
