package question

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Type is the answer format of a question.
type Type string

const (
	// MultipleChoice questions carry options and pick correct answers among them.
	MultipleChoice Type = "multiple_choice"
	// ShortAnswer questions accept free-text answers.
	ShortAnswer Type = "short_answer"
	// Numerical questions accept numeric answers.
	Numerical Type = "numerical"
)

// ParseType converts a string to a Type.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case MultipleChoice, ShortAnswer, Numerical:
		return t, nil
	default:
		return "", fmt.Errorf("unknown question type %q", s)
	}
}

// MaxTextSize is the maximum question text size in bytes.
const MaxTextSize = 8192

// Question is an exam question (immutable value object).
type Question struct {
	id                string
	topicID           string
	text              string
	qtype             Type
	options           []string
	correctAnswers    []string
	syllabusReference string
	difficultyTier    int
	createdAt         time.Time
}

// Params holds the fields used to build a Question.
type Params struct {
	ID                string
	TopicID           string
	Text              string
	Type              Type
	Options           []string
	CorrectAnswers    []string
	SyllabusReference string
	DifficultyTier    int
	CreatedAt         time.Time
}

// New validates and creates a Question.
// Options are required (at least two) for multiple choice and forbidden otherwise;
// multiple-choice answers must be among the options, numerical answers must parse as numbers.
func New(p Params) (Question, error) {
	if strings.TrimSpace(p.ID) == "" {
		return Question{}, fmt.Errorf("question ID is required")
	}
	if strings.TrimSpace(p.TopicID) == "" {
		return Question{}, fmt.Errorf("question topic ID is required")
	}
	text := strings.TrimSpace(p.Text)
	if text == "" {
		return Question{}, fmt.Errorf("question text is required")
	}
	if len(text) > MaxTextSize {
		return Question{}, fmt.Errorf("question text too large (max %d bytes)", MaxTextSize)
	}
	if p.DifficultyTier < 0 {
		return Question{}, fmt.Errorf("difficulty tier must be non-negative, got %d", p.DifficultyTier)
	}

	answers := trimAll(p.CorrectAnswers)
	if len(answers) == 0 {
		return Question{}, fmt.Errorf("at least one correct answer is required")
	}

	options := trimAll(p.Options)
	switch p.Type {
	case MultipleChoice:
		if len(options) < 2 {
			return Question{}, fmt.Errorf("multiple choice question needs at least 2 options, got %d", len(options))
		}
		for _, a := range answers {
			if !slices.Contains(options, a) {
				return Question{}, fmt.Errorf("correct answer %q is not one of the options", a)
			}
		}
	case ShortAnswer:
		if len(options) > 0 {
			return Question{}, fmt.Errorf("options are only allowed for multiple choice questions")
		}
	case Numerical:
		if len(options) > 0 {
			return Question{}, fmt.Errorf("options are only allowed for multiple choice questions")
		}
		for _, a := range answers {
			if _, err := strconv.ParseFloat(a, 64); err != nil {
				return Question{}, fmt.Errorf("numerical answer %q is not a number", a)
			}
		}
	default:
		return Question{}, fmt.Errorf("unknown question type %q", p.Type)
	}

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	return Question{
		id:                strings.TrimSpace(p.ID),
		topicID:           strings.TrimSpace(p.TopicID),
		text:              text,
		qtype:             p.Type,
		options:           options,
		correctAnswers:    answers,
		syllabusReference: strings.TrimSpace(p.SyllabusReference),
		difficultyTier:    p.DifficultyTier,
		createdAt:         createdAt.UTC(),
	}, nil
}

// Reconstruct creates a Question without validation (storage hydration).
func Reconstruct(p Params) Question {
	return Question{
		id:                p.ID,
		topicID:           p.TopicID,
		text:              p.Text,
		qtype:             p.Type,
		options:           slices.Clone(p.Options),
		correctAnswers:    slices.Clone(p.CorrectAnswers),
		syllabusReference: p.SyllabusReference,
		difficultyTier:    p.DifficultyTier,
		createdAt:         p.CreatedAt,
	}
}

// ID returns the question identifier.
func (q *Question) ID() string { return q.id }

// TopicID returns the owning topic identifier.
func (q *Question) TopicID() string { return q.topicID }

// Text returns the question stem.
func (q *Question) Text() string { return q.text }

// Type returns the answer format.
func (q *Question) Type() Type { return q.qtype }

// Options returns a copy of the answer options (multiple choice only).
func (q *Question) Options() []string { return slices.Clone(q.options) }

// CorrectAnswers returns a copy of the accepted answers.
func (q *Question) CorrectAnswers() []string { return slices.Clone(q.correctAnswers) }

// SyllabusReference returns the curriculum reference string.
func (q *Question) SyllabusReference() string { return q.syllabusReference }

// DifficultyTier returns the difficulty tier.
func (q *Question) DifficultyTier() int { return q.difficultyTier }

// CreatedAt returns the creation timestamp.
func (q *Question) CreatedAt() time.Time { return q.createdAt }

// Params returns the question fields, e.g. for persistence.
func (q *Question) Params() Params {
	return Params{
		ID:                q.id,
		TopicID:           q.topicID,
		Text:              q.text,
		Type:              q.qtype,
		Options:           slices.Clone(q.options),
		CorrectAnswers:    slices.Clone(q.correctAnswers),
		SyllabusReference: q.syllabusReference,
		DifficultyTier:    q.difficultyTier,
		CreatedAt:         q.createdAt,
	}
}

// EmbeddingText is the text vectorized when the question is indexed.
func (q *Question) EmbeddingText() string {
	if len(q.options) == 0 {
		return q.text
	}
	return q.text + "\nOptions: " + strings.Join(q.options, "; ")
}

// NormalizedText folds case and whitespace, for duplicate detection.
func (q *Question) NormalizedText() string {
	return NormalizeText(q.text)
}

// NormalizeText folds case and whitespace.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
