package quizdex

import "time"

// QuestionType is the answer format of a question.
type QuestionType string

// Question type constants.
const (
	MultipleChoice QuestionType = "multiple_choice"
	ShortAnswer    QuestionType = "short_answer"
	Numerical      QuestionType = "numerical"
)

// Question is an exam question.
type Question struct {
	ID                string
	TopicID           string
	Text              string
	Type              QuestionType
	Options           []string
	CorrectAnswers    []string
	SyllabusReference string
	DifficultyTier    int
	CreatedAt         time.Time
}

// Topic is a catalog topic record.
type Topic struct {
	ID          string
	Name        string
	Description string
	Concepts    []string
	Curriculum  string
	Grade       int
	Subject     string
}

// TopicContext is the resolved description of a topic handed to generators
// and scorers.
type TopicContext struct {
	ID        string
	Text      string
	Concepts  []string
	Synthetic bool
}

// SelectRequest asks for Count questions across Topics.
// UserID, when set, prefers questions that user has not seen.
type SelectRequest struct {
	Topics  []string
	Count   int
	Exclude []string
	UserID  string
}

// Selection is the result of Select. Retrieved questions come first.
type Selection struct {
	Questions []Question
	Retrieved int
	Generated int
}
