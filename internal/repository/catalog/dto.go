package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/quizdex/internal/domain/question"
)

type questionRow struct {
	id             string
	topicID        string
	text           string
	qtype          string
	optionsJSON    string
	answersJSON    string
	syllabusRef    string
	difficultyTier int
	createdAtMs    int64
}

func questionToRow(q question.Question) (questionRow, error) {
	options := q.Options()
	if options == nil {
		options = []string{}
	}
	optionsJSON, err := json.Marshal(options)
	if err != nil {
		return questionRow{}, fmt.Errorf("encode options: %w", err)
	}
	answersJSON, err := json.Marshal(q.CorrectAnswers())
	if err != nil {
		return questionRow{}, fmt.Errorf("encode answers: %w", err)
	}
	return questionRow{
		id:             q.ID(),
		topicID:        q.TopicID(),
		text:           q.Text(),
		qtype:          string(q.Type()),
		optionsJSON:    string(optionsJSON),
		answersJSON:    string(answersJSON),
		syllabusRef:    q.SyllabusReference(),
		difficultyTier: q.DifficultyTier(),
		createdAtMs:    q.CreatedAt().UnixMilli(),
	}, nil
}

func rowToQuestion(row questionRow) (question.Question, error) {
	qtype, err := question.ParseType(row.qtype)
	if err != nil {
		return question.Question{}, fmt.Errorf("question %s: %w", row.id, err)
	}
	var options, answers []string
	if err := json.Unmarshal([]byte(row.optionsJSON), &options); err != nil {
		return question.Question{}, fmt.Errorf("question %s: decode options: %w", row.id, err)
	}
	if err := json.Unmarshal([]byte(row.answersJSON), &answers); err != nil {
		return question.Question{}, fmt.Errorf("question %s: decode answers: %w", row.id, err)
	}
	if len(options) == 0 {
		options = nil
	}
	return question.Reconstruct(question.Params{
		ID:                row.id,
		TopicID:           row.topicID,
		Text:              row.text,
		Type:              qtype,
		Options:           options,
		CorrectAnswers:    answers,
		SyllabusReference: row.syllabusRef,
		DifficultyTier:    row.difficultyTier,
		CreatedAt:         unixMillis(row.createdAtMs),
	}), nil
}
