package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/quizdex/internal/domain"
	"github.com/kailas-cloud/quizdex/internal/domain/question"
	"github.com/kailas-cloud/quizdex/internal/domain/topic"
)

var seedCmd = &cobra.Command{
	Use:   "seed <file.yaml>",
	Short: "Load topics and questions from a YAML file into the catalog",
	Long: `Load topics and questions from a YAML file into the catalog.

Topics are upserted. Questions without an id get one derived from their
topic and text, so re-running the same file skips what is already stored.

Example file:

  topics:
    - id: linear-equations
      name: Linear equations
      description: Solving equations of the form ax + b = c
      concepts: [isolating the variable, inverse operations]
      subject: mathematics
      grade: 8
  questions:
    - topic_id: linear-equations
      text: Solve 2x + 3 = 11.
      type: numerical
      correct_answers: ["4"]
      difficulty_tier: 1`,
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

// seedFile is the YAML layout accepted by seed.
type seedFile struct {
	Topics    []seedTopic    `yaml:"topics"`
	Questions []seedQuestion `yaml:"questions"`
}

type seedTopic struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Concepts    []string `yaml:"concepts"`
	Curriculum  string   `yaml:"curriculum"`
	Grade       int      `yaml:"grade"`
	Subject     string   `yaml:"subject"`
}

type seedQuestion struct {
	ID                string   `yaml:"id"`
	TopicID           string   `yaml:"topic_id"`
	Text              string   `yaml:"text"`
	Type              string   `yaml:"type"`
	Options           []string `yaml:"options"`
	CorrectAnswers    []string `yaml:"correct_answers"`
	SyllabusReference string   `yaml:"syllabus_reference"`
	DifficultyTier    int      `yaml:"difficulty_tier"`
}

// seedCatalog is the subset of the catalog used by seed.
type seedCatalog interface {
	UpsertTopic(ctx context.Context, rec topic.Record) error
	InsertQuestion(ctx context.Context, q question.Question) error
	CountQuestions(ctx context.Context) (int, error)
}

// SeedResult is the JSON output of seed.
type SeedResult struct {
	Topics       int `json:"topics"`
	Inserted     int `json:"inserted"`
	Skipped      int `json:"skipped"`
	Questions    int `json:"questions"`
	CatalogTotal int `json:"catalog_total"`
}

func runSeed(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(filepath.Clean(args[0]))
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	file, err := parseSeed(data)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), envName)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := applySeed(cmd.Context(), a.catalog, file, time.Now().UTC())
	if err != nil {
		return err
	}
	return outputJSON(cmd.OutOrStdout(), res)
}

func parseSeed(data []byte) (seedFile, error) {
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return seedFile{}, fmt.Errorf("parse seed file: %w", err)
	}
	for i, t := range file.Topics {
		if strings.TrimSpace(t.ID) == "" {
			return seedFile{}, fmt.Errorf("topics[%d]: id is required", i)
		}
	}
	return file, nil
}

// seedQuestionID derives a stable id from topic and text.
func seedQuestionID(topicID, text string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(topicID+"\x00"+question.NormalizeText(text))).String()
}

func (sq seedQuestion) params(createdAt time.Time) (question.Params, error) {
	qtype, err := question.ParseType(sq.Type)
	if err != nil {
		return question.Params{}, err
	}
	id := strings.TrimSpace(sq.ID)
	if id == "" {
		id = seedQuestionID(sq.TopicID, sq.Text)
	}
	return question.Params{
		ID:                id,
		TopicID:           sq.TopicID,
		Text:              sq.Text,
		Type:              qtype,
		Options:           sq.Options,
		CorrectAnswers:    sq.CorrectAnswers,
		SyllabusReference: sq.SyllabusReference,
		DifficultyTier:    sq.DifficultyTier,
		CreatedAt:         createdAt,
	}, nil
}

// applySeed writes topics first so every question's topic exists. All
// questions are validated before any is inserted.
func applySeed(ctx context.Context, catalog seedCatalog, file seedFile, now time.Time) (SeedResult, error) {
	questions := make([]question.Question, len(file.Questions))
	for i, sq := range file.Questions {
		p, err := sq.params(now)
		if err != nil {
			return SeedResult{}, fmt.Errorf("questions[%d]: %w", i, err)
		}
		q, err := question.New(p)
		if err != nil {
			return SeedResult{}, fmt.Errorf("questions[%d]: %w", i, err)
		}
		questions[i] = q
	}

	res := SeedResult{Questions: len(questions)}
	for _, t := range file.Topics {
		rec := topic.Record{
			ID:          strings.TrimSpace(t.ID),
			Name:        t.Name,
			Description: t.Description,
			Concepts:    t.Concepts,
			Curriculum:  t.Curriculum,
			Grade:       t.Grade,
			Subject:     t.Subject,
		}
		if err := catalog.UpsertTopic(ctx, rec); err != nil {
			return res, fmt.Errorf("topic %s: %w", rec.ID, err)
		}
		res.Topics++
	}

	for _, q := range questions {
		err := catalog.InsertQuestion(ctx, q)
		switch {
		case errors.Is(err, domain.ErrAlreadyExists):
			res.Skipped++
		case err != nil:
			return res, fmt.Errorf("question %s: %w", q.ID(), err)
		default:
			res.Inserted++
		}
	}

	total, err := catalog.CountQuestions(ctx)
	if err != nil {
		return res, fmt.Errorf("count questions: %w", err)
	}
	res.CatalogTotal = total
	return res, nil
}
