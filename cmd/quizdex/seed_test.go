package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/quizdex/internal/domain"
	"github.com/kailas-cloud/quizdex/internal/domain/question"
	"github.com/kailas-cloud/quizdex/internal/domain/topic"
)

type fakeSeedCatalog struct {
	topics    map[string]topic.Record
	questions map[string]question.Question
	insertErr error
}

func newFakeSeedCatalog() *fakeSeedCatalog {
	return &fakeSeedCatalog{topics: map[string]topic.Record{}, questions: map[string]question.Question{}}
}

func (f *fakeSeedCatalog) UpsertTopic(_ context.Context, rec topic.Record) error {
	f.topics[rec.ID] = rec
	return nil
}

func (f *fakeSeedCatalog) InsertQuestion(_ context.Context, q question.Question) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	if _, ok := f.questions[q.ID()]; ok {
		return domain.ErrAlreadyExists
	}
	f.questions[q.ID()] = q
	return nil
}

func (f *fakeSeedCatalog) CountQuestions(context.Context) (int, error) {
	return len(f.questions), nil
}

const seedYAML = `
topics:
  - id: linear-equations
    name: Linear equations
    description: Solving ax + b = c
    concepts: [inverse operations]
    grade: 8
    subject: mathematics
questions:
  - topic_id: linear-equations
    text: Solve 2x + 3 = 11.
    type: numerical
    correct_answers: ["4"]
    difficulty_tier: 1
  - id: q-mc
    topic_id: linear-equations
    text: Which value solves x - 1 = 2?
    type: multiple_choice
    options: ["1", "3"]
    correct_answers: ["3"]
`

func TestApplySeed_Idempotent(t *testing.T) {
	file, err := parseSeed([]byte(seedYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cat := newFakeSeedCatalog()
	now := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	res, err := applySeed(context.Background(), cat, file, now)
	if err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if res.Topics != 1 || res.Inserted != 2 || res.Skipped != 0 || res.CatalogTotal != 2 {
		t.Errorf("unexpected first result %+v", res)
	}
	if cat.topics["linear-equations"].Grade != 8 {
		t.Errorf("topic not stored: %+v", cat.topics)
	}
	if _, ok := cat.questions["q-mc"]; !ok {
		t.Error("explicit id must be kept")
	}

	res, err = applySeed(context.Background(), cat, file, now)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if res.Inserted != 0 || res.Skipped != 2 {
		t.Errorf("expected all skipped on re-run, got %+v", res)
	}
	if res.CatalogTotal != 2 {
		t.Errorf("expected catalog total 2, got %d", res.CatalogTotal)
	}
}

func TestSeedQuestionID_StableAcrossWhitespaceAndCase(t *testing.T) {
	a := seedQuestionID("t1", "Solve  2x = 4")
	b := seedQuestionID("t1", "solve 2x = 4 ")
	if a != b {
		t.Errorf("expected same id, got %s and %s", a, b)
	}
	if a == seedQuestionID("t2", "Solve 2x = 4") {
		t.Error("topic must be part of the id")
	}
}

func TestApplySeed_InvalidQuestionInsertsNothing(t *testing.T) {
	file, err := parseSeed([]byte(`
topics:
  - id: t1
questions:
  - topic_id: t1
    text: ok?
    type: short_answer
    correct_answers: ["yes"]
  - topic_id: t1
    text: broken
    type: essay
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cat := newFakeSeedCatalog()

	_, err = applySeed(context.Background(), cat, file, time.Now())
	if err == nil || !strings.Contains(err.Error(), "questions[1]") {
		t.Fatalf("expected questions[1] error, got %v", err)
	}
	if len(cat.questions) != 0 || len(cat.topics) != 0 {
		t.Error("nothing must be written when validation fails")
	}
}

func TestApplySeed_InsertError(t *testing.T) {
	file, _ := parseSeed([]byte(seedYAML))
	cat := newFakeSeedCatalog()
	cat.insertErr = errors.New("disk full")

	if _, err := applySeed(context.Background(), cat, file, time.Now()); !errors.Is(err, cat.insertErr) {
		t.Errorf("expected insert error, got %v", err)
	}
}

func TestParseSeed_Errors(t *testing.T) {
	if _, err := parseSeed([]byte("topics: [")); err == nil {
		t.Error("expected yaml error")
	}
	if _, err := parseSeed([]byte("topics:\n  - name: no id\n")); err == nil {
		t.Error("expected missing id error")
	}
}
