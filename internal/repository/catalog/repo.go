// Package catalog is the persistent question and topic repository.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/quizdex/internal/db/sqldb"
	"github.com/kailas-cloud/quizdex/internal/domain"
	"github.com/kailas-cloud/quizdex/internal/domain/question"
	"github.com/kailas-cloud/quizdex/internal/domain/topic"
)

// store is the consumer interface for the catalog (ISP).
type store interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	Ping(ctx context.Context) error
}

const selectQuestionFields = `id, topic_id, text, type, options_json, answers_json,
	syllabus_ref, difficulty_tier, created_at_ms`

// Repo implements the catalog contracts used by the usecases.
type Repo struct {
	store store
}

// New creates a catalog repository. Call EnsureSchema before first use.
func New(s store) *Repo {
	return &Repo{store: s}
}

// EnsureSchema creates tables and indexes if they don't exist.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.store.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// Ping checks catalog connectivity.
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.store.Ping(ctx); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	return nil
}

// LoadAllQuestions returns every stored question ordered by creation time, then id.
func (r *Repo) LoadAllQuestions(ctx context.Context) ([]question.Question, error) {
	rows, err := r.store.QueryContext(ctx,
		`SELECT `+selectQuestionFields+` FROM questions ORDER BY created_at_ms, id`)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var out []question.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("load questions: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return out, nil
}

// InsertQuestion stores a new question. A duplicate id yields domain.ErrAlreadyExists.
func (r *Repo) InsertQuestion(ctx context.Context, q question.Question) error {
	row, err := questionToRow(q)
	if err != nil {
		return fmt.Errorf("insert question %s: %w", q.ID(), err)
	}

	_, err = r.store.ExecContext(ctx,
		`INSERT INTO questions (`+selectQuestionFields+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.id, row.topicID, row.text, row.qtype, row.optionsJSON, row.answersJSON,
		row.syllabusRef, row.difficultyTier, row.createdAtMs,
	)
	if err != nil {
		if sqldb.IsUniqueViolation(err) {
			return fmt.Errorf("insert question %s: %w", q.ID(), domain.ErrAlreadyExists)
		}
		return fmt.Errorf("insert question %s: %w", q.ID(), err)
	}
	return nil
}

// FindTopic returns a topic record. A missing topic yields domain.ErrTopicNotFound.
func (r *Repo) FindTopic(ctx context.Context, id string) (topic.Record, error) {
	var (
		rec          topic.Record
		conceptsJSON string
	)
	err := r.store.QueryRowContext(ctx,
		`SELECT id, name, description, concepts_json, curriculum, grade, subject FROM topics WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.Name, &rec.Description, &conceptsJSON, &rec.Curriculum, &rec.Grade, &rec.Subject)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return topic.Record{}, fmt.Errorf("find topic %s: %w", id, domain.ErrTopicNotFound)
		}
		return topic.Record{}, fmt.Errorf("find topic %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(conceptsJSON), &rec.Concepts); err != nil {
		return topic.Record{}, fmt.Errorf("find topic %s: decode concepts: %w", id, err)
	}
	return rec, nil
}

// UpsertTopic inserts or replaces a topic record.
func (r *Repo) UpsertTopic(ctx context.Context, rec topic.Record) error {
	if rec.ID == "" {
		return fmt.Errorf("upsert topic: %w: id is required", domain.ErrInvalidRequest)
	}
	concepts := rec.Concepts
	if concepts == nil {
		concepts = []string{}
	}
	conceptsJSON, err := json.Marshal(concepts)
	if err != nil {
		return fmt.Errorf("upsert topic %s: %w", rec.ID, err)
	}

	_, err = r.store.ExecContext(ctx,
		`INSERT INTO topics (id, name, description, concepts_json, curriculum, grade, subject)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			concepts_json = excluded.concepts_json,
			curriculum = excluded.curriculum,
			grade = excluded.grade,
			subject = excluded.subject`,
		rec.ID, rec.Name, rec.Description, string(conceptsJSON), rec.Curriculum, rec.Grade, rec.Subject,
	)
	if err != nil {
		return fmt.Errorf("upsert topic %s: %w", rec.ID, err)
	}
	return nil
}

// CountQuestions returns the number of stored questions.
func (r *Repo) CountQuestions(ctx context.Context) (int, error) {
	var n int
	if err := r.store.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(s rowScanner) (question.Question, error) {
	var row questionRow
	if err := s.Scan(
		&row.id, &row.topicID, &row.text, &row.qtype, &row.optionsJSON, &row.answersJSON,
		&row.syllabusRef, &row.difficultyTier, &row.createdAtMs,
	); err != nil {
		return question.Question{}, fmt.Errorf("scan: %w", err)
	}
	return rowToQuestion(row)
}

// unixMillis converts a unix millisecond timestamp to UTC time.
func unixMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
