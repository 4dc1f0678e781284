package chi

import (
	"time"

	"github.com/kailas-cloud/quizdex/internal/domain/question"
	domusage "github.com/kailas-cloud/quizdex/internal/domain/usage"
	selectionuc "github.com/kailas-cloud/quizdex/internal/usecase/selection"
)

// ErrorCode is the machine-readable error code in ErrorResponse.
type ErrorCode string

// Error codes returned by the API.
const (
	ErrorCodeBadRequest            ErrorCode = "bad_request"
	ErrorCodeValidationFailed      ErrorCode = "validation_failed"
	ErrorCodeUnauthorized          ErrorCode = "unauthorized"
	ErrorCodeNotFound              ErrorCode = "not_found"
	ErrorCodeMethodNotAllowed      ErrorCode = "method_not_allowed"
	ErrorCodeInsufficientContent   ErrorCode = "insufficient_content"
	ErrorCodeTopicNotFound         ErrorCode = "topic_not_found"
	ErrorCodeProviderError         ErrorCode = "provider_error"
	ErrorCodeGenerationFailed      ErrorCode = "generation_failed"
	ErrorCodeValidationUnavailable ErrorCode = "validation_unavailable"
	ErrorCodeGenerationQuota       ErrorCode = "generation_quota_exceeded"
	ErrorCodeInternalError         ErrorCode = "internal_error"
)

// insufficientContentMessage is shown to callers when a selection cannot be filled.
const insufficientContentMessage = "not enough content available for this selection"

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// SelectionRequest is the body of POST /api/v1/selections.
type SelectionRequest struct {
	Topics  []string `json:"topics"`
	Count   int      `json:"count"`
	Exclude []string `json:"exclude,omitempty"`
	UserID  string   `json:"user_id,omitempty"`
}

// SelectionResponse lists selected questions, retrieved ones first.
type SelectionResponse struct {
	Questions []QuestionResponse `json:"questions"`
	Retrieved int                `json:"retrieved"`
	Generated int                `json:"generated"`
}

// QuestionResponse is the wire form of a question.
type QuestionResponse struct {
	ID                string    `json:"id"`
	TopicID           string    `json:"topic_id"`
	Text              string    `json:"text"`
	Type              string    `json:"type"`
	Options           []string  `json:"options,omitempty"`
	CorrectAnswers    []string  `json:"correct_answers"`
	SyllabusReference string    `json:"syllabus_reference,omitempty"`
	DifficultyTier    int       `json:"difficulty_tier"`
	CreatedAt         time.Time `json:"created_at"`
}

// ExposureRequest is the body of POST /api/v1/exposures.
type ExposureRequest struct {
	UserID      string     `json:"user_id"`
	QuestionIDs []string   `json:"question_ids"`
	SeenAt      *time.Time `json:"seen_at,omitempty"`
}

// UsageResponse is the body of GET /api/v1/usage. Limit and Remaining are
// omitted when the period is unlimited.
type UsageResponse struct {
	Period      string    `json:"period"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	Tokens      int64     `json:"tokens"`
	Limit       *int64    `json:"limit,omitempty"`
	Remaining   *int64    `json:"remaining,omitempty"`
	Exhausted   bool      `json:"exhausted"`
}

// UsageToResponse converts a usage report to its wire form.
func UsageToResponse(r domusage.Report) UsageResponse {
	resp := UsageResponse{
		Period:      string(r.Period),
		PeriodStart: r.PeriodStart,
		PeriodEnd:   r.PeriodEnd,
		Tokens:      r.Tokens,
		Exhausted:   r.Exhausted(),
	}
	if r.Limit > 0 {
		limit, remaining := r.Limit, r.Remaining()
		resp.Limit, resp.Remaining = &limit, &remaining
	}
	return resp
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// SelectionToResponse converts a selection result to its wire form.
func SelectionToResponse(res selectionuc.Result) SelectionResponse {
	items := make([]QuestionResponse, len(res.Questions))
	for i := range res.Questions {
		items[i] = questionToResponse(&res.Questions[i])
	}
	return SelectionResponse{
		Questions: items,
		Retrieved: res.Retrieved,
		Generated: res.Generated,
	}
}

func questionToResponse(q *question.Question) QuestionResponse {
	return QuestionResponse{
		ID:                q.ID(),
		TopicID:           q.TopicID(),
		Text:              q.Text(),
		Type:              string(q.Type()),
		Options:           q.Options(),
		CorrectAnswers:    q.CorrectAnswers(),
		SyllabusReference: q.SyllabusReference(),
		DifficultyTier:    q.DifficultyTier(),
		CreatedAt:         q.CreatedAt(),
	}
}
