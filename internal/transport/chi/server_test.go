package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/quizdex/internal/domain"
	"github.com/kailas-cloud/quizdex/internal/domain/question"
	domusage "github.com/kailas-cloud/quizdex/internal/domain/usage"
	"github.com/kailas-cloud/quizdex/internal/metrics"
	healthuc "github.com/kailas-cloud/quizdex/internal/usecase/health"
	selectionuc "github.com/kailas-cloud/quizdex/internal/usecase/selection"
)

func TestMain(m *testing.M) {
	metrics.Register()
	os.Exit(m.Run())
}

// --- Mocks ---

type mockSelector struct {
	res    selectionuc.Result
	err    error
	got    selectionuc.Request
	tokens int
}

func (m *mockSelector) Select(ctx context.Context, req selectionuc.Request) (selectionuc.Result, error) {
	m.got = req
	if m.tokens > 0 {
		domain.UsageFromContext(ctx).AddTokens(m.tokens)
	}
	return m.res, m.err
}

type mockRecorder struct {
	userID string
	ids    []string
	at     time.Time
	err    error
}

func (m *mockRecorder) Record(_ context.Context, userID string, ids []string, at time.Time) error {
	m.userID, m.ids, m.at = userID, ids, at
	return m.err
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

type mockUsage struct {
	report domusage.Report
	err    error
	period string
}

func (m *mockUsage) GetReport(_ context.Context, period string) (domusage.Report, error) {
	m.period = period
	return m.report, m.err
}

// --- Helpers ---

type fixture struct {
	handler  http.Handler
	selector *mockSelector
	recorder *mockRecorder
	health   *mockHealth
	usage    *mockUsage
}

func newFixture(apiKeys ...string) *fixture {
	f := &fixture{
		selector: &mockSelector{},
		recorder: &mockRecorder{},
		health: &mockHealth{report: healthuc.Report{
			Status: healthuc.Healthy,
			Checks: map[string]healthuc.CheckResult{"catalog": healthuc.CheckOK},
		}},
		usage: &mockUsage{},
	}
	srv := NewServer(f.selector, f.recorder, f.health, f.usage, zap.NewNop())
	f.handler = NewRouter(srv, RouterOptions{APIKeys: apiKeys, Logger: zap.NewNop()})
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp
}

func sampleQuestions() []question.Question {
	return []question.Question{
		question.Reconstruct(question.Params{
			ID: "q1", TopicID: "t1", Text: "Pick one", Type: question.MultipleChoice,
			Options: []string{"a", "b"}, CorrectAnswers: []string{"a"}, DifficultyTier: 2,
			CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		}),
		question.Reconstruct(question.Params{
			ID: "g1", TopicID: "t1", Text: "2+2", Type: question.Numerical, CorrectAnswers: []string{"4"},
		}),
	}
}

// --- Tests ---

func TestCreateSelection(t *testing.T) {
	f := newFixture()
	f.selector.res = selectionuc.Result{Questions: sampleQuestions(), Retrieved: 1, Generated: 1}

	rr := f.do(http.MethodPost, "/api/v1/selections",
		`{"topics":["t1"],"count":2,"exclude":["old"],"user_id":"learner"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp SelectionResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Questions) != 2 || resp.Retrieved != 1 || resp.Generated != 1 {
		t.Errorf("unexpected response %+v", resp)
	}
	q := resp.Questions[0]
	if q.ID != "q1" || q.Type != "multiple_choice" || len(q.Options) != 2 || q.DifficultyTier != 2 {
		t.Errorf("unexpected question %+v", q)
	}
	if resp.Questions[1].Options != nil {
		t.Error("non multiple choice question should omit options")
	}

	got := f.selector.got
	if got.Count != 2 || got.UserID != "learner" || got.Topics[0] != "t1" || got.Exclude[0] != "old" {
		t.Errorf("unexpected forwarded request %+v", got)
	}
}

func TestCreateSelection_EmbeddingTokensHeader(t *testing.T) {
	f := newFixture()
	f.selector.res = selectionuc.Result{Questions: sampleQuestions()[:1], Retrieved: 1}

	rr := f.do(http.MethodPost, "/api/v1/selections", `{"topics":["t1"],"count":1}`)
	if h := rr.Header().Get("X-Embedding-Tokens"); h != "" {
		t.Errorf("expected no header without embedding, got %q", h)
	}

	f.selector.tokens = 42
	rr = f.do(http.MethodPost, "/api/v1/selections", `{"topics":["t1"],"count":1}`)
	if h := rr.Header().Get("X-Embedding-Tokens"); h != "42" {
		t.Errorf("expected X-Embedding-Tokens 42, got %q", h)
	}
}

func TestCreateSelection_InvalidBody(t *testing.T) {
	f := newFixture()
	rr := f.do(http.MethodPost, "/api/v1/selections", `{"topics":`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if resp := decodeError(t, rr); resp.Code != ErrorCodeBadRequest {
		t.Errorf("expected bad_request, got %s", resp.Code)
	}
}

func TestCreateSelection_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   ErrorCode
	}{
		{"insufficient", domain.NewInsufficientMatches(nil, 3), http.StatusUnprocessableEntity, ErrorCodeInsufficientContent},
		{"topic", domain.ErrTopicNotFound, http.StatusNotFound, ErrorCodeTopicNotFound},
		{"invalid", domain.ErrInvalidRequest, http.StatusBadRequest, ErrorCodeValidationFailed},
		{"provider", domain.NewProviderError("embed", errors.New("dial tcp")), http.StatusBadGateway, ErrorCodeProviderError},
		{"generation", domain.NewGenerationFailed("accepted 0 of 2", nil), http.StatusBadGateway, ErrorCodeGenerationFailed},
		{
			"generation wrapping provider",
			domain.NewGenerationFailed("embed", domain.NewProviderError("embed", nil)),
			http.StatusBadGateway, ErrorCodeGenerationFailed,
		},
		{"validation", domain.NewValidationUnavailable("score", nil), http.StatusServiceUnavailable, ErrorCodeValidationUnavailable},
		{
			"quota during generation",
			domain.NewGenerationFailed("generate", domain.ErrGenerationQuotaExceeded),
			http.StatusTooManyRequests, ErrorCodeGenerationQuota,
		},
		{
			"quota during validation",
			domain.NewValidationUnavailable("score", domain.ErrGenerationQuotaExceeded),
			http.StatusTooManyRequests, ErrorCodeGenerationQuota,
		},
		{"internal", errors.New("boom at /var/secret"), http.StatusInternalServerError, ErrorCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.selector.err = tt.err

			rr := f.do(http.MethodPost, "/api/v1/selections", `{"topics":["t1"],"count":3}`)
			if rr.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rr.Code)
			}
			resp := decodeError(t, rr)
			if resp.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, resp.Code)
			}
			if strings.Contains(resp.Message, "/var/secret") || strings.Contains(resp.Message, "dial tcp") {
				t.Errorf("internals leaked: %q", resp.Message)
			}
		})
	}
}

func TestCreateSelection_InsufficientMessage(t *testing.T) {
	f := newFixture()
	f.selector.err = domain.NewInsufficientMatches(sampleQuestions()[:1], 5)

	rr := f.do(http.MethodPost, "/api/v1/selections", `{"topics":["t1"],"count":5}`)

	var body map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["message"] != "not enough content available for this selection" {
		t.Errorf("unexpected message %v", body["message"])
	}
	if body["found"] != float64(1) || body["requested"] != float64(5) {
		t.Errorf("unexpected counts %v / %v", body["found"], body["requested"])
	}
}

func TestRecordExposure(t *testing.T) {
	f := newFixture()
	rr := f.do(http.MethodPost, "/api/v1/exposures",
		`{"user_id":"u1","question_ids":["a","b"],"seen_at":"2026-02-03T04:05:06Z"}`)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rr.Code, rr.Body.String())
	}
	if f.recorder.userID != "u1" || len(f.recorder.ids) != 2 {
		t.Errorf("unexpected record %+v", f.recorder)
	}
	if !f.recorder.at.Equal(time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)) {
		t.Errorf("unexpected seen_at %v", f.recorder.at)
	}
}

func TestRecordExposure_Invalid(t *testing.T) {
	f := newFixture()
	f.recorder.err = domain.ErrInvalidRequest

	rr := f.do(http.MethodPost, "/api/v1/exposures", `{"question_ids":["a"]}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if !f.recorder.at.IsZero() {
		t.Error("missing seen_at should be forwarded as zero time")
	}
}

func TestGetUsage(t *testing.T) {
	f := newFixture()
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	f.usage.report = domusage.Report{
		Period: domusage.PeriodMonth, PeriodStart: start, PeriodEnd: start.AddDate(0, 1, 0),
		Tokens: 1200, Limit: 1000,
	}

	rr := f.do(http.MethodGet, "/api/v1/usage?period=month", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if f.usage.period != "month" {
		t.Errorf("expected period month passed through, got %q", f.usage.period)
	}
	var resp UsageResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Period != "month" || resp.Tokens != 1200 || !resp.Exhausted {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.Limit == nil || *resp.Limit != 1000 || resp.Remaining == nil || *resp.Remaining != 0 {
		t.Errorf("expected limit 1000 and remaining 0, got %v %v", resp.Limit, resp.Remaining)
	}
}

func TestGetUsage_UnlimitedOmitsLimit(t *testing.T) {
	f := newFixture()
	f.usage.report = domusage.Report{Period: domusage.PeriodDay, Tokens: 5}

	rr := f.do(http.MethodGet, "/api/v1/usage", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "limit") || strings.Contains(rr.Body.String(), "remaining") {
		t.Errorf("unlimited usage should omit limit and remaining: %s", rr.Body.String())
	}
}

func TestGetUsage_InvalidPeriod(t *testing.T) {
	f := newFixture()
	f.usage.err = domain.ErrInvalidRequest

	rr := f.do(http.MethodGet, "/api/v1/usage?period=total", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if resp := decodeError(t, rr); resp.Code != ErrorCodeValidationFailed {
		t.Errorf("expected validation_failed, got %s", resp.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	f := newFixture()
	rr := f.do(http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" || resp.Checks["catalog"] != "ok" {
		t.Errorf("unexpected health %+v", resp)
	}

	f.health.report = healthuc.Report{Status: healthuc.Degraded, Checks: map[string]healthuc.CheckResult{}}
	if rr := f.do(http.MethodGet, "/health", ""); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 when degraded, got %d", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture("secret")
	rr := f.do(http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 without auth, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "quizdex_") {
		t.Error("expected quizdex metrics in output")
	}
}

func TestRouter_AuthAndFallbacks(t *testing.T) {
	f := newFixture("secret")

	if rr := f.do(http.MethodPost, "/api/v1/selections", `{}`); rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/selections", bytes.NewBufferString(`{"topics":["t1"],"count":1}`))
	req.Header.Set("Authorization", "Bearer secret")
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("expected 200 with token, got %d", rr.Code)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}

	open := newFixture()
	if rr := open.do(http.MethodGet, "/nope", ""); rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
	if rr := open.do(http.MethodGet, "/api/v1/selections", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rr.Code)
	}
}

func TestJSONRecoverer(t *testing.T) {
	h := JSONRecoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if resp := decodeError(t, rr); resp.Code != ErrorCodeInternalError {
		t.Errorf("expected internal_error, got %s", resp.Code)
	}
}
