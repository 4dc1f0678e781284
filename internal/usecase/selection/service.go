package selection

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/quizdex/internal/domain"
	"github.com/kailas-cloud/quizdex/internal/domain/question"
	"github.com/kailas-cloud/quizdex/internal/metrics"
)

// MaxCount caps a single selection.
const MaxCount = 200

// Request asks for Count questions across Topics, none of them in Exclude.
// A non-empty UserID prefers questions that user has not seen.
type Request struct {
	Topics  []string
	Count   int
	Exclude []string
	UserID  string
}

// Result is the selected questions, retrieved ones first.
type Result struct {
	Questions []question.Question
	Retrieved int
	Generated int
}

// Service is the composed retrieval-then-generation operation callers use.
type Service struct {
	retriever Retriever
	exposure  ExposureRetriever
	filler    ShortfallFiller
	logger    *zap.Logger
}

// New creates a selection service. exposure and filler may be nil; a nil
// filler disables generation and surfaces insufficiency to the caller.
func New(retriever Retriever, exposure ExposureRetriever, filler ShortfallFiller, logger *zap.Logger) *Service {
	return &Service{retriever: retriever, exposure: exposure, filler: filler, logger: logger}
}

// Select retrieves req.Count questions and generates only the shortfall.
func (s *Service) Select(ctx context.Context, req Request) (Result, error) {
	if err := validate(req); err != nil {
		return Result{}, err
	}

	exclude := make(map[string]struct{}, len(req.Exclude))
	for _, id := range req.Exclude {
		exclude[id] = struct{}{}
	}

	found, err := s.retrieve(ctx, req, exclude)
	if err == nil {
		metrics.SelectionsTotal.WithLabelValues("retrieval").Inc()
		return Result{Questions: found, Retrieved: len(found)}, nil
	}

	var ime *domain.InsufficientMatchesError
	if !errors.As(err, &ime) || s.filler == nil {
		metrics.SelectionsTotal.WithLabelValues("failed").Inc()
		return Result{}, fmt.Errorf("select: %w", err)
	}

	shortfall := req.Count - ime.Found
	s.logger.Info("Retrieval short, generating questions",
		zap.Strings("topics", req.Topics),
		zap.Int("found", ime.Found),
		zap.Int("shortfall", shortfall),
	)

	generated, err := s.filler.FillShortfall(ctx, req.Topics, shortfall, ime.Partial)
	if err != nil {
		metrics.SelectionsTotal.WithLabelValues("failed").Inc()
		return Result{}, fmt.Errorf("fill shortfall: %w", err)
	}

	out := make([]question.Question, 0, req.Count)
	out = append(out, ime.Partial...)
	out = append(out, generated...)

	metrics.SelectionsTotal.WithLabelValues("fallback").Inc()
	return Result{Questions: out, Retrieved: ime.Found, Generated: len(generated)}, nil
}

func (s *Service) retrieve(
	ctx context.Context, req Request, exclude map[string]struct{},
) ([]question.Question, error) {
	if req.UserID != "" && s.exposure != nil {
		return s.exposure.UnseenFirst(ctx, req.UserID, req.Topics, req.Count, exclude) //nolint:wrapcheck // wrapped by Select
	}
	return s.retriever.Retrieve(ctx, req.Topics, req.Count, exclude) //nolint:wrapcheck // wrapped by Select
}

func validate(req Request) error {
	if req.Count <= 0 || req.Count > MaxCount {
		return fmt.Errorf("%w: count must be between 1 and %d, got %d", domain.ErrInvalidRequest, MaxCount, req.Count)
	}
	if len(req.Topics) == 0 {
		return fmt.Errorf("%w: at least one topic is required", domain.ErrInvalidRequest)
	}
	for _, t := range req.Topics {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("%w: topic id must not be empty", domain.ErrInvalidRequest)
		}
	}
	return nil
}
