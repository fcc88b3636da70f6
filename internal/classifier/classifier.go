package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spec-kit/legal-intake/internal/config"
	"github.com/spec-kit/legal-intake/internal/domain"
)

// ErrUpstream wraps transport failures talking to the provider: timeouts,
// non-2xx answers, empty choices.
var ErrUpstream = errors.New("classifier: upstream failure")

// Classification outcomes reported to the Recorder.
const (
	OutcomeClassified        = "classified"
	OutcomeClassifiedOffList = "classified_off_list"
	OutcomeFallbackUpstream  = "fallback_upstream"
	OutcomeFallbackMalformed = "fallback_malformed"
)

const (
	maxAttempts  = 2
	maxLoggedRaw = 2048
)

// Recorder receives one outcome per Classify call.
type Recorder interface {
	RecordClassification(outcome string)
}

// Options tunes a Service.
type Options struct {
	Timeout      time.Duration
	RetryBackoff time.Duration
	Limiter      *rate.Limiter
	Reference    *ReferenceContext
	Recorder     Recorder
}

// Service labels ticket text with a legal area and drafted summaries. It
// never fails: provider problems yield domain.FallbackClassification.
type Service struct {
	model  llms.Model
	opts   Options
	logger *zap.Logger
}

// New builds a classifier over any langchaingo model.
func New(model llms.Model, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 4 * time.Second
	}
	return &Service{model: model, opts: opts, logger: logger}
}

// NewModel connects to an OpenAI-compatible chat completion API.
func NewModel(cfg config.ClassifierConfig) (llms.Model, error) {
	opts := []openai.Option{
		openai.WithModel(cfg.Model),
		openai.WithToken(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	return openai.New(opts...)
}

// NewLimiter returns nil (unlimited) when ratePerSecond is not positive.
func NewLimiter(ratePerSecond float64, burst int) *rate.Limiter {
	if ratePerSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(ratePerSecond), burst)
}

// Classify runs one classification for text.
func (s *Service) Classify(ctx context.Context, text string) domain.Classification {
	prompt := buildPrompt(text, s.opts.Reference.Excerpt(ctx))

	raw, err := s.generate(ctx, prompt)
	if err != nil {
		s.logger.Warn("classification fallback",
			zap.String("reason", OutcomeFallbackUpstream),
			zap.Error(err),
		)
		s.record(OutcomeFallbackUpstream)
		return domain.FallbackClassification()
	}

	result, err := decodeClassification(raw)
	if err != nil {
		s.logger.Warn("classification fallback",
			zap.String("reason", OutcomeFallbackMalformed),
			zap.Error(err),
			zap.String("raw", truncateForLog(raw, maxLoggedRaw)),
		)
		s.record(OutcomeFallbackMalformed)
		return domain.FallbackClassification()
	}

	// Areas outside the suggested list are kept as free text but counted.
	if !domain.IsSuggestedArea(result.Area) {
		s.logger.Info("classification outside suggested areas", zap.String("area", result.Area))
		s.record(OutcomeClassifiedOffList)
		return result
	}
	s.record(OutcomeClassified)
	return result
}

// generate calls the provider, retrying once after a transport failure.
func (s *Service) generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			timer := time.NewTimer(s.opts.RetryBackoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", fmt.Errorf("%w: %w", ErrUpstream, ctx.Err())
			case <-timer.C:
			}
		}

		raw, err := s.attempt(ctx, prompt)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		s.logger.Debug("classification attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		if ctx.Err() != nil {
			break
		}
	}
	return "", lastErr
}

func (s *Service) attempt(ctx context.Context, prompt string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	if s.opts.Limiter != nil {
		if err := s.opts.Limiter.Wait(attemptCtx); err != nil {
			return "", fmt.Errorf("%w: rate limit: %w", ErrUpstream, err)
		}
	}
	raw, err := llms.GenerateFromSinglePrompt(attemptCtx, s.model, prompt, llms.WithTemperature(0))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return raw, nil
}

func (s *Service) record(outcome string) {
	if s.opts.Recorder != nil {
		s.opts.Recorder.RecordClassification(outcome)
	}
}

func buildPrompt(text, reference string) string {
	var b strings.Builder
	b.WriteString("Você é um assistente jurídico. Classifique a dúvida jurídica abaixo em uma das áreas: ")
	for i, area := range domain.SuggestedAreas {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%q", area)
	}
	b.WriteString(".\n\n")
	if reference != "" {
		b.WriteString("Contexto:\n")
		b.WriteString(reference)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Dúvida: %q\n\n", text)
	b.WriteString("Responda somente com um objeto JSON com exatamente estas quatro chaves, sem texto adicional:\n")
	b.WriteString(`{"area": "<área>", "summary": "<resumo curto>", "explanation": "<por que esta área>", "answerIA": "<orientação inicial em português>"}`)
	return b.String()
}
