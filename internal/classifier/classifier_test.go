package classifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/spec-kit/legal-intake/internal/domain"
)

type fakeReply struct {
	text  string
	err   error
	block bool
}

type fakeModel struct {
	mu      sync.Mutex
	replies []fakeReply
	prompts []string
}

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	m.mu.Lock()
	if len(messages) > 0 && len(messages[0].Parts) > 0 {
		if part, ok := messages[0].Parts[0].(llms.TextContent); ok {
			m.prompts = append(m.prompts, part.Text)
		}
	}
	var reply fakeReply
	if len(m.replies) > 0 {
		reply = m.replies[0]
		m.replies = m.replies[1:]
	}
	m.mu.Unlock()

	if reply.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if reply.err != nil {
		return nil, reply.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: reply.text}}}, nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func (m *fakeModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

type countingRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *countingRecorder) RecordClassification(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func newTestService(model llms.Model, rec Recorder) *Service {
	return New(model, Options{
		Timeout:      200 * time.Millisecond,
		RetryBackoff: time.Millisecond,
		Recorder:     rec,
	}, nil)
}

func TestClassifyParsesStrictObject(t *testing.T) {
	model := &fakeModel{replies: []fakeReply{{
		text: `{"area":"Direito de Família","summary":"Pensão","explanation":"Alimentos","answerIA":"Procure a Defensoria"}`,
	}}}
	rec := &countingRecorder{}

	got := newTestService(model, rec).Classify(context.Background(), "Preciso de ajuda com pensão alimentícia")

	assert.Equal(t, domain.Classification{
		Area:        "Direito de Família",
		Summary:     "Pensão",
		Explanation: "Alimentos",
		AnswerIA:    "Procure a Defensoria",
	}, got)
	assert.Equal(t, []string{OutcomeClassified}, rec.outcomes)
	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0], "pensão alimentícia")
	assert.Contains(t, model.prompts[0], "answerIA")
}

func TestClassifyKeepsAreaOutsideSuggestedList(t *testing.T) {
	model := &fakeModel{replies: []fakeReply{{
		text: `{"area":"Direito Ambiental","summary":"Desmatamento","explanation":"","answerIA":""}`,
	}}}
	rec := &countingRecorder{}

	got := newTestService(model, rec).Classify(context.Background(), "vizinho desmatou área protegida")

	assert.Equal(t, "Direito Ambiental", got.Area)
	assert.Equal(t, "Desmatamento", got.Summary)
	assert.Equal(t, []string{OutcomeClassifiedOffList}, rec.outcomes)
}

func TestClassifyNotJSONFallsBack(t *testing.T) {
	model := &fakeModel{replies: []fakeReply{{text: "not json at all"}}}
	rec := &countingRecorder{}

	got := newTestService(model, rec).Classify(context.Background(), "texto")

	assert.Equal(t, domain.Classification{Area: "Outro"}, got)
	assert.Equal(t, []string{OutcomeFallbackMalformed}, rec.outcomes)
	assert.Equal(t, 1, model.calls(), "malformed answers are not retried")
}

func TestClassifyTransportErrorRetriesOnce(t *testing.T) {
	model := &fakeModel{replies: []fakeReply{
		{err: errors.New("502 bad gateway")},
		{text: `{"area":"Direito Penal","summary":"s","explanation":"e","answerIA":"a"}`},
	}}

	got := newTestService(model, nil).Classify(context.Background(), "texto")

	assert.Equal(t, "Direito Penal", got.Area)
	assert.Equal(t, 2, model.calls())
}

func TestClassifyTransportErrorTwiceFallsBack(t *testing.T) {
	model := &fakeModel{replies: []fakeReply{
		{err: errors.New("503")},
		{err: errors.New("503")},
		{text: `{"area":"Direito Penal","summary":"","explanation":"","answerIA":""}`},
	}}
	rec := &countingRecorder{}

	got := newTestService(model, rec).Classify(context.Background(), "texto")

	assert.Equal(t, domain.FallbackClassification(), got)
	assert.Equal(t, 2, model.calls())
	assert.Equal(t, []string{OutcomeFallbackUpstream}, rec.outcomes)
}

func TestClassifyAttemptTimeout(t *testing.T) {
	model := &fakeModel{replies: []fakeReply{{block: true}, {block: true}}}
	svc := New(model, Options{Timeout: 20 * time.Millisecond, RetryBackoff: time.Millisecond}, nil)

	start := time.Now()
	got := svc.Classify(context.Background(), "texto")

	assert.Equal(t, domain.FallbackClassification(), got)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 2, model.calls())
}

func TestClassifyCancelledCallerSkipsRetry(t *testing.T) {
	model := &fakeModel{replies: []fakeReply{{block: true}, {text: "{}"}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := newTestService(model, nil).Classify(ctx, "texto")

	assert.Equal(t, domain.FallbackClassification(), got)
	assert.Equal(t, 1, model.calls())
}

func TestClassifyRateLimited(t *testing.T) {
	model := &fakeModel{replies: []fakeReply{
		{text: `{"area":"Direito Civil","summary":"","explanation":"","answerIA":""}`},
		{text: `{"area":"Direito Civil","summary":"","explanation":"","answerIA":""}`},
	}}
	svc := New(model, Options{
		Timeout:      50 * time.Millisecond,
		RetryBackoff: time.Millisecond,
		Limiter:      NewLimiter(0.001, 1),
	}, nil)

	assert.Equal(t, "Direito Civil", svc.Classify(context.Background(), "um").Area)
	// The bucket is empty and refills far beyond the attempt timeout.
	assert.Equal(t, domain.FallbackClassification(), svc.Classify(context.Background(), "dois"))
	assert.Equal(t, 1, model.calls())
}

func TestNewLimiterDisabled(t *testing.T) {
	assert.Nil(t, NewLimiter(0, 5))
	assert.NotNil(t, NewLimiter(2, 0))
}
