package llm_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chaos-car/internal/domain"
	"chaos-car/internal/infra"
	"chaos-car/internal/llm"
)

type scriptedCompleter struct {
	replies []reply
	calls   int
	users   []string
	systems []string
}

type reply struct {
	text string
	err  error
}

func (s *scriptedCompleter) Name() string { return "scripted" }

func (s *scriptedCompleter) Complete(_ context.Context, system, user string) (string, error) {
	s.systems = append(s.systems, system)
	s.users = append(s.users, user)
	r := s.replies[len(s.replies)-1]
	if s.calls < len(s.replies) {
		r = s.replies[s.calls]
	}
	s.calls++
	return r.text, r.err
}

func fastRetry() infra.RetryConfig {
	cfg := infra.DefaultRetryConfig()
	cfg.InitialDelay = time.Millisecond
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExtractor_NoCompleterUsesFallback(t *testing.T) {
	ex := llm.NewExtractor(nil, fastRetry(), discardLogger())

	got := ex.GetIntent(context.Background(), "turn lft now")

	assert.Equal(t, llm.SourceFallback, got.Source)
	assert.Equal(t, 0, got.Attempts)
	assert.True(t, domain.NewIntent(domain.ActionNavigate, "left", "").Equal(got.Intent))
	assert.Equal(t, "keywords", ex.Provider())
}

func TestExtractor_ModelReply(t *testing.T) {
	c := &scriptedCompleter{replies: []reply{{text: "```json\n{\"action\":\"ac\",\"target\":\"off\",\"extra\":null}\n```"}}}
	ex := llm.NewExtractor(c, fastRetry(), discardLogger())

	got := ex.GetIntent(context.Background(), "ac off pls")

	require.Equal(t, llm.SourceModel, got.Source)
	assert.Equal(t, 1, got.Attempts)
	assert.True(t, domain.NewIntent(domain.ActionAC, "off", "").Equal(got.Intent))
	require.Len(t, c.users, 1)
	assert.Equal(t, llm.SystemPrompt, c.systems[0])
	assert.Contains(t, c.users[0], `Now parse: "ac off pls"`)
}

func TestExtractor_RetriesThenSucceeds(t *testing.T) {
	c := &scriptedCompleter{replies: []reply{
		{err: errors.New("503")},
		{err: errors.New("timeout")},
		{text: `{"action":"stop","target":null,"extra":null}`},
	}}
	ex := llm.NewExtractor(c, fastRetry(), discardLogger())

	got := ex.GetIntent(context.Background(), "stop!")

	assert.Equal(t, llm.SourceModel, got.Source)
	assert.Equal(t, 3, got.Attempts)
	assert.Equal(t, 3, c.calls)
	assert.Equal(t, domain.ActionStop, got.Intent.Action)
	assert.NoError(t, got.Err)
}

func TestExtractor_EmptyTextCountsAsFailure(t *testing.T) {
	c := &scriptedCompleter{replies: []reply{
		{text: "   "},
		{text: `{"action":"music","target":"play","extra":null}`},
	}}
	ex := llm.NewExtractor(c, fastRetry(), discardLogger())

	got := ex.GetIntent(context.Background(), "play")

	assert.Equal(t, llm.SourceModel, got.Source)
	assert.Equal(t, 2, c.calls)
}

func TestExtractor_ExhaustedFallsBack(t *testing.T) {
	boom := errors.New("connection refused")
	c := &scriptedCompleter{replies: []reply{{err: boom}}}
	ex := llm.NewExtractor(c, fastRetry(), discardLogger())

	got := ex.GetIntent(context.Background(), "please go right")

	assert.Equal(t, llm.SourceFallback, got.Source)
	assert.Equal(t, 3, c.calls)
	assert.ErrorIs(t, got.Err, boom)
	assert.True(t, domain.NewIntent(domain.ActionNavigate, "right", "").Equal(got.Intent))
}

func TestExtractor_UnknownModelReplyIsNotRetried(t *testing.T) {
	c := &scriptedCompleter{replies: []reply{{text: "I refuse to answer in JSON"}}}
	ex := llm.NewExtractor(c, fastRetry(), discardLogger())

	got := ex.GetIntent(context.Background(), "banana sandwich drive??")

	assert.Equal(t, 1, c.calls)
	assert.Equal(t, llm.SourceModel, got.Source)
	assert.Equal(t, domain.ActionUnknown, got.Intent.Action)
	assert.Equal(t, "I refuse to answer in JSON", got.Intent.ExtraOr(""))
}

func TestExtractor_CancelledContextFallsBack(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := &scriptedCompleter{replies: []reply{{err: context.Canceled}}}
	ex := llm.NewExtractor(c, fastRetry(), discardLogger())

	got := ex.GetIntent(ctx, "stop")

	assert.Equal(t, 1, c.calls)
	assert.Equal(t, llm.SourceFallback, got.Source)
	assert.Equal(t, domain.ActionStop, got.Intent.Action)
}

func TestBuildUserPrompt(t *testing.T) {
	p := llm.BuildUserPrompt("turn rite")

	assert.True(t, strings.HasPrefix(p, "Examples:\n"))
	assert.Contains(t, p, `"turn lft now!!" → {"action":"navigate","target":"left","extra":null}`)
	assert.True(t, strings.HasSuffix(p, `Now parse: "turn rite"`))
}

type hangOnceCompleter struct {
	calls int
}

func (h *hangOnceCompleter) Name() string { return "hang-once" }

func (h *hangOnceCompleter) Complete(ctx context.Context, _, _ string) (string, error) {
	h.calls++
	if h.calls == 1 {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return `{"action":"music","target":"play","extra":null}`, nil
}

func TestExtractor_AttemptTimeoutIsRetried(t *testing.T) {
	c := &hangOnceCompleter{}
	ex := llm.NewExtractor(c, fastRetry(), discardLogger(), llm.WithAttemptTimeout(20*time.Millisecond))

	got := ex.GetIntent(context.Background(), "play music")

	require.Equal(t, llm.SourceModel, got.Source)
	assert.Equal(t, 2, got.Attempts)
	assert.Equal(t, domain.ActionMusic, got.Intent.Action)
}
