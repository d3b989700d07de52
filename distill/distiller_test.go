package distill

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/distillery/ai"
	"github.com/poiesic/distillery/ai/mock"
	"github.com/poiesic/distillery/core"
	"github.com/poiesic/distillery/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type distillerFixture struct {
	repos     *badger.Repositories
	completer *mock.MockCompleter
	working   *WorkingSet
	refine    *Queue[RefineRequest]
	distiller *Distiller
}

func newDistillerFixture(t *testing.T, cfg *Config) *distillerFixture {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	f := &distillerFixture{
		repos:     newRepos(t),
		completer: mock.NewMockCompleter(validReply),
		working:   NewWorkingSet(),
		refine:    NewQueue[RefineRequest](),
	}
	f.distiller = newDistiller(f.repos.Threads, f.repos.Threads, f.completer, f.working, f.refine, cfg, testLogger())
	return f
}

// claim adds the thread to the working set the way the selector would.
func (f *distillerFixture) claim(t *testing.T, thread string) {
	t.Helper()
	require.True(t, f.working.TryAdd(thread))
}

func TestDistiller_WritesKnowledgeAndAdvancesWatermark(t *testing.T) {
	ctx := context.Background()
	f := newDistillerFixture(t, nil)
	msgs := addThread(t, f.repos, "t1", "ana", "weekly", 5, mustStart())

	c := candidateFor(t, f.repos, "t1")
	f.claim(t, "t1")

	record, err := f.distiller.Process(ctx, c)
	require.NoError(t, err)

	assert.Equal(t, "t1", record.ThreadID)
	assert.Equal(t, "ana", record.PrimaryUser)
	assert.Equal(t, "b1", record.BotID)
	assert.NotEmpty(t, record.SessionHandle)
	assert.True(t, record.Watermark.Equal(msgs[len(msgs)-1].Timestamp))
	assert.Equal(t, "Ana asked for weekly revenue by region.", record.Facets.Summary)

	assert.False(t, f.working.Contains("t1"))
	assert.Empty(t, candidates(t, f.repos), "distilled thread is no longer eligible")

	require.Equal(t, 1, f.refine.Len())
	req, err := f.refine.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, RefineRequest{PrimaryUser: "ana", BotID: "b1", Facets: record.Facets}, req)

	calls := f.completer.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, record.SessionHandle, calls[0].Handle)
	require.Len(t, calls[0].Msgs, 2)
	assert.Equal(t, ai.RoleSystem, calls[0].Msgs[0].Role)
	assert.Contains(t, calls[0].Msgs[1].Content, "user ana: weekly question 0")
	assert.Contains(t, calls[0].Msgs[1].Content, "bot: weekly answer 4")
}

func TestDistiller_MalformedReplyIsSelfHealing(t *testing.T) {
	ctx := context.Background()
	f := newDistillerFixture(t, nil)
	addThread(t, f.repos, "t1", "ana", "weekly", 4, mustStart())
	f.completer.Response = "Sorry, I can't help with that."

	f.claim(t, "t1")
	_, err := f.distiller.Process(ctx, candidateFor(t, f.repos, "t1"))
	assert.ErrorIs(t, err, ErrMalformedResponse)

	assert.False(t, f.working.Contains("t1"), "released after failure")
	assert.Equal(t, 0, f.refine.Len())
	records, err := f.repos.Threads.KnowledgeRecords(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, records)

	// the thread is reselected and succeeds once the model behaves
	f.completer.Response = validReply
	c := candidateFor(t, f.repos, "t1")
	assert.True(t, c.Watermark.IsZero())
	f.claim(t, "t1")
	_, err = f.distiller.Process(ctx, c)
	require.NoError(t, err)
	assert.Empty(t, candidates(t, f.repos))
}

func TestDistiller_CompleterErrorReleasesThread(t *testing.T) {
	f := newDistillerFixture(t, nil)
	addThread(t, f.repos, "t1", "ana", "weekly", 4, mustStart())
	f.completer.CompleteFunc = func(ctx context.Context, msgs []ai.Message, handle string) (ai.Completion, error) {
		return ai.Completion{}, errors.New("model overloaded")
	}

	f.claim(t, "t1")
	_, err := f.distiller.Process(context.Background(), candidateFor(t, f.repos, "t1"))
	require.Error(t, err)
	assert.False(t, f.working.Contains("t1"))
	assert.Len(t, candidates(t, f.repos), 1)
}

func TestDistiller_ContinuesSessionAcrossPasses(t *testing.T) {
	ctx := context.Background()
	f := newDistillerFixture(t, nil)
	addThread(t, f.repos, "t1", "ana", "first", 4, mustStart())

	f.claim(t, "t1")
	first, err := f.distiller.Process(ctx, candidateFor(t, f.repos, "t1"))
	require.NoError(t, err)

	addThread(t, f.repos, "t1", "ana", "second", 4, mustStart().Add(time.Hour))
	c := candidateFor(t, f.repos, "t1")
	assert.True(t, c.Watermark.Equal(first.Watermark))

	f.claim(t, "t1")
	second, err := f.distiller.Process(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, first.SessionHandle, second.SessionHandle)
	assert.True(t, second.Watermark.After(first.Watermark))

	calls := f.completer.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, first.SessionHandle, calls[1].Handle)
	transcript := calls[1].Msgs[1].Content
	assert.Contains(t, transcript, "second question 0")
	assert.NotContains(t, transcript, "first question", "only messages past the watermark")

	latest, err := f.repos.Threads.LatestKnowledgeRecord(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, second.Id, latest.Id)
}

func TestDistiller_PagesMessages(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.MessageLimit = 3
	f := newDistillerFixture(t, cfg)
	msgs := addThread(t, f.repos, "t1", "ana", "burst", 6, mustStart())

	f.claim(t, "t1")
	record, err := f.distiller.Process(ctx, candidateFor(t, f.repos, "t1"))
	require.NoError(t, err)
	assert.True(t, record.Watermark.Equal(msgs[2].Timestamp))

	// the rest of the burst keeps the thread eligible
	c := candidateFor(t, f.repos, "t1")
	assert.True(t, c.Watermark.Equal(msgs[2].Timestamp))
}

func TestDistiller_TruncatesTranscript(t *testing.T) {
	cfg := testConfig()
	cfg.TranscriptBudget = 64
	f := newDistillerFixture(t, cfg)
	msgs := addThread(t, f.repos, "t1", "ana", strings.Repeat("long ", 20), 4, mustStart())

	f.claim(t, "t1")
	record, err := f.distiller.Process(context.Background(), candidateFor(t, f.repos, "t1"))
	require.NoError(t, err)

	calls := f.completer.Calls()
	require.Len(t, calls, 1)
	assert.Len(t, []rune(calls[0].Msgs[1].Content), 64)
	assert.True(t, record.Watermark.Equal(msgs[0].Timestamp))
	candidateFor(t, f.repos, "t1")
}

func TestDistiller_UnsentMessagesWaitForNextPass(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.TranscriptBudget = 100
	f := newDistillerFixture(t, cfg)
	msgs := addThread(t, f.repos, "t1", "ana", "w", 3, mustStart())

	f.claim(t, "t1")
	record, err := f.distiller.Process(ctx, candidateFor(t, f.repos, "t1"))
	require.NoError(t, err)
	assert.True(t, record.Watermark.Equal(msgs[1].Timestamp))

	first := f.completer.Calls()[0].Msgs[1].Content
	assert.Contains(t, first, "w answer 0")
	assert.NotContains(t, first, "w question 1")

	f.claim(t, "t1")
	_, err = f.distiller.Process(ctx, candidateFor(t, f.repos, "t1"))
	require.NoError(t, err)

	calls := f.completer.Calls()
	require.Len(t, calls, 2)
	assert.Contains(t, calls[1].Msgs[1].Content, "w question 1")
	assert.NotContains(t, calls[1].Msgs[1].Content, "w question 0")
}

func TestDistiller_RunDrainsQueue(t *testing.T) {
	f := newDistillerFixture(t, nil)
	addThread(t, f.repos, "t1", "ana", "a", 4, mustStart())
	addThread(t, f.repos, "t2", "bo", "b", 4, mustStart())

	in := make(chan core.ThreadCandidate, 2)
	for _, c := range candidates(t, f.repos) {
		f.claim(t, c.ThreadID)
		in <- c
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- f.distiller.Run(ctx, in) }()

	require.Eventually(t, func() bool { return f.refine.Len() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, f.working.Len())

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
