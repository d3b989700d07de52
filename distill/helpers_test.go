package distill

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/poiesic/distillery/core"
	"github.com/poiesic/distillery/storage/badger"
	"github.com/stretchr/testify/require"
)

const validReply = "```json\n" + `{
  "thread_summary": "Ana asked for weekly revenue by region.",
  "user_learning": "Ana is a finance analyst who prefers weekly rollups.",
  "tool_learning": "The SQL tool times out on unfiltered scans.",
  "data_learning": "Revenue lives in db.finance.revenue_daily."
}` + "\n```"

func newRepos(t *testing.T) *badger.Repositories {
	t.Helper()
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })
	return repos
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.ScanInterval = 10 * time.Millisecond
	cfg.HeartbeatPoll = 5 * time.Millisecond
	return cfg
}

// addThread stores users user messages from user, each followed by a bot
// reply, starting at start. Payloads are prefixed with label.
func addThread(t *testing.T, repos *badger.Repositories, thread, user, label string, users int, start time.Time) []*core.Message {
	t.Helper()
	var msgs []*core.Message
	ts := start
	for i := 0; i < users; i++ {
		msgs = append(msgs,
			&core.Message{
				ThreadID:    thread,
				Timestamp:   ts,
				Type:        core.MessageTypeUser,
				Payload:     fmt.Sprintf("%s question %d", label, i),
				BotID:       "b1",
				PrimaryUser: user,
			},
			&core.Message{
				ThreadID:  thread,
				Timestamp: ts.Add(time.Second),
				Type:      core.MessageTypeBot,
				Payload:   fmt.Sprintf("%s answer %d", label, i),
				BotID:     "b1",
			})
		ts = ts.Add(2 * time.Second)
	}
	added, err := repos.Threads.AddMessages(context.Background(), msgs...)
	require.NoError(t, err)
	return added
}

func candidates(t *testing.T, repos *badger.Repositories) []core.ThreadCandidate {
	t.Helper()
	got, err := repos.Threads.ThreadsNeedingDistillation(context.Background(), time.Time{})
	require.NoError(t, err)
	return got
}

func candidateFor(t *testing.T, repos *badger.Repositories, thread string) core.ThreadCandidate {
	t.Helper()
	for _, c := range candidates(t, repos) {
		if c.ThreadID == thread {
			return c
		}
	}
	t.Fatalf("thread %s is not a candidate", thread)
	return core.ThreadCandidate{}
}

func testLogger() *slog.Logger {
	return slog.Default()
}

// mustStart is a fixed point safely in the past.
func mustStart() time.Time {
	return time.Date(2025, 5, 4, 10, 0, 0, 0, time.UTC)
}
