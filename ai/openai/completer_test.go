package openai

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/poiesic/distillery/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// fakeChatServer answers chat completion requests with "reply N" and
// records how many messages each request carried and how many of them were
// system messages.
type fakeChatServer struct {
	mu      sync.Mutex
	counts  []int
	systems []int
}

func (f *fakeChatServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Messages []struct {
			Role string `json:"role"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.counts = append(f.counts, len(req.Messages))
	systems := 0
	for _, m := range req.Messages {
		if m.Role == "system" {
			systems++
		}
	}
	f.systems = append(f.systems, systems)
	n := len(f.counts)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{
		"id": "chatcmpl-%d",
		"object": "chat.completion",
		"created": 1700000000,
		"model": "test",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "reply %d"}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2}
	}`, n, n)
}

func newTestCompleter(t *testing.T) (*Completer, *fakeChatServer) {
	t.Helper()
	fake := &fakeChatServer{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := newCompleter(ai.NewConfig(ai.WithHost(srv.URL), ai.WithSessionCacheSize(8)))
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c, fake
}

func TestCompleter_Stateless(t *testing.T) {
	c, fake := newTestCompleter(t)
	ctx := t.Context()
	msgs := []ai.Message{
		{Role: ai.RoleSystem, Content: "be brief"},
		{Role: ai.RoleUser, Content: "hello"},
	}

	first, err := c.Complete(ctx, msgs, "")
	require.NoError(t, err)
	assert.Equal(t, "reply 1", first.Text)
	assert.Empty(t, first.Handle)

	_, err = c.Complete(ctx, msgs, "")
	require.NoError(t, err)

	assert.Equal(t, []int{2, 2}, fake.counts)
}

func TestCompleter_ContinuesHandle(t *testing.T) {
	c, fake := newTestCompleter(t)
	ctx := t.Context()
	msgs := []ai.Message{{Role: ai.RoleUser, Content: "summarize"}}

	first, err := c.Complete(ctx, msgs, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, "thread-1", first.Handle)

	// history: user + assistant, then the new user turn
	second, err := c.Complete(ctx, msgs, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, "reply 2", second.Text)

	// an unknown handle starts fresh
	_, err = c.Complete(ctx, msgs, "thread-2")
	require.NoError(t, err)

	assert.Equal(t, []int{1, 3, 1}, fake.counts)
}

func TestCompleter_SessionHistoryIsBounded(t *testing.T) {
	c, fake := newTestCompleter(t)
	ctx := t.Context()
	msgs := []ai.Message{
		{Role: ai.RoleSystem, Content: "extract facets"},
		{Role: ai.RoleUser, Content: "transcript"},
	}

	for i := 0; i < 12; i++ {
		_, err := c.Complete(ctx, msgs, "thread-1")
		require.NoError(t, err)
	}

	assert.Equal(t, []int{2, 4, 6, 8, 10, 12, 14, 16, 16, 16, 16, 16}, fake.counts)
	for i, n := range fake.systems {
		assert.Equal(t, 1, n, "request %d carries the system prompt once", i)
	}

	history, ok := c.sessions.Get("thread-1")
	require.True(t, ok)
	assert.Len(t, history, maxSessionMessages-1)
	assert.Equal(t, llms.ChatMessageTypeSystem, history[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, history[1].Role)
}

func TestTrimHistory(t *testing.T) {
	content := []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeSystem, "s")}
	for i := 0; i < 5; i++ {
		content = append(content,
			llms.TextParts(llms.ChatMessageTypeHuman, fmt.Sprintf("q%d", i)),
			llms.TextParts(llms.ChatMessageTypeAI, fmt.Sprintf("a%d", i)))
	}

	assert.Len(t, trimHistory(content, 20), 11)

	got := trimHistory(content, 6)
	require.Len(t, got, 5)
	assert.Equal(t, llms.ChatMessageTypeSystem, got[0].Role)
	assert.Equal(t, llms.TextParts(llms.ChatMessageTypeHuman, "q3"), got[1])
	assert.Equal(t, llms.TextParts(llms.ChatMessageTypeAI, "a4"), got[4])
}
