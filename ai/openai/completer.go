// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package openai

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/poiesic/distillery/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrNoChoices indicates the model returned an empty response.
var ErrNoChoices = errors.New("no choices returned from model")

// maxSessionMessages caps the history kept per handle. The opening system
// messages always survive; older exchanges are dropped in pairs.
const maxSessionMessages = 16

// Completer implements ai.Completer using OpenAI-compatible chat APIs.
// Conversation history for non-empty handles lives in a bounded cache;
// a handle whose history was evicted silently starts over.
type Completer struct {
	client   llms.Model
	sessions *ristretto.Cache[string, []llms.MessageContent]
	logger   *slog.Logger
}

// newCompleter is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newCompleter(config *ai.Config) (*Completer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.CompletionHost),
		openai.WithToken(config.Token),
		openai.WithModel(config.CompletionModel),
	)
	if err != nil {
		return nil, err
	}

	sessions, err := ristretto.NewCache(&ristretto.Config[string, []llms.MessageContent]{
		NumCounters: int64(config.SessionCacheSize) * 10,
		MaxCost:     int64(config.SessionCacheSize),
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	return &Completer{
		client:   client,
		sessions: sessions,
		logger:   slog.Default().With("component", "openai-completer"),
	}, nil
}

// NewCompleter creates a new completer using the provided configuration.
//
// Returns ai.Completer interface to enforce abstraction.
func NewCompleter(config *ai.Config) (ai.Completer, error) {
	return newCompleter(config)
}

// Complete sends msgs, prefixed by the handle's history if any. A continued
// session already carries its system prompt, so system messages in msgs are
// only sent on the first turn.
func (c *Completer) Complete(ctx context.Context, msgs []ai.Message, handle string) (ai.Completion, error) {
	var history []llms.MessageContent
	if handle != "" {
		if prior, ok := c.sessions.Get(handle); ok {
			history = prior
		}
	}

	content := make([]llms.MessageContent, 0, len(history)+len(msgs)+1)
	content = append(content, history...)
	for _, m := range msgs {
		if len(history) > 0 && m.Role == ai.RoleSystem {
			continue
		}
		content = append(content, llms.TextParts(chatRole(m.Role), m.Content))
	}

	c.logger.Debug("generating completion", "handle", handle, "history", len(history), "messages", len(msgs))
	response, err := c.client.GenerateContent(ctx, content, llms.WithTemperature(0.0))
	if err != nil {
		c.logger.Error("failed to generate content", "handle", handle, "err", err)
		return ai.Completion{}, err
	}
	if len(response.Choices) < 1 {
		return ai.Completion{}, ErrNoChoices
	}
	text := response.Choices[0].Content

	if handle != "" {
		content = append(content, llms.TextParts(llms.ChatMessageTypeAI, text))
		c.sessions.Set(handle, trimHistory(content, maxSessionMessages), 1)
		c.sessions.Wait()
	}

	return ai.Completion{Text: text, Handle: handle}, nil
}

// Close releases the session cache.
func (c *Completer) Close() {
	c.sessions.Close()
}

// trimHistory keeps the leading system messages and the most recent
// messages, up to limit in total.
func trimHistory(content []llms.MessageContent, limit int) []llms.MessageContent {
	if len(content) <= limit {
		return content
	}
	lead := 0
	for lead < len(content) && content[lead].Role == llms.ChatMessageTypeSystem {
		lead++
	}
	keep := limit - lead
	keep -= keep % 2
	if keep <= 0 {
		return content[:lead]
	}
	trimmed := make([]llms.MessageContent, 0, lead+keep)
	trimmed = append(trimmed, content[:lead]...)
	return append(trimmed, content[len(content)-keep:]...)
}

func chatRole(r ai.Role) llms.ChatMessageType {
	switch r {
	case ai.RoleSystem:
		return llms.ChatMessageTypeSystem
	case ai.RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
