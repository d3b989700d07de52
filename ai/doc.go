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
// Package ai provides abstractions for the language-model services used by distillery.
//
// The package is designed around three interfaces:
//
//   - Embedder: Generates vector embeddings from text
//   - Completer: Runs chat completions, optionally continuing a conversation
//     identified by an opaque handle
//   - AIProvider: Aggregates AI services for convenient initialization
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// Public constructors (openai.NewProvider, openai.NewEmbedder) return
// interface types. Mock constructors return concrete types so tests can
// inject behavior and inspect call counts.
//
// # Conversation Handles
//
// Completer.Complete takes a handle. An empty handle is a one-shot call with
// no memory. A non-empty handle names a conversation: the provider replays
// the turns recorded under it before the new messages and records the reply.
// The distiller uses one handle per thread so a model sees its earlier
// extraction when a thread is processed again.
//
// # Usage Example
//
//	config := ai.DefaultConfig()
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vec, err := provider.Embedder().EmbedText(ctx, "orders by region")
//	reply, err := provider.Completer().Complete(ctx, msgs, "")
package ai
