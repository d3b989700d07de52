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

package distill

import "errors"

var (
	// ErrThreadStoreRequired is returned when a thread store is not provided.
	ErrThreadStoreRequired = errors.New("thread store required")

	// ErrKnowledgeStoreRequired is returned when a knowledge store is not provided.
	ErrKnowledgeStoreRequired = errors.New("knowledge store required")

	// ErrProfileStoreRequired is returned when a profile store is not provided.
	ErrProfileStoreRequired = errors.New("profile store required")

	// ErrHeartbeatStoreRequired is returned when a heartbeat store is not provided.
	ErrHeartbeatStoreRequired = errors.New("heartbeat store required")

	// ErrCompleterRequired is returned when a completer is not provided.
	ErrCompleterRequired = errors.New("completer required")

	// ErrInvalidConfig indicates the pipeline configuration is unusable.
	ErrInvalidConfig = errors.New("invalid distillation configuration")

	// ErrMalformedResponse indicates the model reply could not be parsed.
	ErrMalformedResponse = errors.New("malformed model response")

	// ErrNoMessages indicates a selected thread had nothing past its watermark.
	ErrNoMessages = errors.New("no messages past watermark")
)
