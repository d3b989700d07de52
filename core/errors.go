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

package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidMessage indicates a Message failed validation.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrInvalidKnowledgeRecord indicates a KnowledgeRecord failed validation.
	ErrInvalidKnowledgeRecord = errors.New("invalid knowledge record")

	// ErrInvalidProfile indicates a UserBotProfile failed validation.
	ErrInvalidProfile = errors.New("invalid user bot profile")

	// ErrInvalidTimestamp indicates a timestamp is zero or in the future.
	ErrInvalidTimestamp = errors.New("timestamp must be set and not in the future")

	// ErrEmptyThreadID indicates the ThreadID field is empty.
	ErrEmptyThreadID = errors.New("thread id cannot be empty")

	// ErrInvalidMessageType indicates an invalid MessageType value.
	ErrInvalidMessageType = errors.New("invalid message type")

	// ErrEmptySubject indicates a profile without a user or bot.
	ErrEmptySubject = errors.New("profile subject requires user and bot")

	// ErrInvalidEntityPointer indicates a malformed DATABASE.SCHEMA.TABLE name.
	ErrInvalidEntityPointer = errors.New("entity pointer must be DATABASE.SCHEMA.TABLE")
)
