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

import (
	"fmt"
	"time"
)

// clockSkew tolerates small differences between the clock of the process
// producing messages and this one.
const clockSkew = 5 * time.Minute

// ValidateMessage validates a Message according to domain rules.
//
// Validation rules:
//   - ThreadID must not be empty
//   - Type must be valid (user, bot or tool)
//   - Timestamp must be set and not in the future
//
// Payload may be empty (tool calls without a body are legal).
func ValidateMessage(msg *Message) error {
	if msg == nil {
		return fmt.Errorf("%w: message is nil", ErrInvalidMessage)
	}

	if msg.ThreadID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, ErrEmptyThreadID)
	}

	if err := ValidateMessageType(msg.Type); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}

	if !IsValidTimestamp(msg.Timestamp) {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, ErrInvalidTimestamp)
	}

	return nil
}

// ValidateKnowledgeRecord validates a KnowledgeRecord before it is persisted.
//
// The watermark must be set: a record without one would never stop its thread
// from being reselected.
func ValidateKnowledgeRecord(rec *KnowledgeRecord) error {
	if rec == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidKnowledgeRecord)
	}
	if rec.ThreadID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidKnowledgeRecord, ErrEmptyThreadID)
	}
	if !IsValidTimestamp(rec.Watermark) {
		return fmt.Errorf("%w: %w", ErrInvalidKnowledgeRecord, ErrInvalidTimestamp)
	}
	return nil
}

// ValidateProfile validates a UserBotProfile before it is persisted.
func ValidateProfile(p *UserBotProfile) error {
	if p == nil {
		return fmt.Errorf("%w: profile is nil", ErrInvalidProfile)
	}
	if p.PrimaryUser == "" || p.BotID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidProfile, ErrEmptySubject)
	}
	return nil
}

// ValidateMessageType validates that a MessageType has a valid value.
func ValidateMessageType(t MessageType) error {
	if t != MessageTypeUser && t != MessageTypeBot && t != MessageTypeTool {
		return fmt.Errorf("%w: value %d", ErrInvalidMessageType, t)
	}
	return nil
}

// IsValidTimestamp checks if a timestamp is set and not in the future.
func IsValidTimestamp(ts time.Time) bool {
	return !ts.IsZero() && !ts.After(time.Now().Add(clockSkew))
}
