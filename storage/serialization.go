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

package storage

import (
	"fmt"

	"github.com/poiesic/distillery/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := core.IDMUS.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return id, nil
}

// MarshalMessage serializes a Message to bytes.
func MarshalMessage(msg *core.Message) []byte {
	buf := make([]byte, core.MessageMUS.Size(*msg))
	core.MessageMUS.Marshal(*msg, buf)
	return buf
}

// UnmarshalMessage deserializes a Message from bytes.
func UnmarshalMessage(data []byte) (*core.Message, error) {
	msg, _, err := core.MessageMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &msg, nil
}

// MarshalThreadStats serializes ThreadStats to bytes.
func MarshalThreadStats(stats *core.ThreadStats) []byte {
	buf := make([]byte, core.ThreadStatsMUS.Size(*stats))
	core.ThreadStatsMUS.Marshal(*stats, buf)
	return buf
}

// UnmarshalThreadStats deserializes ThreadStats from bytes.
func UnmarshalThreadStats(data []byte) (*core.ThreadStats, error) {
	stats, _, err := core.ThreadStatsMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &stats, nil
}

// MarshalKnowledgeRecord serializes a KnowledgeRecord to bytes.
func MarshalKnowledgeRecord(record *core.KnowledgeRecord) []byte {
	buf := make([]byte, core.KnowledgeRecordMUS.Size(*record))
	core.KnowledgeRecordMUS.Marshal(*record, buf)
	return buf
}

// UnmarshalKnowledgeRecord deserializes a KnowledgeRecord from bytes.
func UnmarshalKnowledgeRecord(data []byte) (*core.KnowledgeRecord, error) {
	record, _, err := core.KnowledgeRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &record, nil
}

// MarshalProfile serializes a UserBotProfile to bytes.
func MarshalProfile(profile *core.UserBotProfile) []byte {
	buf := make([]byte, core.UserBotProfileMUS.Size(*profile))
	core.UserBotProfileMUS.Marshal(*profile, buf)
	return buf
}

// UnmarshalProfile deserializes a UserBotProfile from bytes.
func UnmarshalProfile(data []byte) (*core.UserBotProfile, error) {
	profile, _, err := core.UserBotProfileMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &profile, nil
}

// MarshalHeartbeat serializes a Heartbeat to bytes.
func MarshalHeartbeat(hb *core.Heartbeat) []byte {
	buf := make([]byte, core.HeartbeatMUS.Size(*hb))
	core.HeartbeatMUS.Marshal(*hb, buf)
	return buf
}

// UnmarshalHeartbeat deserializes a Heartbeat from bytes.
func UnmarshalHeartbeat(data []byte) (*core.Heartbeat, error) {
	hb, _, err := core.HeartbeatMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &hb, nil
}
