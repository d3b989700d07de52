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
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// Binary codecs for the records persisted in badger. Field order is the wire
// order; append new fields at the end only.

var (
	IDMUS              = idMUS{}
	MessageMUS         = messageMUS{}
	ThreadStatsMUS     = threadStatsMUS{}
	KnowledgeRecordMUS = knowledgeRecordMUS{}
	UserBotProfileMUS  = userBotProfileMUS{}
	HeartbeatMUS       = heartbeatMUS{}
)

// time values travel as UnixMicro; the zero time maps to 0 and back.

func timeSize(t time.Time) int {
	return varint.Int64.Size(timeToMicro(t))
}

func marshalTime(t time.Time, bs []byte) int {
	return varint.Int64.Marshal(timeToMicro(t), bs)
}

func unmarshalTime(bs []byte) (time.Time, int, error) {
	us, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	if us == 0 {
		return time.Time{}, n, nil
	}
	return time.UnixMicro(us).UTC(), n, nil
}

func timeToMicro(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

// --- ID ---

type idMUS struct{}

func (idMUS) Marshal(v ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (idMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	u, n, err := varint.Uint64.Unmarshal(bs)
	return ID(u), n, err
}

func (idMUS) Size(v ID) int {
	return varint.Uint64.Size(uint64(v))
}

// --- Message ---

type messageMUS struct{}

func (messageMUS) Marshal(v Message, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.ThreadID, bs[n:])
	n += marshalTime(v.Timestamp, bs[n:])
	n += varint.Int64.Marshal(int64(v.Type), bs[n:])
	n += ord.String.Marshal(v.Payload, bs[n:])
	n += ord.String.Marshal(v.BotID, bs[n:])
	return n + ord.String.Marshal(v.PrimaryUser, bs[n:])
}

func (messageMUS) Unmarshal(bs []byte) (v Message, n int, err error) {
	var n1 int
	if v.Id, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if v.ThreadID, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		n += n1
		return
	}
	n += n1
	if v.Timestamp, n1, err = unmarshalTime(bs[n:]); err != nil {
		n += n1
		return
	}
	n += n1
	var typ int64
	if typ, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		n += n1
		return
	}
	n += n1
	v.Type = MessageType(typ)
	if v.Payload, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		n += n1
		return
	}
	n += n1
	if v.BotID, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		n += n1
		return
	}
	n += n1
	v.PrimaryUser, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

func (messageMUS) Size(v Message) (size int) {
	size = IDMUS.Size(v.Id)
	size += ord.String.Size(v.ThreadID)
	size += timeSize(v.Timestamp)
	size += varint.Int64.Size(int64(v.Type))
	size += ord.String.Size(v.Payload)
	size += ord.String.Size(v.BotID)
	return size + ord.String.Size(v.PrimaryUser)
}

// --- ThreadStats ---

type threadStatsMUS struct{}

func (threadStatsMUS) Marshal(v ThreadStats, bs []byte) (n int) {
	n = ord.String.Marshal(v.ThreadID, bs)
	n += marshalTime(v.LastActivity, bs[n:])
	n += marshalTime(v.Watermark, bs[n:])
	n += varint.Int64.Marshal(int64(v.Qualifying), bs[n:])
	n += varint.Uint64.Marshal(uint64(len(v.Humans)), bs[n:])
	for _, h := range v.Humans {
		n += ord.String.Marshal(h, bs[n:])
	}
	return n + ord.String.Marshal(v.BotID, bs[n:])
}

func (threadStatsMUS) Unmarshal(bs []byte) (v ThreadStats, n int, err error) {
	var n1 int
	if v.ThreadID, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if v.LastActivity, n1, err = unmarshalTime(bs[n:]); err != nil {
		n += n1
		return
	}
	n += n1
	if v.Watermark, n1, err = unmarshalTime(bs[n:]); err != nil {
		n += n1
		return
	}
	n += n1
	var q int64
	if q, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		n += n1
		return
	}
	n += n1
	v.Qualifying = int(q)
	var count uint64
	if count, n1, err = varint.Uint64.Unmarshal(bs[n:]); err != nil {
		n += n1
		return
	}
	n += n1
	if count > 0 {
		v.Humans = make([]string, 0, count)
	}
	for i := uint64(0); i < count; i++ {
		var h string
		if h, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
			n += n1
			return
		}
		n += n1
		v.Humans = append(v.Humans, h)
	}
	v.BotID, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

func (threadStatsMUS) Size(v ThreadStats) (size int) {
	size = ord.String.Size(v.ThreadID)
	size += timeSize(v.LastActivity)
	size += timeSize(v.Watermark)
	size += varint.Int64.Size(int64(v.Qualifying))
	size += varint.Uint64.Size(uint64(len(v.Humans)))
	for _, h := range v.Humans {
		size += ord.String.Size(h)
	}
	return size + ord.String.Size(v.BotID)
}

// --- KnowledgeRecord ---

type knowledgeRecordMUS struct{}

func (knowledgeRecordMUS) Marshal(v KnowledgeRecord, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.ThreadID, bs[n:])
	n += ord.String.Marshal(v.SessionHandle, bs[n:])
	n += ord.String.Marshal(v.PrimaryUser, bs[n:])
	n += ord.String.Marshal(v.BotID, bs[n:])
	n += marshalTime(v.Watermark, bs[n:])
	n += ord.String.Marshal(v.Facets.Summary, bs[n:])
	n += ord.String.Marshal(v.Facets.UserLearning, bs[n:])
	n += ord.String.Marshal(v.Facets.ToolLearning, bs[n:])
	n += ord.String.Marshal(v.Facets.DataLearning, bs[n:])
	return n + marshalTime(v.InsertedAt, bs[n:])
}

func (knowledgeRecordMUS) Unmarshal(bs []byte) (v KnowledgeRecord, n int, err error) {
	var n1 int
	if v.Id, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	strs := []*string{
		&v.ThreadID, &v.SessionHandle, &v.PrimaryUser, &v.BotID,
	}
	for _, s := range strs {
		if *s, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
			n += n1
			return
		}
		n += n1
	}
	if v.Watermark, n1, err = unmarshalTime(bs[n:]); err != nil {
		n += n1
		return
	}
	n += n1
	facets := []*string{
		&v.Facets.Summary, &v.Facets.UserLearning, &v.Facets.ToolLearning, &v.Facets.DataLearning,
	}
	for _, s := range facets {
		if *s, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
			n += n1
			return
		}
		n += n1
	}
	v.InsertedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	return
}

func (knowledgeRecordMUS) Size(v KnowledgeRecord) (size int) {
	size = IDMUS.Size(v.Id)
	size += ord.String.Size(v.ThreadID)
	size += ord.String.Size(v.SessionHandle)
	size += ord.String.Size(v.PrimaryUser)
	size += ord.String.Size(v.BotID)
	size += timeSize(v.Watermark)
	size += ord.String.Size(v.Facets.Summary)
	size += ord.String.Size(v.Facets.UserLearning)
	size += ord.String.Size(v.Facets.ToolLearning)
	size += ord.String.Size(v.Facets.DataLearning)
	return size + timeSize(v.InsertedAt)
}

// --- UserBotProfile ---

type userBotProfileMUS struct{}

func (userBotProfileMUS) Marshal(v UserBotProfile, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.PrimaryUser, bs[n:])
	n += ord.String.Marshal(v.BotID, bs[n:])
	n += ord.String.Marshal(v.UserLearning, bs[n:])
	n += ord.String.Marshal(v.ToolLearning, bs[n:])
	n += ord.String.Marshal(v.DataLearning, bs[n:])
	return n + marshalTime(v.InsertedAt, bs[n:])
}

func (userBotProfileMUS) Unmarshal(bs []byte) (v UserBotProfile, n int, err error) {
	var n1 int
	if v.Id, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	strs := []*string{
		&v.PrimaryUser, &v.BotID, &v.UserLearning, &v.ToolLearning, &v.DataLearning,
	}
	for _, s := range strs {
		if *s, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
			n += n1
			return
		}
		n += n1
	}
	v.InsertedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	return
}

func (userBotProfileMUS) Size(v UserBotProfile) (size int) {
	size = IDMUS.Size(v.Id)
	size += ord.String.Size(v.PrimaryUser)
	size += ord.String.Size(v.BotID)
	size += ord.String.Size(v.UserLearning)
	size += ord.String.Size(v.ToolLearning)
	size += ord.String.Size(v.DataLearning)
	return size + timeSize(v.InsertedAt)
}

// --- Heartbeat ---

type heartbeatMUS struct{}

func (heartbeatMUS) Marshal(v Heartbeat, bs []byte) (n int) {
	n = ord.String.Marshal(v.Agent, bs)
	return n + marshalTime(v.At, bs[n:])
}

func (heartbeatMUS) Unmarshal(bs []byte) (v Heartbeat, n int, err error) {
	var n1 int
	if v.Agent, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	v.At, n1, err = unmarshalTime(bs[n:])
	n += n1
	return
}

func (heartbeatMUS) Size(v Heartbeat) (size int) {
	return ord.String.Size(v.Agent) + timeSize(v.At)
}
