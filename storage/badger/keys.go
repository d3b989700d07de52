package badger

import (
	"encoding/binary"
	"time"

	"github.com/poiesic/distillery/core"
)

// Key prefixes for different data types
const (
	messagePrefix   = "msg:"
	threadPrefix    = "thr:"
	knowledgePrefix = "kno:"
	profilePrefix   = "pro:"
	heartbeatPrefix = "hb:"
	messageIDSeq    = "msgseq"
	knowledgeIDSeq  = "knoseq"
	profileIDSeq    = "proseq"
)

// Composite keys separate their string parts with a zero byte and encode
// timestamps and IDs BigEndian so lexicographic order is chronological.
const keySep = 0x00

// makeMessageKey generates a key for a message.
// Format: prefix thread 0x00 timestamp id
func makeMessageKey(threadID string, ts time.Time, id core.ID) []byte {
	buf := makeMessagePrefix(threadID)
	buf = binary.BigEndian.AppendUint64(buf, uint64(ts.UnixMicro()))
	return binary.BigEndian.AppendUint64(buf, uint64(id))
}

// makeMessageSeekKey generates the first possible message key strictly
// after ts within a thread.
func makeMessageSeekKey(threadID string, ts time.Time) []byte {
	buf := makeMessagePrefix(threadID)
	var us int64
	if !ts.IsZero() {
		us = ts.UnixMicro() + 1
	}
	return binary.BigEndian.AppendUint64(buf, uint64(us))
}

// makeMessagePrefix generates the prefix shared by all messages of a thread.
func makeMessagePrefix(threadID string) []byte {
	buf := make([]byte, 0, len(messagePrefix)+len(threadID)+17)
	buf = append(buf, messagePrefix...)
	buf = append(buf, threadID...)
	return append(buf, keySep)
}

// makeThreadKey generates a key for a thread's activity aggregate.
func makeThreadKey(threadID string) []byte {
	return []byte(threadPrefix + threadID)
}

// makeKnowledgeKey generates a key for a knowledge record.
// Format: prefix thread 0x00 watermark id
func makeKnowledgeKey(threadID string, watermark time.Time, id core.ID) []byte {
	buf := makeKnowledgePrefix(threadID)
	buf = binary.BigEndian.AppendUint64(buf, uint64(watermark.UnixMicro()))
	return binary.BigEndian.AppendUint64(buf, uint64(id))
}

// makeKnowledgePrefix generates the prefix shared by all records of a thread.
func makeKnowledgePrefix(threadID string) []byte {
	buf := make([]byte, 0, len(knowledgePrefix)+len(threadID)+17)
	buf = append(buf, knowledgePrefix...)
	buf = append(buf, threadID...)
	return append(buf, keySep)
}

// makeProfileKey generates a key for a profile row.
// Format: prefix user 0x00 bot 0x00 id
func makeProfileKey(user, bot string, id core.ID) []byte {
	return binary.BigEndian.AppendUint64(makeProfilePrefix(user, bot), uint64(id))
}

// makeProfilePrefix generates the prefix shared by a (user, bot) history.
func makeProfilePrefix(user, bot string) []byte {
	buf := make([]byte, 0, len(profilePrefix)+len(user)+len(bot)+10)
	buf = append(buf, profilePrefix...)
	buf = append(buf, user...)
	buf = append(buf, keySep)
	buf = append(buf, bot...)
	return append(buf, keySep)
}

// makeHeartbeatKey generates a key for an agent heartbeat.
func makeHeartbeatKey(agent string) []byte {
	return []byte(heartbeatPrefix + agent)
}

// seekLast returns a key that sorts after every key carrying prefix,
// for reverse iteration.
func seekLast(prefix []byte) []byte {
	return append(append([]byte{}, prefix...), 0xFF)
}
