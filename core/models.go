package core

import (
	"encoding/binary"
	"encoding/hex"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Fingerprint derives a short, filename-safe freshness token from a corpus name
// and the newest change time of that corpus.
func Fingerprint(corpus string, newest time.Time) string {
	h, _ := blake2b.New(8, nil)
	h.Write([]byte(corpus))
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(newest.UTC().UnixMicro()))
	h.Write(ts[:])
	return hex.EncodeToString(h.Sum(nil))
}

// MessageType identifies the author class of a message.
type MessageType int

const (
	// MessageTypeUser is a message written by a human participant.
	MessageTypeUser MessageType = iota + 1
	// MessageTypeBot is a message written by the agent.
	MessageTypeBot
	// MessageTypeTool is a tool call or tool result emitted on the agent's behalf.
	MessageTypeTool
)

func (t MessageType) String() string {
	switch t {
	case MessageTypeUser:
		return "user"
	case MessageTypeBot:
		return "bot"
	case MessageTypeTool:
		return "tool"
	default:
		return "unknown"
	}
}

// ParseMessageType maps a lowercase type name back to a MessageType.
func ParseMessageType(s string) (MessageType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return MessageTypeUser, nil
	case "bot":
		return MessageTypeBot, nil
	case "tool":
		return MessageTypeTool, nil
	default:
		return 0, ErrInvalidMessageType
	}
}

// Message is a single row of a conversation thread.
type Message struct {
	Id          ID
	ThreadID    string
	Timestamp   time.Time
	Type        MessageType
	Payload     string
	BotID       string
	PrimaryUser string
}

// Qualifies reports whether the message counts toward a thread's
// distillation threshold. Only human-authored messages qualify.
func (m *Message) Qualifies() bool {
	return m.Type == MessageTypeUser
}

// ThreadStats is the per-thread activity aggregate maintained on ingestion.
type ThreadStats struct {
	ThreadID     string
	LastActivity time.Time
	Watermark    time.Time // zero until the first knowledge record is written
	Qualifying   int
	Humans       []string // distinct non-empty PrimaryUser values of qualifying messages
	BotID        string
}

// HasHuman reports whether user is already counted as a participant.
func (s *ThreadStats) HasHuman(user string) bool {
	for _, h := range s.Humans {
		if h == user {
			return true
		}
	}
	return false
}

// ThreadCandidate is a thread eligible for distillation.
type ThreadCandidate struct {
	ThreadID           string
	LastActivity       time.Time
	Watermark          time.Time
	QualifyingMessages int
	SingleHuman        bool
}

// Facets are the four knowledge dimensions extracted from a transcript.
type Facets struct {
	Summary      string
	UserLearning string
	ToolLearning string
	DataLearning string
}

// KnowledgeRecord is an append-only distillation result for one thread.
// The record with the greatest Watermark is authoritative for a thread.
type KnowledgeRecord struct {
	Id            ID
	ThreadID      string
	SessionHandle string
	PrimaryUser   string
	BotID         string
	Watermark     time.Time
	Facets        Facets
	InsertedAt    time.Time
}

// UserBotProfile is the cumulative learning about one user as seen by one bot.
type UserBotProfile struct {
	Id           ID
	PrimaryUser  string
	BotID        string
	UserLearning string
	ToolLearning string
	DataLearning string
	InsertedAt   time.Time
}

// Heartbeat is the liveness signal of a running agent process.
type Heartbeat struct {
	Agent string
	At    time.Time
}

// EmbeddingRow is one harvested embedding. Embedding holds the raw stored
// text and may be nil when the harvester has not produced a vector yet.
type EmbeddingRow struct {
	EntityName string
	Embedding  *string
	UpdatedAt  time.Time
}

// Verbosity selects how much catalog detail is hydrated.
type Verbosity int

const (
	// VerbosityShort hydrates the identifier and a condensed schema.
	VerbosityShort Verbosity = iota
	// VerbosityFull hydrates the identifier, full schema and sample content.
	VerbosityFull
)

// EntityPointer addresses one catalog entity directly.
type EntityPointer struct {
	Database string
	Schema   string
	Table    string
}

// String returns the fully qualified name DATABASE.SCHEMA.TABLE.
func (p EntityPointer) String() string {
	return p.Database + "." + p.Schema + "." + p.Table
}

// ParseEntityPointer splits a fully qualified DATABASE.SCHEMA.TABLE name.
func ParseEntityPointer(s string) (EntityPointer, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return EntityPointer{}, ErrInvalidEntityPointer
	}
	for _, p := range parts {
		if p == "" {
			return EntityPointer{}, ErrInvalidEntityPointer
		}
	}
	return EntityPointer{Database: parts[0], Schema: parts[1], Table: parts[2]}, nil
}

// EntityDetail is a hydrated catalog entry. Which fields are populated
// depends on the Verbosity it was fetched with.
type EntityDetail struct {
	Name       string
	Source     string
	Database   string
	Schema     string
	Table      string
	Condensed  string
	FullSchema string
	Sample     string
}

// Text renders the entity for prompt injection.
func (d *EntityDetail) Text(v Verbosity) string {
	var b strings.Builder
	b.WriteString(d.Name)
	if v == VerbosityFull {
		if d.FullSchema != "" {
			b.WriteString("\n")
			b.WriteString(d.FullSchema)
		}
		if d.Sample != "" {
			b.WriteString("\nSample:\n")
			b.WriteString(d.Sample)
		}
		return b.String()
	}
	if d.Condensed != "" {
		b.WriteString(": ")
		b.WriteString(d.Condensed)
	}
	return b.String()
}
