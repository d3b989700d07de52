package core

import (
	"errors"
	"testing"
	"time"
)

func TestValidateMessage(t *testing.T) {
	validTime := time.Now().Add(-1 * time.Hour)
	futureTime := time.Now().Add(1 * time.Hour)

	tests := []struct {
		name    string
		msg     *Message
		wantErr error
	}{
		{
			name: "valid user message",
			msg: &Message{
				ThreadID:    "t1",
				Type:        MessageTypeUser,
				Payload:     "Hello world",
				Timestamp:   validTime,
				PrimaryUser: "ana",
			},
		},
		{
			name: "valid tool message with empty payload",
			msg: &Message{
				ThreadID:  "t1",
				Type:      MessageTypeTool,
				Timestamp: validTime,
			},
		},
		{
			name:    "nil message",
			msg:     nil,
			wantErr: ErrInvalidMessage,
		},
		{
			name: "missing thread",
			msg: &Message{
				Type:      MessageTypeUser,
				Timestamp: validTime,
			},
			wantErr: ErrEmptyThreadID,
		},
		{
			name: "invalid type",
			msg: &Message{
				ThreadID:  "t1",
				Type:      MessageType(99),
				Timestamp: validTime,
			},
			wantErr: ErrInvalidMessageType,
		},
		{
			name: "zero timestamp",
			msg: &Message{
				ThreadID: "t1",
				Type:     MessageTypeBot,
			},
			wantErr: ErrInvalidTimestamp,
		},
		{
			name: "future timestamp",
			msg: &Message{
				ThreadID:  "t1",
				Type:      MessageTypeBot,
				Timestamp: futureTime,
			},
			wantErr: ErrInvalidTimestamp,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMessage(tt.msg)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateMessage() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateMessage() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateKnowledgeRecord(t *testing.T) {
	if err := ValidateKnowledgeRecord(&KnowledgeRecord{ThreadID: "t1", Watermark: time.Now().Add(-time.Minute)}); err != nil {
		t.Errorf("ValidateKnowledgeRecord() unexpected error = %v", err)
	}
	if err := ValidateKnowledgeRecord(&KnowledgeRecord{Watermark: time.Now()}); !errors.Is(err, ErrEmptyThreadID) {
		t.Errorf("ValidateKnowledgeRecord() error = %v, want %v", err, ErrEmptyThreadID)
	}
	if err := ValidateKnowledgeRecord(&KnowledgeRecord{ThreadID: "t1"}); !errors.Is(err, ErrInvalidTimestamp) {
		t.Errorf("ValidateKnowledgeRecord() error = %v, want %v", err, ErrInvalidTimestamp)
	}
	if err := ValidateKnowledgeRecord(nil); !errors.Is(err, ErrInvalidKnowledgeRecord) {
		t.Errorf("ValidateKnowledgeRecord(nil) error = %v", err)
	}
}

func TestValidateProfile(t *testing.T) {
	if err := ValidateProfile(&UserBotProfile{PrimaryUser: "ana", BotID: "b1"}); err != nil {
		t.Errorf("ValidateProfile() unexpected error = %v", err)
	}
	if err := ValidateProfile(&UserBotProfile{PrimaryUser: "ana"}); !errors.Is(err, ErrEmptySubject) {
		t.Errorf("ValidateProfile() error = %v, want %v", err, ErrEmptySubject)
	}
}
