package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/poiesic/distillery/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalID(t *testing.T) {
	tests := []struct {
		name string
		id   core.ID
	}{
		{"zero ID", core.ID(0)},
		{"small ID", core.ID(42)},
		{"large ID", core.ID(18446744073709551615)}, // max uint64
		{"content-based ID", core.IDFromContent("test content")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalID(tt.id)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalID(data)
			require.NoError(t, err)
			assert.Equal(t, tt.id, decoded)
		})
	}
}

func TestUnmarshal_InvalidData(t *testing.T) {
	_, err := UnmarshalID(nil)
	assert.True(t, errors.Is(err, ErrSerializationFailed))

	_, err = UnmarshalKnowledgeRecord([]byte{0x01})
	assert.True(t, errors.Is(err, ErrSerializationFailed))

	_, err = UnmarshalHeartbeat([]byte{})
	assert.True(t, errors.Is(err, ErrSerializationFailed))
}

func TestMarshalProfile_PreservesHistoryFields(t *testing.T) {
	profile := &core.UserBotProfile{
		Id:           3,
		PrimaryUser:  "ana",
		BotID:        "b1",
		UserLearning: "- likes charts\n- works in finance",
		InsertedAt:   time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
	}

	decoded, err := UnmarshalProfile(MarshalProfile(profile))
	require.NoError(t, err)
	assert.Equal(t, profile, decoded)
}
