package session

import (
	"strconv"
	"testing"
	"time"

	"github.com/dyluth/warren/internal/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashRoundTrip(t *testing.T) {
	now := time.UnixMilli(1760000000123).UTC()
	s := &Session{
		UserID:           "alice",
		ActiveStrategy:   strategy.KindCollaborate,
		InteractionCount: 7,
		CreatedAt:        now,
		LastUpdated:      now.Add(time.Minute),
		Scratch:          map[string]string{ScratchLastStrategy: "route"},
	}

	fields, err := ToHash(s)
	require.NoError(t, err)

	hash := make(map[string]string, len(fields))
	for k, v := range fields {
		hash[k] = toString(v)
	}

	got, err := FromHash(hash)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestFromHash_Errors(t *testing.T) {
	tests := []struct {
		name   string
		hash   map[string]string
		errMsg string
	}{
		{
			name:   "bad count",
			hash:   map[string]string{"interaction_count": "x", "active_strategy": "route"},
			errMsg: "invalid interaction_count field",
		},
		{
			name:   "bad strategy",
			hash:   map[string]string{"interaction_count": "1", "active_strategy": "vote"},
			errMsg: "invalid active_strategy field",
		},
		{
			name:   "bad scratch",
			hash:   map[string]string{"interaction_count": "1", "active_strategy": "route", "scratch": "{"},
			errMsg: "failed to unmarshal scratch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromHash(tt.hash)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestFromHash_NullScratch(t *testing.T) {
	s, err := FromHash(map[string]string{"interaction_count": "0", "active_strategy": "route", "scratch": "null"})
	require.NoError(t, err)
	assert.NotNil(t, s.Scratch)
}

func toString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		panic("unexpected hash value type")
	}
}
