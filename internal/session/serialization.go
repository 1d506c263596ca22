package session

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/dyluth/warren/internal/strategy"
)

// Sessions are stored as Redis hashes. Scalar fields get a hash field each;
// the scratch map is JSON-encoded into a single field.

// ToHash converts a Session to Redis hash format.
func ToHash(s *Session) (map[string]interface{}, error) {
	scratchJSON, err := json.Marshal(s.Scratch)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scratch: %w", err)
	}

	return map[string]interface{}{
		"user_id":           s.UserID,
		"active_strategy":   string(s.ActiveStrategy),
		"interaction_count": s.InteractionCount,
		"created_at_ms":     s.CreatedAt.UnixMilli(),
		"last_updated_ms":   s.LastUpdated.UnixMilli(),
		"scratch":           string(scratchJSON),
	}, nil
}

// FromHash converts a Redis hash back to a Session.
func FromHash(hash map[string]string) (*Session, error) {
	count, err := strconv.ParseInt(hash["interaction_count"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid interaction_count field: %w", err)
	}

	kind := strategy.Kind(hash["active_strategy"])
	if err := kind.Validate(); err != nil {
		return nil, fmt.Errorf("invalid active_strategy field: %w", err)
	}

	createdAtMs, _ := strconv.ParseInt(hash["created_at_ms"], 10, 64)
	lastUpdatedMs, _ := strconv.ParseInt(hash["last_updated_ms"], 10, 64)

	scratch := map[string]string{}
	if scratchJSON := hash["scratch"]; scratchJSON != "" {
		if err := json.Unmarshal([]byte(scratchJSON), &scratch); err != nil {
			return nil, fmt.Errorf("failed to unmarshal scratch: %w", err)
		}
	}
	if scratch == nil {
		scratch = map[string]string{}
	}

	return &Session{
		UserID:           hash["user_id"],
		ActiveStrategy:   kind,
		InteractionCount: count,
		CreatedAt:        time.UnixMilli(createdAtMs).UTC(),
		LastUpdated:      time.UnixMilli(lastUpdatedMs).UTC(),
		Scratch:          scratch,
	}, nil
}
