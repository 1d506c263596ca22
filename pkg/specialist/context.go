package specialist

import "sort"

// Well-known SharedContext keys populated by the orchestrator and strategies.
const (
	ContextUserID             = "user_id"
	ContextInteractionCount   = "interaction_count"
	ContextActiveStrategy     = "active_strategy"
	ContextPreviousReply      = "previous_reply"
	ContextPreviousSpecialist = "previous_specialist"

	// ContextReplyPrefix prefixes the keys under which collaborate mode
	// stores each predecessor's reply: "reply.<specialist id>".
	ContextReplyPrefix = "reply."
)

// SharedContext is the per-request scratch mapping handed to specialists.
type SharedContext map[string]string

// Clone returns an independent copy. A nil context clones to an empty map.
func (c SharedContext) Clone() SharedContext {
	out := make(SharedContext, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Keys returns the keys in sorted order.
func (c SharedContext) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ReplyKey returns the context key holding a predecessor's reply.
func ReplyKey(specialistID string) string {
	return ContextReplyPrefix + specialistID
}
