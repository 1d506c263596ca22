package session

import "fmt"

// Redis key helpers
//
// Keys are namespaced so several warren deployments can share one Redis.
// Key pattern: warren:{namespace}:session:{user_id}

// SessionKey returns the Redis key for a user's session hash.
// Pattern: warren:{namespace}:session:{user_id}
func SessionKey(namespace, userID string) string {
	return fmt.Sprintf("warren:%s:session:%s", namespace, userID)
}

// SessionKeyPattern returns a SCAN pattern matching every session in the
// namespace.
func SessionKeyPattern(namespace string) string {
	return fmt.Sprintf("warren:%s:session:*", namespace)
}
