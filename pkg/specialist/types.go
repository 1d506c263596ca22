package specialist

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Responder is the opaque reasoning capability behind a specialist.
// Implementations should honour ctx cancellation; callers bound every call
// with a timeout regardless.
type Responder interface {
	Respond(ctx context.Context, prompt string, shared SharedContext) (Answer, error)
}

// ResponderFunc adapts an ordinary function to the Responder interface.
type ResponderFunc func(ctx context.Context, prompt string, shared SharedContext) (Answer, error)

// Respond calls f(ctx, prompt, shared).
func (f ResponderFunc) Respond(ctx context.Context, prompt string, shared SharedContext) (Answer, error) {
	return f(ctx, prompt, shared)
}

// Static returns a Responder that always answers with text.
func Static(text string) Responder {
	return ResponderFunc(func(ctx context.Context, _ string, _ SharedContext) (Answer, error) {
		if err := ctx.Err(); err != nil {
			return Answer{}, err
		}
		return Answer{Text: text}, nil
	})
}

// Answer is what a Responder produces for a single invocation.
type Answer struct {
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence,omitempty"` // nil when the responder does not score itself
}

// Specialist is a named responder tagged with capability labels.
// Specialists are immutable once registered; the registry keeps its own copy.
type Specialist struct {
	ID        string    // Unique identifier, e.g. "compliance-auditor"
	Tags      []string  // Capability labels, lower-cased on registration
	Responder Responder // Opaque reasoning call
}

// Reply is the immutable result of invoking a specialist once.
type Reply struct {
	SpecialistID string    `json:"specialist_id"`
	Text         string    `json:"text"`
	Confidence   *float64  `json:"confidence,omitempty"`
	ProducedAt   time.Time `json:"produced_at"`
}

// Validate checks that the specialist can be registered.
func (s *Specialist) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("specialist id cannot be empty")
	}
	if s.Responder == nil {
		return fmt.Errorf("specialist '%s': responder is required", s.ID)
	}
	for i, tag := range s.Tags {
		if strings.TrimSpace(tag) == "" {
			return fmt.Errorf("specialist '%s': tag at index %d is empty", s.ID, i)
		}
	}
	return nil
}

// HasTag reports whether the specialist carries the capability tag.
// Comparison is case-insensitive.
func (s *Specialist) HasTag(tag string) bool {
	tag = normalizeTag(tag)
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Invoke runs the responder once and stamps the resulting Reply.
func (s *Specialist) Invoke(ctx context.Context, prompt string, shared SharedContext) (Reply, error) {
	answer, err := s.Responder.Respond(ctx, prompt, shared)
	if err != nil {
		return Reply{}, err
	}
	return Reply{
		SpecialistID: s.ID,
		Text:         answer.Text,
		Confidence:   answer.Confidence,
		ProducedAt:   time.Now().UTC(),
	}, nil
}

// clone returns a deep copy with normalised, de-duplicated tags.
func (s Specialist) clone() *Specialist {
	tags := make([]string, 0, len(s.Tags))
	seen := make(map[string]bool, len(s.Tags))
	for _, t := range s.Tags {
		t = normalizeTag(t)
		if seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	return &Specialist{
		ID:        s.ID,
		Tags:      tags,
		Responder: s.Responder,
	}
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}
