package responder

import (
	"fmt"

	"github.com/dyluth/warren/pkg/specialist"
)

// Input is the JSON document written to a command responder's stdin.
// The pipe is closed right after the write.
//
// Example JSON:
//
//	{
//	  "specialist_id": "epi-specialist",
//	  "prompt": "Which gloves for solvent handling?",
//	  "shared_context": {
//	    "user_id": "42",
//	    "interaction_count": "3",
//	    "active_strategy": "collaborate",
//	    "reply.risk-analyst": "..."
//	  }
//	}
type Input struct {
	SpecialistID  string                   `json:"specialist_id"`
	Prompt        string                   `json:"prompt"`
	SharedContext specialist.SharedContext `json:"shared_context"`
}

// Output is the JSON document a command responder must write to stdout.
// Exactly one object; anything else is a failed invocation.
//
// Example JSON:
//
//	{"text": "Nitrile gloves rated for ...", "confidence": 0.8}
type Output struct {
	// Text is the reply. Required, must be non-empty.
	Text string `json:"text"`

	// Confidence optionally scores the reply between 0 and 1.
	Confidence *float64 `json:"confidence,omitempty"`
}

// Validate checks that the Output has all required fields and valid values.
func (o *Output) Validate() error {
	if o.Text == "" {
		return fmt.Errorf("text is required")
	}
	if o.Confidence != nil && (*o.Confidence < 0 || *o.Confidence > 1) {
		return fmt.Errorf("confidence must be between 0 and 1, got %v", *o.Confidence)
	}
	return nil
}
