// Package specialist defines the specialists that warren routes requests to and
// the registry that owns them.
//
// # Overview
//
// A Specialist is an opaque responder bound to a set of capability tags, the
// equivalent of a domain expert (equipment, compliance, training, risk,
// research). Warren never looks inside a specialist's reasoning: it hands the
// Responder a prompt plus a SharedContext and receives an Answer back.
//
// The Registry is built once at startup, sealed, and read-only thereafter.
// Registration order is significant: it is the order used by capability
// lookups and by the multi-specialist strategies when they lay out combined
// output.
//
// # Usage Example
//
//	reg := specialist.NewRegistry()
//	err := reg.Register(specialist.Specialist{
//		ID:        "epi-specialist",
//		Tags:      []string{"equipment", "epi"},
//		Responder: specialist.Static("Use a certified helmet."),
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	reg.Seal()
//
//	s, err := reg.Resolve("epi-specialist")
//	reply, err := s.Invoke(ctx, "which helmet?", specialist.SharedContext{})
//
// # Shared Context
//
// SharedContext is a plain string map rebuilt for every request. Callers must
// hand each specialist its own Clone so that concurrently invoked specialists
// can never observe each other's writes.
package specialist
