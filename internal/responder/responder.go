// Package responder builds the reasoning calls behind configured
// specialists.
package responder

import (
	"fmt"

	"github.com/dyluth/warren/internal/config"
	"github.com/dyluth/warren/pkg/specialist"
	"go.uber.org/zap"
)

// FromConfig creates the responder described by a specialist entry.
// dir is the working directory for command responders, normally the
// directory holding warren.yml.
func FromConfig(s config.Specialist, dir string, logger *zap.Logger) (specialist.Responder, error) {
	switch s.Responder.Kind {
	case "static":
		return specialist.Static(s.Responder.Text), nil
	case "command":
		return &Command{
			SpecialistID:   s.ID,
			Argv:           append([]string(nil), s.Responder.Command...),
			Env:            append([]string(nil), s.Responder.Environment...),
			Dir:            dir,
			MaxOutputBytes: s.Responder.MaxOutputBytes,
			Logger:         logger,
		}, nil
	default:
		return nil, fmt.Errorf("specialist '%s': invalid responder kind: %s", s.ID, s.Responder.Kind)
	}
}

// BuildRegistry registers every configured specialist and seals the registry.
func BuildRegistry(cfg *config.WarrenConfig, dir string, logger *zap.Logger) (*specialist.Registry, error) {
	reg := specialist.NewRegistry()
	for _, s := range cfg.Specialists {
		r, err := FromConfig(s, dir, logger)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(specialist.Specialist{ID: s.ID, Tags: s.Tags, Responder: r}); err != nil {
			return nil, err
		}
	}
	reg.Seal()
	return reg, nil
}
