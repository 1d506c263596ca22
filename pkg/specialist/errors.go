package specialist

import (
	"errors"
	"fmt"
)

// ErrRegistrySealed is returned by Register once the registry serves traffic.
var ErrRegistrySealed = errors.New("specialist registry is sealed")

// DuplicateIDError reports a second registration under an existing id.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate specialist id '%s'", e.ID)
}

// UnknownSpecialistError reports a lookup of an id that was never registered.
type UnknownSpecialistError struct {
	ID string
}

func (e *UnknownSpecialistError) Error() string {
	return fmt.Sprintf("unknown specialist '%s'", e.ID)
}

// IsUnknown returns true if err is (or wraps) an UnknownSpecialistError.
func IsUnknown(err error) bool {
	var target *UnknownSpecialistError
	return errors.As(err, &target)
}
