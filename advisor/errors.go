package advisor

import "errors"

var (
	// ErrGeneratorRequired is returned when a text generator is not provided.
	ErrGeneratorRequired = errors.New("text generator required")
)
