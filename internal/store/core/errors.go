package core

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid")
)

// IsNotFound indica si err es ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict indica si err es ErrConflict. El linker depende de esto para
// convertir una carrera de creación perdida en un update del ganador.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }
