package base32

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCharacter is matched by a *DecodeError of kind InvalidCharacter.
	ErrInvalidCharacter = errors.New("base32: invalid character")
	// ErrInvalidPadding is matched by a *DecodeError of kind InvalidPadding.
	ErrInvalidPadding = errors.New("base32: invalid padding")
)

// ErrorKind classifies a decode failure.
type ErrorKind int

const (
	InvalidCharacter ErrorKind = iota + 1
	InvalidPadding
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidCharacter:
		return "InvalidCharacter"
	case InvalidPadding:
		return "InvalidPadding"
	default:
		return "Unknown"
	}
}

// DecodeError reports malformed Base32 input at a byte offset.
type DecodeError struct {
	Kind ErrorKind
	Pos  int
	Char rune
}

func (e *DecodeError) Error() string {
	if e.Char == 0 {
		return fmt.Sprintf("base32: %s at offset %d", e.Kind, e.Pos)
	}

	return fmt.Sprintf("base32: %s %q at offset %d", e.Kind, e.Char, e.Pos)
}

// Is lets errors.Is match a *DecodeError against the package sentinels.
func (e *DecodeError) Is(target error) bool {
	switch target {
	case ErrInvalidCharacter:
		return e.Kind == InvalidCharacter
	case ErrInvalidPadding:
		return e.Kind == InvalidPadding
	default:
		return false
	}
}
