package config

import (
	"io"
	"time"
)

// DurationConfig reads integer values and scales them into durations.
type DurationConfig interface {
	// GetSecond reads an integer number of seconds.
	GetSecond(key string) time.Duration

	// GetMinute reads an integer number of minutes.
	GetMinute(key string) time.Duration
}

// NumberConfig reads numeric values. Missing or unparsable keys yield zero.
type NumberConfig interface {
	GetInt(key string) int
	GetInt32(key string) int32
	GetInt64(key string) int64
	GetUint16(key string) uint16
	GetFloat64(key string) float64
}

// Config is the read-only view of the service configuration.
type Config interface {
	io.Closer
	DurationConfig
	NumberConfig

	GetBool(key string) bool
	GetString(key string) string

	// IsSet reports whether key has a value, so callers can tell an explicit zero from a missing key.
	IsSet(key string) bool

	// GetBinary reads a base64 encoded value. Invalid base64 yields nil.
	GetBinary(key string) []byte

	// GetArray reads a comma separated list, trimming blanks and dropping empty items.
	GetArray(key string) []string
}
