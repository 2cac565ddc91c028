// Package uid generates identifiers: UUIDv7 strings for correlation and token
// IDs, and snowflake numbers for rows and domain events.
package uid

// StringID generates string identifiers.
type StringID interface {
	Generate() string
}

// NumberID generates numeric identifiers.
type NumberID interface {
	Generate() int64
}
