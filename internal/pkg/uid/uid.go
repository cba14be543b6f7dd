// Package uid generates identifiers: UUIDs for correlation ids and
// snowflake numbers for event ids.
package uid

// StringID generates string identifiers.
type StringID interface {
	Generate() string
}

// NumberID generates time-ordered numeric identifiers.
type NumberID interface {
	Generate() int64
}
