// Package config exposes typed, read-only access to application settings.
package config

import (
	"io"
	"time"
)

// Config retrieves configuration values by dotted key ("modules.passwordreset.enabled").
//
// Missing keys yield the zero value of the requested type; callers supply
// their own fallbacks where a zero would be wrong.
type Config interface {
	io.Closer

	GetBool(key string) bool
	GetString(key string) string
	GetInt(key string) int
	GetInt32(key string) int32
	GetUint(key string) uint
	GetUint16(key string) uint16
	GetFloat64(key string) float64

	// GetSecond reads an integer and interprets it as seconds.
	GetSecond(key string) time.Duration
	// GetHour reads an integer and interprets it as hours.
	GetHour(key string) time.Duration

	// GetBinary reads a base64 string and returns the decoded bytes, nil when invalid.
	GetBinary(key string) []byte
	// GetArray reads "a,b,c" (or a YAML list) as trimmed, non-empty elements.
	GetArray(key string) []string
}
