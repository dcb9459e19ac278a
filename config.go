package fhirmodel

import (
	"bytes"
	"encoding/json"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Config holds the model-wide behavior switches. The defaults mirror
// what FHIR tooling expects: population by field name allowed, unknown
// input keys rejected, assignment re-validated.
type Config struct {
	// PopulateByFieldName accepts internal Go field names in input
	// mappings in addition to wire aliases.
	PopulateByFieldName bool

	// AllowExtra accepts unknown input keys instead of failing
	// construction.
	AllowExtra bool

	// ValidateAssignment re-runs field validation on Set.
	ValidateAssignment bool

	// UseEnumValues replaces named enumeration values with their
	// underlying scalar during serialization.
	UseEnumValues bool

	// ExtraFieldMessage overrides the message used for unknown input
	// keys.
	ExtraFieldMessage string

	// Unmarshal is the pluggable JSON decode function used by the
	// loader. Defaults to encoding/json with number preservation.
	Unmarshal func(data []byte, v any) error

	// EncoderName selects the default registered encoder for JSON
	// output. Empty selects the first available candidate.
	EncoderName string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		PopulateByFieldName: true,
		AllowExtra:          false,
		ValidateAssignment:  true,
		UseEnumValues:       false,
		ExtraFieldMessage:   "extra fields not permitted",
		Unmarshal:           decodeJSONNumber,
	}
}

// decodeJSONNumber decodes JSON keeping numbers as json.Number so that
// decimal precision survives the trip into a value mapping.
func decodeJSONNumber(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

var (
	configMu sync.RWMutex
	config   = DefaultConfig()
)

// ConfigOption mutates the active configuration.
type ConfigOption func(*Config)

// Configure applies options to the active configuration.
func Configure(opts ...ConfigOption) {
	configMu.Lock()
	defer configMu.Unlock()
	for _, opt := range opts {
		opt(config)
	}
}

// ActiveConfig returns a copy of the active configuration.
func ActiveConfig() Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return *config
}

// WithPopulateByFieldName accepts internal field names during
// construction, not only wire aliases.
func WithPopulateByFieldName(enable bool) ConfigOption {
	return func(c *Config) {
		c.PopulateByFieldName = enable
	}
}

// WithAllowExtra accepts unknown input keys instead of rejecting them.
func WithAllowExtra(enable bool) ConfigOption {
	return func(c *Config) {
		c.AllowExtra = enable
	}
}

// WithValidateAssignment re-runs field validation on Set.
func WithValidateAssignment(enable bool) ConfigOption {
	return func(c *Config) {
		c.ValidateAssignment = enable
	}
}

// WithUseEnumValues unwraps named enumeration values to their underlying
// scalar during serialization.
func WithUseEnumValues(enable bool) ConfigOption {
	return func(c *Config) {
		c.UseEnumValues = enable
	}
}

// WithExtraFieldMessage overrides the error message for unknown input
// keys.
func WithExtraFieldMessage(msg string) ConfigOption {
	return func(c *Config) {
		if msg != "" {
			c.ExtraFieldMessage = msg
		}
	}
}

// WithUnmarshal swaps the JSON decode function used by the loader.
func WithUnmarshal(fn func(data []byte, v any) error) ConfigOption {
	return func(c *Config) {
		if fn != nil {
			c.Unmarshal = fn
		}
	}
}

// WithDefaultEncoderName selects a registered encoder by name for JSON
// output.
func WithDefaultEncoderName(name string) ConfigOption {
	return func(c *Config) {
		c.EncoderName = name
	}
}

var (
	logMu sync.RWMutex
	log   = zerolog.New(os.Stderr).With().Timestamp().Str("component", "fhirmodel").Logger()
)

// SetLogger replaces the package logger. The logger is only used for
// non-fatal diagnostics such as ignored deprecated options.
func SetLogger(l zerolog.Logger) {
	logMu.Lock()
	defer logMu.Unlock()
	log = l
}

func logger() zerolog.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	return log
}
