package fhirmodel

// Primitive is implemented by FHIR primitive datatypes: a wrapped scalar
// value plus an optional id/extension annotation. The types package
// satisfies this interface structurally; release-specific generated
// primitives may do the same.
type Primitive interface {
	// PrimitiveValue returns the scalar value, or false when absent.
	// The scalar must be a JSON-native value (bool, string, integer,
	// json.Number) or convertible through the encoder's default
	// conversion callback.
	PrimitiveValue() (any, bool)

	// SetPrimitiveValue validates and assigns a decoded scalar.
	// A nil argument clears the value.
	SetPrimitiveValue(v any) error

	// PrimitiveElement returns the annotation record serialized under
	// the underscore-prefixed wire key, or nil when there is none.
	PrimitiveElement() any

	// EnsureElement allocates the annotation record if needed and
	// returns a pointer to it, suitable for Populate.
	EnsureElement() any
}

// ResourceTyper is implemented by model types whose declared type tag
// differs from the Go type name.
type ResourceTyper interface {
	ResourceType() string
}
