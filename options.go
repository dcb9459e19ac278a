package fhirmodel

// SerializeOption configures Dict, JSON and YAML output.
type SerializeOption func(*serializeOptions)

type serializeOptions struct {
	byAlias         bool
	excludeNone     bool
	excludeComments bool

	exclude    map[string]struct{}
	excludeErr error

	encoder     Encoder
	encoderName string
	fallback    func(any) (any, error)
	indent      int

	useEnumValues bool

	// legacy records accepted-but-ignored option names so callers get
	// the documented non-fatal warning instead of silent drift.
	legacy []string
}

func newSerializeOptions() *serializeOptions {
	cfg := ActiveConfig()
	return &serializeOptions{
		byAlias:       true,
		excludeNone:   true,
		useEnumValues: cfg.UseEnumValues,
		encoderName:   cfg.EncoderName,
	}
}

func applySerializeOptions(opts []SerializeOption) *serializeOptions {
	o := newSerializeOptions()
	for _, opt := range opts {
		opt(o)
	}
	if _, ok := o.exclude[CommentsFieldName]; ok {
		o.excludeComments = true
	}
	return o
}

// WithByAlias emits wire aliases (default) or internal field names.
func WithByAlias(enable bool) SerializeOption {
	return func(o *serializeOptions) {
		o.byAlias = enable
	}
}

// WithExcludeNone omits absent values (default). When disabled, fields
// explicitly set to null are retained; empty containers are still never
// emitted.
func WithExcludeNone(enable bool) SerializeOption {
	return func(o *serializeOptions) {
		o.excludeNone = enable
	}
}

// WithExcludeComments strips fhir_comments annotations at every nesting
// depth and prunes any container left empty by the stripping.
func WithExcludeComments(enable bool) SerializeOption {
	return func(o *serializeOptions) {
		o.excludeComments = enable
	}
}

// WithExclude supplies an exclusion set of top-level field names or
// aliases. Accepted types are string sets (map[string]struct{},
// map[string]bool) and per-key mappings (map[string]any); anything else
// fails with *UnsupportedExcludeError. Including fhir_comments implies
// WithExcludeComments.
func WithExclude(v any) SerializeOption {
	return func(o *serializeOptions) {
		set := make(map[string]struct{})
		switch t := v.(type) {
		case map[string]struct{}:
			for k := range t {
				set[k] = struct{}{}
			}
		case map[string]bool:
			for k, on := range t {
				if on {
					set[k] = struct{}{}
				}
			}
		case map[string]any:
			for k := range t {
				set[k] = struct{}{}
			}
		default:
			o.excludeErr = &UnsupportedExcludeError{Got: v}
			return
		}
		if o.exclude == nil {
			o.exclude = set
			return
		}
		for k := range set {
			o.exclude[k] = struct{}{}
		}
	}
}

// WithExcludeFields is a convenience form of WithExclude.
func WithExcludeFields(names ...string) SerializeOption {
	return func(o *serializeOptions) {
		if o.exclude == nil {
			o.exclude = make(map[string]struct{}, len(names))
		}
		for _, n := range names {
			o.exclude[n] = struct{}{}
		}
	}
}

// WithEncoder overrides the encoder function for this call.
func WithEncoder(enc Encoder) SerializeOption {
	return func(o *serializeOptions) {
		o.encoder = enc
	}
}

// WithEncoderName selects a registered encoder by name for this call.
func WithEncoderName(name string) SerializeOption {
	return func(o *serializeOptions) {
		o.encoderName = name
	}
}

// WithTypeConverter overrides the default conversion callback handed to
// the encoder for values it does not natively understand.
func WithTypeConverter(fn func(any) (any, error)) SerializeOption {
	return func(o *serializeOptions) {
		o.fallback = fn
	}
}

// WithIndent pretty-prints JSON output with the given indent width.
func WithIndent(n int) SerializeOption {
	return func(o *serializeOptions) {
		if n > 0 {
			o.indent = n
		}
	}
}

// WithEnumValues overrides the configured enum unwrapping for this
// call.
func WithEnumValues(enable bool) SerializeOption {
	return func(o *serializeOptions) {
		o.useEnumValues = enable
	}
}

// Deprecated: accepted for backward compatibility, warns and has no
// effect.
func WithExcludeUnset(bool) SerializeOption {
	return func(o *serializeOptions) {
		o.legacy = append(o.legacy, "exclude-unset")
	}
}

// Deprecated: accepted for backward compatibility, warns and has no
// effect.
func WithExcludeDefaults(bool) SerializeOption {
	return func(o *serializeOptions) {
		o.legacy = append(o.legacy, "exclude-defaults")
	}
}

// Deprecated: accepted for backward compatibility, warns and has no
// effect.
func WithSkipDefaults(bool) SerializeOption {
	return func(o *serializeOptions) {
		o.legacy = append(o.legacy, "skip-defaults")
	}
}

// Deprecated: accepted for backward compatibility, warns and has no
// effect.
func WithSortKeys(bool) SerializeOption {
	return func(o *serializeOptions) {
		o.legacy = append(o.legacy, "sort-keys")
	}
}
