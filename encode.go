package fhirmodel

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/apd/v3"
	"github.com/iancoleman/orderedmap"
	jsoniter "github.com/json-iterator/go"
)

// Encoder renders a dict-form value to JSON bytes. Values the encoder
// does not natively understand are routed through fallback first; the
// fallback returns a natively encodable replacement or an error.
type Encoder func(v any, fallback func(any) (any, error)) ([]byte, error)

var (
	encodersMu sync.RWMutex
	encoders   = map[string]Encoder{
		"jsoniter": jsoniterEncode,
		"stdlib":   stdlibEncode,
	}
	defaultEncoder = "jsoniter"
)

// RegisterEncoder makes a named encoder available for selection with
// WithEncoderName or SetDefaultEncoder.
func RegisterEncoder(name string, enc Encoder) error {
	if name == "" || enc == nil {
		return &ConfigError{Msg: "encoder registration requires a name and a function"}
	}
	encodersMu.Lock()
	defer encodersMu.Unlock()
	encoders[name] = enc
	return nil
}

// SetDefaultEncoder selects the encoder used when no per-call override
// is given.
func SetDefaultEncoder(name string) error {
	encodersMu.Lock()
	defer encodersMu.Unlock()
	if _, ok := encoders[name]; !ok {
		return &ConfigError{Msg: fmt.Sprintf("unknown encoder %q", name)}
	}
	defaultEncoder = name
	return nil
}

// EncoderNames lists the registered encoders in sorted order.
func EncoderNames() []string {
	encodersMu.RLock()
	defer encodersMu.RUnlock()
	names := make([]string, 0, len(encoders))
	for name := range encoders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resolveEncoder(o *serializeOptions) (Encoder, error) {
	if o.encoder != nil {
		return o.encoder, nil
	}
	name := o.encoderName
	if name == "" {
		name = ActiveConfig().EncoderName
	}
	encodersMu.RLock()
	defer encodersMu.RUnlock()
	if name == "" {
		name = defaultEncoder
	}
	enc, ok := encoders[name]
	if !ok {
		return nil, &ConfigError{Msg: fmt.Sprintf("unknown encoder %q", name)}
	}
	return enc, nil
}

var jsoniterAPI = jsoniter.ConfigCompatibleWithStandardLibrary

func jsoniterEncode(v any, fallback func(any) (any, error)) ([]byte, error) {
	n, err := normalize(v, fallback)
	if err != nil {
		return nil, err
	}
	data, err := jsoniterAPI.Marshal(n)
	if err != nil {
		return nil, err
	}
	// jsoniter copies json.Marshaler output verbatim; ordered maps build
	// theirs with json.Encoder, which inserts newlines. Compact so both
	// encoders emit the same bytes.
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func stdlibEncode(v any, fallback func(any) (any, error)) ([]byte, error) {
	n, err := normalize(v, fallback)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(n); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// normalize rewrites a dict-form value into plain JSON-native shapes,
// preserving key order through json.RawMessage slices for ordered maps
// and consulting fallback for anything foreign.
func normalize(v any, fallback func(any) (any, error)) (any, error) {
	switch t := v.(type) {
	case nil, bool, string, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, []byte, []string:
		return v, nil
	case *orderedmap.OrderedMap:
		out := orderedmap.New()
		for _, k := range t.Keys() {
			item, _ := t.Get(k)
			n, err := normalize(item, fallback)
			if err != nil {
				return nil, err
			}
			out.Set(k, n)
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			n, err := normalize(item, fallback)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			n, err := normalize(item, fallback)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	default:
		if fallback == nil {
			return v, nil
		}
		converted, err := fallback(v)
		if err != nil {
			return nil, err
		}
		if reflect.DeepEqual(converted, v) {
			return converted, nil
		}
		return normalize(converted, fallback)
	}
}

// DefaultTypeConverter handles the values the encoders cannot render
// natively. Decimals keep their textual precision as json.Number;
// named scalar types collapse to their underlying kind.
func DefaultTypeConverter(v any) (any, error) {
	switch t := v.(type) {
	case *apd.Decimal:
		if t == nil {
			return nil, nil
		}
		return json.Number(t.Text('G')), nil
	case apd.Decimal:
		return json.Number(t.Text('G')), nil
	case fmt.Stringer:
		return t.String(), nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	}
	return nil, fmt.Errorf("no JSON representation for %T", v)
}

// JSONBytes serializes a model to JSON. The dict form is built first,
// then pruned of any containers a comment strip may have emptied, and
// finally rendered by the selected encoder.
func JSONBytes(m any, opts ...SerializeOption) ([]byte, error) {
	o := applySerializeOptions(opts)
	d, err := dictWithOptions(m, o)
	if err != nil {
		return nil, err
	}
	var v any = d
	if o.excludeComments {
		v = PruneEmpty(v)
		if v == nil {
			v = orderedmap.New()
		}
	}
	enc, err := resolveEncoder(o)
	if err != nil {
		return nil, err
	}
	fallback := o.fallback
	if fallback == nil {
		fallback = DefaultTypeConverter
	}
	data, err := enc(v, fallback)
	if err != nil {
		return nil, err
	}
	if o.indent > 0 {
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", strings.Repeat(" ", o.indent)); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return data, nil
}

// JSON serializes a model to a JSON string.
func JSON(m any, opts ...SerializeOption) (string, error) {
	data, err := JSONBytes(m, opts...)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
