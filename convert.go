package fhirmodel

import (
	"encoding/json"
	"fmt"
	"reflect"
)

var jsonNumberType = reflect.TypeOf(json.Number(""))

// convertValue turns a single field value into its dict-form
// representation. Returns nil for absent values and for containers
// that collapse to empty; nil entries nested inside lists and maps
// survive as explicit nulls.
func convertValue(rv reflect.Value, o *serializeOptions) (any, error) {
	if !rv.IsValid() {
		return nil, nil
	}
	for rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		if p, ok := rv.Interface().(Primitive); ok {
			s, present := p.PrimitiveValue()
			if !present {
				return nil, nil
			}
			return s, nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Struct:
		if p, ok := primitiveOf(rv); ok {
			s, present := p.PrimitiveValue()
			if !present {
				return nil, nil
			}
			return s, nil
		}
		if meta, err := MetadataFor(rv.Type()); err == nil {
			d, err := dictValue(rv, meta, o, false)
			if err != nil {
				return nil, err
			}
			if len(d.Keys()) == 0 {
				return nil, nil
			}
			return d, nil
		}
		// Opaque struct; the encoder fallback decides its fate.
		return rv.Interface(), nil

	case reflect.Map:
		if rv.Len() == 0 {
			return nil, nil
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			v, err := convertValue(iter.Value(), o)
			if err != nil {
				return nil, err
			}
			out[fmt.Sprint(iter.Key().Interface())] = v
		}
		return out, nil

	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return rv.Interface(), nil
		}
		n := rv.Len()
		if n == 0 {
			return nil, nil
		}
		out := make([]any, n)
		for i := 0; i < n; i++ {
			v, err := convertValue(rv.Index(i), o)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil

	case reflect.String:
		if rv.Type() == jsonNumberType {
			return rv.Interface(), nil
		}
		if o.useEnumValues && rv.Type().PkgPath() != "" {
			return rv.String(), nil
		}
		return rv.Interface(), nil

	case reflect.Bool:
		if o.useEnumValues && rv.Type().PkgPath() != "" {
			return rv.Bool(), nil
		}
		return rv.Interface(), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if o.useEnumValues && rv.Type().PkgPath() != "" {
			return rv.Int(), nil
		}
		return rv.Interface(), nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if o.useEnumValues && rv.Type().PkgPath() != "" {
			return rv.Uint(), nil
		}
		return rv.Interface(), nil

	case reflect.Float32, reflect.Float64:
		if o.useEnumValues && rv.Type().PkgPath() != "" {
			return rv.Float(), nil
		}
		return rv.Interface(), nil

	default:
		return rv.Interface(), nil
	}
}
