package fhirmodel

import (
	"reflect"
	"strings"

	"github.com/iancoleman/orderedmap"
)

// Dict produces the ordered wire mapping of a model instance.
//
// Resources emit resourceType first; element fields follow in canonical
// order under their wire aliases (internal names with WithByAlias
// false); primitive annotations are emitted under the underscore-prefixed
// key; comments come last. Absent values are omitted unless
// WithExcludeNone(false); empty containers are never emitted.
func Dict(m any, opts ...SerializeOption) (*orderedmap.OrderedMap, error) {
	o := applySerializeOptions(opts)
	return dictWithOptions(m, o)
}

// YAMLDict produces the mapping handed to the YAML encoder. The type
// tag is excluded from field treatment wholesale and re-injected for
// genuine resources only, so the result is identical in shape to Dict.
func YAMLDict(m any, opts ...SerializeOption) (*orderedmap.OrderedMap, error) {
	o := applySerializeOptions(opts)
	return dictWithOptions(m, o)
}

func dictWithOptions(m any, o *serializeOptions) (*orderedmap.OrderedMap, error) {
	if o.excludeErr != nil {
		return nil, o.excludeErr
	}
	meta, rv, err := metadataOf(m)
	if err != nil {
		return nil, err
	}
	if len(o.legacy) > 0 {
		l := logger()
		l.Warn().
			Str("model", meta.Type.Name()).
			Msgf("ignoring deprecated serialization options: %s; only by-alias, exclude-none, exclude-comments and encoder settings are honored",
				strings.Join(o.legacy, ", "))
	}
	return dictValue(rv, meta, o, true)
}

func dictValue(rv reflect.Value, meta *Metadata, o *serializeOptions, top bool) (*orderedmap.OrderedMap, error) {
	out := orderedmap.New()

	if meta.IsResource {
		out.Set("resourceType", meta.ResourceType)
	}

	for i := range meta.Fields {
		f := &meta.Fields[i]
		if !f.Element {
			continue
		}
		if top && o.exclude != nil {
			if _, ok := o.exclude[f.Name]; ok {
				continue
			}
			if _, ok := o.exclude[f.Alias]; ok {
				continue
			}
		}
		key := f.Alias
		if !o.byAlias {
			key = f.Name
		}
		fv := rv.FieldByIndex(f.Index)

		if f.Primitive {
			var err error
			if f.List {
				err = emitPrimitiveList(out, key, fv, o)
			} else {
				err = emitPrimitive(out, key, fv, o)
			}
			if err != nil {
				return nil, err
			}
			continue
		}

		if isNilable(fv.Kind()) && fv.IsNil() {
			// Nil slices and maps are empty containers, treated as
			// absent; nil pointers are explicit nulls.
			if fv.Kind() == reflect.Pointer && !o.excludeNone {
				out.Set(key, nil)
			}
			continue
		}

		v, err := convertValue(fv, o)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		out.Set(key, v)
	}

	if meta.Comments != nil && !o.excludeComments {
		cv := rv.FieldByIndex(meta.Comments.Index)
		if cv.Kind() == reflect.Slice && cv.Len() > 0 {
			out.Set(meta.Comments.Alias, cv.Interface())
		}
	}

	return out, nil
}

func isNilable(k reflect.Kind) bool {
	switch k {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
		return true
	default:
		return false
	}
}

// primitiveOf resolves a field value to its Primitive interface.
// Returns false for nil pointers and non-primitive types.
func primitiveOf(fv reflect.Value) (Primitive, bool) {
	if fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			return nil, false
		}
		p, ok := fv.Interface().(Primitive)
		return p, ok
	}
	if fv.CanAddr() {
		p, ok := fv.Addr().Interface().(Primitive)
		return p, ok
	}
	tmp := reflect.New(fv.Type())
	tmp.Elem().Set(fv)
	p, ok := tmp.Interface().(Primitive)
	return p, ok
}

func emitPrimitive(out *orderedmap.OrderedMap, key string, fv reflect.Value, o *serializeOptions) error {
	p, ok := primitiveOf(fv)
	if !ok {
		if !o.excludeNone {
			out.Set(key, nil)
		}
		return nil
	}
	if s, present := p.PrimitiveValue(); present {
		out.Set(key, s)
	} else if !o.excludeNone {
		out.Set(key, nil)
	}
	if ann := p.PrimitiveElement(); ann != nil {
		v, err := convertValue(reflect.ValueOf(ann), o)
		if err != nil {
			return err
		}
		if v != nil {
			out.Set("_"+key, v)
		}
	}
	return nil
}

// emitPrimitiveList writes a list of primitives as two aligned arrays:
// the scalar values under the field key and the annotations under the
// underscore-prefixed key, with nulls for gaps. Either array is omitted
// when it carries no content.
func emitPrimitiveList(out *orderedmap.OrderedMap, key string, fv reflect.Value, o *serializeOptions) error {
	n := fv.Len()
	if n == 0 {
		return nil
	}
	values := make([]any, n)
	anns := make([]any, n)
	anyValue, anyAnn := false, false
	for i := 0; i < n; i++ {
		p, ok := primitiveOf(fv.Index(i))
		if !ok {
			continue
		}
		if s, present := p.PrimitiveValue(); present {
			values[i] = s
			anyValue = true
		}
		if ann := p.PrimitiveElement(); ann != nil {
			v, err := convertValue(reflect.ValueOf(ann), o)
			if err != nil {
				return err
			}
			if v != nil {
				anns[i] = v
				anyAnn = true
			}
		}
	}
	if anyValue {
		out.Set(key, values)
	}
	if anyAnn {
		out.Set("_"+key, anns)
	}
	return nil
}
