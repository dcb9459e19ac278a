package fhirmodel

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
)

// fieldIssue is a single coercion failure raised inside assignValue,
// before it is anchored to a field location.
type fieldIssue struct {
	msg string
	typ string
}

func (e *fieldIssue) Error() string { return e.msg }

func typeIssue(format string, args ...any) error {
	return &fieldIssue{msg: fmt.Sprintf(format, args...), typ: ErrTypeType}
}

func valueIssue(format string, args ...any) error {
	return &fieldIssue{msg: fmt.Sprintf(format, args...), typ: ErrTypeValue}
}

// Populate fills a model instance from a value mapping. m must be a
// pointer to a model struct. The input mapping is never mutated; the
// type tag is checked against the declared resource type, pre
// validators run first, fields populate in canonical order, unknown
// keys fail unless extras are allowed, and post validators run last.
// All failures aggregate into a single *ValidationError.
func Populate(m any, values map[string]any) error {
	meta, rv, err := metadataOf(m)
	if err != nil {
		return err
	}
	if !rv.CanSet() {
		return fmt.Errorf("fhirmodel: Populate requires a pointer to a model struct, got %T", m)
	}
	cfg := ActiveConfig()
	return populate(rv, meta, values, &cfg)
}

func populate(rv reflect.Value, meta *Metadata, values map[string]any, cfg *Config) error {
	var errs []FieldError

	vals := make(map[string]any, len(values))
	for k, v := range values {
		vals[k] = v
	}

	// The type tag is bookkeeping, not an element. It is removed
	// before field population and checked against the declared tag
	// under either accepted spelling; a null tag counts as absent.
	for _, key := range []string{"resourceType", "resource_type"} {
		raw, ok := vals[key]
		if !ok {
			continue
		}
		delete(vals, key)
		if raw == nil {
			continue
		}
		got, _ := raw.(string)
		if got != meta.ResourceType {
			return &ValidationError{
				Model: fqName(meta.Type),
				Errors: []FieldError{{
					Loc:  []string{"resource_type"},
					Msg:  fmt.Sprintf("%s must validate against %q resource type, but got %q", fqName(meta.Type), meta.ResourceType, got),
					Type: ErrTypeWrongResourceType,
				}},
			}
		}
	}

	pre, post := hooksFor(meta.Type)
	for _, h := range pre {
		out, err := h.fn(meta.Type, vals)
		if err != nil {
			return &ValidationError{
				Model:  fqName(meta.Type),
				Errors: []FieldError{rootFieldError(err)},
			}
		}
		if out != nil {
			vals = out
		}
	}

	used := make(map[string]bool, len(vals))
	for i := range meta.Fields {
		f := &meta.Fields[i]
		fv := rv.FieldByIndex(f.Index)

		raw, ok := vals[f.Alias]
		key := f.Alias
		if !ok && cfg.PopulateByFieldName {
			raw, ok = vals[f.Name]
			key = f.Name
		}
		if ok {
			used[key] = true
			if err := assignValue(fv, raw, cfg); err != nil {
				errs = appendFieldErrors(errs, key, err)
			}
		}

		if f.Primitive && f.Element {
			annKey := "_" + f.Alias
			rawAnn, okAnn := vals[annKey]
			if !okAnn && cfg.PopulateByFieldName {
				annKey = "_" + f.Name
				rawAnn, okAnn = vals[annKey]
			}
			if okAnn {
				used[annKey] = true
				if err := applyAnnotation(fv, f, rawAnn, cfg); err != nil {
					errs = appendFieldErrors(errs, annKey, err)
				}
			}
		}
	}

	if !cfg.AllowExtra {
		var extras []string
		for k := range vals {
			if !used[k] {
				extras = append(extras, k)
			}
		}
		sort.Strings(extras)
		for _, k := range extras {
			errs = append(errs, FieldError{
				Loc:  []string{k},
				Msg:  cfg.ExtraFieldMessage,
				Type: ErrTypeExtraField,
			})
		}
	}

	failed := len(errs) > 0
	for _, h := range post {
		if failed && h.skipOnFailure {
			continue
		}
		out, err := h.fn(meta.Type, vals)
		if err != nil {
			errs = append(errs, rootFieldError(err))
			failed = true
			continue
		}
		if out == nil {
			continue
		}
		// A post validator may rewrite the mapping; changed keys are
		// re-applied to the instance, removed keys zero their field.
		for i := range meta.Fields {
			f := &meta.Fields[i]
			fv := rv.FieldByIndex(f.Index)
			raw, ok := out[f.Alias]
			if !ok {
				if _, had := vals[f.Alias]; had {
					fv.Set(reflect.Zero(fv.Type()))
				}
				continue
			}
			if prev, had := vals[f.Alias]; had && reflect.DeepEqual(prev, raw) {
				continue
			}
			if err := assignValue(fv, raw, cfg); err != nil {
				errs = appendFieldErrors(errs, f.Alias, err)
				failed = true
			}
		}
		vals = out
	}

	if len(errs) > 0 {
		return &ValidationError{Model: fqName(meta.Type), Errors: errs}
	}
	return nil
}

func rootFieldError(err error) FieldError {
	var ve *ValidationError
	if errors.As(err, &ve) && len(ve.Errors) == 1 {
		fe := ve.Errors[0]
		fe.Loc = append([]string{RootLoc}, fe.Loc...)
		return fe
	}
	return FieldError{Loc: []string{RootLoc}, Msg: err.Error(), Type: ErrTypeValue}
}

func appendFieldErrors(errs []FieldError, key string, err error) []FieldError {
	var ve *ValidationError
	if errors.As(err, &ve) {
		for _, fe := range ve.Errors {
			fe.Loc = append([]string{key}, fe.Loc...)
			errs = append(errs, fe)
		}
		return errs
	}
	var fi *fieldIssue
	if errors.As(err, &fi) {
		return append(errs, FieldError{Loc: []string{key}, Msg: fi.msg, Type: fi.typ})
	}
	return append(errs, FieldError{Loc: []string{key}, Msg: err.Error(), Type: ErrTypeValue})
}

// assignValue coerces a decoded value into a field. Nested model
// structs recurse through populate; slice and map entries carry their
// index or key in the error location.
func assignValue(fv reflect.Value, raw any, cfg *Config) error {
	ft := fv.Type()

	if raw == nil {
		fv.Set(reflect.Zero(ft))
		return nil
	}

	// Same-type values short-circuit the coercion ladder.
	rt := reflect.TypeOf(raw)
	if rt == ft {
		fv.Set(reflect.ValueOf(raw))
		return nil
	}

	elemType := ft
	if elemType.Kind() == reflect.Pointer {
		elemType = elemType.Elem()
	}

	if ft.Kind() != reflect.Slice && isPrimitiveType(elemType) {
		var p Primitive
		if ft.Kind() == reflect.Pointer {
			if fv.IsNil() {
				fv.Set(reflect.New(elemType))
			}
			p = fv.Interface().(Primitive)
		} else {
			p = fv.Addr().Interface().(Primitive)
		}
		if err := p.SetPrimitiveValue(raw); err != nil {
			return &fieldIssue{msg: err.Error(), typ: ErrTypeValue}
		}
		return nil
	}

	switch ft.Kind() {
	case reflect.Pointer:
		if fv.IsNil() {
			fv.Set(reflect.New(elemType))
		}
		return assignValue(fv.Elem(), raw, cfg)

	case reflect.Struct:
		if meta, err := MetadataFor(ft); err == nil {
			m, ok := raw.(map[string]any)
			if !ok {
				return typeIssue("expected an object for %s, got %T", ft.Name(), raw)
			}
			return populate(fv, meta, m, cfg)
		}
		if rt.AssignableTo(ft) {
			fv.Set(reflect.ValueOf(raw))
			return nil
		}
		return typeIssue("cannot assign %T to %s", raw, ft)

	case reflect.Slice:
		items, ok := raw.([]any)
		if !ok {
			if rt.AssignableTo(ft) {
				fv.Set(reflect.ValueOf(raw))
				return nil
			}
			return typeIssue("expected a list, got %T", raw)
		}
		out := reflect.MakeSlice(ft, len(items), len(items))
		var errs []FieldError
		for i, item := range items {
			if err := assignValue(out.Index(i), item, cfg); err != nil {
				errs = appendFieldErrors(errs, strconv.Itoa(i), err)
			}
		}
		if len(errs) > 0 {
			return &ValidationError{Model: ft.String(), Errors: errs}
		}
		fv.Set(out)
		return nil

	case reflect.Map:
		if ft.Key().Kind() != reflect.String {
			return typeIssue("unsupported map key type %s", ft.Key())
		}
		m, ok := raw.(map[string]any)
		if !ok {
			if rt.AssignableTo(ft) {
				fv.Set(reflect.ValueOf(raw))
				return nil
			}
			return typeIssue("expected an object, got %T", raw)
		}
		out := reflect.MakeMapWithSize(ft, len(m))
		var errs []FieldError
		for k, item := range m {
			ev := reflect.New(ft.Elem()).Elem()
			if err := assignValue(ev, item, cfg); err != nil {
				errs = appendFieldErrors(errs, k, err)
				continue
			}
			out.SetMapIndex(reflect.ValueOf(k).Convert(ft.Key()), ev)
		}
		if len(errs) > 0 {
			return &ValidationError{Model: ft.String(), Errors: errs}
		}
		fv.Set(out)
		return nil

	case reflect.String:
		s, ok := raw.(string)
		if !ok {
			return typeIssue("expected a string, got %T", raw)
		}
		fv.SetString(s)
		return nil

	case reflect.Bool:
		b, ok := raw.(bool)
		if !ok {
			return typeIssue("expected a bool, got %T", raw)
		}
		fv.SetBool(b)
		return nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := toInt64(raw)
		if err != nil {
			return err
		}
		if fv.OverflowInt(n) {
			return valueIssue("%d overflows %s", n, ft)
		}
		fv.SetInt(n)
		return nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := toInt64(raw)
		if err != nil {
			return err
		}
		if n < 0 || fv.OverflowUint(uint64(n)) {
			return valueIssue("%d overflows %s", n, ft)
		}
		fv.SetUint(uint64(n))
		return nil

	case reflect.Float32, reflect.Float64:
		f, err := toFloat64(raw)
		if err != nil {
			return err
		}
		fv.SetFloat(f)
		return nil

	default:
		if rt.AssignableTo(ft) {
			fv.Set(reflect.ValueOf(raw))
			return nil
		}
		return typeIssue("cannot assign %T to %s", raw, ft)
	}
}

func toInt64(raw any) (int64, error) {
	switch t := raw.(type) {
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case int64:
		return t, nil
	case float64:
		if t != float64(int64(t)) {
			return 0, valueIssue("expected an integer, got %v", t)
		}
		return int64(t), nil
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return 0, valueIssue("expected an integer, got %q", t.String())
		}
		return n, nil
	default:
		return 0, typeIssue("expected an integer, got %T", raw)
	}
}

func toFloat64(raw any) (float64, error) {
	switch t := raw.(type) {
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case float64:
		return t, nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, valueIssue("expected a number, got %q", t.String())
		}
		return f, nil
	default:
		return 0, typeIssue("expected a number, got %T", raw)
	}
}

// applyAnnotation populates a primitive field's id/extension record
// from the underscore-prefixed wire key.
func applyAnnotation(fv reflect.Value, f *Field, raw any, cfg *Config) error {
	if raw == nil {
		return nil
	}
	if f.List {
		items, ok := raw.([]any)
		if !ok {
			return typeIssue("expected a list of annotations, got %T", raw)
		}
		if fv.IsNil() || fv.Len() < len(items) {
			// Annotations may outnumber values; grow with empty
			// primitives so positions line up.
			grown := reflect.MakeSlice(fv.Type(), len(items), len(items))
			for i := 0; i < fv.Len(); i++ {
				grown.Index(i).Set(fv.Index(i))
			}
			for i := fv.Len(); i < len(items); i++ {
				if fv.Type().Elem().Kind() == reflect.Pointer {
					grown.Index(i).Set(reflect.New(fv.Type().Elem().Elem()))
				}
			}
			fv.Set(grown)
		}
		var errs []FieldError
		for i, item := range items {
			if item == nil {
				continue
			}
			if err := applyOneAnnotation(fv.Index(i), item, cfg); err != nil {
				errs = appendFieldErrors(errs, strconv.Itoa(i), err)
			}
		}
		if len(errs) > 0 {
			return &ValidationError{Model: fv.Type().String(), Errors: errs}
		}
		return nil
	}
	return applyOneAnnotation(fv, raw, cfg)
}

func applyOneAnnotation(fv reflect.Value, raw any, cfg *Config) error {
	m, ok := raw.(map[string]any)
	if !ok {
		return typeIssue("expected an annotation object, got %T", raw)
	}
	var p Primitive
	if fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			fv.Set(reflect.New(fv.Type().Elem()))
		}
		p = fv.Interface().(Primitive)
	} else {
		p = fv.Addr().Interface().(Primitive)
	}
	elem := p.EnsureElement()
	meta, rv, err := metadataOf(elem)
	if err != nil {
		return err
	}
	return populate(rv, meta, m, cfg)
}

// Set assigns one field of a model instance by internal name or wire
// alias, re-running field validation when the configuration asks for
// it. Failures come back as a *ValidationError anchored at the field.
func Set(m any, field string, value any) error {
	meta, rv, err := metadataOf(m)
	if err != nil {
		return err
	}
	if !rv.CanSet() {
		return fmt.Errorf("fhirmodel: Set requires a pointer to a model struct, got %T", m)
	}
	f, ok := meta.FieldByName(field)
	if !ok {
		f, ok = meta.FieldByAlias(field)
	}
	if !ok {
		return &ValidationError{
			Model: fqName(meta.Type),
			Errors: []FieldError{{
				Loc:  []string{field},
				Msg:  fmt.Sprintf("no field %q on %s", field, fqName(meta.Type)),
				Type: ErrTypeValue,
			}},
		}
	}
	fv := rv.FieldByIndex(f.Index)
	cfg := ActiveConfig()
	if !cfg.ValidateAssignment {
		if value == nil {
			fv.Set(reflect.Zero(fv.Type()))
			return nil
		}
		if rt := reflect.TypeOf(value); rt.AssignableTo(fv.Type()) {
			fv.Set(reflect.ValueOf(value))
			return nil
		}
	}
	if err := assignValue(fv, value, &cfg); err != nil {
		ve := &ValidationError{Model: fqName(meta.Type)}
		ve.Errors = appendFieldErrors(nil, f.Alias, err)
		return ve
	}
	return nil
}
