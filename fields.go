package fhirmodel

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/gofhir/model/cache"
)

// Field describes one declared field of a model type.
type Field struct {
	// Name is the Go struct field name.
	Name string

	// Alias is the external wire key.
	Alias string

	// Index is the reflect index path into the struct, through any
	// embedded bases.
	Index []int

	// Type is the declared field type.
	Type reflect.Type

	// Element marks a semantic element field, as opposed to
	// bookkeeping fields such as the comment list.
	Element bool

	// Primitive marks a field whose type (or slice element type)
	// implements Primitive.
	Primitive bool

	// List marks a slice-typed field.
	List bool
}

// Metadata is the introspected shape of a model type: its type tag,
// resource-base classification and declared fields in canonical order.
// Metadata is computed once per type and memoized.
type Metadata struct {
	// Type is the model struct type (not a pointer).
	Type reflect.Type

	// ResourceType is the declared type tag.
	ResourceType string

	// IsResource marks genuine top-level resources.
	IsResource bool

	// Fields holds all declared fields in canonical (declaration)
	// order, embedded bases first.
	Fields []Field

	// Comments points into Fields at the comment bookkeeping field,
	// if the type carries one.
	Comments *Field

	byAlias map[string]int
	byName  map[string]int

	elements []string
}

var (
	primitiveIface = reflect.TypeOf((*Primitive)(nil)).Elem()
	typerIface     = reflect.TypeOf((*ResourceTyper)(nil)).Elem()
	resourceBase   = reflect.TypeOf(Resource{})

	// metaCache memoizes per-type metadata; never invalidated, large
	// enough that eviction is a non-event for realistic model sets.
	metaCache = cache.New[reflect.Type, *Metadata](1024)

	// resourceCache memoizes the resource-base classification.
	resourceCache = cache.New[reflect.Type, bool](1024)
)

// MetadataFor returns the memoized metadata for a model struct type.
// It fails when t is not a struct or declares no fhir-tagged fields.
func MetadataFor(t reflect.Type) (*Metadata, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("fhirmodel: %s is not a model struct", t)
	}
	if m, ok := metaCache.Get(t); ok {
		return m, nil
	}
	m, err := buildMetadata(t)
	if err != nil {
		return nil, err
	}
	// First write wins; concurrent builders produce identical values.
	return metaCache.GetOrSet(t, func() *Metadata { return m }), nil
}

// metadataOf resolves metadata from a model value or pointer.
func metadataOf(m any) (*Metadata, reflect.Value, error) {
	rv := reflect.ValueOf(m)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, reflect.Value{}, fmt.Errorf("fhirmodel: nil model")
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil, reflect.Value{}, fmt.Errorf("fhirmodel: nil model")
	}
	meta, err := MetadataFor(rv.Type())
	if err != nil {
		return nil, reflect.Value{}, err
	}
	return meta, rv, nil
}

// IsResourceType reports whether t descends from the Resource base by
// walking its embedding chain. The answer is memoized per type.
func IsResourceType(t reflect.Type) bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return false
	}
	if v, ok := resourceCache.Get(t); ok {
		return v
	}
	return resourceCache.GetOrSet(t, func() bool { return embedsResource(t) })
}

func embedsResource(t reflect.Type) bool {
	if t == resourceBase {
		return true
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.Anonymous {
			continue
		}
		ft := f.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct && embedsResource(ft) {
			return true
		}
	}
	return false
}

func buildMetadata(t reflect.Type) (*Metadata, error) {
	m := &Metadata{
		Type:         t,
		ResourceType: declaredResourceType(t),
		IsResource:   IsResourceType(t),
		byAlias:      make(map[string]int),
		byName:       make(map[string]int),
	}
	collectFields(t, nil, m)
	if len(m.Fields) == 0 {
		return nil, fmt.Errorf("fhirmodel: %s declares no fhir fields", t)
	}
	for i := range m.Fields {
		f := &m.Fields[i]
		m.byAlias[f.Alias] = i
		m.byName[f.Name] = i
		if f.Element {
			m.elements = append(m.elements, f.Name)
		}
		if !f.Element && f.Alias == CommentsFieldName {
			m.Comments = f
		}
	}
	return m, nil
}

// declaredResourceType resolves the fixed type tag: the ResourceTyper
// method when implemented, the Go type name otherwise.
func declaredResourceType(t reflect.Type) string {
	pt := reflect.PointerTo(t)
	if pt.Implements(typerIface) {
		return reflect.New(t).Interface().(ResourceTyper).ResourceType()
	}
	if t.Implements(typerIface) {
		return reflect.New(t).Elem().Interface().(ResourceTyper).ResourceType()
	}
	return t.Name()
}

func collectFields(t reflect.Type, prefix []int, m *Metadata) {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		index := append(append([]int(nil), prefix...), i)

		if sf.Anonymous {
			ft := sf.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct && sf.Tag.Get("fhir") == "" {
				collectFields(ft, index, m)
				continue
			}
		}

		tag, ok := sf.Tag.Lookup("fhir")
		if !ok || tag == "-" || !sf.IsExported() {
			continue
		}

		parts := strings.Split(tag, ",")
		alias := parts[0]
		if alias == "" {
			alias = strcase.ToLowerCamel(sf.Name)
		}
		f := Field{
			Name:  sf.Name,
			Alias: alias,
			Index: index,
			Type:  sf.Type,
		}
		for _, opt := range parts[1:] {
			if opt == "element" {
				f.Element = true
			}
		}
		ft := sf.Type
		if ft.Kind() == reflect.Slice {
			f.List = true
			ft = ft.Elem()
		}
		f.Primitive = isPrimitiveType(ft)
		m.Fields = append(m.Fields, f)
	}
}

func isPrimitiveType(t reflect.Type) bool {
	if t.Implements(primitiveIface) {
		return true
	}
	if t.Kind() != reflect.Pointer && reflect.PointerTo(t).Implements(primitiveIface) {
		return true
	}
	return false
}

// ElementSequence returns the internal names of the semantic element
// fields of a model, in canonical wire order.
func ElementSequence(m any) ([]string, error) {
	meta, _, err := metadataOf(m)
	if err != nil {
		return nil, err
	}
	return meta.ElementSequence(), nil
}

// ElementSequence returns the internal names of the semantic element
// fields in canonical wire order.
func (m *Metadata) ElementSequence() []string {
	return append([]string(nil), m.elements...)
}

// AliasMapping returns the wire alias for each element field name.
func (m *Metadata) AliasMapping() map[string]string {
	out := make(map[string]string, len(m.elements))
	for _, name := range m.elements {
		out[name] = m.Fields[m.byName[name]].Alias
	}
	return out
}

// FieldByAlias returns the declared field with the given wire alias.
func (m *Metadata) FieldByAlias(alias string) (*Field, bool) {
	i, ok := m.byAlias[alias]
	if !ok {
		return nil, false
	}
	return &m.Fields[i], true
}

// FieldByName returns the declared field with the given Go name.
func (m *Metadata) FieldByName(name string) (*Field, bool) {
	i, ok := m.byName[name]
	if !ok {
		return nil, false
	}
	return &m.Fields[i], true
}

// fqName returns the fully-qualified type name used in error messages.
func fqName(t reflect.Type) string {
	if t.PkgPath() == "" {
		return t.Name()
	}
	return t.PkgPath() + "." + t.Name()
}
