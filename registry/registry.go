// Package registry maps FHIR type names to registered Go model types
// and constructs instances from raw payloads by name.
package registry

import (
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"
	"sync"

	fhirmodel "github.com/gofhir/model"
	"github.com/gofhir/model/loader"
)

// LookupError reports a type name with no registration.
type LookupError struct {
	Name string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("no model type registered for %q", e.Name)
}

var (
	mu    sync.RWMutex
	models = map[string]reflect.Type{}
)

// Register binds a FHIR type name to a model type, given as a value or
// pointer prototype. The prototype must be a model struct; an existing
// registration for the same name is replaced.
func Register(name string, prototype any) error {
	if name == "" {
		return fmt.Errorf("registry: empty type name")
	}
	t := reflect.TypeOf(prototype)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return fmt.Errorf("registry: prototype for %q must be a model struct, got %T", name, prototype)
	}
	if _, err := fhirmodel.MetadataFor(t); err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	mu.Lock()
	defer mu.Unlock()
	models[name] = t
	return nil
}

// MustRegister is Register for init-time use; it panics on error.
func MustRegister(name string, prototype any) {
	if err := Register(name, prototype); err != nil {
		panic(err)
	}
}

// Lookup returns the registered model type for a FHIR type name.
func Lookup(name string) (reflect.Type, bool) {
	mu.RLock()
	defer mu.RUnlock()
	t, ok := models[name]
	return t, ok
}

// Names lists the registered type names in sorted order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(models))
	for name := range models {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Construct builds a new instance of the named model type from src and
// returns a pointer to it. src may be a value mapping, raw JSON or
// YAML bytes, a payload string, or a filesystem path.
func Construct(name string, src any) (any, error) {
	t, ok := Lookup(name)
	if !ok {
		return nil, &LookupError{Name: name}
	}
	values, err := resolveSource(src)
	if err != nil {
		return nil, err
	}
	out := reflect.New(t).Interface()
	if err := fhirmodel.Populate(out, values); err != nil {
		return nil, err
	}
	return out, nil
}

// ConstructAny builds an instance of whatever resource type a raw JSON
// payload declares.
func ConstructAny(data []byte) (any, error) {
	name := loader.PeekResourceType(data)
	if name == "" {
		return nil, fhirmodel.NewDecodeError(fmt.Errorf("payload declares no resourceType"))
	}
	return Construct(name, data)
}

func resolveSource(src any) (map[string]any, error) {
	switch t := src.(type) {
	case map[string]any:
		return t, nil
	case []byte:
		return loader.LoadBytes(t, loader.ContentTypeUnknown)
	case string:
		if looksLikePath(t) {
			return loader.LoadFile(t)
		}
		return loader.LoadBytes([]byte(t), loader.ContentTypeUnknown)
	default:
		return nil, fmt.Errorf("registry: unsupported source type %T", src)
	}
}

// looksLikePath distinguishes a filesystem path from an inline
// payload. Anything that opens like a JSON or YAML document is a
// payload; otherwise the file must exist.
func looksLikePath(s string) bool {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return false
	}
	switch trimmed[0] {
	case '{', '[':
		return false
	}
	if strings.ContainsAny(trimmed, "\n") {
		return false
	}
	_, err := os.Stat(trimmed)
	return err == nil
}
