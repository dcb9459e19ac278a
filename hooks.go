package fhirmodel

import (
	"fmt"
	"reflect"
	"sync"
)

// RootValidator transforms or checks the whole value mapping of one
// model type during Populate. Pre validators run before field
// population, post validators after. A validator may return a modified
// mapping; returning an error aborts construction with the error
// attached at the synthetic root location.
type RootValidator func(t reflect.Type, values map[string]any) (map[string]any, error)

type hookEntry struct {
	name          string
	fn            RootValidator
	skipOnFailure bool
}

type hookSet struct {
	pre  []hookEntry
	post []hookEntry
}

var (
	hooksMu sync.RWMutex
	hooks   = map[reflect.Type]*hookSet{}
)

// HookOption configures a validator registration.
type HookOption func(*hookOptions)

type hookOptions struct {
	pre           bool
	skipOnFailure bool
	allowReuse    bool
	index         int
}

// WithPre registers the validator to run before field population
// instead of after.
func WithPre() HookOption {
	return func(o *hookOptions) {
		o.pre = true
	}
}

// WithSkipOnFailure lets a post validator stay silent when field
// population already failed. Without it, post validators run even on a
// failed instance.
func WithSkipOnFailure() HookOption {
	return func(o *hookOptions) {
		o.skipOnFailure = true
	}
}

// WithAllowReuse permits re-registering a validator name on the same
// type; the new function replaces the old one in place.
func WithAllowReuse() HookOption {
	return func(o *hookOptions) {
		o.allowReuse = true
	}
}

// WithIndex inserts the validator at the given position in its run
// list instead of appending.
func WithIndex(i int) HookOption {
	return func(o *hookOptions) {
		o.index = i
	}
}

// AddRootValidator registers a whole-object validator for a model
// type. The name must not collide with a method or declared field of
// the type, and must not already be registered unless WithAllowReuse
// is given. Registration failures leave the hook table untouched.
func AddRootValidator(model any, name string, fn RootValidator, opts ...HookOption) error {
	o := &hookOptions{index: -1}
	for _, opt := range opts {
		opt(o)
	}
	if fn == nil {
		return &ConfigError{Msg: "root validator function must not be nil"}
	}
	if name == "" {
		return &ConfigError{Msg: "root validator name must not be empty"}
	}

	t := reflect.TypeOf(model)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return &ConfigError{Msg: fmt.Sprintf("root validator target must be a model struct, got %T", model)}
	}
	meta, err := MetadataFor(t)
	if err != nil {
		return &ConfigError{Msg: err.Error()}
	}

	// Method lookup on the pointer type covers promoted methods from
	// embedded bases.
	if _, ok := reflect.PointerTo(t).MethodByName(name); ok {
		return &ConfigError{Msg: fmt.Sprintf("root validator %q collides with a method of %s", name, fqName(t))}
	}
	if _, ok := meta.FieldByName(name); ok {
		return &ConfigError{Msg: fmt.Sprintf("root validator %q collides with a field of %s", name, fqName(t))}
	}
	if _, ok := meta.FieldByAlias(name); ok {
		return &ConfigError{Msg: fmt.Sprintf("root validator %q collides with a field alias of %s", name, fqName(t))}
	}

	hooksMu.Lock()
	defer hooksMu.Unlock()

	hs := hooks[t]
	if hs == nil {
		hs = &hookSet{}
	}
	list := &hs.post
	if o.pre {
		list = &hs.pre
	}
	for i := range *list {
		if (*list)[i].name == name {
			if !o.allowReuse {
				return &ConfigError{Msg: fmt.Sprintf("root validator %q already registered on %s", name, fqName(t))}
			}
			(*list)[i].fn = fn
			(*list)[i].skipOnFailure = o.skipOnFailure
			hooks[t] = hs
			return nil
		}
	}
	entry := hookEntry{name: name, fn: fn, skipOnFailure: o.skipOnFailure}
	if o.index >= 0 && o.index < len(*list) {
		*list = append((*list)[:o.index], append([]hookEntry{entry}, (*list)[o.index:]...)...)
	} else {
		*list = append(*list, entry)
	}
	hooks[t] = hs
	return nil
}

// RemoveRootValidator drops a registered validator. It reports whether
// a validator with that name existed.
func RemoveRootValidator(model any, name string) bool {
	t := reflect.TypeOf(model)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	hooksMu.Lock()
	defer hooksMu.Unlock()
	hs := hooks[t]
	if hs == nil {
		return false
	}
	removed := false
	filter := func(list []hookEntry) []hookEntry {
		out := list[:0]
		for _, e := range list {
			if e.name == name {
				removed = true
				continue
			}
			out = append(out, e)
		}
		return out
	}
	hs.pre = filter(hs.pre)
	hs.post = filter(hs.post)
	return removed
}

// hooksFor returns copies of the pre and post validator lists for t,
// including validators registered on embedded base types, ancestors
// first.
func hooksFor(t reflect.Type) (pre, post []hookEntry) {
	chain := embeddingChain(t)
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	for _, ct := range chain {
		if hs := hooks[ct]; hs != nil {
			pre = append(pre, hs.pre...)
			post = append(post, hs.post...)
		}
	}
	return pre, post
}

// embeddingChain lists t's embedded struct bases depth-first, most
// distant ancestor first, ending with t itself.
func embeddingChain(t reflect.Type) []reflect.Type {
	var chain []reflect.Type
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.Anonymous {
			continue
		}
		ft := f.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct {
			chain = append(chain, embeddingChain(ft)...)
		}
	}
	return append(chain, t)
}
