package fhirmodel

import "github.com/iancoleman/orderedmap"

// PruneEmpty removes containers that hold no content. It walks lists
// and mappings depth-first; a container whose every entry pruned away
// collapses to nil in turn. Explicit nil entries inside a container
// are kept, only containers that became empty are dropped. The input
// is not modified and the function is idempotent.
func PruneEmpty(v any) any {
	switch t := v.(type) {
	case []any:
		if len(t) == 0 {
			return nil
		}
		out := make([]any, 0, len(t))
		for _, item := range t {
			out = append(out, pruneEntry(item))
		}
		return out
	case map[string]any:
		if len(t) == 0 {
			return nil
		}
		out := make(map[string]any, len(t))
		for k, item := range t {
			if pruned, drop := pruneField(item); !drop {
				out[k] = pruned
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case *orderedmap.OrderedMap:
		if t == nil || len(t.Keys()) == 0 {
			return nil
		}
		out := orderedmap.New()
		for _, k := range t.Keys() {
			item, _ := t.Get(k)
			if pruned, drop := pruneField(item); !drop {
				out.Set(k, pruned)
			}
		}
		if len(out.Keys()) == 0 {
			return nil
		}
		return out
	default:
		return v
	}
}

// StripComments removes fhir_comments keys at every nesting depth of a
// decoded value tree and prunes any container the removal emptied.
// The input is not modified.
func StripComments(v any) any {
	return PruneEmpty(stripComments(v))
}

func stripComments(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = stripComments(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			if k == CommentsFieldName {
				continue
			}
			out[k] = stripComments(item)
		}
		return out
	case *orderedmap.OrderedMap:
		out := orderedmap.New()
		for _, k := range t.Keys() {
			if k == CommentsFieldName {
				continue
			}
			item, _ := t.Get(k)
			out.Set(k, stripComments(item))
		}
		return out
	default:
		return v
	}
}

// pruneEntry prunes a list element. A nil entry stays nil, it marks a
// positional gap in aligned primitive arrays.
func pruneEntry(v any) any {
	if v == nil {
		return nil
	}
	return PruneEmpty(v)
}

// pruneField prunes a mapping value and reports whether the key should
// be dropped. Keys whose container collapsed are removed; keys that
// were already nil are kept as explicit nulls.
func pruneField(v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	switch v.(type) {
	case []any, map[string]any, *orderedmap.OrderedMap:
		pruned := PruneEmpty(v)
		if pruned == nil {
			return nil, true
		}
		return pruned, false
	default:
		return v, false
	}
}
