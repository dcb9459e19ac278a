// Package fhirmodel provides the base model layer for FHIR resources
// and datatypes: construction with resource-type checking, declared-field
// introspection, cross-field validation hooks, and FHIR-aware
// serialization to ordered mappings, JSON and YAML.
//
// Model types are plain Go structs. Fields become part of the wire model
// through `fhir` struct tags; types embed Element for datatypes and
// backbone elements, or Resource for genuine top-level resources:
//
//	type Patient struct {
//	    fhirmodel.Resource
//	    Active    *types.Boolean `fhir:"active,element"`
//	    BirthDate *types.Date    `fhir:"birthDate,element"`
//	    Name      []HumanName    `fhir:"name,element"`
//	}
//
// # Construction
//
//	var p Patient
//	err := fhirmodel.Populate(&p, map[string]any{
//	    "resourceType": "Patient",
//	    "active":       true,
//	})
//
// A supplied resourceType (or resource_type) must match the type's
// declared tag; a mismatch fails with a *ValidationError before any
// field validation runs.
//
// # Serialization
//
//	m, err := fhirmodel.Dict(&p) // ordered mapping
//	s, err := fhirmodel.JSON(&p) // JSON text
//	y, err := fhirmodel.YAML(&p) // YAML text
//
// Serialization follows the FHIR JSON rules: resources emit resourceType
// first, element fields follow in declared order under their wire
// aliases, primitive annotations go under the underscore-prefixed key,
// empty containers are never emitted, and fhir_comments annotations come
// last (strippable at every depth with WithExcludeComments).
//
// # Performance
//
//   - Per-type metadata (element sequence, alias maps, resource-base
//     classification) is computed once by reflection and memoized in
//     thread-safe LRU caches.
//   - JSON encoding goes through a pluggable encoder registry; jsoniter
//     is the default, encoding/json the compatibility fallback, and the
//     choice can be overridden per call or via SetDefaultEncoder.
package fhirmodel
