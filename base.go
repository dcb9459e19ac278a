package fhirmodel

// CommentsFieldName is the wire key of the embedded comment annotation
// list carried by every model type.
const CommentsFieldName = "fhir_comments"

// Base is embedded (directly or through Element/Resource) by every
// model type. It carries the embedded comment annotations that FHIR
// tooling attaches outside the semantic content of an element.
type Base struct {
	FhirComments []string `fhir:"fhir_comments"`
}

// Element is the base for FHIR datatypes and backbone elements:
// sub-structures embedded inside a resource. Element descendants never
// emit a resourceType key.
type Element struct {
	Base
	ID *string `fhir:"id,element"`
}

// Resource is the base for genuine top-level resources. Types that
// embed Resource (at any depth) emit their type tag as the first key of
// serialized output.
type Resource struct {
	Base
	ID *string `fhir:"id,element"`
}
