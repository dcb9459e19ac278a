package fhirmodel

import (
	"github.com/gofhir/model/types"
)

// Minimal Patient slice of the FHIR R4 model, enough to exercise
// construction, ordering and serialization.

type Period struct {
	Element
	Start *types.DateTime `fhir:"start,element"`
	End   *types.DateTime `fhir:"end,element"`
}

type HumanName struct {
	Element
	Family *types.String  `fhir:"family,element"`
	Given  []types.String `fhir:"given,element"`
	Use    *types.Code    `fhir:"use,element"`
	Period *Period        `fhir:"period,element"`
}

type Patient struct {
	Resource
	Active        *types.Boolean `fhir:"active,element"`
	Name          []HumanName    `fhir:"name,element"`
	Gender        *types.Code    `fhir:"gender,element"`
	BirthDate     *types.Date    `fhir:"birthDate,element"`
	MultipleBirth *types.Integer `fhir:"multipleBirthInteger,element"`
}

func strptr(s string) *string { return &s }
