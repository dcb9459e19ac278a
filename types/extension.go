package types

// Extension is the FHIR Extension datatype, restricted to the value
// types a base library needs. Release-specific generated code widens
// the value choice to the full set.
type Extension struct {
	ID           *string     `fhir:"id,element"`
	URL          string      `fhir:"url,element"`
	Extension    []Extension `fhir:"extension,element"`
	ValueBoolean *Boolean    `fhir:"valueBoolean,element"`
	ValueString  *String     `fhir:"valueString,element"`
	ValueInteger *Integer    `fhir:"valueInteger,element"`
	ValueDecimal *Decimal    `fhir:"valueDecimal,element"`
	ValueCode    *Code       `fhir:"valueCode,element"`
	ValueURI     *URI        `fhir:"valueUri,element"`
}
