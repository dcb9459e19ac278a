package fhirmodel

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func restoreConfig(t *testing.T) {
	t.Helper()
	saved := ActiveConfig()
	t.Cleanup(func() {
		Configure(func(c *Config) { *c = saved })
	})
}

func TestPopulate_Basic(t *testing.T) {
	var p Patient
	err := Populate(&p, map[string]any{
		"resourceType": "Patient",
		"id":           "example",
		"active":       true,
		"gender":       "male",
		"birthDate":    "1974-12-25",
		"name": []any{
			map[string]any{
				"family": "Chalmers",
				"given":  []any{"Peter", "James"},
			},
		},
	})
	if err != nil {
		t.Fatalf("Populate() = %v", err)
	}

	if p.ID == nil || *p.ID != "example" {
		t.Errorf("ID = %v; want example", p.ID)
	}
	if v, _ := p.Active.PrimitiveValue(); v != true {
		t.Errorf("Active = %v; want true", v)
	}
	if v, _ := p.Gender.PrimitiveValue(); v != "male" {
		t.Errorf("Gender = %v; want male", v)
	}
	if len(p.Name) != 1 {
		t.Fatalf("len(Name) = %d; want 1", len(p.Name))
	}
	if v, _ := p.Name[0].Family.PrimitiveValue(); v != "Chalmers" {
		t.Errorf("Family = %v; want Chalmers", v)
	}
	if len(p.Name[0].Given) != 2 {
		t.Fatalf("len(Given) = %d; want 2", len(p.Name[0].Given))
	}
	if v, _ := p.Name[0].Given[1].PrimitiveValue(); v != "James" {
		t.Errorf("Given[1] = %v; want James", v)
	}
}

func TestPopulate_WrongResourceType(t *testing.T) {
	var p Patient
	err := Populate(&p, map[string]any{
		"resourceType": "Observation",
		"active":       true,
	})

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Populate() = %v; want *ValidationError", err)
	}
	if len(ve.Errors) != 1 {
		t.Fatalf("len(Errors) = %d; want 1", len(ve.Errors))
	}
	fe := ve.Errors[0]
	if fe.Path() != "resource_type" {
		t.Errorf("Path() = %q; want resource_type", fe.Path())
	}
	if fe.Type != ErrTypeWrongResourceType {
		t.Errorf("Type = %q; want %q", fe.Type, ErrTypeWrongResourceType)
	}
	if !strings.Contains(fe.Msg, `"Patient"`) || !strings.Contains(fe.Msg, `"Observation"`) {
		t.Errorf("Msg = %q; should name expected and got tags", fe.Msg)
	}
	// A mismatched tag aborts before field population.
	if p.Active != nil {
		t.Error("fields should not populate after a tag mismatch")
	}
}

func TestPopulate_NullResourceType(t *testing.T) {
	// A null tag counts as absent, so no check occurs.
	var p Patient
	err := Populate(&p, map[string]any{
		"resourceType": nil,
		"active":       true,
	})
	if err != nil {
		t.Fatalf("Populate() = %v", err)
	}
	if v, _ := p.Active.PrimitiveValue(); v != true {
		t.Errorf("Active = %v; want true", v)
	}
}

func TestPopulate_SnakeCaseTag(t *testing.T) {
	var p Patient
	if err := Populate(&p, map[string]any{"resource_type": "Patient"}); err != nil {
		t.Fatalf("Populate() = %v", err)
	}
}

func TestPopulate_ExtraField(t *testing.T) {
	var p Patient
	err := Populate(&p, map[string]any{
		"resourceType": "Patient",
		"favouriteTea": "earl grey",
	})

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Populate() = %v; want *ValidationError", err)
	}
	if len(ve.Errors) != 1 {
		t.Fatalf("len(Errors) = %d; want 1", len(ve.Errors))
	}
	fe := ve.Errors[0]
	if fe.Path() != "favouriteTea" {
		t.Errorf("Path() = %q; want favouriteTea", fe.Path())
	}
	if fe.Type != ErrTypeExtraField {
		t.Errorf("Type = %q; want %q", fe.Type, ErrTypeExtraField)
	}
	if fe.Msg != "extra fields not permitted" {
		t.Errorf("Msg = %q", fe.Msg)
	}
}

func TestPopulate_AllowExtra(t *testing.T) {
	restoreConfig(t)
	Configure(WithAllowExtra(true))

	var p Patient
	err := Populate(&p, map[string]any{
		"resourceType": "Patient",
		"favouriteTea": "earl grey",
	})
	if err != nil {
		t.Fatalf("Populate() with extras allowed = %v", err)
	}
}

func TestPopulate_ByFieldName(t *testing.T) {
	var p Patient
	if err := Populate(&p, map[string]any{"BirthDate": "1974-12-25"}); err != nil {
		t.Fatalf("Populate() = %v", err)
	}
	if v, _ := p.BirthDate.PrimitiveValue(); v != "1974-12-25" {
		t.Errorf("BirthDate = %v; want 1974-12-25", v)
	}

	restoreConfig(t)
	Configure(WithPopulateByFieldName(false))

	var q Patient
	err := Populate(&q, map[string]any{"BirthDate": "1974-12-25"})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Populate() = %v; want extra-field error", err)
	}
}

func TestPopulate_NestedErrorLocation(t *testing.T) {
	var p Patient
	err := Populate(&p, map[string]any{
		"name": []any{
			map[string]any{"family": 123},
		},
		"birthDate": "not-a-date",
	})

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Populate() = %v; want *ValidationError", err)
	}
	paths := make([]string, len(ve.Errors))
	for i, fe := range ve.Errors {
		paths[i] = fe.Path()
	}
	want := []string{"name.0.family", "birthDate"}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Errorf("error paths mismatch (-want +got):\n%s", diff)
	}
}

func TestPopulate_Annotation(t *testing.T) {
	var p Patient
	err := Populate(&p, map[string]any{
		"birthDate": "1974-12-25",
		"_birthDate": map[string]any{
			"id": "bd1",
			"extension": []any{
				map[string]any{
					"url":         "http://hl7.org/fhir/StructureDefinition/patient-birthTime",
					"valueString": "1974-12-25T14:35:45-05:00",
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("Populate() = %v", err)
	}

	if p.BirthDate.PrimitiveElement() == nil {
		t.Fatal("annotation not applied")
	}
	if p.BirthDate.Element.ID == nil || *p.BirthDate.Element.ID != "bd1" {
		t.Errorf("annotation id = %v; want bd1", p.BirthDate.Element.ID)
	}
	if len(p.BirthDate.Element.Extension) != 1 {
		t.Fatalf("len(Extension) = %d; want 1", len(p.BirthDate.Element.Extension))
	}
	ext := p.BirthDate.Element.Extension[0]
	if ext.URL != "http://hl7.org/fhir/StructureDefinition/patient-birthTime" {
		t.Errorf("extension url = %q", ext.URL)
	}
	if v, _ := ext.ValueString.PrimitiveValue(); v != "1974-12-25T14:35:45-05:00" {
		t.Errorf("extension valueString = %v", v)
	}
}

func TestPopulate_AnnotationByFieldName(t *testing.T) {
	// Internal-name output keys the annotation on the field name; it
	// must be consumed the same way aliases are.
	var p Patient
	err := Populate(&p, map[string]any{
		"BirthDate": "1974-12-25",
		"_BirthDate": map[string]any{
			"id": "bd1",
		},
	})
	if err != nil {
		t.Fatalf("Populate() = %v", err)
	}
	if p.BirthDate.Element == nil || p.BirthDate.Element.ID == nil || *p.BirthDate.Element.ID != "bd1" {
		t.Errorf("annotation id = %+v; want bd1", p.BirthDate.Element)
	}

	restoreConfig(t)
	Configure(WithPopulateByFieldName(false))
	var q Patient
	err = Populate(&q, map[string]any{
		"birthDate":  "1974-12-25",
		"_BirthDate": map[string]any{"id": "bd1"},
	})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Populate() = %v; want extra-field error with by-name lookup off", err)
	}
	if ve.Errors[0].Type != ErrTypeExtraField {
		t.Errorf("Type = %q; want %q", ve.Errors[0].Type, ErrTypeExtraField)
	}
}

func TestPopulate_AnnotationList(t *testing.T) {
	var n HumanName
	err := Populate(&n, map[string]any{
		"given": []any{"Peter", "James"},
		"_given": []any{
			nil,
			map[string]any{"id": "g2"},
		},
	})
	if err != nil {
		t.Fatalf("Populate() = %v", err)
	}
	if len(n.Given) != 2 {
		t.Fatalf("len(Given) = %d; want 2", len(n.Given))
	}
	if n.Given[0].PrimitiveElement() != nil {
		t.Error("Given[0] should carry no annotation")
	}
	if n.Given[1].Element == nil || n.Given[1].Element.ID == nil || *n.Given[1].Element.ID != "g2" {
		t.Errorf("Given[1] annotation id = %v; want g2", n.Given[1].Element)
	}
}

func TestPopulate_InputNotMutated(t *testing.T) {
	in := map[string]any{
		"resourceType": "Patient",
		"active":       true,
	}
	var p Patient
	if err := Populate(&p, in); err != nil {
		t.Fatalf("Populate() = %v", err)
	}
	if _, ok := in["resourceType"]; !ok {
		t.Error("input mapping lost its resourceType key")
	}
}

func TestPopulate_Comments(t *testing.T) {
	var p Patient
	err := Populate(&p, map[string]any{
		"fhir_comments": []any{"a note", "another"},
	})
	if err != nil {
		t.Fatalf("Populate() = %v", err)
	}
	if diff := cmp.Diff([]string{"a note", "another"}, p.FhirComments); diff != "" {
		t.Errorf("FhirComments mismatch (-want +got):\n%s", diff)
	}
}

func TestSet(t *testing.T) {
	var p Patient
	if err := Set(&p, "gender", "female"); err != nil {
		t.Fatalf("Set(gender) = %v", err)
	}
	if v, _ := p.Gender.PrimitiveValue(); v != "female" {
		t.Errorf("Gender = %v; want female", v)
	}

	err := Set(&p, "birthDate", "25/12/1974")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Set(bad date) = %v; want *ValidationError", err)
	}
	if ve.Errors[0].Path() != "birthDate" {
		t.Errorf("Path() = %q; want birthDate", ve.Errors[0].Path())
	}

	if err := Set(&p, "nonesuch", 1); err == nil {
		t.Error("Set(nonesuch) should fail")
	}
}

func TestSet_NoValidation(t *testing.T) {
	restoreConfig(t)
	Configure(WithValidateAssignment(false))

	var p Patient
	// Direct assignment path accepts an already-typed value.
	if err := Set(&p, "ID", strptr("direct")); err != nil {
		t.Fatalf("Set(ID) = %v", err)
	}
	if p.ID == nil || *p.ID != "direct" {
		t.Errorf("ID = %v; want direct", p.ID)
	}
}
