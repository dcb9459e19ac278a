package stream

import (
	"context"
	"strings"
	"testing"

	fhirmodel "github.com/gofhir/model"
	"github.com/gofhir/model/types"
)

type streamPatient struct {
	fhirmodel.Resource
	Active *types.Boolean `fhir:"active,element"`
}

func (streamPatient) ResourceType() string { return "Patient" }

func constructEntry(_ context.Context, resource []byte) (any, error) {
	var values map[string]any
	if err := fhirmodel.ActiveConfig().Unmarshal(resource, &values); err != nil {
		return nil, err
	}
	var p streamPatient
	if err := fhirmodel.Populate(&p, values); err != nil {
		return nil, err
	}
	return &p, nil
}

const sampleBundle = `{
  "resourceType": "Bundle",
  "type": "collection",
  "total": 2,
  "entry": [
    {
      "fullUrl": "urn:uuid:one",
      "resource": {"resourceType": "Patient", "id": "p1", "active": true}
    },
    {
      "fullUrl": "urn:uuid:two",
      "resource": {"resourceType": "Patient", "id": "p2"}
    }
  ]
}`

func collect(t *testing.T, ch <-chan *EntryResult) []*EntryResult {
	t.Helper()
	var out []*EntryResult
	for r := range ch {
		out = append(out, r)
	}
	return out
}

func TestBundleReader_Read(t *testing.T) {
	reader := NewBundleReader(constructEntry)
	results := collect(t, reader.Read(context.Background(), strings.NewReader(sampleBundle)))

	if len(results) != 2 {
		t.Fatalf("got %d results; want 2", len(results))
	}
	for i, r := range results {
		if r.Error != nil {
			t.Fatalf("entry %d: %v", i, r.Error)
		}
		if r.Index != i {
			t.Errorf("entry %d: Index = %d", i, r.Index)
		}
		if r.ResourceType != "Patient" {
			t.Errorf("entry %d: ResourceType = %q", i, r.ResourceType)
		}
	}
	if results[0].FullURL != "urn:uuid:one" || results[1].FullURL != "urn:uuid:two" {
		t.Errorf("fullUrls = %q, %q", results[0].FullURL, results[1].FullURL)
	}
	p, ok := results[0].Value.(*streamPatient)
	if !ok {
		t.Fatalf("Value = %T", results[0].Value)
	}
	if v, _ := p.Active.PrimitiveValue(); v != true {
		t.Errorf("Active = %v; want true", v)
	}
}

func TestBundleReader_EntryErrors(t *testing.T) {
	bundle := `{
  "entry": [
    {"fullUrl": "urn:uuid:bad"},
    {"resource": {"resourceType": "Observation", "id": "o1"}},
    {"resource": {"resourceType": "Patient", "id": "ok"}}
  ]
}`
	reader := NewBundleReader(constructEntry)
	results := collect(t, reader.Read(context.Background(), strings.NewReader(bundle)))

	if len(results) != 3 {
		t.Fatalf("got %d results; want 3", len(results))
	}
	if results[0].Error == nil {
		t.Error("entry without resource should fail")
	}
	if results[1].Error == nil {
		t.Error("wrong resource type should fail")
	}
	if results[1].ResourceType != "Observation" {
		t.Errorf("ResourceType = %q; want Observation", results[1].ResourceType)
	}
	if results[2].Error != nil {
		t.Errorf("entry 2: %v", results[2].Error)
	}
}

func TestBundleReader_MalformedBundle(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not an object", `[1,2,3]`},
		{"truncated", `{"entry"`},
		{"entry not array", `{"entry": {"resource": {}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := NewBundleReader(constructEntry)
			results := collect(t, reader.Read(context.Background(), strings.NewReader(tt.doc)))
			if len(results) == 0 {
				t.Fatal("expected a bundle-level error result")
			}
			last := results[len(results)-1]
			if last.Error == nil || last.Index != -1 {
				t.Errorf("last result = %+v; want bundle-level error", last)
			}
		})
	}
}

func TestBundleReader_NoEntries(t *testing.T) {
	reader := NewBundleReader(constructEntry)
	results := collect(t, reader.Read(context.Background(), strings.NewReader(`{"resourceType":"Bundle"}`)))
	if len(results) != 0 {
		t.Errorf("got %d results; want 0", len(results))
	}
}

func TestBundleReader_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reader := NewBundleReader(constructEntry).WithBufferSize(1)
	results := collect(t, reader.Read(ctx, strings.NewReader(sampleBundle)))
	for _, r := range results {
		if r.Error == nil {
			t.Error("canceled context should not yield successful entries")
		}
	}
}
