package pool

import (
	"sync"
	"testing"
)

func TestPathBuilder_Basic(t *testing.T) {
	pb := AcquirePathBuilder()
	defer pb.Release()

	pb.WriteString("Patient")
	pb.WriteByte('.')
	pb.WriteString("name")

	if got := pb.String(); got != "Patient.name" {
		t.Errorf("String() = %q; want %q", got, "Patient.name")
	}
}

func TestPathBuilder_Append(t *testing.T) {
	pb := AcquirePathBuilder()
	defer pb.Release()

	pb.Append("Patient", "name", "given")

	if got := pb.String(); got != "Patient.name.given" {
		t.Errorf("String() = %q; want %q", got, "Patient.name.given")
	}
}

func TestPathBuilder_AppendWithDot(t *testing.T) {
	pb := AcquirePathBuilder()
	defer pb.Release()

	pb.WriteString("Patient")
	pb.AppendWithDot("name")
	pb.AppendWithDot("given")

	if got := pb.String(); got != "Patient.name.given" {
		t.Errorf("String() = %q; want %q", got, "Patient.name.given")
	}

	pb.Reset()
	pb.AppendWithDot("Patient")
	if got := pb.String(); got != "Patient" {
		t.Errorf("String() with empty buffer = %q; want %q", got, "Patient")
	}
}

func TestPathBuilder_AppendIndex(t *testing.T) {
	pb := AcquirePathBuilder()
	defer pb.Release()

	pb.WriteString("name")
	pb.AppendIndex(0)
	pb.AppendWithDot("given")
	pb.AppendIndex(1)

	if got := pb.String(); got != "name[0].given[1]" {
		t.Errorf("String() = %q; want %q", got, "name[0].given[1]")
	}
}

func TestPathBuilder_Reset(t *testing.T) {
	pb := AcquirePathBuilder()
	defer pb.Release()

	pb.WriteString("Patient.name")
	pb.Reset()

	if pb.Len() != 0 {
		t.Errorf("Len() after Reset = %d; want 0", pb.Len())
	}
}

func TestPathBuilder_NilRelease(t *testing.T) {
	var pb *PathBuilder
	pb.Release()
}

func TestBuildPath(t *testing.T) {
	path := BuildPath(func(b *PathBuilder) {
		b.Append("name", "given")
		b.AppendIndex(0)
	})

	if path != "name.given[0]" {
		t.Errorf("BuildPath = %q; want %q", path, "name.given[0]")
	}
}

func TestJoinPath(t *testing.T) {
	tests := []struct {
		segments []string
		want     string
	}{
		{nil, ""},
		{[]string{"__root__"}, "__root__"},
		{[]string{"name", "family"}, "name.family"},
		{[]string{"contact", "0", "telecom"}, "contact.0.telecom"},
	}

	for _, tt := range tests {
		if got := JoinPath(tt.segments...); got != tt.want {
			t.Errorf("JoinPath(%v) = %q; want %q", tt.segments, got, tt.want)
		}
	}
}

func TestPathBuilder_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pb := AcquirePathBuilder()
			pb.Append("name", "given")
			pb.AppendIndex(i)
			_ = pb.String()
			pb.Release()
		}(i)
	}
	wg.Wait()
}

func BenchmarkJoinPath(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = JoinPath("name", "0", "given")
	}
}
