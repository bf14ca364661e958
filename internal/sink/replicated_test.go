package sink

import (
	"errors"
	"testing"

	"bizmirror/internal/mirror"
)

func TestReplicatedSink(t *testing.T) {
	primary := NewMemorySink()
	good := NewMemorySink()
	bad := NewMemorySink()
	bad.FailWrites("sales.json", errors.New("offline"))

	r := NewReplicatedSink(primary, []Replica{{Name: "good", Sink: good}, {Name: "bad", Sink: bad}}, mirror.NewNopLogger())

	if err := r.WriteArtifact("sales.json", []byte("data")); err != nil {
		t.Fatalf("WriteArtifact() error = %v, replica failure must not propagate", err)
	}
	for name, s := range map[string]*MemorySink{"primary": primary, "good": good} {
		if data, _ := s.ReadArtifact("sales.json"); string(data) != "data" {
			t.Errorf("%s holds %q", name, data)
		}
	}
	if data, _ := bad.ReadArtifact("sales.json"); data != nil {
		t.Errorf("failing replica holds %q", data)
	}

	rep, err := r.Replica("good")
	if err != nil || rep != good {
		t.Errorf("Replica(good) = %v, %v", rep, err)
	}
	if _, err := r.Replica("missing"); err == nil {
		t.Error("Replica(missing) expected error")
	}

	if err := r.RemoveArtifact("sales.json"); err != nil {
		t.Fatal(err)
	}
	if data, _ := good.ReadArtifact("sales.json"); data != nil {
		t.Error("replica still holds artifact after remove")
	}
}

func TestReplicatedSink_PrimaryFailure(t *testing.T) {
	primary := NewMemorySink()
	primary.FailWrites("sales.json", errors.New("read-only"))
	replica := NewMemorySink()

	r := NewReplicatedSink(primary, []Replica{{Name: "r", Sink: replica}}, mirror.NewNopLogger())
	if err := r.WriteArtifact("sales.json", []byte("x")); err == nil {
		t.Fatal("WriteArtifact() expected error when primary fails")
	}
	if data, _ := replica.ReadArtifact("sales.json"); data != nil {
		t.Error("replica written although primary failed")
	}
}
