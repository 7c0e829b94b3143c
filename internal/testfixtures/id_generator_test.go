package testfixtures

import (
	"reflect"
	"testing"
)

func TestIDGeneratorRecordsIssuedIDs(t *testing.T) {
	gen := NewIDGenerator("event")
	next := gen.NextFunc()

	if first, second := next(), gen.Next(); first != "event-1" || second != "event-2" {
		t.Fatalf("unexpected identifiers: %q, %q", first, second)
	}

	issued := gen.Issued()
	if !reflect.DeepEqual(issued, []string{"event-1", "event-2"}) {
		t.Fatalf("unexpected issued list: %v", issued)
	}
	issued[0] = "mutated"
	if gen.Issued()[0] != "event-1" {
		t.Fatalf("Issued must return a copy")
	}
}

func TestIDGeneratorReset(t *testing.T) {
	gen := NewIDGenerator("")
	_ = gen.Next()
	gen.Reset()

	if next := gen.Next(); next != "id-1" {
		t.Fatalf("expected id-1 after reset, got %q", next)
	}
	if len(gen.Issued()) != 1 {
		t.Fatalf("expected one issued id after reset, got %v", gen.Issued())
	}
}
