package identity

import (
	"errors"
	"testing"
	"time"
)

func TestCatalogKeysAreUnique(t *testing.T) {
	if err := Default.Validate(); err != nil {
		t.Fatalf("default registry: %v", err)
	}
	if Default.Len() != len(Catalog()) {
		t.Fatalf("expected %d identities, got %d", len(Catalog()), Default.Len())
	}
	for _, id := range Catalog() {
		if id.Marker() != DefaultMarker {
			t.Fatalf("%s: unexpected marker %q", id, id.Marker())
		}
		if id.Lease() != 600*time.Second {
			t.Fatalf("%s: unexpected lease %v", id, id.Lease())
		}
	}
}

func TestNewRegistryRejectsDuplicateKeys(t *testing.T) {
	a := New("JOB", "", time.Minute)
	b := New("JOB", "other", time.Hour)
	_, err := NewRegistry(a, b)
	if !errors.Is(err, ErrDuplicateIdentity) {
		t.Fatalf("expected ErrDuplicateIdentity, got %v", err)
	}
}

func TestMustRegistryPanicsOnDuplicate(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic")
		}
		if err, ok := r.(error); !ok || !errors.Is(err, ErrDuplicateIdentity) {
			t.Fatalf("unexpected panic value %v", r)
		}
	}()
	MustRegistry(SynLocalOrderToTPL, SynLocalOrderToTPL)
}

func TestNewRegistryRejectsInvalidIdentity(t *testing.T) {
	if _, err := NewRegistry(New("", "", time.Minute)); !errors.Is(err, ErrInvalidIdentity) {
		t.Fatalf("empty key: expected ErrInvalidIdentity, got %v", err)
	}
	if _, err := NewRegistry(New("JOB", "", 0)); !errors.Is(err, ErrInvalidIdentity) {
		t.Fatalf("zero lease: expected ErrInvalidIdentity, got %v", err)
	}
}

func TestLookup(t *testing.T) {
	id, ok := Default.Lookup("FETCH_SO_FROM_BD")
	if !ok || id != FetchSOFromBD {
		t.Fatalf("lookup: got %v ok %v", id, ok)
	}
	if _, ok := Default.Lookup(""); ok {
		t.Fatal("empty key should not resolve")
	}
	if _, ok := Default.Lookup("NOPE"); ok {
		t.Fatal("unknown key should not resolve")
	}
	var nilReg *Registry
	if _, ok := nilReg.Lookup("FETCH_SO_FROM_BD"); ok {
		t.Fatal("nil registry should not resolve")
	}
}

func TestContainsComparesWholeIdentity(t *testing.T) {
	if !Default.Contains(PushSOToBD) {
		t.Fatal("expected catalog identity to be contained")
	}
	forged := New(PushSOToBD.Key(), PushSOToBD.Marker(), time.Second)
	if Default.Contains(forged) {
		t.Fatal("identity with a different lease must not match")
	}
	if Default.Contains(Identity{}) {
		t.Fatal("zero identity must not match")
	}
}

func TestAllReturnsCopy(t *testing.T) {
	all := Default.All()
	all[0] = Identity{}
	if first := Default.All()[0]; first != SynLocalOrderToTPL {
		t.Fatalf("registry mutated through All: %v", first)
	}
}

func TestNewDefaultsMarker(t *testing.T) {
	id := New("K", "", time.Second)
	if id.Marker() != DefaultMarker {
		t.Fatalf("expected default marker, got %q", id.Marker())
	}
	if id.IsZero() {
		t.Fatal("constructed identity reported as zero")
	}
	if !(Identity{}).IsZero() {
		t.Fatal("zero identity not reported as zero")
	}
}
