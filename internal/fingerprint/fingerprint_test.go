package fingerprint

import "testing"

func TestDeriveDeterministic(t *testing.T) {
	a := Derive("Clinic wait times", "Healthcare")
	b := Derive("Clinic wait times", "Healthcare")
	if a != b {
		t.Errorf("expected stable id, got %q and %q", a, b)
	}
	if len(a) != 8 {
		t.Errorf("expected 8-char id, got %q", a)
	}
}

func TestDeriveNormalizes(t *testing.T) {
	a := Derive("Clinic wait times", "Healthcare")
	b := Derive("  clinic wait times  ", "HEALTHCARE")
	if a != b {
		t.Errorf("expected normalized inputs to share an id, got %q and %q", a, b)
	}
}

func TestDeriveDistinguishesInputs(t *testing.T) {
	a := Derive("Clinic wait times", "Healthcare")
	b := Derive("Clinic wait times", "Climate")
	if a == b {
		t.Error("expected different domains to yield different ids")
	}

	c := Derive("Carbon tracking", "Healthcare")
	if a == c {
		t.Error("expected different titles to yield different ids")
	}
}
