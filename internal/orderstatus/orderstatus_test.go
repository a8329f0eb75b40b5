package orderstatus

import "testing"

func TestParse_NormalizesCase(t *testing.T) {
	s, ok := Parse("  shipping ")
	if !ok || s != Shipping {
		t.Fatalf("Parse = (%q, %v), want (%q, true)", s, ok, Shipping)
	}
	s, ok = Parse("teleported")
	if ok {
		t.Fatalf("Parse(teleported) ok = true, want false")
	}
	if s != "TELEPORTED" {
		t.Fatalf("Parse(teleported) = %q, want TELEPORTED", s)
	}
}

func TestDisplayName_FallsBackToCode(t *testing.T) {
	if got := Pending.DisplayName(); got != "Chờ xử lý" {
		t.Fatalf("Pending.DisplayName() = %q", got)
	}
	if got := Status("ON_HOLD").DisplayName(); got != "ON_HOLD" {
		t.Fatalf("unknown DisplayName = %q, want ON_HOLD", got)
	}
	if got := DisplayName(""); got != "" {
		t.Fatalf("DisplayName(\"\") = %q, want empty", got)
	}
}

func TestFinalStatesHaveNoTransitions(t *testing.T) {
	for _, s := range All() {
		if s.IsFinal() && len(s.ValidNext()) != 0 {
			t.Fatalf("%s is final but has transitions %v", s, s.ValidNext())
		}
		if !s.IsFinal() && len(s.ValidNext()) == 0 {
			t.Fatalf("%s is not final but has no transitions", s)
		}
	}
}

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{Pending, Confirmed, true},
		{Pending, Shipping, false},
		{Shipping, AwaitingConfirmation, true},
		{Delivered, RefundRequested, true},
		{RefundRequested, Delivered, true},
		{Refunded, Pending, false},
		{Cancelled, Confirmed, false},
		{Status("UNKNOWN"), Pending, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestAllReturnsCopy(t *testing.T) {
	list := All()
	list[0] = "MUTATED"
	if All()[0] != Pending {
		t.Fatalf("All() exposes internal slice")
	}
}
