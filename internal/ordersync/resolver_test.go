package ordersync

import (
	"testing"
	"time"
)

func TestShouldAcceptServerStatus(t *testing.T) {
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		client time.Time
		server time.Time
		want   bool
	}{
		{"server newer", base, base.Add(time.Hour), true},
		{"server newer by a nanosecond", base, base.Add(time.Nanosecond), true},
		{"equal favors client", base, base, false},
		{"client newer", base.Add(time.Minute), base, false},
		{"zero client", time.Time{}, base, true},
		{"zero server", base, time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldAcceptServerStatus(tt.client, tt.server); got != tt.want {
				t.Errorf("ShouldAcceptServerStatus(%v, %v) = %v, want %v", tt.client, tt.server, got, tt.want)
			}
		})
	}
}

func TestShouldAcceptServerStatus_ComparesInstants(t *testing.T) {
	utc := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	hcm := utc.In(time.FixedZone("ICT", 7*3600))
	if ShouldAcceptServerStatus(utc, hcm) {
		t.Fatal("same instant in another zone must not count as newer")
	}
}

func TestResolutionStrategy(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	got := ResolutionStrategy("PENDING", "SHIPPING", t1, t2)
	want := Decision{Action: AcceptServer, ResolvedStatus: "SHIPPING", Reason: "Server timestamp is newer"}
	if got != want {
		t.Fatalf("server newer: got %+v, want %+v", got, want)
	}

	got = ResolutionStrategy("DELIVERED", "SHIPPING", t2, t1)
	want = Decision{Action: KeepClient, ResolvedStatus: "DELIVERED", Reason: "Client timestamp is newer or equal"}
	if got != want {
		t.Fatalf("client newer: got %+v, want %+v", got, want)
	}

	got = ResolutionStrategy("DELIVERED", "SHIPPING", t1, t1)
	if got.Action != KeepClient || got.ResolvedStatus != "DELIVERED" {
		t.Fatalf("tie: got %+v, want keep_client", got)
	}
}

func TestResolutionStrategy_ResolvedMatchesAction(t *testing.T) {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	offsets := []time.Duration{-time.Hour, -time.Second, 0, time.Second, time.Hour}
	for _, co := range offsets {
		for _, so := range offsets {
			d := ResolutionStrategy("client", "server", base.Add(co), base.Add(so))
			switch d.Action {
			case AcceptServer:
				if d.ResolvedStatus != "server" || !(so > co) {
					t.Errorf("client %v server %v: got %+v", co, so, d)
				}
			case KeepClient:
				if d.ResolvedStatus != "client" || so > co {
					t.Errorf("client %v server %v: got %+v", co, so, d)
				}
			default:
				t.Errorf("unexpected action %q", d.Action)
			}
		}
	}
}
