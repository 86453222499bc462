package status

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var t0 = time.Date(2025, time.October, 12, 10, 0, 0, 0, time.UTC)

func TestAdvanceOnlyForward(t *testing.T) {
	u := &ULD{ID: "u1", Type: "PMC"}

	for _, s := range []Status{OnAircraft, ReceivedByGHA, Stored} {
		if _, err := u.Advance(s, "S1", t0); err != nil {
			t.Fatalf("Advance(%s) error = %v", s, err)
		}
	}
	if u.Status != Stored {
		t.Errorf("Status: expected '%s', got '%s'", Stored, u.Status)
	}

	if _, err := u.Advance(TunnelInducted, "S1", t0); !errors.Is(err, ErrStatusRegression) {
		t.Errorf("expected ErrStatusRegression, got %v", err)
	}
	if _, err := u.Advance(Stored, "S1", t0); !errors.Is(err, ErrStatusRegression) {
		t.Errorf("repeating a status must fail, got %v", err)
	}
	if _, err := u.Advance(Status(6), "S1", t0); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
	if len(u.History) != 3 {
		t.Errorf("failed transitions must not touch history, got %d entries", len(u.History))
	}
}

func TestUnmarkLoadedAppendsReversal(t *testing.T) {
	u := &ULD{ID: "u1"}
	if _, err := u.UnmarkLoaded("S1", t0); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("expected ErrNotLoaded, got %v", err)
	}

	_, _ = u.Advance(OnAircraft, "S1", t0)
	_, _ = u.Advance(TunnelInducted, "S1", t0.Add(time.Minute))
	before := append([]Change{}, u.History...)

	c, err := u.UnmarkLoaded("S2", t0.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("UnmarkLoaded() error = %v", err)
	}
	if c.Status != OnAircraft || !c.Reversal || c.ChangedBy != "S2" {
		t.Errorf("unexpected reversal %+v", c)
	}
	if u.Status != OnAircraft {
		t.Errorf("Status: expected '%s', got '%s'", OnAircraft, u.Status)
	}
	if diff := cmp.Diff(before, u.History[:2]); diff != "" {
		t.Errorf("history rewritten (-before +after):\n%s", diff)
	}

	// Moving forward again after a reversal is allowed.
	if _, err := u.Advance(ReceivedByGHA, "S2", t0.Add(3*time.Minute)); err != nil {
		t.Errorf("Advance after reversal error = %v", err)
	}
}

func TestReplay(t *testing.T) {
	tests := []struct {
		name    string
		history []Change
		want    Status
	}{
		{"empty", nil, None},
		{"forward", []Change{{Status: 1}, {Status: 3}}, TunnelInducted},
		{"one reversal", []Change{{Status: 1}, {Status: 3}, {Status: 1, Reversal: true}}, OnAircraft},
		{"double reversal", []Change{{Status: 1}, {Status: 3}, {Reversal: true}, {Reversal: true}}, None},
		{"reversal then forward", []Change{{Status: 1}, {Status: 3}, {Reversal: true}, {Status: 2}}, ReceivedByGHA},
		{"stray reversal", []Change{{Reversal: true}, {Status: 2}}, ReceivedByGHA},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Replay(tt.history); got != tt.want {
				t.Errorf("Replay() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{"1", OnAircraft, false},
		{"5", BreakdownCompleted, false},
		{"tunnel_inducted", TunnelInducted, false},
		{" Stored ", Stored, false},
		{"0", None, true},
		{"none", None, true},
		{"landed", None, true},
	}

	for _, tt := range tests {
		got, err := ParseStatus(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseStatus(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseStatus(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
