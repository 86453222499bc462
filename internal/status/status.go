// Package status tracks ULDs through the breakdown pipeline and AWB pieces
// across ULDs.
package status

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Status is an ordinal pipeline stage. Zero means no status recorded yet.
type Status int

// Pipeline stages in order.
const (
	None Status = iota
	OnAircraft
	ReceivedByGHA
	TunnelInducted
	Stored
	BreakdownCompleted
)

// Errors returned by status transitions and the assignment board.
var (
	ErrInvalidStatus     = errors.New("invalid status")
	ErrStatusRegression  = errors.New("status can only move forward")
	ErrNotLoaded         = errors.New("uld has no status to unmark")
	ErrOverAssigned      = errors.New("more pieces assigned than the awb carries")
	ErrInvalidPieces     = errors.New("pieces must be positive")
	ErrUnknownAWB        = errors.New("unknown awb")
	ErrUnknownULD        = errors.New("unknown uld")
	ErrUnknownAssignment = errors.New("unknown assignment")
)

var statusNames = map[Status]string{
	None:               "none",
	OnAircraft:         "on_aircraft",
	ReceivedByGHA:      "received_by_gha",
	TunnelInducted:     "tunnel_inducted",
	Stored:             "stored",
	BreakdownCompleted: "breakdown_completed",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "status(" + strconv.Itoa(int(s)) + ")"
}

// Valid reports whether s is one of the five pipeline stages.
func (s Status) Valid() bool {
	return s >= OnAircraft && s <= BreakdownCompleted
}

// ParseStatus accepts a stage name or its ordinal 1..5.
func ParseStatus(v string) (Status, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if n, err := strconv.Atoi(v); err == nil {
		if s := Status(n); s.Valid() {
			return s, nil
		}
		return None, fmt.Errorf("%w: %d", ErrInvalidStatus, n)
	}
	for s, name := range statusNames {
		if name == v && s.Valid() {
			return s, nil
		}
	}
	return None, fmt.Errorf("%w: %q", ErrInvalidStatus, v)
}

// Change is one entry of a ULD's status history.
type Change struct {
	Status    Status    `json:"status"`
	Reversal  bool      `json:"reversal"`
	ChangedBy string    `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
}

// ULD is a unit with its status and append-only history.
type ULD struct {
	ID      string   `json:"id"`
	Type    string   `json:"type"`
	Number  string   `json:"number"`
	Status  Status   `json:"status"`
	History []Change `json:"history"`
}

// Replay derives the current status from a history. A reversal undoes the
// most recent forward change that is still in effect.
func Replay(history []Change) Status {
	var stack []Status
	for _, c := range history {
		if c.Reversal {
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			continue
		}
		stack = append(stack, c.Status)
	}
	if len(stack) == 0 {
		return None
	}
	return stack[len(stack)-1]
}

// Advance moves the ULD forward to next. Stages may be skipped, but a ULD
// never moves backwards or stays put.
func (u *ULD) Advance(next Status, by string, at time.Time) (Change, error) {
	if !next.Valid() {
		return Change{}, fmt.Errorf("%w: %d", ErrInvalidStatus, int(next))
	}
	if next <= u.Status {
		return Change{}, fmt.Errorf("%w: %s to %s", ErrStatusRegression, u.Status, next)
	}

	c := Change{Status: next, ChangedBy: by, ChangedAt: at}
	u.History = append(u.History, c)
	u.Status = next
	return c, nil
}

// UnmarkLoaded reverts the latest status change. The reversal is appended to
// the history; earlier entries are left as they were.
func (u *ULD) UnmarkLoaded(by string, at time.Time) (Change, error) {
	if u.Status == None {
		return Change{}, ErrNotLoaded
	}

	history := append(u.History[:len(u.History):len(u.History)], Change{Reversal: true})
	prev := Replay(history)

	c := Change{Status: prev, Reversal: true, ChangedBy: by, ChangedAt: at}
	u.History = append(u.History, c)
	u.Status = prev
	return c, nil
}
