package status

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AWB is a waybill available for assignment.
type AWB struct {
	Number string  `json:"number"`
	Pieces int     `json:"pieces"`
	Weight float64 `json:"weight"`
}

// Assignment places some pieces of one AWB on one ULD.
type Assignment struct {
	ID     string          `json:"id"`
	AWB    string          `json:"awb"`
	ULD    string          `json:"uld"`
	Pieces int             `json:"pieces"`
	Weight decimal.Decimal `json:"weight"`
}

// Board tracks how the pieces of each AWB are spread over ULDs. The pieces
// assigned to an AWB plus the pieces offloaded never exceed its piece count.
type Board struct {
	mu          sync.RWMutex
	awbs        map[string]AWB
	ulds        map[string]bool
	assignments map[string]*Assignment
	order       []string
	offloaded   map[string]int
}

// NewBoard creates an empty board.
func NewBoard() *Board {
	return &Board{
		awbs:        make(map[string]AWB),
		ulds:        make(map[string]bool),
		assignments: make(map[string]*Assignment),
		offloaded:   make(map[string]int),
	}
}

// AddAWB registers an AWB. Re-adding replaces its piece count and weight.
func (b *Board) AddAWB(a AWB) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.awbs[a.Number] = a
}

// AddULD registers a ULD id that assignments may target.
func (b *Board) AddULD(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ulds[id] = true
}

// Assign puts pieces of awb on uld.
func (b *Board) Assign(awb, uld string, pieces int) (Assignment, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	a, ok := b.awbs[awb]
	if !ok {
		return Assignment{}, fmt.Errorf("%w: %s", ErrUnknownAWB, awb)
	}
	if !b.ulds[uld] {
		return Assignment{}, fmt.Errorf("%w: %s", ErrUnknownULD, uld)
	}
	if pieces <= 0 {
		return Assignment{}, ErrInvalidPieces
	}
	if used := b.usedLocked(awb); used+pieces > a.Pieces {
		return Assignment{}, fmt.Errorf("%w: %s has %d of %d pieces placed", ErrOverAssigned, awb, used, a.Pieces)
	}

	as := &Assignment{
		ID:     uuid.NewString(),
		AWB:    awb,
		ULD:    uld,
		Pieces: pieces,
		Weight: pieceWeight(a, pieces),
	}
	b.assignments[as.ID] = as
	b.order = append(b.order, as.ID)
	return *as, nil
}

// Split moves pieces of an assignment onto another ULD. It returns the
// reduced source and the new assignment. Moving every piece empties the
// source, which is then removed.
func (b *Board) Split(id string, pieces int, toULD string) (Assignment, Assignment, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	src, ok := b.assignments[id]
	if !ok {
		return Assignment{}, Assignment{}, fmt.Errorf("%w: %s", ErrUnknownAssignment, id)
	}
	if !b.ulds[toULD] {
		return Assignment{}, Assignment{}, fmt.Errorf("%w: %s", ErrUnknownULD, toULD)
	}
	if pieces <= 0 {
		return Assignment{}, Assignment{}, ErrInvalidPieces
	}
	if pieces > src.Pieces {
		return Assignment{}, Assignment{}, fmt.Errorf("%w: split %d of %d", ErrOverAssigned, pieces, src.Pieces)
	}

	a := b.awbs[src.AWB]
	moved := &Assignment{
		ID:     uuid.NewString(),
		AWB:    src.AWB,
		ULD:    toULD,
		Pieces: pieces,
		Weight: pieceWeight(a, pieces),
	}
	b.assignments[moved.ID] = moved
	b.order = append(b.order, moved.ID)

	src.Pieces -= pieces
	src.Weight = pieceWeight(a, src.Pieces)
	rest := *src
	if src.Pieces == 0 {
		b.removeLocked(id)
	}
	return rest, *moved, nil
}

// Offload takes pieces of an assignment off its ULD. Offloaded pieces stay
// counted against the AWB so they cannot be assigned again.
func (b *Board) Offload(id string, pieces int) (Assignment, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	as, ok := b.assignments[id]
	if !ok {
		return Assignment{}, fmt.Errorf("%w: %s", ErrUnknownAssignment, id)
	}
	if pieces <= 0 {
		return Assignment{}, ErrInvalidPieces
	}
	if pieces > as.Pieces {
		return Assignment{}, fmt.Errorf("%w: offload %d of %d", ErrOverAssigned, pieces, as.Pieces)
	}

	as.Pieces -= pieces
	as.Weight = pieceWeight(b.awbs[as.AWB], as.Pieces)
	b.offloaded[as.AWB] += pieces

	rest := *as
	if as.Pieces == 0 {
		b.removeLocked(id)
	}
	return rest, nil
}

// Remaining returns the pieces of awb not yet assigned or offloaded.
func (b *Board) Remaining(awb string) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	a, ok := b.awbs[awb]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownAWB, awb)
	}
	return a.Pieces - b.usedLocked(awb), nil
}

// Offloaded returns the pieces of awb taken off ULDs.
func (b *Board) Offloaded(awb string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.offloaded[awb]
}

// ForULD returns the assignments on uld in creation order.
func (b *Board) ForULD(uld string) []Assignment {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := []Assignment{}
	for _, id := range b.order {
		if as := b.assignments[id]; as.ULD == uld {
			out = append(out, *as)
		}
	}
	return out
}

// ULDWeight sums the assigned weight on uld.
func (b *Board) ULDWeight(uld string) decimal.Decimal {
	total := decimal.Zero
	for _, as := range b.ForULD(uld) {
		total = total.Add(as.Weight)
	}
	return total
}

// AWBs returns the registered AWB numbers, sorted.
func (b *Board) AWBs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]string, 0, len(b.awbs))
	for n := range b.awbs {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (b *Board) usedLocked(awb string) int {
	used := b.offloaded[awb]
	for _, as := range b.assignments {
		if as.AWB == awb {
			used += as.Pieces
		}
	}
	return used
}

func (b *Board) removeLocked(id string) {
	delete(b.assignments, id)
	for i, o := range b.order {
		if o == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// pieceWeight prorates the AWB weight over pieces, rounded to 0.1 kg.
func pieceWeight(a AWB, pieces int) decimal.Decimal {
	if a.Pieces == 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(a.Weight).
		Mul(decimal.NewFromInt(int64(pieces))).
		Div(decimal.NewFromInt(int64(a.Pieces))).
		Round(1)
}
