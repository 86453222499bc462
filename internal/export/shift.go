package export

import (
	"fmt"
	"time"
)

// Shift is a ground-handling work shift.
type Shift struct {
	Name   string
	Window string
}

// Shifts. Anything before 13:00 local belongs to the night shift.
var (
	DayShift   = Shift{Name: "DAY", Window: "1300 - 2359Hrs"}
	NightShift = Shift{Name: "NIGHT", Window: "0800 - 1259Hrs"}
)

// WeaponsPrefix starts the weapons sub-report header.
const WeaponsPrefix = "/RXS/SWP/MUW/VIP/VEH/"

// CurrentShift returns the shift that t falls in.
func CurrentShift(t time.Time) Shift {
	if t.Hour() >= 13 {
		return DayShift
	}
	return NightShift
}

func (s Shift) String() string {
	return fmt.Sprintf("%s (%s)", s.Name, s.Window)
}
