// Package classify decides which operational reports a shipment belongs to.
// Every predicate is pure and may be called in any order.
package classify

import (
	"strings"

	"github.com/shopspring/decimal"

	"cargo_loadplan/internal/loadplan"
	"cargo_loadplan/internal/patterns"
)

// Code sets.
var (
	// SpecialCargoCodes is the allow-list for the special cargo report.
	SpecialCargoCodes = patterns.CodeSet(
		"SWP", "RXS", "MUW", "HUM", "LHO", "AVI", "CAR", "VEH", "HEG",
		"RDS", "VIP", "ASH", "ICE", "CPS", "EKD", "HUU", "HUL", "DOC",
	)

	// WeaponsCodes fork special cargo into the weapons sub-list.
	WeaponsCodes = patterns.CodeSet("RXS", "SWP", "MUW", "VIP")

	// IceExemptCodes keep an ICE shipment that carries other codes.
	IceExemptCodes = patterns.CodeSet("HEG", "AVI", "RDS", "SHL", "LHO", "CPS")

	// PerishableExcludedCodes drop a non-ICE shipment from special cargo.
	PerishableExcludedCodes = patterns.CodeSet("PEM", "PES")
)

// IceWeightLimit is the heaviest ICE-only shipment kept, in kg.
var IceWeightLimit = decimal.NewFromInt(20)

// Codes returns the SHC tokens of a shipment.
func Codes(s loadplan.Shipment) []string {
	return patterns.SplitCodes(s.SHC)
}

// IsGeneralSpecialCargo reports whether any SHC code is on the special cargo allow-list.
func IsGeneralSpecialCargo(s loadplan.Shipment) bool {
	return patterns.HasAnyCode(Codes(s), SpecialCargoCodes)
}

// IsWeaponsCargo reports whether any SHC code is a weapons code.
func IsWeaponsCargo(s loadplan.Shipment) bool {
	return patterns.HasAnyCode(Codes(s), WeaponsCodes)
}

// IsVUNCargo reports whether SHC has the exact token VUN. AVUN does not count.
func IsVUNCargo(s loadplan.Shipment) bool {
	return patterns.HasCode(Codes(s), "VUN")
}

// IsQRTCargo reports whether THC contains QRT anywhere, case-insensitively.
// THC can be compound ("P2 QRT"), so this is a substring test.
func IsQRTCargo(s loadplan.Shipment) bool {
	return strings.Contains(strings.ToUpper(s.THC), "QRT")
}

// HasHUM reports whether SHC has the token HUM. Used for highlighting only.
func HasHUM(s loadplan.Shipment) bool {
	return patterns.HasCode(Codes(s), "HUM")
}

// ShouldKeepIceShipment applies the special cargo exception policy:
//
//  1. ICE with other codes is kept only if one of IceExemptCodes is present.
//  2. ICE alone is kept only up to IceWeightLimit (20kg inclusive).
//  3. Without ICE, PEM or PES drops the shipment.
//
// Whether ICE is present decides between the first two rules; only non-ICE
// shipments reach the third.
func ShouldKeepIceShipment(s loadplan.Shipment) bool {
	codes := Codes(s)

	if patterns.HasCode(codes, "ICE") {
		if len(codes) > 1 {
			return patterns.HasAnyCode(codes, IceExemptCodes)
		}
		return !decimal.NewFromFloat(s.Weight).GreaterThan(IceWeightLimit)
	}

	return !patterns.HasAnyCode(codes, PerishableExcludedCodes)
}

// Categories lists every report a shipment lands in, for display.
func Categories(s loadplan.Shipment) []string {
	var out []string
	if IsGeneralSpecialCargo(s) && ShouldKeepIceShipment(s) {
		if IsWeaponsCargo(s) {
			out = append(out, "weapons")
		} else {
			out = append(out, "special_cargo")
		}
	}
	if IsVUNCargo(s) {
		out = append(out, "vun")
	}
	if IsQRTCargo(s) {
		out = append(out, "qrt")
	}
	return out
}
