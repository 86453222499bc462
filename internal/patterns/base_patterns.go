// Package patterns provides shared regex patterns and helper functions for load plan parsing.
// This file contains grok-style base patterns for use with the Compiler.

package patterns

// BasePatterns defines reusable regex components for grok-style pattern composition.
// These are referenced in format patterns using {PATTERN_NAME} syntax.
var BasePatterns = map[string]string{
	// Shipment identity: serial 001, AWB 176-20257333, ORG/DES DXBMXP (split 3+3).
	"SERIAL": `\d{3}`,
	"AWB":    `\d{3}-\d{8}`,
	"ORGDES": `[A-Z]{6}`,
	"IATA":   `[A-Z]{3}`,

	// Quantities.
	"INT": `\d+`,
	"NUM": `\d+(?:\.\d+)?`,

	// Handling codes.
	// SHC is dash-joined (HEA-CRT-EMD). THC may be compound (P2 QRT).
	"SHC":   `[A-Z]{3}(?:-[A-Z]{3})*`,
	"PCODE": `[A-Z]{3}`,
	"PC":    `P\d`,
	"THC":   `(?:[A-Z0-9]{2,4}\s)?[A-Z0-9]{2,4}`,
	"BS":    `(?:SS|NS|BS)`,
	"YN":    `[YN]`,

	// Flights and times.
	// Two character carrier code (letters or digits) + 3-4 digit number + optional suffix.
	// e.g., EK0509, QR1017, 3U8612
	"FLIGHT": `[A-Z0-9]{2}\d{3,4}[A-Z]?`,
	"DAYMON": `\d{1,2}[A-Za-z]{3}`,
	"HHMM":   `\d{2}:\d{2}`,

	// Warehouse columns (Q1/A1, DW3).
	"QNN": `\S*/\S*`,
	"WHS": `[A-Z]{2,4}\d?`,

	// ULD notation. Section markers only ever declare the four main types.
	"ULDTYPE":  `(?:PMC|AKE|AKL|AMF|ALF|PLA|PAG|AMP|RKE|BULK)`,
	"ULDCOUNT": `\d+(?:PMC|AKE|PAG|AMP)`,
}
