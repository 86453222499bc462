package loadplan

import (
	"cmp"
	"slices"
)

// GroupSections groups shipments by sector, then by ULD marker occurrence.
// Two markers with the same label are separate sections. Markers with no
// shipments under them still form an empty section. Sector and section
// indexes are the sector_index and uld_section_index keys of ULD entries.
func GroupSections(shipments []Shipment, markers ...Marker) []Sector {
	type key struct{ sector, section int }

	sections := make(map[key]*Section)
	var keys []key
	get := func(k key, label string) *Section {
		sec, ok := sections[k]
		if !ok {
			sec = &Section{Index: k.section, Label: label}
			sections[k] = sec
			keys = append(keys, k)
		}
		return sec
	}

	for _, m := range markers {
		get(key{m.SectorIndex, m.Section}, m.Label)
	}
	for _, sh := range shipments {
		sec := get(key{sh.SectorIndex, sh.ULDSection}, sh.ULD)
		sec.Shipments = append(sec.Shipments, sh)
	}

	slices.SortStableFunc(keys, func(a, b key) int {
		return cmp.Or(cmp.Compare(a.sector, b.sector), cmp.Compare(a.section, b.section))
	})

	var sectors []Sector
	for _, k := range keys {
		if len(sectors) == 0 || sectors[len(sectors)-1].Index != k.sector {
			sectors = append(sectors, Sector{Index: k.sector})
		}
		last := &sectors[len(sectors)-1]
		last.Sections = append(last.Sections, *sections[k])
	}

	return sectors
}

// MarkersOf rebuilds the markers that have shipments under them.
func MarkersOf(shipments []Shipment) []Marker {
	markers := []Marker{}
	seen := make(map[[2]int]bool)
	for _, sh := range shipments {
		k := [2]int{sh.SectorIndex, sh.ULDSection}
		if sh.ULDSection == 0 || seen[k] {
			continue
		}
		seen[k] = true
		markers = append(markers, Marker{SectorIndex: sh.SectorIndex, Section: sh.ULDSection, Label: sh.ULD})
	}
	return markers
}
