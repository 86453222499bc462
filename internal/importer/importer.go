// Package importer stores parsed load plans: it maps the header and
// shipments to storage records and creates one ULD entry per declared unit.
package importer

import (
	"context"
	"fmt"
	"time"

	"cargo_loadplan/internal/loadplan"
	"cargo_loadplan/internal/logger"
	"cargo_loadplan/internal/metrics"
	"cargo_loadplan/internal/storage"
	"cargo_loadplan/internal/uld"
)

// Imported describes a completed import.
type Imported struct {
	LoadPlan     storage.LoadPlan `json:"load_plan"`
	Items        int              `json:"items"`
	ULDEntries   int              `json:"uld_entries"`
	NewEntries   int              `json:"new_entries"`
	DateFallback bool             `json:"date_fallback"`
}

// Importer parses load plan text and persists it.
type Importer struct {
	store   storage.Store
	parser  *loadplan.Parser
	log     logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	onImported func(Imported)
}

// New creates an importer. log and m may be nil.
func New(store storage.Store, log logger.Logger, m *metrics.Metrics) *Importer {
	if log == nil {
		log = logger.NewNop()
	}
	return &Importer{
		store:   store,
		parser:  loadplan.NewParser(log, m),
		log:     log,
		metrics: m,
		now:     time.Now,
	}
}

// SetClock replaces the time source used for the date fallback.
func (im *Importer) SetClock(now func() time.Time) {
	im.now = now
}

// OnImported sets a callback fired after each successful import.
func (im *Importer) OnImported(fn func(Imported)) {
	im.onImported = fn
}

// Import parses content and stores it. Re-importing the same flight and date
// replaces the items and keeps existing ULD entries with their status.
func (im *Importer) Import(ctx context.Context, content string) (*Imported, error) {
	lp := im.parser.Parse(content)
	return im.Save(ctx, lp)
}

// Save stores an already parsed load plan.
func (im *Importer) Save(ctx context.Context, lp *loadplan.LoadPlan) (*Imported, error) {
	flightDate, ok := ParseFlightDate(lp.Header.Date, im.now())
	if !ok {
		im.log.Warn("flight date not parsed, using current date",
			"flight", lp.Header.FlightNumber,
			"raw_date", lp.Header.Date,
			"date", flightDate.Format("2006-01-02"))
		if im.metrics != nil {
			im.metrics.DateFallbacks.Inc()
		}
	}

	record, items := Records(lp, flightDate)
	if err := im.store.SaveLoadPlan(ctx, &record, items); err != nil {
		im.countError("save_load_plan")
		return nil, fmt.Errorf("save load plan: %w", err)
	}

	existing, err := im.store.ListULDEntries(ctx, record.ID)
	if err != nil {
		im.countError("list_uld_entries")
		return nil, fmt.Errorf("list uld entries: %w", err)
	}
	have := make(map[storage.ULDEntryKey]bool, len(existing))
	for _, e := range existing {
		have[e.ULDEntryKey] = true
	}

	entries := ULDEntries(record.ID, lp.Shipments, lp.Markers...)
	created := 0
	for i := range entries {
		if have[entries[i].ULDEntryKey] {
			continue
		}
		if err := im.store.UpsertULDEntry(ctx, &entries[i]); err != nil {
			im.countError("upsert_uld_entry")
			return nil, fmt.Errorf("create uld entry: %w", err)
		}
		created++
	}

	result := &Imported{
		LoadPlan:     record,
		Items:        len(items),
		ULDEntries:   len(entries),
		NewEntries:   created,
		DateFallback: !ok,
	}

	im.log.Info("load plan imported",
		"load_plan_id", record.ID,
		"flight", record.FlightNumber,
		"date", record.FlightDate.Format("2006-01-02"),
		"items", result.Items,
		"new_uld_entries", created)

	if im.onImported != nil {
		im.onImported(*result)
	}
	return result, nil
}

func (im *Importer) countError(op string) {
	if im.metrics != nil {
		im.metrics.ErrorsCount.WithLabelValues(op).Inc()
	}
}

// Records maps a parsed load plan to its storage records, one item per
// shipment with every field carried over.
func Records(lp *loadplan.LoadPlan, flightDate time.Time) (storage.LoadPlan, []storage.LoadPlanItem) {
	h := lp.Header
	record := storage.LoadPlan{
		FlightNumber: h.FlightNumber,
		FlightDate:   flightDate,
		RawDate:      h.Date,
		AircraftType: h.AircraftType,
		AircraftReg:  h.AircraftReg,
		Sector:       h.Sector,
		STD:          h.STD,
		PreparedBy:   h.PreparedBy,
		PreparedOn:   h.PreparedOn,
	}

	items := make([]storage.LoadPlanItem, 0, len(lp.Shipments))
	for _, s := range lp.Shipments {
		items = append(items, storage.LoadPlanItem{
			SerialNumber: s.SerialNo,
			AWBNumber:    s.AWBNo,
			Origin:       s.Origin,
			Destination:  s.Destination,
			Pieces:       s.Pieces,
			Weight:       s.Weight,
			Volume:       s.Volume,
			LVol:         s.LVol,
			SHC:          s.SHC,
			ManDesc:      s.ManDesc,
			PCode:        s.PCode,
			PC:           s.PC,
			THC:          s.THC,
			BS:           s.BS,
			PI:           s.PI,
			FltIn:        s.FltIn,
			ArrDtTime:    s.ArrDtTime,
			QnnAqnn:      s.QnnAqnn,
			WHS:          s.WHS,
			SI:           s.SI,
			ULD:          s.ULD,
			SpecialNotes: append([]string{}, s.SpecialNotes...),
			SectorIndex:  s.SectorIndex,
			ULDSection:   s.ULDSection,
		})
	}
	return record, items
}

// ULDEntries creates one entry per unit declared by each ULD marker,
// including markers with no shipments. Shipments before the first marker of
// a sector get no entries.
func ULDEntries(loadPlanID string, shipments []loadplan.Shipment, markers ...loadplan.Marker) []storage.ULDEntry {
	entries := []storage.ULDEntry{}
	for _, sector := range loadplan.GroupSections(shipments, markers...) {
		for _, section := range sector.Sections {
			if section.Index == 0 {
				continue
			}
			for ei, typ := range uld.ParseSection(section.Label).ExpandedTypes {
				entries = append(entries, storage.ULDEntry{
					ULDEntryKey: storage.ULDEntryKey{
						LoadPlanID:      loadPlanID,
						SectorIndex:     sector.Index,
						ULDSectionIndex: section.Index,
						EntryIndex:      ei,
					},
					ULDType: typ,
				})
			}
		}
	}
	return entries
}

// LoadPlanFrom rebuilds a parsed load plan from stored records, so reports
// can be regenerated without the original text. Markers with no shipments
// are not stored and do not come back.
func LoadPlanFrom(record storage.LoadPlan, items []storage.LoadPlanItem) *loadplan.LoadPlan {
	lp := &loadplan.LoadPlan{
		Header: loadplan.Header{
			FlightNumber: record.FlightNumber,
			Date:         record.RawDate,
			AircraftType: record.AircraftType,
			AircraftReg:  record.AircraftReg,
			Sector:       record.Sector,
			STD:          record.STD,
			PreparedBy:   record.PreparedBy,
			PreparedOn:   record.PreparedOn,
		},
		Shipments: make([]loadplan.Shipment, 0, len(items)),
	}
	for _, it := range items {
		lp.Shipments = append(lp.Shipments, loadplan.Shipment{
			SerialNo:     it.SerialNumber,
			AWBNo:        it.AWBNumber,
			Origin:       it.Origin,
			Destination:  it.Destination,
			Pieces:       it.Pieces,
			Weight:       it.Weight,
			Volume:       it.Volume,
			LVol:         it.LVol,
			SHC:          it.SHC,
			ManDesc:      it.ManDesc,
			PCode:        it.PCode,
			PC:           it.PC,
			THC:          it.THC,
			BS:           it.BS,
			PI:           it.PI,
			FltIn:        it.FltIn,
			ArrDtTime:    it.ArrDtTime,
			QnnAqnn:      it.QnnAqnn,
			WHS:          it.WHS,
			SI:           it.SI,
			ULD:          it.ULD,
			SpecialNotes: append([]string{}, it.SpecialNotes...),
			SectorIndex:  it.SectorIndex,
			ULDSection:   it.ULDSection,
		})
	}
	lp.Markers = loadplan.MarkersOf(lp.Shipments)
	return lp
}
