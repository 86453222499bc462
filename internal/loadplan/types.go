// Package loadplan parses load plan text dumps into a header and typed
// shipment records.
package loadplan

// Header is the flight metadata at the top of a load plan. Fields that could
// not be found are empty.
type Header struct {
	FlightNumber string `json:"flight_number"` // EK0205
	Date         string `json:"date"`          // 12Oct, free text
	AircraftType string `json:"aircraft_type"`
	AircraftReg  string `json:"aircraft_reg"`
	Sector       string `json:"sector"` // DXBMXP
	STD          string `json:"std"`    // HH:MM
	PreparedBy   string `json:"prepared_by"`
	PreparedOn   string `json:"prepared_on"`
}

// Shipment is one AWB line of the shipment table.
type Shipment struct {
	SerialNo     string   `json:"serial_no"`
	AWBNo        string   `json:"awb_no"`
	Origin       string   `json:"origin"`
	Destination  string   `json:"destination"`
	Pieces       int      `json:"pieces"`
	Weight       float64  `json:"weight"`
	Volume       float64  `json:"volume"`
	LVol         float64  `json:"lvol"`
	SHC          string   `json:"shc"`
	ManDesc      string   `json:"man_desc"`
	PCode        string   `json:"pcode"`
	PC           string   `json:"pc"`
	THC          string   `json:"thc"`
	BS           string   `json:"bs"`
	PI           string   `json:"pi"`
	FltIn        string   `json:"flt_in"`
	ArrDtTime    string   `json:"arr_dt_time"`
	QnnAqnn      string   `json:"qnn_aqnn"`
	WHS          string   `json:"whs"`
	SI           string   `json:"si"`
	ULD          string   `json:"uld"`
	SpecialNotes []string `json:"special_notes"`
	SectorIndex  int      `json:"sector_index"`
	ULDSection   int      `json:"uld_section_index"` // markers seen in the sector, 0 before the first
}

// LoadPlan is a fully parsed document. Markers includes ULD markers with no
// shipments under them.
type LoadPlan struct {
	Header    Header     `json:"header"`
	Shipments []Shipment `json:"shipments"`
	Markers   []Marker   `json:"markers"`
}

// Marker is one occurrence of a ULD marker line. Section is 1-based within
// its sector.
type Marker struct {
	SectorIndex int    `json:"sector_index"`
	Section     int    `json:"uld_section_index"`
	Label       string `json:"label"`
}

// Section holds the shipments under one ULD marker occurrence.
type Section struct {
	Index     int        `json:"index"` // 0 before the first marker
	Label     string     `json:"label"`
	Shipments []Shipment `json:"shipments"`
}

// Sector is one shipment table, terminated by a TOTALS line.
type Sector struct {
	Index    int       `json:"index"`
	Sections []Section `json:"sections"`
}
