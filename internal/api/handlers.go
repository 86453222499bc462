package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"cargo_loadplan/internal/export"
	"cargo_loadplan/internal/importer"
	"cargo_loadplan/internal/loadplan"
	"cargo_loadplan/internal/reports"
	"cargo_loadplan/internal/status"
	"cargo_loadplan/internal/storage"
	"cargo_loadplan/internal/uld"
)

// FormatJSON returns report rows as JSON instead of a file.
const FormatJSON = "json"

// handleHealth returns service health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "loadplan-api",
	})
}

// handleParse parses a load plan without storing it.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	content, ok := readContent(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.parser.Parse(content))
}

// handleTrace returns the per-line classification of a load plan.
func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	content, ok := readContent(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, loadplan.Trace(content))
}

// handleImport parses and stores a load plan.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	content, ok := readContent(w, r)
	if !ok {
		return
	}
	res, err := s.importer.Import(r.Context(), content)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// handleListLoadPlans lists stored load plans, newest flight first.
func (s *Server) handleListLoadPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.store.ListLoadPlans(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"load_plans": plans,
		"count":      len(plans),
	})
}

// loadPlanResponse is a stored load plan with its items and ULD entries.
type loadPlanResponse struct {
	LoadPlan   *storage.LoadPlan      `json:"load_plan"`
	Items      []storage.LoadPlanItem `json:"items"`
	ULDEntries []storage.ULDEntry     `json:"uld_entries"`
}

// handleGetLoadPlan returns one stored load plan.
func (s *Server) handleGetLoadPlan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	lp, err := s.store.GetLoadPlan(ctx, id)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	items, err := s.store.ListItems(ctx, id)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	entries, err := s.store.ListULDEntries(ctx, id)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loadPlanResponse{LoadPlan: lp, Items: items, ULDEntries: entries})
}

// handleReportFromText renders a report straight from posted text.
func (s *Server) handleReportFromText(w http.ResponseWriter, r *http.Request) {
	content, ok := readContent(w, r)
	if !ok {
		return
	}
	s.renderReport(w, r, s.parser.Parse(content))
}

// handleStoredReport renders a report for a stored load plan.
func (s *Server) handleStoredReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	record, err := s.store.GetLoadPlan(ctx, id)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	items, err := s.store.ListItems(ctx, id)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.renderReport(w, r, importer.LoadPlanFrom(*record, items))
}

func (s *Server) renderReport(w http.ResponseWriter, r *http.Request, lp *loadplan.LoadPlan) {
	kind := chi.URLParam(r, "kind")
	if !slices.Contains(reports.Kinds, kind) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown report kind %q", kind))
		return
	}

	name := r.URL.Query().Get("format")
	if strings.EqualFold(name, FormatJSON) {
		b := s.bundle(lp, kind)
		s.recordRun(r, lp, kind, FormatJSON, b)
		writeJSON(w, http.StatusOK, reportPayload(kind, b))
		return
	}

	f, err := export.ParseFormat(name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var buf bytes.Buffer
	var b reports.Bundle
	if f == export.XLSX {
		b = s.reports.All(lp)
		err = s.exporter.WriteWorkbook(&buf, b)
	} else {
		b = s.bundle(lp, kind)
		err = s.exporter.Write(&buf, f, kind, b)
	}
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.recordRun(r, lp, kind, string(f), b)

	filename := fmt.Sprintf("%s_%s.%s", fileStem(lp.Header.FlightNumber), kind, f)
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// bundle generates only the requested report.
func (s *Server) bundle(lp *loadplan.LoadPlan, kind string) reports.Bundle {
	b := reports.Bundle{Header: lp.Header}
	switch kind {
	case reports.KindSpecialCargo:
		b.SpecialCargo = s.reports.SpecialCargo(lp.Header, lp.Shipments)
	case reports.KindVUN:
		b.VUN = s.reports.VUNList(lp.Header, lp.Shipments)
	case reports.KindQRT:
		b.QRT = s.reports.QRTList(lp.Header, lp.Shipments)
	}
	return b
}

func reportPayload(kind string, b reports.Bundle) interface{} {
	switch kind {
	case reports.KindVUN:
		return b.VUN
	case reports.KindQRT:
		return b.QRT
	}
	return b.SpecialCargo
}

// recordRun stores analytics for a generated report. Failures are logged.
func (s *Server) recordRun(r *http.Request, lp *loadplan.LoadPlan, kind, format string, b reports.Bundle) {
	if s.analytics == nil {
		return
	}
	run := ReportRun(lp.Header, kind, format, s.exporter.Shift().Name, b)
	if err := s.analytics.RecordRuns(r.Context(), []storage.ReportRun{run}); err != nil {
		s.log.Warn("record report run failed", "kind", kind, "error", err)
	}
}

// ReportRun builds the analytics record for one generated report.
func ReportRun(h loadplan.Header, kind, format, shift string, b reports.Bundle) storage.ReportRun {
	sum := b.Summarize(kind)
	return storage.ReportRun{
		ID:           uuid.New(),
		GeneratedAt:  time.Now().UTC(),
		FlightNumber: h.FlightNumber,
		FlightDate:   h.Date,
		Kind:         kind,
		Format:       format,
		Shift:        shift,
		Rows:         uint32(sum.Rows),
		WeaponsRows:  uint32(sum.WeaponsRows),
		TotalPieces:  uint32(sum.Pieces),
		TotalWeight:  sum.Weight,
	}
}

// handleListULDEntries lists the ULD entries of a load plan.
func (s *Server) handleListULDEntries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if _, err := s.store.GetLoadPlan(ctx, id); err != nil {
		s.writeErr(w, err)
		return
	}
	entries, err := s.store.ListULDEntries(ctx, id)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"uld_entries": entries,
		"count":       len(entries),
	})
}

// upsertULDRequest is the mobile client's ULD entry edit. Status is not
// accepted here; it changes only through the status endpoints.
type upsertULDRequest struct {
	SectorIndex     int    `json:"sector_index"`
	ULDSectionIndex int    `json:"uld_section_index"`
	EntryIndex      int    `json:"entry_index"`
	ULDType         string `json:"uld_type"`
	ULDNumber       string `json:"uld_number"`
	UpdatedBy       string `json:"updated_by"`
}

// handleUpsertULDEntry inserts or updates an entry by its composite key.
func (s *Server) handleUpsertULDEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	loadPlanID := chi.URLParam(r, "id")

	if _, err := s.store.GetLoadPlan(ctx, loadPlanID); err != nil {
		s.writeErr(w, err)
		return
	}

	var req upsertULDRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.SectorIndex < 0 || req.ULDSectionIndex < 0 || req.EntryIndex < 0 {
		writeError(w, http.StatusBadRequest, "indexes must not be negative")
		return
	}

	entry, created, err := s.tracker.Edit(ctx, storage.ULDEntry{
		ULDEntryKey: storage.ULDEntryKey{
			LoadPlanID:      loadPlanID,
			SectorIndex:     req.SectorIndex,
			ULDSectionIndex: req.ULDSectionIndex,
			EntryIndex:      req.EntryIndex,
		},
		ULDType:   strings.ToUpper(strings.TrimSpace(req.ULDType)),
		ULDNumber: strings.ToUpper(strings.TrimSpace(req.ULDNumber)),
		UpdatedBy: req.UpdatedBy,
	})
	if err != nil {
		s.writeErr(w, err)
		return
	}

	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	writeJSON(w, code, entry)
}

// handleGetULD returns a ULD's current status and history.
func (s *Server) handleGetULD(w http.ResponseWriter, r *http.Request) {
	u, err := s.tracker.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

type statusRequest struct {
	Status string `json:"status"`
	By     string `json:"by"`
}

// handleAdvanceStatus moves a ULD forward in the status pipeline.
func (s *Server) handleAdvanceStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	next, err := status.ParseStatus(req.Status)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	u, err := s.tracker.Advance(r.Context(), chi.URLParam(r, "id"), next, req.By)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// handleUnmarkLoaded reverts the most recent status change.
func (s *Server) handleUnmarkLoaded(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	u, err := s.tracker.UnmarkLoaded(r.Context(), chi.URLParam(r, "id"), req.By)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// handleExpandSection decodes ?section=XX 02PMC 03AKE XX.
func (s *Server) handleExpandSection(w http.ResponseWriter, r *http.Request) {
	section := r.URL.Query().Get("section")
	if strings.TrimSpace(section) == "" {
		writeError(w, http.StatusBadRequest, "section is required")
		return
	}
	sec := uld.ParseSection(section)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"section":        section,
		"count":          sec.Count,
		"types":          sec.Types,
		"expanded_types": sec.ExpandedTypes,
		"labels":         sec.Labels(),
	})
}

type formatSectionRequest struct {
	Section    string   `json:"section"`
	ULDNumbers []string `json:"uld_numbers"`
}

// handleFormatSection re-renders a section from the filled ULD numbers.
func (s *Server) handleFormatSection(w http.ResponseWriter, r *http.Request) {
	var req formatSectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"section": uld.FormatSection(req.ULDNumbers, req.Section),
	})
}

// writeErr maps domain errors to HTTP status codes.
func (s *Server) writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, status.ErrUnknownULD):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, status.ErrInvalidStatus),
		errors.Is(err, export.ErrUnknownFormat),
		errors.Is(err, export.ErrUnknownKind):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, status.ErrStatusRegression), errors.Is(err, status.ErrNotLoaded):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.log.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// readContent reads a load plan body, rejecting empty and oversized input.
func readContent(w http.ResponseWriter, r *http.Request) (string, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "load plan too large")
			return "", false
		}
		writeError(w, http.StatusBadRequest, "failed to read body")
		return "", false
	}
	if len(bytes.TrimSpace(data)) == 0 {
		writeError(w, http.StatusBadRequest, "empty load plan")
		return "", false
	}
	return string(data), true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// fileStem keeps letters and digits of a flight number for file names.
func fileStem(flight string) string {
	stem := strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, flight)
	if stem == "" {
		return "loadplan"
	}
	return stem
}
