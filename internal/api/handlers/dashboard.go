package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/sespe/emendas-bi/internal/aggregate"
	"github.com/sespe/emendas-bi/internal/api/middleware"
	"github.com/sespe/emendas-bi/internal/auth"
	"github.com/sespe/emendas-bi/internal/dataset"
	"github.com/sespe/emendas-bi/internal/filter"
)

// DashboardHandler serves the filter chain, the filtered table and the
// aggregate views. Every request recomputes the pipeline from the cached
// dataset; nothing derived is persisted between interactions.
type DashboardHandler struct {
	loader *dataset.Loader
	log    zerolog.Logger
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(loader *dataset.Loader, log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{loader: loader, log: log}
}

// loadTable fetches the dataset, surfacing a fetch failure as the single
// blocking error for this interaction.
func (h *DashboardHandler) loadTable(w http.ResponseWriter, r *http.Request) (*dataset.Table, bool) {
	table, err := h.loader.Load(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load dataset")
		middleware.WriteError(w, http.StatusBadGateway,
			"Failed to load the spreadsheet. Check that it is shared as 'anyone with the link'.")
		return nil, false
	}
	return table, true
}

// chainFor returns the session's filter chain, building a fresh one with
// default slots on first use. The caller holds the session lock.
func (h *DashboardHandler) chainFor(sess *auth.Session, table *dataset.Table) *filter.Chain {
	if sess.Chain == nil {
		sess.Chain = filter.NewChain(h.loader.Profile(), table)
	}
	return sess.Chain
}

// slotState is the wire form of one slot plus its pickers' option sets.
type slotState struct {
	Index       int      `json:"index"`
	Column      string   `json:"column"`
	Value       string   `json:"value"`
	Optional    bool     `json:"optional"`
	Candidates  []string `json:"candidates"`
	ValueDomain []string `json:"value_domain,omitempty"`
}

type filterState struct {
	Profile    string      `json:"profile"`
	Generation int         `json:"generation"`
	Slots      []slotState `json:"slots"`
	Filtered   int         `json:"filtered_rows"`
	Total      int         `json:"total_rows"`
}

func (h *DashboardHandler) state(chain *filter.Chain, table *dataset.Table) filterState {
	slots := chain.Slots()
	st := filterState{
		Profile:    h.loader.Profile().Name,
		Generation: chain.Generation(),
		Slots:      make([]slotState, 0, len(slots)),
		Filtered:   chain.Apply(table).Len(),
		Total:      table.Len(),
	}
	for i, slot := range slots {
		st.Slots = append(st.Slots, slotState{
			Index:       i + 1,
			Column:      slot.Column,
			Value:       slot.Value,
			Optional:    i > 0,
			Candidates:  chain.CandidateColumns(i),
			ValueDomain: chain.ValueDomain(i, table),
		})
	}
	return st
}

// State handles GET /api/dashboard/state.
func (h *DashboardHandler) State(w http.ResponseWriter, r *http.Request) {
	table, ok := h.loadTable(w, r)
	if !ok {
		return
	}
	sess := middleware.SessionFromContext(r.Context())
	sess.Lock()
	defer sess.Unlock()
	chain := h.chainFor(sess, table)
	middleware.WriteJSON(w, http.StatusOK, h.state(chain, table))
}

// UpdateFilter handles POST /api/dashboard/filters. The request mutates
// one slot: a column change, a value change, or both.
func (h *DashboardHandler) UpdateFilter(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Slot   int     `json:"slot"`
		Column *string `json:"column,omitempty"`
		Value  *string `json:"value,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	table, ok := h.loadTable(w, r)
	if !ok {
		return
	}
	sess := middleware.SessionFromContext(r.Context())
	sess.Lock()
	defer sess.Unlock()
	chain := h.chainFor(sess, table)

	if req.Column != nil {
		if err := chain.SetColumn(req.Slot-1, *req.Column, table); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.Value != nil {
		if err := chain.SetValue(req.Slot-1, *req.Value, table); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	middleware.WriteJSON(w, http.StatusOK, h.state(chain, table))
}

// ResetFilters handles POST /api/dashboard/filters/reset.
func (h *DashboardHandler) ResetFilters(w http.ResponseWriter, r *http.Request) {
	table, ok := h.loadTable(w, r)
	if !ok {
		return
	}
	sess := middleware.SessionFromContext(r.Context())
	sess.Lock()
	defer sess.Unlock()
	chain := h.chainFor(sess, table)
	chain.Reset()
	middleware.WriteJSON(w, http.StatusOK, h.state(chain, table))
}

// Data handles GET /api/dashboard/data: the raw filtered table.
func (h *DashboardHandler) Data(w http.ResponseWriter, r *http.Request) {
	table, ok := h.loadTable(w, r)
	if !ok {
		return
	}
	sess := middleware.SessionFromContext(r.Context())
	sess.Lock()
	defer sess.Unlock()
	filtered := h.chainFor(sess, table).Apply(table)

	rows := make([]map[string]interface{}, 0, filtered.Len())
	for _, rec := range filtered.Records {
		row := make(map[string]interface{}, len(filtered.Columns))
		for _, col := range filtered.Columns {
			if cell, ok := filtered.Cell(rec, col); ok {
				row[col] = cell
			} else {
				row[col] = nil
			}
		}
		rows = append(rows, row)
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"columns": filtered.Columns,
		"rows":    rows,
		"count":   filtered.Len(),
	})
}

// Aggregate handles GET /api/dashboard/aggregate?dimension=&metric=&top=.
func (h *DashboardHandler) Aggregate(w http.ResponseWriter, r *http.Request) {
	dim := r.URL.Query().Get("dimension")
	if dim == "" {
		middleware.WriteError(w, http.StatusBadRequest, "dimension is required")
		return
	}
	if dim == dataset.ColValor || dim == dataset.ColDataOBMS {
		middleware.WriteError(w, http.StatusBadRequest, fmt.Sprintf("%q is not a categorical dimension", dim))
		return
	}

	mode := aggregate.Count
	switch r.URL.Query().Get("metric") {
	case "", string(aggregate.Count):
	case string(aggregate.SumValue):
		mode = aggregate.SumValue
	default:
		middleware.WriteError(w, http.StatusBadRequest, "metric must be Contagem or Soma de VALOR")
		return
	}

	top := 0
	if raw := r.URL.Query().Get("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			middleware.WriteError(w, http.StatusBadRequest, "top must be a positive integer")
			return
		}
		top = n
	}

	table, ok := h.loadTable(w, r)
	if !ok {
		return
	}
	sess := middleware.SessionFromContext(r.Context())
	sess.Lock()
	defer sess.Unlock()
	filtered := h.chainFor(sess, table).Apply(table)

	if !filtered.HasColumn(dim) {
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"ok": false, "reason": fmt.Sprintf("column %q is not present in the dataset", dim),
		})
		return
	}

	result := aggregate.Aggregate(filtered, dim, mode)
	if top > 0 {
		result = result.Head(top)
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "result": result})
}

// TimeSeries handles GET /api/dashboard/timeseries.
func (h *DashboardHandler) TimeSeries(w http.ResponseWriter, r *http.Request) {
	table, ok := h.loadTable(w, r)
	if !ok {
		return
	}
	sess := middleware.SessionFromContext(r.Context())
	sess.Lock()
	defer sess.Unlock()
	filtered := h.chainFor(sess, table).Apply(table)

	series, ok := aggregate.TimeSeries(filtered)
	if !ok {
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"ok": false, "reason": "disbursement date column is absent or has no valid dates",
		})
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "series": series})
}

// Crosstab handles GET /api/dashboard/crosstab?years=.
func (h *DashboardHandler) Crosstab(w http.ResponseWriter, r *http.Request) {
	years := 5
	if raw := r.URL.Query().Get("years"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			middleware.WriteError(w, http.StatusBadRequest, "years must be a positive integer")
			return
		}
		years = n
	}

	table, ok := h.loadTable(w, r)
	if !ok {
		return
	}
	sess := middleware.SessionFromContext(r.Context())
	sess.Lock()
	defer sess.Unlock()
	filtered := h.chainFor(sess, table).Apply(table)

	crosstab, ok := aggregate.YearStatusCrosstab(filtered, years)
	if !ok {
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"ok": false, "reason": "columns 'ANO DA EMENDA' and 'STATUS GERAL' are required",
		})
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "crosstab": crosstab})
}

// Execution handles GET /api/dashboard/execution.
func (h *DashboardHandler) Execution(w http.ResponseWriter, r *http.Request) {
	table, ok := h.loadTable(w, r)
	if !ok {
		return
	}
	sess := middleware.SessionFromContext(r.Context())
	sess.Lock()
	defer sess.Unlock()
	filtered := h.chainFor(sess, table).Apply(table)

	rows, ok := aggregate.ExecutionBreakdown(filtered)
	if !ok {
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"ok": false, "reason": "column 'EXECUÇÃO DA EMENDA' is not present",
		})
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "breakdown": rows})
}

// Export handles GET /api/dashboard/export: the filtered table as a CSV
// attachment under the fixed filename.
func (h *DashboardHandler) Export(w http.ResponseWriter, r *http.Request) {
	table, ok := h.loadTable(w, r)
	if !ok {
		return
	}
	sess := middleware.SessionFromContext(r.Context())
	sess.Lock()
	defer sess.Unlock()
	filtered := h.chainFor(sess, table).Apply(table)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", dataset.ExportFilename))
	if err := dataset.WriteCSV(w, filtered); err != nil {
		h.log.Error().Err(err).Msg("Failed to write export")
	}
}
