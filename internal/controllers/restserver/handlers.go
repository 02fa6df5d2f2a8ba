package restserver

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/chrissnell/snowtiles/internal/grid"
	"github.com/chrissnell/snowtiles/internal/storage"
	"github.com/chrissnell/snowtiles/internal/surface"
	"github.com/chrissnell/snowtiles/internal/types"
	"github.com/chrissnell/snowtiles/pkg/responseformat"
	"github.com/gorilla/mux"
)

// GridResponse describes the grid as of the latest tick
type GridResponse struct {
	RunID   string        `json:"run_id"`
	Tick    int64         `json:"tick"`
	SimTime time.Time     `json:"sim_time"`
	Rows    int           `json:"rows"`
	Cols    int           `json:"cols"`
	Forcing types.Forcing `json:"forcing"`
	Summary types.Summary `json:"summary"`
}

// TilesResponse is the body of GET /tiles
type TilesResponse struct {
	Tick    int64             `json:"tick"`
	SimTime time.Time         `json:"sim_time"`
	Tiles   []types.TileState `json:"tiles"`
}

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

// latest writes a 503 and returns false when nothing has been published yet
func (h *Handlers) latest(w http.ResponseWriter, req *http.Request) (types.GridSnapshot, bool) {
	s, ok := h.controller.source.Latest()
	if !ok {
		h.formatter.WriteError(w, req, http.StatusServiceUnavailable, "no tick has completed yet")
	}
	return s, ok
}

// GetGrid handles GET /grid
func (h *Handlers) GetGrid(w http.ResponseWriter, req *http.Request) {
	s, ok := h.latest(w, req)
	if !ok {
		return
	}
	h.formatter.WriteResponse(w, req, GridResponse{
		RunID:   s.RunID,
		Tick:    s.Tick,
		SimTime: s.SimTime,
		Rows:    s.Rows,
		Cols:    s.Cols,
		Forcing: s.Forcing,
		Summary: s.Summary,
	}, nil)
}

// GetTiles handles GET /tiles. The optional surface and row query parameters
// filter the result.
func (h *Handlers) GetTiles(w http.ResponseWriter, req *http.Request) {
	s, ok := h.latest(w, req)
	if !ok {
		return
	}

	filter, err := parseTileFilter(req)
	if err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, err.Error())
		return
	}

	h.formatter.WriteResponse(w, req, TilesResponse{
		Tick:    s.Tick,
		SimTime: s.SimTime,
		Tiles:   filter.apply(s.Tiles),
	}, nil)
}

// GetTile handles GET /tiles/{row}/{col}
func (h *Handlers) GetTile(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	row, err := strconv.Atoi(vars["row"])
	if err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, "invalid row")
		return
	}
	col, err := strconv.Atoi(vars["col"])
	if err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, "invalid col")
		return
	}

	s, ok := h.latest(w, req)
	if !ok {
		return
	}

	tile, err := tileAt(s, row, col)
	if err != nil {
		h.formatter.WriteError(w, req, http.StatusNotFound, err.Error())
		return
	}
	h.formatter.WriteResponse(w, req, tile, nil)
}

// GetSummary handles GET /summary. With ?surface= it returns only that surface's
// aggregate.
func (h *Handlers) GetSummary(w http.ResponseWriter, req *http.Request) {
	s, ok := h.latest(w, req)
	if !ok {
		return
	}

	name := req.URL.Query().Get("surface")
	if name == "" {
		h.formatter.WriteResponse(w, req, s.Summary, nil)
		return
	}

	t, err := surface.ParseType(name)
	if err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, err.Error())
		return
	}
	sum, ok := s.Summary.BySurface[t.String()]
	if !ok {
		sum = grid.Summarize(nil)
	}
	h.formatter.WriteResponse(w, req, sum, nil)
}

// GetForcing handles GET /forcing
func (h *Handlers) GetForcing(w http.ResponseWriter, req *http.Request) {
	s, ok := h.latest(w, req)
	if !ok {
		return
	}
	h.formatter.WriteResponse(w, req, s.Forcing, nil)
}

// GetHealth handles GET /health
func (h *Handlers) GetHealth(w http.ResponseWriter, req *http.Request) {
	sinks := map[string]storage.Health{}
	if h.controller.health != nil {
		sinks = h.controller.health.GetAllHealth()
	}

	status := http.StatusOK
	for _, s := range sinks {
		if s.Status != storage.StatusHealthy {
			status = http.StatusServiceUnavailable
		}
	}

	resp := struct {
		Tick  int64                     `json:"tick"`
		Sinks map[string]storage.Health `json:"sinks"`
	}{Sinks: sinks}
	if s, ok := h.controller.source.Latest(); ok {
		resp.Tick = s.Tick
	}
	h.formatter.WriteStatus(w, req, status, resp, nil)
}

// NotFound answers unknown routes in the response format the client asked for
func (h *Handlers) NotFound(w http.ResponseWriter, req *http.Request) {
	h.formatter.WriteError(w, req, http.StatusNotFound, fmt.Sprintf("no such endpoint: %s", req.URL.Path))
}
