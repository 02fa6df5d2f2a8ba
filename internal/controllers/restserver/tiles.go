package restserver

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/chrissnell/snowtiles/internal/surface"
	"github.com/chrissnell/snowtiles/internal/types"
)

// tileAt finds a tile in a row-major snapshot
func tileAt(s types.GridSnapshot, row, col int) (types.TileState, error) {
	if row < 0 || col < 0 || row >= s.Rows || col >= s.Cols {
		return types.TileState{}, &types.OutOfRangeError{Row: row, Col: col, Rows: s.Rows, Cols: s.Cols}
	}
	i := row*s.Cols + col
	if i >= len(s.Tiles) {
		return types.TileState{}, &types.OutOfRangeError{Row: row, Col: col, Rows: s.Rows, Cols: s.Cols}
	}
	return s.Tiles[i], nil
}

type tileFilter struct {
	surface string
	row     int
	hasRow  bool
	covered bool
}

func parseTileFilter(req *http.Request) (tileFilter, error) {
	var f tileFilter
	q := req.URL.Query()

	if name := q.Get("surface"); name != "" {
		t, err := surface.ParseType(name)
		if err != nil {
			return f, err
		}
		f.surface = t.String()
	}

	if r := q.Get("row"); r != "" {
		row, err := strconv.Atoi(r)
		if err != nil {
			return f, fmt.Errorf("invalid row %q", r)
		}
		f.row, f.hasRow = row, true
	}

	if c := q.Get("covered"); c != "" {
		covered, err := strconv.ParseBool(c)
		if err != nil {
			return f, fmt.Errorf("invalid covered %q", c)
		}
		f.covered = covered
	}
	return f, nil
}

func (f tileFilter) apply(tiles []types.TileState) []types.TileState {
	out := make([]types.TileState, 0, len(tiles))
	for _, t := range tiles {
		if f.surface != "" && t.Surface != f.surface {
			continue
		}
		if f.hasRow && t.Row != f.row {
			continue
		}
		if f.covered && t.SWE <= 0 {
			continue
		}
		out = append(out, t)
	}
	return out
}
