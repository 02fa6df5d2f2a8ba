package grid

import (
	"github.com/chrissnell/snowtiles/internal/types"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary aggregates SWE and depth across the grid and per surface type. An
// Unbuilt grid yields an empty summary.
func (g *Grid) Summary() types.Summary {
	return Summarize(g.Snapshot())
}

// Summarize aggregates a set of tile states.
func Summarize(tiles []types.TileState) types.Summary {
	s := summarize(tiles)

	groups := make(map[string][]types.TileState)
	for _, t := range tiles {
		groups[t.Surface] = append(groups[t.Surface], t)
	}
	if len(groups) > 0 {
		s.BySurface = make(map[string]types.Summary, len(groups))
		for name, members := range groups {
			s.BySurface[name] = summarize(members)
		}
	}
	return s
}

func summarize(tiles []types.TileState) types.Summary {
	s := types.Summary{Tiles: len(tiles)}
	if len(tiles) == 0 {
		return s
	}

	swe := make([]float64, len(tiles))
	depth := make([]float64, len(tiles))
	for i, t := range tiles {
		swe[i] = t.SWE
		depth[i] = t.SnowDepth
		if t.SWE > 0 {
			s.SnowCovered++
		}
		s.TotalMelt += t.Melt
		s.TotalRunoff += t.Runoff
	}

	s.SWE = describe(swe)
	s.SnowDepth = describe(depth)
	return s
}

func describe(xs []float64) types.Stats {
	mean, std := stat.MeanStdDev(xs, nil)
	if len(xs) < 2 {
		std = 0
	}
	return types.Stats{
		Mean:   mean,
		StdDev: std,
		Min:    floats.Min(xs),
		Max:    floats.Max(xs),
		Total:  floats.Sum(xs),
	}
}
