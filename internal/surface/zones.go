package surface

import "strings"

// ZoneFunc assigns a surface type to the tile at (row, col). A false second result
// means the rule has no surface for that tile, which fails the grid build.
type ZoneFunc func(row, col int) (Type, bool)

// UniformZones assigns t to every tile.
func UniformZones(t Type) ZoneFunc {
	return func(row, col int) (Type, bool) {
		return t, t.Valid()
	}
}

// BandedZones lays out a parking-lot style partition: Grass on an outer border
// edge tiles wide, an Asphalt band of band rows through the middle of the grid, and
// Concrete everywhere else.
func BandedZones(rows, cols, edge, band int) ZoneFunc {
	bandStart := (rows - band) / 2
	bandEnd := bandStart + band

	return func(row, col int) (Type, bool) {
		if row < 0 || col < 0 || row >= rows || col >= cols {
			return 0, false
		}
		if row < edge || col < edge || row >= rows-edge || col >= cols-edge {
			return Grass, true
		}
		if row >= bandStart && row < bandEnd {
			return Asphalt, true
		}
		return Concrete, true
	}
}

// LayoutZones reads an explicit map, one string per row with one letter per tile
// (C, A or G). Any other character, or a tile outside the map, has no surface.
func LayoutZones(layout []string) ZoneFunc {
	return func(row, col int) (Type, bool) {
		if row < 0 || row >= len(layout) {
			return 0, false
		}
		line := strings.TrimSpace(layout[row])
		if col < 0 || col >= len(line) {
			return 0, false
		}
		t, err := ParseType(line[col : col+1])
		if err != nil {
			return 0, false
		}
		return t, true
	}
}
