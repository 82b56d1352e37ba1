package board

import "math"

// Point is a pointer position in renderer units (terminal cells in the TUI).
type Point struct {
	X float64
	Y float64
}

// Distance returns the Euclidean distance between two points.
func (p Point) Distance(other Point) float64 {
	return math.Hypot(p.X-other.X, p.Y-other.Y)
}

// Rect is an axis-aligned rectangle anchored at its top-left corner.
type Rect struct {
	X float64
	Y float64
	W float64
	H float64
}

// Corners returns the corners in top-left, top-right, bottom-left, bottom-right order.
func (r Rect) Corners() [4]Point {
	return [4]Point{
		{X: r.X, Y: r.Y},
		{X: r.X + r.W, Y: r.Y},
		{X: r.X, Y: r.Y + r.H},
		{X: r.X + r.W, Y: r.Y + r.H},
	}
}

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Point {
	return Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.W && p.Y >= r.Y && p.Y <= r.Y+r.H
}

// Translate returns r shifted by dx, dy.
func (r Rect) Translate(dx, dy float64) Rect {
	r.X += dx
	r.Y += dy
	return r
}

// Zone is one drop target, identified by its column id.
type Zone struct {
	ID   string
	Rect Rect
}

// ClosestCorners returns the zone whose corners are, on average, nearest to the corners of
// active. Ties keep the earlier zone.
func ClosestCorners(active Rect, zones []Zone) (string, bool) {
	if len(zones) == 0 {
		return "", false
	}
	activeCorners := active.Corners()
	bestID := ""
	best := math.Inf(1)
	for _, zone := range zones {
		zoneCorners := zone.Rect.Corners()
		var sum float64
		for i := range activeCorners {
			sum += activeCorners[i].Distance(zoneCorners[i])
		}
		if mean := sum / 4; mean < best {
			best = mean
			bestID = zone.ID
		}
	}
	return bestID, true
}

// Resolver limits collision detection to the board area.
type Resolver struct {
	Bounds Rect
}

// Resolve returns the target column id for active, or "" when the dragged card has left the
// board.
func (r Resolver) Resolve(active Rect, zones []Zone) string {
	if r.Bounds.W > 0 && r.Bounds.H > 0 && !r.Bounds.Contains(active.Center()) {
		return ""
	}
	id, _ := ClosestCorners(active, zones)
	return id
}
