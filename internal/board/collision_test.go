package board

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func boardZones() []Zone {
	return []Zone{
		{ID: "todo", Rect: Rect{X: 0, Y: 0, W: 30, H: 40}},
		{ID: "in-progress", Rect: Rect{X: 32, Y: 0, W: 30, H: 40}},
		{ID: "done", Rect: Rect{X: 64, Y: 0, W: 30, H: 40}},
	}
}

func TestClosestCornersPicksNearestColumn(t *testing.T) {
	card := Rect{X: 60, Y: 5, W: 28, H: 6}
	id, ok := ClosestCorners(card, boardZones())
	require.True(t, ok)
	require.Equal(t, "done", id)

	card = Rect{X: 30, Y: 5, W: 28, H: 6}
	id, ok = ClosestCorners(card, boardZones())
	require.True(t, ok)
	require.Equal(t, "in-progress", id)
}

func TestClosestCornersTiesKeepFirstZone(t *testing.T) {
	zones := []Zone{
		{ID: "a", Rect: Rect{X: 0, Y: 0, W: 10, H: 10}},
		{ID: "b", Rect: Rect{X: 0, Y: 0, W: 10, H: 10}},
	}
	id, ok := ClosestCorners(Rect{X: 1, Y: 1, W: 4, H: 4}, zones)
	require.True(t, ok)
	require.Equal(t, "a", id)
}

func TestClosestCornersWithoutZones(t *testing.T) {
	_, ok := ClosestCorners(Rect{W: 1, H: 1}, nil)
	require.False(t, ok)
}

func TestResolverOutsideBoundsHasNoTarget(t *testing.T) {
	r := Resolver{Bounds: Rect{X: 0, Y: 0, W: 94, H: 40}}
	require.Equal(t, "", r.Resolve(Rect{X: 100, Y: 50, W: 20, H: 6}, boardZones()))
	require.Equal(t, "todo", r.Resolve(Rect{X: 2, Y: 2, W: 20, H: 6}, boardZones()))
}

func TestRectHelpers(t *testing.T) {
	r := Rect{X: 2, Y: 4, W: 6, H: 2}
	require.Equal(t, Point{X: 5, Y: 5}, r.Center())
	require.True(t, r.Contains(Point{X: 8, Y: 6}))
	require.False(t, r.Contains(Point{X: 8.5, Y: 6}))
	require.Equal(t, Rect{X: 3, Y: 2, W: 6, H: 2}, r.Translate(1, -2))
	require.InDelta(t, 5, Point{}.Distance(Point{X: 3, Y: 4}), 1e-9)
}
