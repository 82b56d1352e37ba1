package domain

import (
	"strings"
	"time"
)

// Column represents one status bucket on the board.
type Column struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Color     string    `json:"color"`
	Gradient  string    `json:"gradient"`
	Order     int       `json:"order"`
	Seq       int64     `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// PaletteColor is one selectable column color.
type PaletteColor struct {
	Name  string
	Label string
	Value string
}

// ColumnPalette lists the column colors offered by the column form.
var ColumnPalette = []PaletteColor{
	{Name: "blue", Label: "Blue", Value: "from-blue-500 to-blue-600"},
	{Name: "purple", Label: "Purple", Value: "from-purple-500 to-purple-600"},
	{Name: "green", Label: "Green", Value: "from-green-500 to-green-600"},
	{Name: "red", Label: "Red", Value: "from-red-500 to-red-600"},
	{Name: "orange", Label: "Orange", Value: "from-orange-500 to-orange-600"},
	{Name: "pink", Label: "Pink", Value: "from-pink-500 to-pink-600"},
	{Name: "indigo", Label: "Indigo", Value: "from-indigo-500 to-indigo-600"},
	{Name: "teal", Label: "Teal", Value: "from-teal-500 to-teal-600"},
}

// NewColumn constructs a column. Color is opaque; an empty color falls back to the first palette entry.
func NewColumn(id, title, color string, order int, now time.Time) (Column, error) {
	id = strings.TrimSpace(id)
	title = strings.TrimSpace(title)
	color = strings.TrimSpace(color)
	if id == "" {
		return Column{}, ErrInvalidID
	}
	if title == "" {
		return Column{}, ErrInvalidTitle
	}
	if color == "" {
		color = ColumnPalette[0].Value
	}

	return Column{
		ID:        id,
		Title:     title,
		Color:     color,
		Gradient:  GradientFor(color),
		Order:     order,
		CreatedAt: now.UTC(),
	}, nil
}

// GradientFor derives the light background gradient from a `from-<name>-500 ...` color string.
func GradientFor(color string) string {
	name := PaletteName(color)
	if name == "" {
		return ""
	}
	return "from-" + name + "-50 to-" + name + "-100 dark:from-" + name + "-900/20 dark:to-" + name + "-900/20"
}

// PaletteName extracts the palette segment of a color string.
func PaletteName(color string) string {
	parts := strings.Split(strings.TrimSpace(color), "-")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// Less reports display ordering: order first, then insertion sequence.
func (c Column) Less(other Column) bool {
	if c.Order != other.Order {
		return c.Order < other.Order
	}
	return c.Seq < other.Seq
}
