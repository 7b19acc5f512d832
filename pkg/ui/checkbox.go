package ui

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// Checkbox toggles a boolean on each press.
type Checkbox struct {
	Label string
	Value bool
	X, Y  float64
	Size  float64
	held  bool
}

// NewCheckbox returns a 16 px checkbox.
func NewCheckbox(x, y float64, label string, value bool) *Checkbox {
	return &Checkbox{Label: label, Value: value, X: x, Y: y, Size: 16}
}

// Update toggles once per press, not once per frame the button stays down.
func (c *Checkbox) Update(in Input) {
	if in.Pressed && in.Within(c.X, c.Y, c.Size, c.Size) {
		if !c.held {
			c.Value = !c.Value
			c.held = true
		}
		return
	}
	c.held = false
}

func (c *Checkbox) Draw(screen *ebiten.Image) {
	vector.StrokeRect(screen, float32(c.X), float32(c.Y), float32(c.Size), float32(c.Size), 2,
		color.RGBA{R: 200, G: 200, B: 200, A: 255}, true)
	if c.Value {
		vector.FillRect(screen, float32(c.X+2), float32(c.Y+2), float32(c.Size-4), float32(c.Size-4),
			color.RGBA{R: 100, G: 200, B: 100, A: 255}, true)
	}
}

func (c *Checkbox) Height() float64 { return c.Size + 5 }

func (c *Checkbox) moveTo(y float64) { c.Y = y }
