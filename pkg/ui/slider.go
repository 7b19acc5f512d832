package ui

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// Slider edits a float in [Min, Max] by dragging.
type Slider struct {
	Label    string
	Value    float64
	Min, Max float64
	X, Y     float64
	W, H     float64
	// Format renders the value next to the bar, "%.2f" when empty.
	Format string
}

// NewSlider returns a slider clamped to its range.
func NewSlider(x, y, w float64, label string, min, max, value float64) *Slider {
	s := &Slider{Label: label, Min: min, Max: max, X: x, Y: y, W: w, H: 10}
	s.Set(value)
	return s
}

// Set stores v clamped to [Min, Max].
func (s *Slider) Set(v float64) {
	s.Value = max(s.Min, min(s.Max, v))
}

// Ratio is the position of Value within the range, in [0, 1].
func (s *Slider) Ratio() float64 {
	if s.Max == s.Min {
		return 0
	}
	return (s.Value - s.Min) / (s.Max - s.Min)
}

func (s *Slider) Update(in Input) {
	if in.Pressed && in.Within(s.X, s.Y, s.W, s.H) {
		s.Set(s.Min + (float64(in.X)-s.X)/s.W*(s.Max-s.Min))
	}
}

func (s *Slider) Draw(screen *ebiten.Image) {
	vector.FillRect(screen, float32(s.X), float32(s.Y), float32(s.W), float32(s.H), color.RGBA{R: 80, G: 80, B: 80, A: 255}, true)
	vector.FillRect(screen, float32(s.X), float32(s.Y), float32(s.W*s.Ratio()), float32(s.H), color.RGBA{R: 200, G: 200, B: 200, A: 255}, true)
	format := s.Format
	if format == "" {
		format = "%.2f"
	}
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf(format, s.Value), int(s.X+s.W-60), int(s.Y-15))
}

func (s *Slider) Height() float64 { return s.H + 25 }

func (s *Slider) moveTo(y float64) { s.Y = y }
