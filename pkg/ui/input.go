package ui

import "github.com/hajimehoshi/ebiten/v2"

// Input is the pointer state widgets react to during one frame.
type Input struct {
	X, Y    int
	Pressed bool
	Wheel   float64
}

// PollInput reads the pointer state from ebiten.
func PollInput() Input {
	x, y := ebiten.CursorPosition()
	_, wheel := ebiten.Wheel()
	return Input{
		X:       x,
		Y:       y,
		Pressed: ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft),
		Wheel:   wheel,
	}
}

// Within reports whether the pointer is inside the rectangle.
func (in Input) Within(x, y, w, h float64) bool {
	px, py := float64(in.X), float64(in.Y)
	return px >= x && px <= x+w && py >= y && py <= y+h
}
