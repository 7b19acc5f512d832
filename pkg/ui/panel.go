package ui

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// Widget is anything a Panel can lay out.
type Widget interface {
	Update(in Input)
	Draw(screen *ebiten.Image)
	Height() float64
	moveTo(y float64)
}

const (
	titleHeight   = 30.0
	sectionHeight = 25.0
)

type entry struct {
	label  string
	widget Widget
}

type section struct {
	title   string
	entries []entry
}

// Panel stacks widgets in titled sections and scrolls with the mouse wheel.
type Panel struct {
	Title         string
	X, Y          float64
	Width, Height float64
	Scroll        float64

	BGColor     color.RGBA
	BorderColor color.RGBA

	sections []*section
}

// NewPanel returns an empty panel.
func NewPanel(title string, x, y, width, height float64) *Panel {
	return &Panel{
		Title:       title,
		X:           x,
		Y:           y,
		Width:       width,
		Height:      height,
		BGColor:     color.RGBA{R: 40, G: 40, B: 45, A: 230},
		BorderColor: color.RGBA{R: 100, G: 100, B: 110, A: 255},
	}
}

// AddSection starts a new section; widgets added afterwards belong to it.
func (p *Panel) AddSection(title string) {
	p.sections = append(p.sections, &section{title: title})
}

// AddSlider appends a slider to the current section.
func (p *Panel) AddSlider(label string, min, max, value float64) *Slider {
	s := NewSlider(p.X+10, 0, p.Width-20, label, min, max, value)
	p.add(label, s)
	return s
}

// AddCheckbox appends a checkbox to the current section.
func (p *Panel) AddCheckbox(label string, value bool) *Checkbox {
	c := NewCheckbox(p.X+10, 0, label, value)
	p.add(label, c)
	return c
}

// AddButton appends a full-width button to the current section.
func (p *Panel) AddButton(label string, onClick func()) *Button {
	b := NewButton(p.X+10, 0, p.Width-20, 22, label, onClick)
	p.add("", b)
	return b
}

func (p *Panel) add(label string, w Widget) {
	if len(p.sections) == 0 {
		p.AddSection("")
	}
	s := p.sections[len(p.sections)-1]
	s.entries = append(s.entries, entry{label: label, widget: w})
	p.layout()
}

// ContentHeight is the height of everything in the panel, scrolled or not.
func (p *Panel) ContentHeight() float64 {
	h := titleHeight
	for _, s := range p.sections {
		h += sectionHeight
		for _, e := range s.entries {
			h += e.widget.Height()
		}
	}
	return h
}

// layout places every widget for the current scroll offset.
func (p *Panel) layout() {
	y := p.Y + titleHeight - p.Scroll
	for _, s := range p.sections {
		y += sectionHeight
		for _, e := range s.entries {
			offset := 0.0
			if e.label != "" {
				offset = 15
			}
			e.widget.moveTo(y + offset)
			y += e.widget.Height()
		}
	}
}

// Contains reports whether the pointer is over the panel.
func (p *Panel) Contains(in Input) bool {
	return in.Within(p.X, p.Y, p.Width, p.Height)
}

func (p *Panel) Update(in Input) {
	if in.Wheel != 0 && p.Contains(in) {
		maxScroll := max(0, p.ContentHeight()-p.Height+40)
		p.Scroll = max(0, min(maxScroll, p.Scroll-in.Wheel*20))
		p.layout()
	}
	for _, s := range p.sections {
		for _, e := range s.entries {
			e.widget.Update(in)
		}
	}
}

func (p *Panel) Draw(screen *ebiten.Image) {
	vector.FillRect(screen, float32(p.X), float32(p.Y), float32(p.Width), float32(p.Height), p.BGColor, true)
	vector.StrokeRect(screen, float32(p.X), float32(p.Y), float32(p.Width), float32(p.Height), 2, p.BorderColor, true)
	ebitenutil.DebugPrintAt(screen, p.Title, int(p.X+10), int(p.Y+5))

	visible := func(y float64) bool { return y >= p.Y+titleHeight-5 && y <= p.Y+p.Height-10 }
	y := p.Y + titleHeight - p.Scroll
	for _, s := range p.sections {
		if visible(y) {
			vector.FillRect(screen, float32(p.X+5), float32(y), float32(p.Width-10), 20,
				color.RGBA{R: 60, G: 60, B: 70, A: 255}, true)
			ebitenutil.DebugPrintAt(screen, s.title, int(p.X+10), int(y+5))
		}
		y += sectionHeight
		for _, e := range s.entries {
			if visible(y) {
				if e.label != "" {
					ebitenutil.DebugPrintAt(screen, e.label, int(p.X+10), int(y))
				}
				e.widget.Draw(screen)
			}
			y += e.widget.Height()
		}
	}
}
