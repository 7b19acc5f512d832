package main

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
)

var (
	whiteImage      = ebiten.NewImage(3, 3)
	adversarySprite *ebiten.Image
)

func init() {
	whiteImage.Fill(color.White)
	// . = transparent, G = dome, W = shine, P/T = hull, B/Y = lights, R = thrusters
	design := []string{
		"......GW......",
		"....GGGGGG....",
		"...G..GG..G...",
		"..PPPPPPPPPP..",
		".B.P.P.P.P.B..",
		"BBPTPTPTPTPPBB",
		"YYPYPYPYPYPYYY",
		".R...R..R...R.",
		"......RR......",
	}
	palette := map[rune]color.RGBA{
		'G': {R: 50, G: 255, B: 50, A: 255},
		'W': {R: 200, G: 255, B: 200, A: 255},
		'P': {R: 150, G: 50, B: 200, A: 255},
		'T': {R: 120, G: 40, B: 180, A: 255},
		'B': {R: 50, G: 150, B: 255, A: 255},
		'Y': {R: 255, G: 255, B: 0, A: 255},
		'R': {R: 255, G: 100, B: 50, A: 255},
	}
	adversarySprite = spriteFromRows(design, palette)
}

// spriteFromRows paints one pixel per character; characters missing from palette stay transparent.
func spriteFromRows(rows []string, palette map[rune]color.RGBA) *ebiten.Image {
	w := 0
	for _, row := range rows {
		w = max(w, len(row))
	}
	img := ebiten.NewImage(w, len(rows))
	for y, row := range rows {
		for x, c := range row {
			if col, ok := palette[c]; ok {
				img.Set(x, y, col)
			}
		}
	}
	return img
}
