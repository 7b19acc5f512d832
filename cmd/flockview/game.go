package main

import (
	"context"
	"fmt"
	"image/color"
	"math"
	"slices"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/tochemey/goakt/v3/actor"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/lao-tseu-is-alive/go-boids-mobility/internal/flock"
	"github.com/lao-tseu-is-alive/go-boids-mobility/internal/scenario"
	"github.com/lao-tseu-is-alive/go-boids-mobility/internal/service"
	"github.com/lao-tseu-is-alive/go-boids-mobility/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-boids-mobility/pkg/ui"
)

var (
	background   = color.RGBA{R: 10, G: 10, B: 30, A: 255}
	agentColor   = color.RGBA{R: 100, G: 200, B: 255, A: 255}
	staticColor  = color.RGBA{R: 230, G: 230, B: 120, A: 255}
	preyColor    = color.RGBA{R: 80, G: 220, B: 80, A: 255}
	ignoredColor = color.RGBA{R: 120, G: 120, B: 120, A: 255}
	zoneColor    = color.RGBA{R: 50, G: 100, B: 255, A: 60}
	anchorColor  = color.RGBA{R: 255, G: 255, B: 255, A: 90}
)

// Game draws the simulation top-down (x east, y north) and advances it every frame.
type Game struct {
	ctx       context.Context
	pid       *actor.PID
	snapshots <-chan *service.Snapshot
	last      *service.Snapshot

	cfg     *scenario.Config
	params  flock.Params
	agents  []int
	anchors map[int]geometry.Vector3D
	width   int
	height  int
	origin  geometry.Vector3D

	panel     *ui.Panel
	speed     *ui.Slider
	zoom      *ui.Slider
	showZones *ui.Checkbox
	showIDs   *ui.Checkbox
	paused    bool
	rightHeld bool

	updateAvg float64
}

func NewGame(ctx context.Context, pid *actor.PID, snapshots <-chan *service.Snapshot, cfg *scenario.Config,
	width, height int, zoom float64) *Game {
	g := &Game{
		ctx:       ctx,
		pid:       pid,
		snapshots: snapshots,
		last:      &service.Snapshot{},
		cfg:       cfg,
		params:    cfg.Defaults.Apply(flock.DefaultParams()),
		agents:    cfg.AgentIDs(),
		anchors:   make(map[int]geometry.Vector3D),
		width:     width,
		height:    height,
	}

	g.panel = ui.NewPanel("Flock", 10, 10, 220, 260)
	g.panel.AddSection("Time")
	g.speed = g.panel.AddSlider("Speed (sim s / s)", 0.1, 20, 1)
	g.panel.AddButton("Pause / resume", func() { g.paused = !g.paused })
	g.panel.AddSection("View")
	g.zoom = g.panel.AddSlider("Zoom (px / m)", 0.2, 10, zoom)
	g.showZones = g.panel.AddCheckbox("Show zones", false)
	g.showIDs = g.panel.AddCheckbox("Show ids", true)
	return g
}

func (g *Game) Update() error {
	start := time.Now()
	defer func() {
		g.updateAvg = g.updateAvg*0.95 + float64(time.Since(start).Microseconds())/1000.0*0.05
	}()

	in := ui.PollInput()
	g.panel.Update(in)

	select {
	case s := <-g.snapshots:
		g.last = s
	default:
	}

	// right click moves every anchor to the pointer
	if ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight) && !g.panel.Contains(in) {
		if !g.rightHeld {
			g.retarget(g.toWorld(in.X, in.Y))
		}
		g.rightHeld = true
	} else {
		g.rightHeld = false
	}

	if g.paused || g.last.Done {
		return nil
	}
	dt := time.Duration(g.speed.Value * float64(time.Second) / float64(ebiten.TPS()))
	return actor.Tell(g.ctx, g.pid, durationpb.New(dt))
}

func (g *Game) retarget(p geometry.Vector3D) {
	for _, id := range g.agents {
		center := geometry.NewVector(p.X, p.Y, g.params.Center.Z)
		if i := slices.IndexFunc(g.last.States, func(s flock.State) bool { return s.ID == id }); i >= 0 {
			center.Z = g.last.States[i].Position.Z
		}
		if err := actor.Tell(g.ctx, g.pid, service.RetargetCommand(id, center)); err == nil {
			g.anchors[id] = center
		}
	}
}

func (g *Game) toScreen(p geometry.Vector3D) (float32, float32) {
	z := g.zoom.Value
	return float32(float64(g.width)/2 + (p.X-g.origin.X)*z), float32(float64(g.height)/2 - (p.Y-g.origin.Y)*z)
}

func (g *Game) toWorld(x, y int) geometry.Vector3D {
	z := g.zoom.Value
	return geometry.NewVector(
		g.origin.X+(float64(x)-float64(g.width)/2)/z,
		g.origin.Y-(float64(y)-float64(g.height)/2)/z,
		0,
	)
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(background)

	for _, a := range g.anchors {
		x, y := g.toScreen(a)
		vector.StrokeLine(screen, x-5, y, x+5, y, 1, anchorColor, true)
		vector.StrokeLine(screen, x, y-5, x, y+5, 1, anchorColor, true)
	}

	for _, s := range g.last.States {
		x, y := g.toScreen(s.Position)
		switch {
		case s.Role == flock.Adversary:
			drawSprite(screen, adversarySprite, x, y, s.Velocity)
		case slices.Contains(g.agents, s.ID):
			if g.showZones.Value {
				vector.StrokeCircle(screen, x, y, float32(g.params.ZoneCohesion*g.zoom.Value), 1, zoneColor, true)
			}
			drawBoid(screen, x, y, s.Velocity)
		case s.Role == flock.Prey:
			vector.FillCircle(screen, x, y, 4, preyColor, true)
		case s.Role == flock.Ignored:
			vector.FillCircle(screen, x, y, 2, ignoredColor, true)
		default:
			vector.FillRect(screen, x-4, y-4, 8, 8, staticColor, true)
		}
		if g.showIDs.Value {
			ebitenutil.DebugPrintAt(screen, fmt.Sprintf("%d z%.0f", s.ID, s.Position.Z), int(x)+6, int(y)+4)
		}
	}

	g.panel.Draw(screen)
	g.drawScale(screen)

	state := "running"
	switch {
	case g.last.Done:
		state = "done"
	case g.paused:
		state = "paused"
	}
	msg := fmt.Sprintf("%s  t=%.1fs / %.0fs  %s\nFPS: %.1f  TPS: %.1f  update: %.2fms\nright click: move anchors",
		g.cfg.Prefix, g.last.At.Seconds(), g.cfg.StopTime, state,
		ebiten.ActualFPS(), ebiten.ActualTPS(), g.updateAvg)
	ebitenutil.DebugPrintAt(screen, msg, g.width-330, 10)
}

// drawScale draws a bar of a round length in the lower left corner.
func (g *Game) drawScale(screen *ebiten.Image) {
	meters := math.Pow(10, math.Floor(math.Log10(150/g.zoom.Value)))
	px := float32(meters * g.zoom.Value)
	x, y := float32(20), float32(g.height-20)
	vector.StrokeLine(screen, x, y, x+px, y, 2, color.White, true)
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("%.0f m", meters), int(x), int(y)-18)
}

func (g *Game) Layout(int, int) (int, int) { return g.width, g.height }

// drawBoid draws a triangle pointing along the horizontal velocity.
func drawBoid(screen *ebiten.Image, x, y float32, v geometry.Vector3D) {
	angle := v.Heading()
	fx, fy := float64(x), float64(y)
	// screen y grows downward
	point := func(a, r float64) (float32, float32) {
		return float32(fx + math.Cos(a)*r), float32(fy - math.Sin(a)*r)
	}
	tipX, tipY := point(angle, 7)
	rightX, rightY := point(angle+2.5, 5)
	leftX, leftY := point(angle-2.5, 5)

	r, g, b := float32(agentColor.R)/255, float32(agentColor.G)/255, float32(agentColor.B)/255
	vertices := []ebiten.Vertex{
		{DstX: tipX, DstY: tipY, SrcX: 1, SrcY: 1, ColorR: r, ColorG: g, ColorB: b, ColorA: 1},
		{DstX: rightX, DstY: rightY, SrcX: 1, SrcY: 1, ColorR: r, ColorG: g, ColorB: b, ColorA: 1},
		{DstX: leftX, DstY: leftY, SrcX: 1, SrcY: 1, ColorR: r, ColorG: g, ColorB: b, ColorA: 1},
	}
	screen.DrawTriangles(vertices, []uint16{0, 1, 2}, whiteImage, &ebiten.DrawTrianglesOptions{})
}

func drawSprite(screen, sprite *ebiten.Image, x, y float32, v geometry.Vector3D) {
	op := &ebiten.DrawImageOptions{}
	w, h := sprite.Bounds().Dx(), sprite.Bounds().Dy()
	op.GeoM.Translate(-float64(w)/2, -float64(h)/2)
	// sprite faces up; screen angles run clockwise
	op.GeoM.Rotate(-v.Heading() + math.Pi/2)
	op.GeoM.Translate(float64(x), float64(y))
	screen.DrawImage(sprite, op)
}
