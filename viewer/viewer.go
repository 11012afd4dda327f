// Package viewer draws the sea in a raylib window, one frame per tick.
package viewer

import (
	"fmt"
	"math"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/wator/camera"
	"github.com/pthm-cable/wator/components"
	"github.com/pthm-cable/wator/config"
	"github.com/pthm-cable/wator/game"
)

// Largest initial window; bigger grids start zoomed out.
const (
	MaxScreenWidth  = 1280
	MaxScreenHeight = 800
)

const hudHeight = 28

// Window is a game.Viewer backed by a raylib window. Arrow keys pan, the
// mouse wheel zooms, Home resets the view, a left click inspects a cell and
// a right click clears it. Closing the window or pressing Stop ends the
// run; Pause holds the clock between ticks.
type Window struct {
	cam     *camera.Camera
	palette map[components.Kind]rl.Color

	width, height float32
	paused        bool
	stopped       bool

	selected   bool
	selX, selY int
}

var _ game.Viewer = (*Window)(nil)

// Open creates the window for a gridW x gridH sea.
func Open(gridW, gridH int, cfg config.ViewerConfig) *Window {
	cell := max(cfg.CellSize, 1)
	w := min(gridW*cell, MaxScreenWidth)
	h := min(gridH*cell, MaxScreenHeight-hudHeight) + hudHeight

	rl.SetConfigFlags(rl.FlagWindowResizable)
	rl.InitWindow(int32(w), int32(h), "Wa-Tor")
	rl.SetTargetFPS(int32(cfg.TargetFPS))

	cam := camera.New(float32(w), float32(h-hudHeight), gridW, gridH, float32(cell))
	if fit := float32(w) / float32(gridW*cell); fit < 1 {
		cam.SetZoom(fit)
	}

	return &Window{
		cam:    cam,
		width:  float32(w),
		height: float32(h),
		palette: map[components.Kind]rl.Color{
			components.KindNone:  toColor(components.KindNone.Color()),
			components.KindFish:  toColor(components.KindFish.Color()),
			components.KindShark: toColor(components.KindShark.Color()),
		},
	}
}

// Show draws f and reports whether the run should continue. While paused
// it keeps redrawing the same frame.
func (w *Window) Show(f game.Frame) bool {
	for {
		if rl.WindowShouldClose() {
			return false
		}
		w.handleInput()
		w.draw(f)
		if w.stopped {
			return false
		}
		if !w.paused {
			return true
		}
	}
}

// Close closes the window.
func (w *Window) Close() {
	rl.CloseWindow()
}

func (w *Window) draw(f game.Frame) {
	rl.BeginDrawing()
	rl.ClearBackground(w.palette[components.KindNone])

	size := int32(math.Ceil(float64(w.cam.CellPixels())))
	w.cam.VisibleCells(func(cx, cy int, sx, sy float32) {
		kind := f.At(cx, cy)
		if kind == components.KindNone {
			return
		}
		rl.DrawRectangle(int32(sx), int32(sy)+hudHeight, size, size, w.palette[kind])
	})

	if w.selected {
		w.drawSelection(f, size)
	}
	w.drawHUD(f)
	rl.EndDrawing()
}

// drawSelection outlines the inspected cell and describes its occupant.
func (w *Window) drawSelection(f game.Frame, size int32) {
	sx, sy := w.cam.CellToScreen(w.selX, w.selY)
	rl.DrawRectangleLines(int32(sx)-1, int32(sy)+hudHeight-1, size+2, size+2, rl.Yellow)

	text := fmt.Sprintf("(%d, %d) open sea", w.selX, w.selY)
	if f.Inspect != nil {
		if st, ok := f.Inspect(w.selX, w.selY); ok {
			text = st.String()
		}
	}
	rl.DrawRectangle(0, int32(w.height)-24, int32(w.width), 24, rl.Fade(rl.Black, 0.7))
	rl.DrawText(text, 8, int32(w.height)-20, 16, rl.Yellow)
}

func (w *Window) drawHUD(f game.Frame) {
	rl.DrawRectangle(0, 0, int32(w.width), hudHeight, rl.Black)

	ratio := 0.0
	if f.Sharks > 0 {
		ratio = float64(f.Fishes) / float64(f.Sharks)
	}
	rl.DrawText(
		fmt.Sprintf("Chronon %06d | Sharks %d | Fishes %d | Fish/Shark %.2f | FPS %d",
			f.Tick, f.Sharks, f.Fishes, ratio, rl.GetFPS()),
		8, 6, 16, rl.LightGray,
	)

	pauseLabel := "Pause"
	if w.paused {
		pauseLabel = "Resume"
	}
	if gui.Button(rl.Rectangle{X: w.width - 170, Y: 2, Width: 80, Height: hudHeight - 4}, pauseLabel) {
		w.paused = !w.paused
	}
	if gui.Button(rl.Rectangle{X: w.width - 85, Y: 2, Width: 80, Height: hudHeight - 4}, "Stop") {
		w.stopped = true
	}
}

func (w *Window) handleInput() {
	if rl.IsWindowResized() {
		w.width = float32(rl.GetScreenWidth())
		w.height = float32(rl.GetScreenHeight())
		w.cam.Resize(w.width, w.height-hudHeight)
	}

	if rl.IsKeyPressed(rl.KeySpace) {
		w.paused = !w.paused
	}

	// Pan a fixed number of screen pixels per frame.
	const panSpeed = 8
	if rl.IsKeyDown(rl.KeyRight) {
		w.cam.Pan(panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyLeft) {
		w.cam.Pan(-panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyDown) {
		w.cam.Pan(0, panSpeed)
	}
	if rl.IsKeyDown(rl.KeyUp) {
		w.cam.Pan(0, -panSpeed)
	}

	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		w.cam.ZoomBy(1 + wheel*0.1)
	}
	if rl.IsKeyPressed(rl.KeyEqual) || rl.IsKeyPressed(rl.KeyKpAdd) {
		w.cam.ZoomBy(1.25)
	}
	if rl.IsKeyPressed(rl.KeyMinus) || rl.IsKeyPressed(rl.KeyKpSubtract) {
		w.cam.ZoomBy(0.8)
	}
	if rl.IsKeyPressed(rl.KeyHome) {
		w.cam.Reset()
	}

	if rl.IsMouseButtonPressed(rl.MouseButtonLeft) {
		if m := rl.GetMousePosition(); m.Y > hudHeight {
			w.selX, w.selY = w.cam.ScreenToCell(m.X, m.Y-hudHeight)
			w.selected = true
		}
	}
	if rl.IsMouseButtonPressed(rl.MouseButtonRight) {
		w.selected = false
	}
}

// toColor converts 0xRRGGBB to an opaque raylib colour.
func toColor(rgb uint32) rl.Color {
	return rl.NewColor(uint8(rgb>>16), uint8(rgb>>8), uint8(rgb), 255)
}
