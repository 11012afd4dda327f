package game

import (
	"github.com/pthm-cable/wator/components"
	"github.com/pthm-cable/wator/sea"
)

// Frame is the read-only view of one tick handed to a Viewer.
type Frame struct {
	Tick   int
	Number int // frame counter, persisted in checkpoints

	Width, Height int
	// Cells holds the occupant kind of every cell, row-major. It is reused
	// between frames; viewers must copy it to keep it.
	Cells []components.Kind

	Sharks, Fishes int

	// Inspect describes the creature in a cell. Valid only during Show.
	Inspect func(x, y int) (sea.State, bool)
}

// At returns the occupant kind of cell (x, y).
func (f Frame) At(x, y int) components.Kind {
	return f.Cells[y*f.Width+x]
}

// Viewer consumes one frame per tick. Returning false asks the clock to
// stop after the current tick.
type Viewer interface {
	Show(f Frame) bool
}

// ViewerFunc adapts a function to the Viewer interface.
type ViewerFunc func(f Frame) bool

// Show calls fn(f).
func (fn ViewerFunc) Show(f Frame) bool { return fn(f) }
