// Package camera maps the toroidal cell grid onto a screen viewport.
package camera

import "math"

// Camera controls the viewport into the sea. World coordinates are cell
// units; the grid wraps on both axes, so panning never hits an edge and a
// zoomed-out view repeats the grid.
type Camera struct {
	// X, Y is the viewport centre in cell units.
	X, Y float32

	// Zoom scales CellSize (1.0 = CellSize pixels per cell).
	Zoom     float32
	CellSize float32

	ViewportW, ViewportH float32
	GridW, GridH         float32

	MinZoom, MaxZoom float32
}

// New creates a camera centred on the grid at 1:1 zoom.
func New(viewportW, viewportH float32, gridW, gridH int, cellSize float32) *Camera {
	if cellSize < 1 {
		cellSize = 1
	}
	return &Camera{
		X:         float32(gridW) / 2,
		Y:         float32(gridH) / 2,
		Zoom:      1,
		CellSize:  cellSize,
		ViewportW: viewportW,
		ViewportH: viewportH,
		GridW:     float32(gridW),
		GridH:     float32(gridH),
		MinZoom:   1 / cellSize, // one pixel per cell
		MaxZoom:   8,
	}
}

// CellPixels returns the on-screen size of one cell.
func (c *Camera) CellPixels() float32 { return c.CellSize * c.Zoom }

// CellToScreen returns the top-left screen corner of cell (cx, cy), taking
// the shortest way round the torus from the viewport centre.
func (c *Camera) CellToScreen(cx, cy int) (sx, sy float32) {
	dx := toroidalDelta(float32(cx), c.X, c.GridW)
	dy := toroidalDelta(float32(cy), c.Y, c.GridH)
	px := c.CellPixels()
	return c.ViewportW/2 + dx*px, c.ViewportH/2 + dy*px
}

// ScreenToCell returns the cell under a screen point.
func (c *Camera) ScreenToCell(sx, sy float32) (cx, cy int) {
	px := c.CellPixels()
	wx := mod(c.X+(sx-c.ViewportW/2)/px, c.GridW)
	wy := mod(c.Y+(sy-c.ViewportH/2)/px, c.GridH)
	return int(wx), int(wy)
}

// VisibleCells calls fn for every cell tile that overlaps the viewport,
// with the tile's screen position. Cells repeat when the grid is smaller
// than the view.
func (c *Camera) VisibleCells(fn func(cx, cy int, sx, sy float32)) {
	px := c.CellPixels()
	left := c.X - c.ViewportW/(2*px)
	top := c.Y - c.ViewportH/(2*px)
	startX := int(math.Floor(float64(left)))
	startY := int(math.Floor(float64(top)))
	cols := int(math.Ceil(float64(c.ViewportW/px))) + 1
	rows := int(math.Ceil(float64(c.ViewportH/px))) + 1
	gw, gh := int(c.GridW), int(c.GridH)

	for j := 0; j < rows; j++ {
		wy := startY + j
		sy := c.ViewportH/2 + (float32(wy)-c.Y)*px
		cy := ((wy % gh) + gh) % gh
		for i := 0; i < cols; i++ {
			wx := startX + i
			sx := c.ViewportW/2 + (float32(wx)-c.X)*px
			cx := ((wx % gw) + gw) % gw
			fn(cx, cy, sx, sy)
		}
	}
}

// Resize updates the viewport dimensions.
func (c *Camera) Resize(viewportW, viewportH float32) {
	c.ViewportW = viewportW
	c.ViewportH = viewportH
}

// Pan moves the camera by a delta in screen pixels, wrapping round the grid.
func (c *Camera) Pan(dx, dy float32) {
	px := c.CellPixels()
	c.X = mod(c.X+dx/px, c.GridW)
	c.Y = mod(c.Y+dy/px, c.GridH)
}

// SetZoom sets the zoom level, clamped to min/max.
func (c *Camera) SetZoom(zoom float32) {
	c.Zoom = clamp(zoom, c.MinZoom, c.MaxZoom)
}

// ZoomBy multiplies the current zoom by the given factor.
func (c *Camera) ZoomBy(factor float32) {
	c.SetZoom(c.Zoom * factor)
}

// Reset returns the camera to the default position and zoom.
func (c *Camera) Reset() {
	c.X = c.GridW / 2
	c.Y = c.GridH / 2
	c.Zoom = 1
}

// toroidalDelta computes the shortest signed distance from 'from' to 'to'
// in a toroidal space of the given size.
func toroidalDelta(to, from, size float32) float32 {
	d := to - from
	if d > size/2 {
		d -= size
	} else if d < -size/2 {
		d += size
	}
	return d
}

// mod computes the positive modulo (Go's % can return negative).
func mod(x, m float32) float32 {
	r := float32(math.Mod(float64(x), float64(m)))
	if r < 0 {
		r += m
	}
	return r
}

func clamp(x, lo, hi float32) float32 {
	return min(max(x, lo), hi)
}
