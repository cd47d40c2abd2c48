package mutation

import (
	"fmt"
	"math"
)

// Rect is a rectangle in rendered-image pixel coordinates. X1 and Y1 are
// exclusive.
type Rect struct {
	X0 int `json:"x0" yaml:"x0"`
	Y0 int `json:"y0" yaml:"y0"`
	X1 int `json:"x1" yaml:"x1"`
	Y1 int `json:"y1" yaml:"y1"`
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", r.X0, r.Y0, r.X1, r.Y1)
}

// Region is a half-open rectangle on the latent grid.
type Region struct {
	X0, Y0, X1, Y1 int
}

// Empty reports whether the region covers no cell.
func (r Region) Empty() bool { return r.X1 <= r.X0 || r.Y1 <= r.Y0 }

// Area returns the number of grid cells per channel.
func (r Region) Area() int {
	if r.Empty() {
		return 0
	}
	return (r.X1 - r.X0) * (r.Y1 - r.Y0)
}

// Contains reports whether grid cell (x, y) is inside the region.
func (r Region) Contains(x, y int) bool {
	return x >= r.X0 && x < r.X1 && y >= r.Y0 && y < r.Y1
}

// Grid maps image pixels onto the latent grid.
type Grid struct {
	ImageWidth, ImageHeight   int
	LatentWidth, LatentHeight int
}

// Scale returns image pixels per latent cell along each axis.
func (g Grid) Scale() (sx, sy float64) {
	return float64(g.ImageWidth) / float64(g.LatentWidth), float64(g.ImageHeight) / float64(g.LatentHeight)
}

// ToLatent converts r by flooring the start and ceiling the end, then
// clamps both ends to the grid. It returns ErrEmptyRegion when the result
// has zero width or height.
func (g Grid) ToLatent(r Rect) (Region, error) {
	sx, sy := g.Scale()
	reg := Region{
		X0: clamp(int(math.Floor(float64(r.X0)/sx)), g.LatentWidth),
		Y0: clamp(int(math.Floor(float64(r.Y0)/sy)), g.LatentHeight),
		X1: clamp(int(math.Ceil(float64(r.X1)/sx)), g.LatentWidth),
		Y1: clamp(int(math.Ceil(float64(r.Y1)/sy)), g.LatentHeight),
	}
	if reg.Empty() {
		return Region{}, fmt.Errorf("%w: %v maps to %v", ErrEmptyRegion, r, reg)
	}
	return reg, nil
}

func clamp(v, hi int) int {
	return max(0, min(v, hi))
}
