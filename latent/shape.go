package latent

import (
	"fmt"
	"math"
)

// Shape is the fixed tensor shape of one candidate's latent, NCHW.
type Shape struct {
	N int `json:"n" yaml:"n"`
	C int `json:"c" yaml:"c"`
	H int `json:"h" yaml:"h"`
	W int `json:"w" yaml:"w"`
}

// DefaultShape is the SDXL-turbo latent shape for 512x512 images.
var DefaultShape = Shape{N: 1, C: 4, H: 64, W: 64}

// Len returns the total element count.
func (s Shape) Len() int { return s.N * s.C * s.H * s.W }

// TargetNorm returns sqrt(Len()).
func (s Shape) TargetNorm() float64 { return math.Sqrt(float64(s.Len())) }

// Validate reports whether every dimension is positive.
func (s Shape) Validate() error {
	if s.N <= 0 || s.C <= 0 || s.H <= 0 || s.W <= 0 {
		return fmt.Errorf("latent: invalid shape %v", s)
	}
	return nil
}

// Index returns the flat offset of element (n, c, y, x).
func (s Shape) Index(n, c, y, x int) int {
	return ((n*s.C+c)*s.H+y)*s.W + x
}

func (s Shape) String() string {
	return fmt.Sprintf("(%d,%d,%d,%d)", s.N, s.C, s.H, s.W)
}
