// Package math32 provides float32 vector kernels used by the latent and
// mutation packages. Accumulation happens in float64 so that norms of
// 16k-element latents stay accurate.
package math32

import "math"

// Dot calculates the dot product of two vectors.
// Assumes vectors are the same length (caller's responsibility).
func Dot(a, b []float32) float64 {
	var ret float64
	for i := range a {
		ret += float64(a[i]) * float64(b[i])
	}
	return ret
}

// Norm returns the Euclidean norm of a.
func Norm(a []float32) float64 {
	return math.Sqrt(Dot(a, a))
}

// ScaleInPlace multiplies all elements of a by scalar.
func ScaleInPlace(a []float32, scalar float64) {
	for i := range a {
		a[i] = float32(float64(a[i]) * scalar)
	}
}

// AxpyInPlace computes dst += alpha * x.
func AxpyInPlace(dst, x []float32, alpha float64) {
	for i := range dst {
		dst[i] = float32(float64(dst[i]) + alpha*float64(x[i]))
	}
}

// Mean writes the elementwise mean of vs into dst.
// All slices must have len(dst) elements.
func Mean(dst []float32, vs ...[]float32) {
	if len(vs) == 0 {
		return
	}
	inv := 1 / float64(len(vs))
	for i := range dst {
		var sum float64
		for _, v := range vs {
			sum += float64(v[i])
		}
		dst[i] = float32(sum * inv)
	}
}

// SquaredL2 returns the squared Euclidean distance between a and b.
// Assumes vectors are the same length (caller's responsibility).
func SquaredL2(a, b []float32) float64 {
	var ret float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		ret += d * d
	}
	return ret
}
