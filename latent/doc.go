// Package latent defines the noise tensors a diffusion pipeline consumes and
// the sampling and normalization primitives over them.
//
// A [Vector] is a float32 tensor in NCHW layout with a fixed [Shape]. Every
// vector handed out by [Space] (sampled, normalized or decoded from a
// normalized source) has Euclidean norm sqrt(Shape.Len()), the expected norm
// of a standard-normal draw of that size.
//
//	space := latent.NewSpace(latent.DefaultShape, latent.NewSource(42))
//	v := space.Sample()
//	n, _ := space.Normalize(v) // n.Norm() == space.TargetNorm()
package latent
