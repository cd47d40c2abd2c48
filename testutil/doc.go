// Package testutil provides testing utilities for evolatent.
//
// This package is intended for use in tests and benchmarks only.
//
//	rng := testutil.NewRNG(seed)
//	space := latent.NewSpace(latent.DefaultShape, rng) // RNG is a latent.Source
//	vec := make([]float32, 128)
//	rng.FillGaussian(vec)
//	testutil.Norm(vec)
package testutil
