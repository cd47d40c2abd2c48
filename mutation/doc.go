// Package mutation derives the next population of latents from the user's
// choice.
//
// Global mutation perturbs the mean of the selected parents with noise
// scaled by (i/K)·rate for child i = 1..K, so the first child stays close to
// the parents and the last explores the most. Regional mutation redraws
// every channel of a latent inside a rectangle given in image pixels and
// leaves the rest bit-identical.
//
// Every vector an Engine returns has been normalized by its latent.Space.
//
//	space := latent.NewSpace(latent.DefaultShape, latent.NewSource(42))
//	eng, err := mutation.New(space, mutation.WithPopulationSize(4))
//	children, rate, err := eng.Global(parents, 1.0)
package mutation
