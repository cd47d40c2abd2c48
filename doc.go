// Package evolatent provides interactive evolution of diffusion-model latents.
//
// A Session holds a population of latent vectors, has them rendered into
// images by an external pipeline, and lets a user steer the next population
// by selecting favorites or marking crop regions. Every step is persisted
// so a run can be inspected or resumed later.
//
// # Quick Start
//
//	blobs := blobstore.NewLocalStore("./runs")
//	st := store.New(blobs)
//	s, _ := evolatent.New(render.NewPreviewRenderer(512, 512), st,
//	    evolatent.WithSeed(42),
//	    evolatent.WithLogLevel(slog.LevelInfo),
//	)
//
//	_ = s.SetPrompt("a lighthouse at dusk")
//	_ = s.Generate(ctx)          // Ready(0): four fresh candidates
//	_ = s.Select(1)
//	_ = s.Generate(ctx)          // Ready(1): children of candidate 1, rate decays
//
// # Mutations
//
// Global mutation blends Gaussian noise into the selected parents (or their
// mean) with a per-child strength i/K scaled by the mutation rate, then
// rescales every child to norm sqrt(numel). Regional mutation resamples only
// the latent cells under a candidate's crop rectangle:
//
//	_ = s.SetRegion(2, mutation.Rect{X0: 128, Y0: 128, X1: 384, Y1: 384})
//	_ = s.ApplyRegionalMutation(ctx)
//
// # State Machine
//
//	Idle --SetPrompt--> PromptSet --Generate--> Generating --ok--> Ready(n)
//	Ready(n) --Select/SetRegion--> Ready(n)
//	Ready(n) --Generate/ApplyRegionalMutation--> Generating --ok--> Ready(n+1)
//	Generating --error--> prior state
//
// A failed transition leaves no new complete step behind. While a
// transition runs, other transition requests fail with ErrBusy.
//
// # Persistence
//
// Steps live under <session-id>/step_<n>/ in any blobstore.BlobStore: local
// disk, memory, S3 or MinIO. See the store package for the layout.
package evolatent
