// Package render defines the boundary to the image-synthesis pipeline.
//
// A Renderer turns a prompt and a population of latents into one image per
// latent. The pipeline itself is external; this package only carries the
// contract plus a deterministic PreviewRenderer that needs no model.
package render

import (
	"context"
	"fmt"

	"github.com/hupe1980/evolatent/latent"
)

// Image is rendered image data with its metadata.
type Image struct {
	Data     []byte
	MimeType string
	// Ext is the file extension without the dot ("png").
	Ext string
}

// Result pairs a rendered image with the latent it was rendered from.
type Result struct {
	Image  Image
	Latent latent.Vector
}

// Renderer synthesizes images from latents.
//
// Render must return exactly len(pop) results in population order and
// should be deterministic for identical prompt and latents. Implementations
// should stop early when ctx is canceled.
type Renderer interface {
	Render(ctx context.Context, prompt string, pop latent.Population) ([]Result, error)
}

// Func adapts a function to a Renderer.
type Func func(ctx context.Context, prompt string, pop latent.Population) ([]Result, error)

// Render calls f.
func (f Func) Render(ctx context.Context, prompt string, pop latent.Population) ([]Result, error) {
	return f(ctx, prompt, pop)
}

// CheckResults verifies that results line up with pop.
func CheckResults(pop latent.Population, results []Result) error {
	if len(results) != len(pop) {
		return fmt.Errorf("render: got %d results for %d latents", len(results), len(pop))
	}
	for i, r := range results {
		if len(r.Image.Data) == 0 {
			return fmt.Errorf("render: empty image for candidate %d", i)
		}
	}
	return nil
}
