package render

import (
	"bytes"
	"context"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"math"

	"github.com/hupe1980/evolatent/latent"
)

// PreviewRenderer draws latents directly: channels 0..2 become RGB (a single
// channel becomes gray), upsampled to the image size, tinted by a hash of the
// prompt. It lets a session run end to end without a diffusion model.
type PreviewRenderer struct {
	Width  int
	Height int
}

// NewPreviewRenderer returns a PreviewRenderer producing width x height PNGs.
func NewPreviewRenderer(width, height int) *PreviewRenderer {
	return &PreviewRenderer{Width: width, Height: height}
}

// Render implements Renderer.
func (p *PreviewRenderer) Render(ctx context.Context, prompt string, pop latent.Population) ([]Result, error) {
	tint := promptTint(prompt)
	out := make([]Result, len(pop))
	for i, v := range pop {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := p.encode(v, tint)
		if err != nil {
			return nil, err
		}
		out[i] = Result{
			Image:  Image{Data: data, MimeType: "image/png", Ext: "png"},
			Latent: v,
		}
	}
	return out, nil
}

func (p *PreviewRenderer) encode(v latent.Vector, tint [3]float64) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, p.Width, p.Height))
	s := v.Shape
	for py := range p.Height {
		ly := py * s.H / p.Height
		for px := range p.Width {
			lx := px * s.W / p.Width
			var rgb [3]uint8
			for ch := range rgb {
				c := min(ch, s.C-1)
				rgb[ch] = toByte(float64(v.At(0, c, ly, lx)) + tint[ch])
			}
			img.SetRGBA(px, py, color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// toByte maps a standard-normal value (roughly [-3,3]) onto [0,255].
func toByte(x float64) uint8 {
	return uint8(math.Round(max(0, min(255, 127.5+x*40))))
}

func promptTint(prompt string) [3]float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(prompt))
	sum := h.Sum32()
	return [3]float64{
		float64(int(sum&0xff)-128) / 256,
		float64(int(sum>>8&0xff)-128) / 256,
		float64(int(sum>>16&0xff)-128) / 256,
	}
}
