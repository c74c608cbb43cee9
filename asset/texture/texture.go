package texture

import (
	"fmt"
	"image"
	"image/color"
	"math"

	// Decoders registered with the image package.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/achilleasa/polaris-bake/asset"
	"github.com/achilleasa/polaris-bake/types"
)

// A texture image and its metadata. Texel data is stored top-down as 8-bit
// channels so the texture can be gob-encoded into compiled scenes.
type Texture struct {
	Format Format

	Width  uint32
	Height uint32

	Data []byte
}

// Create a new texture from a Resource.
func New(res *asset.Resource) (*Texture, error) {
	img, imgFmt, err := image.Decode(res)
	if err != nil {
		return nil, fmt.Errorf("texture: could not decode %s: %w", res.Path(), err)
	}

	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, fmt.Errorf("texture: %s image %s has no pixels", imgFmt, res.Path())
	}

	texture := &Texture{
		Format: Rgba8,
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
	}

	switch img.ColorModel() {
	case color.GrayModel, color.Gray16Model:
		texture.Format = Luminance8
	}

	texture.Data = make([]byte, int(texture.Width*texture.Height)*texture.Format.Stride())
	offset := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := img.At(x, y)
			if texture.Format == Luminance8 {
				texture.Data[offset] = color.GrayModel.Convert(c).(color.Gray).Y
				offset++
				continue
			}

			nrgba := color.NRGBAModel.Convert(c).(color.NRGBA)
			texture.Data[offset] = nrgba.R
			texture.Data[offset+1] = nrgba.G
			texture.Data[offset+2] = nrgba.B
			texture.Data[offset+3] = nrgba.A
			offset += 4
		}
	}

	return texture, nil
}

// Sample the texture at the given uv coordinates using nearest filtering.
// Coordinates wrap around; v=0 maps to the bottom row as in wavefront files.
func (t *Texture) Sample(uv types.Vec2) types.Vec3 {
	u := wrap(uv[0])
	v := wrap(uv[1])

	x := int(u * float32(t.Width))
	y := int((1 - v) * float32(t.Height))
	if x >= int(t.Width) {
		x = int(t.Width) - 1
	}
	if y >= int(t.Height) {
		y = int(t.Height) - 1
	}

	offset := (y*int(t.Width) + x) * t.Format.Stride()
	if t.Format == Luminance8 {
		l := float32(t.Data[offset]) / 255.0
		return types.Vec3{l, l, l}
	}
	return types.Vec3{
		float32(t.Data[offset]) / 255.0,
		float32(t.Data[offset+1]) / 255.0,
		float32(t.Data[offset+2]) / 255.0,
	}
}

func wrap(c float32) float32 {
	c = c - float32(math.Floor(float64(c)))
	if c < 0 {
		c = 0
	}
	return c
}
