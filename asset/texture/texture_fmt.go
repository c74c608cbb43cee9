package texture

type Format uint32

const (
	Luminance8 Format = iota
	Rgba8
)

// Number of bytes used by a single texel.
func (f Format) Stride() int {
	if f == Luminance8 {
		return 1
	}
	return 4
}
