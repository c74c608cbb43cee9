package renderer

// Render options. Zero values select the scene's render settings.
type Options struct {
	// Frame dims.
	FrameW uint32
	FrameH uint32

	// Number of samples.
	SamplesPerPixel uint32

	// Seed for the sample jitter.
	Seed uint32
}
