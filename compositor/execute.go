package compositor

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrPassUnavailable   = errors.New("compositor: render pass unavailable")
	ErrUnsupportedFormat = errors.New("compositor: unsupported output format")
)

// A render pass. Pixel data is stored as rows of interleaved float32
// channels starting from the top row.
type Pass struct {
	Width    int
	Height   int
	Channels int
	Data     []float32

	// Set for passes that store non-color data such as distances; these
	// are written without applying the sRGB transfer function.
	NonColor bool
}

// Create a zeroed pass.
func NewPass(width, height, channels int, nonColor bool) *Pass {
	return &Pass{
		Width:    width,
		Height:   height,
		Channels: channels,
		Data:     make([]float32, width*height*channels),
		NonColor: nonColor,
	}
}

// Get the channels of the pixel at (x, y).
func (p *Pass) Pixel(x, y int) []float32 {
	offset := (y*p.Width + x) * p.Channels
	return p.Data[offset : offset+p.Channels]
}

// The passes produced for a view layer indexed by output name.
type LayerPasses map[string]*Pass

// The rendered data available to the node tree for a single frame.
type Inputs struct {
	Frame int

	// Passes per view layer name and the layer used by render layer nodes
	// that do not select one.
	Layers       map[string]LayerPasses
	DefaultLayer string
}

// Execute the node tree for a rendered frame. Each linked file output slot
// writes its input as an image file. The list of written files is returned.
func (t *NodeTree) Execute(in Inputs) ([]string, error) {
	written := make([]string, 0)
	for _, node := range t.Nodes {
		if node.Type != NodeOutputFile {
			continue
		}

		for slotIndex, slot := range node.FileSlots {
			if slotIndex >= len(node.Inputs) {
				break
			}
			link := t.linkTo(node.Inputs[slotIndex])
			if link == nil {
				continue
			}

			pass, err := resolvePass(link.From, in)
			if err != nil {
				return written, err
			}

			img, err := encodeImage(pass, node.Format)
			if err != nil {
				return written, fmt.Errorf("%w: node %q", err, node.Name)
			}

			outFile := filepath.Join(node.BasePath, FramePath(slot.Path, in.Frame)+".png")
			if err = writePNG(outFile, img, node.Format.ColorMode == "RGBA"); err != nil {
				return written, err
			}
			written = append(written, outFile)
		}
	}

	return written, nil
}

// Expand the frame placeholder of a file slot path. The last run of '#'
// characters is replaced by the zero-padded frame number; paths without a
// placeholder get a 4 digit frame number appended.
func FramePath(slotPath string, frame int) string {
	end := strings.LastIndexByte(slotPath, '#')
	if end == -1 {
		return fmt.Sprintf("%s%04d", slotPath, frame)
	}

	start := end
	for start > 0 && slotPath[start-1] == '#' {
		start--
	}
	width := end - start + 1
	return fmt.Sprintf("%s%0*d%s", slotPath[:start], width, frame, slotPath[end+1:])
}

// Lookup the pass that feeds a render layer output socket.
func resolvePass(socket *Socket, in Inputs) (*Pass, error) {
	node := socket.node
	if node.Type != NodeRenderLayers {
		return nil, fmt.Errorf("%w: node %q of type %s is not a pass source", ErrPassUnavailable, node.Name, node.Type)
	}

	layerName := node.Layer
	if layerName == "" {
		layerName = in.DefaultLayer
	}
	passes, exists := in.Layers[layerName]
	if !exists {
		return nil, fmt.Errorf("%w: view layer %q was not rendered", ErrPassUnavailable, layerName)
	}
	pass, exists := passes[socket.Name]
	if !exists || pass == nil {
		return nil, fmt.Errorf("%w: view layer %q does not provide %q", ErrPassUnavailable, layerName, socket.Name)
	}
	return pass, nil
}

// Convert a pass into an image matching the requested output format.
func encodeImage(pass *Pass, format Format) (image.Image, error) {
	if format.FileFormat != "PNG" {
		return nil, fmt.Errorf("%w: file format %q", ErrUnsupportedFormat, format.FileFormat)
	}
	if format.ColorDepth != "8" && format.ColorDepth != "16" {
		return nil, fmt.Errorf("%w: color depth %q", ErrUnsupportedFormat, format.ColorDepth)
	}
	deep := format.ColorDepth == "16"

	bounds := image.Rect(0, 0, pass.Width, pass.Height)
	var img image.Image
	switch format.ColorMode {
	case "BW":
		if deep {
			img = image.NewGray16(bounds)
		} else {
			img = image.NewGray(bounds)
		}
	case "RGB", "RGBA":
		if deep {
			img = image.NewNRGBA64(bounds)
		} else {
			img = image.NewNRGBA(bounds)
		}
	default:
		return nil, fmt.Errorf("%w: color mode %q", ErrUnsupportedFormat, format.ColorMode)
	}

	keepAlpha := format.ColorMode == "RGBA"
	for y := 0; y < pass.Height; y++ {
		for x := 0; x < pass.Width; x++ {
			r, g, b, a := pixelRGBA(pass, x, y)
			if !pass.NonColor {
				r, g, b = linearToSRGB(r), linearToSRGB(g), linearToSRGB(b)
			}
			if !keepAlpha {
				a = 1
			}

			switch dst := img.(type) {
			case *image.Gray16:
				dst.SetGray16(x, y, color.Gray16{Y: quantize16(luminance(r, g, b))})
			case *image.Gray:
				dst.SetGray(x, y, color.Gray{Y: quantize8(luminance(r, g, b))})
			case *image.NRGBA64:
				dst.SetNRGBA64(x, y, color.NRGBA64{R: quantize16(r), G: quantize16(g), B: quantize16(b), A: quantize16(a)})
			case *image.NRGBA:
				dst.SetNRGBA(x, y, color.NRGBA{R: quantize8(r), G: quantize8(g), B: quantize8(b), A: quantize8(a)})
			}
		}
	}

	return img, nil
}

// Read a pixel as straight (non-premultiplied) RGBA.
func pixelRGBA(pass *Pass, x, y int) (r, g, b, a float32) {
	px := pass.Pixel(x, y)
	switch pass.Channels {
	case 1:
		return px[0], px[0], px[0], 1
	case 3:
		return px[0], px[1], px[2], 1
	case 4:
		a = px[3]
		if a <= 0 {
			return 0, 0, 0, 0
		}
		return px[0] / a, px[1] / a, px[2] / a, a
	}
	return 0, 0, 0, 1
}

// Rec. 709 relative luminance.
func luminance(r, g, b float32) float32 {
	return 0.2126*r + 0.7152*g + 0.0722*b
}

func linearToSRGB(c float32) float32 {
	if c <= 0.0031308 {
		return 12.92 * c
	}
	return float32(1.055*math.Pow(float64(c), 1.0/2.4) - 0.055)
}

func quantize16(c float32) uint16 {
	if c <= 0 {
		return 0
	} else if c >= 1 {
		return math.MaxUint16
	}
	return uint16(c*math.MaxUint16 + 0.5)
}

func quantize8(c float32) uint8 {
	if c <= 0 {
		return 0
	} else if c >= 1 {
		return math.MaxUint8
	}
	return uint8(c*math.MaxUint8 + 0.5)
}

// Write img as a PNG file. If keepAlpha is set the alpha channel is written
// even for fully opaque images.
func writePNG(outFile string, img image.Image, keepAlpha bool) error {
	if err := os.MkdirAll(filepath.Dir(outFile), os.ModePerm); err != nil {
		return fmt.Errorf("compositor: could not create output dir: %w", err)
	}

	f, err := os.Create(outFile)
	if err != nil {
		return fmt.Errorf("compositor: could not create %s: %w", outFile, err)
	}
	if keepAlpha {
		err = encodeRGBAPNG(f, img)
	} else {
		err = png.Encode(f, img)
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("compositor: could not encode %s: %w", outFile, err)
	}
	return f.Close()
}
