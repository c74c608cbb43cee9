package compositor

import (
	"bufio"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"image"
	"io"
)

const (
	pngColorTypeRGBA = 6
	pngFilterNone    = 0
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// Encode an NRGBA or NRGBA64 image as a truecolor + alpha PNG. Unlike
// png.Encode, the alpha channel is always written even when every pixel is
// opaque.
func encodeRGBAPNG(w io.Writer, img image.Image) error {
	var (
		bitDepth uint8
		width    int
		height   int
		rowBytes int
		row      func(y int) []byte
	)
	switch src := img.(type) {
	case *image.NRGBA:
		bitDepth = 8
		width, height = src.Rect.Dx(), src.Rect.Dy()
		rowBytes = width * 4
		row = func(y int) []byte {
			offset := src.PixOffset(src.Rect.Min.X, src.Rect.Min.Y+y)
			return src.Pix[offset : offset+rowBytes]
		}
	case *image.NRGBA64:
		bitDepth = 16
		width, height = src.Rect.Dx(), src.Rect.Dy()
		rowBytes = width * 8
		row = func(y int) []byte {
			offset := src.PixOffset(src.Rect.Min.X, src.Rect.Min.Y+y)
			return src.Pix[offset : offset+rowBytes]
		}
	default:
		return fmt.Errorf("%w: cannot write %T as RGBA", ErrUnsupportedFormat, img)
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(pngSignature); err != nil {
		return err
	}

	header := make([]byte, 13)
	binary.BigEndian.PutUint32(header[0:], uint32(width))
	binary.BigEndian.PutUint32(header[4:], uint32(height))
	header[8] = bitDepth
	header[9] = pngColorTypeRGBA
	// Compression, filter and interlace methods are all 0.
	if err := writePNGChunk(bw, "IHDR", header); err != nil {
		return err
	}

	// Both image types store big-endian samples, matching the PNG layout,
	// so rows are copied as-is behind a "none" filter byte.
	idat := &chunkWriter{w: bw, name: "IDAT"}
	zw := zlib.NewWriter(idat)
	filter := []byte{pngFilterNone}
	for y := 0; y < height; y++ {
		if _, err := zw.Write(filter); err != nil {
			return err
		}
		if _, err := zw.Write(row(y)); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return err
	}

	if err := writePNGChunk(bw, "IEND", nil); err != nil {
		return err
	}
	return bw.Flush()
}

func writePNGChunk(w io.Writer, name string, data []byte) error {
	var header [8]byte
	binary.BigEndian.PutUint32(header[:4], uint32(len(data)))
	copy(header[4:], name)

	crc := crc32.NewIEEE()
	crc.Write(header[4:])
	crc.Write(data)
	var footer [4]byte
	binary.BigEndian.PutUint32(footer[:], crc.Sum32())

	for _, b := range [][]byte{header[:], data, footer[:]} {
		if _, err := w.Write(b); err != nil {
			return err
		}
	}
	return nil
}

// An io.Writer that emits each write as a separate chunk.
type chunkWriter struct {
	w    io.Writer
	name string
}

func (c *chunkWriter) Write(p []byte) (int, error) {
	if err := writePNGChunk(c.w, c.name, p); err != nil {
		return 0, err
	}
	return len(p), nil
}
